package store

import (
	"time"

	"github.com/sirupsen/logrus"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/sequence"
	"dokan/backend/internal/snapshot"
)

// numbering returns the cursor of a family inside s and a lookup for numbers
// already held by a document of that family.
func numbering(s *snapshot.Snapshot, family sequence.Family) (*domain.SequenceCursor, func(number string) bool, error) {
	switch family {
	case sequence.Order:
		return &s.OrderSequence, func(n string) bool {
			_, found := orders.find(s, func(o domain.Order) bool { return o.OrderNumber == n })
			return found
		}, nil
	case sequence.Challan:
		return &s.ChallanSequence, func(n string) bool {
			_, found := challans.find(s, func(c domain.Challan) bool { return c.ChallanNumber == n })
			return found
		}, nil
	case sequence.ServiceJob:
		return &s.ServiceJobSequence, func(n string) bool {
			_, found := serviceJobs.find(s, func(j domain.ServiceJob) bool { return j.JobNumber == n })
			return found
		}, nil
	}
	return nil, nil, invalidf("unknown sequence family %q", family)
}

// firstFree draws numbers from cursor until one is not taken. It returns that
// number, the cursor to store with it and the numbers passed over.
func firstFree(family sequence.Family, cursor domain.SequenceCursor, today time.Time, taken func(string) bool) (string, domain.SequenceCursor, []string, error) {
	var skipped []string
	for {
		number, next, err := sequence.Next(family, cursor, today)
		if err != nil {
			return "", cursor, skipped, err
		}
		cursor = next
		if !taken(number) {
			return number, cursor, skipped, nil
		}
		skipped = append(skipped, number)
	}
}

// nextNumber advances the family's cursor and returns the first number not
// already taken. A stale cursor, for example after restoring an older backup,
// is skipped forward instead of issuing a duplicate.
func (t *tx) nextNumber(family sequence.Family) (string, error) {
	cursor, taken, err := numbering(t.s, family)
	if err != nil {
		return "", err
	}
	number, next, skipped, err := firstFree(family, *cursor, t.now.In(t.st.loc), taken)
	if err != nil {
		return "", err
	}
	for _, n := range skipped {
		t.st.logger.WithFields(logrus.Fields{
			"family": family,
			"number": n,
		}).Warn("document number already in use; skipping")
		t.st.metrics.SequenceSkipped(string(family))
	}
	*cursor = next
	return number, nil
}

// PeekNumber returns the number the next document of family would get,
// without reserving it.
func (st *Store) PeekNumber(family sequence.Family) (string, error) {
	var (
		number string
		err    error
	)
	st.view(func(s *snapshot.Snapshot) {
		cursor, taken, nerr := numbering(s, family)
		if nerr != nil {
			err = nerr
			return
		}
		number, _, _, err = firstFree(family, *cursor, st.now().In(st.loc), taken)
	})
	return number, err
}
