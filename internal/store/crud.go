package store

import (
	"context"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
	"dokan/backend/internal/snapshot"
)

func (t *tx) newID(prefix string) string {
	return t.st.newID(prefix)
}

// addRow validates v, lets prepare assign its id and check references, then
// inserts it.
func addRow[T domain.Entity](ctx context.Context, st *Store, op string, tb table[T], v T, prepare func(t *tx, v *T) error) (T, error) {
	var out T
	if err := st.check(v); err != nil {
		return out, err
	}
	err := st.mutate(ctx, op, func(t *tx) error {
		if err := prepare(t, &v); err != nil {
			return err
		}
		tb.insert(t.s, v)
		t.emit(events.Created, tb.family, v.EntityID())
		out = tb.clone(v)
		return nil
	})
	return out, err
}

// updateRow replaces the stored row with v after merge has carried over
// fields callers may not change and checked references.
func updateRow[T domain.Entity](ctx context.Context, st *Store, op string, tb table[T], v T, merge func(t *tx, prev T, next *T) error) (T, error) {
	var out T
	if err := st.check(v); err != nil {
		return out, err
	}
	err := st.mutate(ctx, op, func(t *tx) error {
		prev, err := tb.get(t.s, v.EntityID())
		if err != nil {
			return err
		}
		if merge != nil {
			if err := merge(t, prev, &v); err != nil {
				return err
			}
		}
		if err := tb.put(t.s, v); err != nil {
			return err
		}
		t.emit(events.Updated, tb.family, v.EntityID())
		out = tb.clone(v)
		return nil
	})
	return out, err
}

func getRow[T domain.Entity](st *Store, tb table[T], id string) (T, error) {
	var (
		out T
		err error
	)
	st.view(func(s *snapshot.Snapshot) {
		out, err = tb.get(s, id)
		out = tb.clone(out)
	})
	return out, err
}

func listRows[T domain.Entity](st *Store, tb table[T], pred func(T) bool) []T {
	var out []T
	st.view(func(s *snapshot.Snapshot) { out = tb.list(s, pred) })
	return out
}

func requireRef[T domain.Entity](t *tx, tb table[T], id string) error {
	if id == "" {
		return preconditionf("%s reference is required", tb.family)
	}
	if !tb.has(t.s, id) {
		return preconditionf("%s %s does not exist", tb.family, id)
	}
	return nil
}

// checkParent validates an optional parent link inside one self-referencing
// collection and rejects cycles.
func checkParent[T domain.Entity](t *tx, tb table[T], selfID string, parentID string, parentOf func(T) string) error {
	if parentID == "" {
		return nil
	}
	if err := requireRef(t, tb, parentID); err != nil {
		return err
	}
	if selfID != "" && descendants(tb.all(t.s), selfID, parentOf)[parentID] {
		return invalidf("%s %s cannot be placed under its own descendant %s", tb.family, selfID, parentID)
	}
	return nil
}
