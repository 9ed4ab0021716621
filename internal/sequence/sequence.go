// Package sequence issues human-readable document numbers from a persisted
// per-family {date, serial} cursor.
package sequence

import (
	"fmt"
	"time"

	"dokan/backend/internal/domain"
)

type Family string

const (
	Order      Family = "order"
	Challan    Family = "challan"
	ServiceJob Family = "service-job"
)

const dateLayout = "2006-01-02"

type format struct {
	prefix string
	width  int
}

var formats = map[Family]format{
	Order:      {prefix: "", width: 4},
	Challan:    {prefix: "CH-", width: 3},
	ServiceJob: {prefix: "SJ-", width: 3},
}

// Next returns the number following cursor for the calendar day of today,
// together with the cursor to persist alongside the numbered document.
func Next(family Family, cursor domain.SequenceCursor, today time.Time) (string, domain.SequenceCursor, error) {
	if _, ok := formats[family]; !ok {
		return "", cursor, fmt.Errorf("unknown sequence family %q", family)
	}

	date := today.Format(dateLayout)
	next := domain.SequenceCursor{Date: date, Serial: 1}
	if cursor.Date == date {
		next.Serial = cursor.Serial + 1
	}
	return Format(family, today, next.Serial), next, nil
}

// Format renders a number as <prefix><DDMMYYYY>-<serial>.
func Format(family Family, day time.Time, serial int) string {
	f := formats[family]
	return fmt.Sprintf("%s%s-%0*d", f.prefix, day.Format("02012006"), f.width, serial)
}

// Peek returns the number Next would issue without advancing anything.
func Peek(family Family, cursor domain.SequenceCursor, today time.Time) (string, error) {
	number, _, err := Next(family, cursor, today)
	return number, err
}
