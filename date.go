package recall

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time component. It compiles to the date
// primitive and round-trips through the cache as an ISO-8601 string.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String returns the ISO-8601 form, e.g. "2024-07-01".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
