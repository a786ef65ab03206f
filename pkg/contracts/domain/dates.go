package domain

import (
	"time"
)

// DateOf projects a timestamp onto its calendar date (UTC midnight).
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the whole-day count from a to b; both are expected to
// be calendar dates produced by DateOf.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// DateID encodes a calendar date as the compact YYYYMMDD integer used by the
// panel output.
func DateID(d time.Time) int32 {
	u := d.UTC()
	return int32(u.Year()*10000 + int(u.Month())*100 + u.Day())
}
