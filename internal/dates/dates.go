// Package dates holds the calendar rules the ledger and alert rules share:
// civil days, elapsed whole days and months, and due dates.
package dates

import (
	"fmt"
	"time"
)

// DateLayout is the storage and wire format of civil dates.
const DateLayout = "2006-01-02"

// TimestampLayout is the storage format of instants. It sorts lexically.
const TimestampLayout = "2006-01-02T15:04:05Z"

// DaysPerMonth is the month length used for interest accrual.
const DaysPerMonth = 30

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// Day returns the civil date of t, in t's own location, as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the first instant of the civil day daysAgo days before
// now, in now's location.
func StartOfDay(now time.Time, daysAgo int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-daysAgo, 0, 0, 0, 0, now.Location())
}

// Today returns the civil date of the clock's current instant.
func Today(c Clock) time.Time {
	return Day(c.Now())
}

// Date builds a civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from one civil date to another.
// The result is negative when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// MonthsElapsed converts elapsed days to whole months. Any started month
// counts as a full one; zero or negative days give zero.
func MonthsElapsed(days int) int {
	if days <= 0 {
		return 0
	}
	return (days + DaysPerMonth - 1) / DaysPerMonth
}

// DueDate returns the civil date term months after the pawn date.
// Overflowing days roll into the next month (Jan 31 + 1 month = Mar 3).
func DueDate(pawnDate time.Time, termMonths int) time.Time {
	return Day(pawnDate).AddDate(0, termMonths, 0)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a civil date for storage.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// FormatTimestamp renders an instant for storage, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored instant.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
