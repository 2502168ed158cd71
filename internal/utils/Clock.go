package utils

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}

// Today returns the calendar day of the clock's current time as midnight UTC.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// DateOf strips the time of day, keeping the calendar day in the value's own location, and returns it at midnight UTC.
// All ledger and planning arithmetic works on such dates.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a shorthand for a UTC calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetweenInclusive counts calendar days in [from, to]. Returns 0 when to is before from.
func DaysBetweenInclusive(from, to time.Time) int {
	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
