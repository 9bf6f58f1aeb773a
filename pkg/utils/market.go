package utils

import (
	"time"
)

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// WithinMarketHours reports whether now (interpreted in its own location)
// falls on a weekday within [open, close] inclusive. open and close are
// "HH:MM" strings; malformed bounds count as outside market hours.
func WithinMarketHours(now time.Time, open, close string) bool {
	if IsWeekend(now) {
		return false
	}

	openMin, err := ParseClock(open)
	if err != nil {
		return false
	}
	closeMin, err := ParseClock(close)
	if err != nil {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()
	return nowMin >= openMin && nowMin <= closeMin
}

// NextMarketOpen returns the next weekday instant at the open time, after now.
func NextMarketOpen(now time.Time, open string) time.Time {
	openMin, err := ParseClock(open)
	if err != nil {
		openMin = 9*60 + 30
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), openMin/60, openMin%60, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for IsWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
