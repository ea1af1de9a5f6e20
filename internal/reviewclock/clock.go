// Package reviewclock holds the calendar-day arithmetic the scheduler relies on.
//
// All review dates are normalized to 00:00 of their day in a single reference
// timezone, so due-ness never depends on the time of day.
package reviewclock

import (
	"fmt"
	"time"
)

// ParseLocation parses an IANA timezone identifier (e.g., "Asia/Shanghai").
// Empty string and "UTC" map to UTC.
func ParseLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// Clock converts instants to calendar days in the reference timezone
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a clock for the given location using the wall clock
func New(loc *time.Location) Clock {
	return NewWithNow(loc, time.Now)
}

// NewWithNow creates a clock with an injected time source
func NewWithNow(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Clock{loc: loc, now: now}
}

// Location returns the reference timezone
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Now returns the current instant in the reference timezone
func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now().In(c.Location())
	}
	return c.now().In(c.Location())
}

// Today returns the start of the current day
func (c Clock) Today() time.Time {
	return c.StartOfDay(c.Now())
}

// StartOfDay returns 00:00 of t's calendar day in the reference timezone
func (c Clock) StartOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location())
}

// AddDays returns the start of the day n calendar days after t's day
func (c Clock) AddDays(t time.Time, n int) time.Time {
	y, m, d := t.In(c.Location()).Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, c.Location())
}

// DaysBetween returns the absolute number of calendar days between a and b
func (c Clock) DaysBetween(a, b time.Time) int {
	// Count on UTC midnights so DST transitions cannot shave an hour off a day.
	ay, am, ad := a.In(c.Location()).Date()
	by, bm, bd := b.In(c.Location()).Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(ub.Sub(ua).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// IsDue reports whether nextReviewAt falls on or before the reference day
func (c Clock) IsDue(nextReviewAt, reference time.Time) bool {
	return !c.StartOfDay(nextReviewAt).After(c.StartOfDay(reference))
}
