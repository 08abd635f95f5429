package review

import (
	"fmt"
	"time"
)

// Cutoff normalizes due instants onto day granularity: every due time
// lands on a fixed local clock hour, so "due" means "due today" rather
// than "due 24 hours after the last review". A user reviewing at 11pm
// and again the next morning sees each note exactly once per day.
type Cutoff struct {
	hour int
	loc  *time.Location
}

// NewCutoff builds a Cutoff for the given clock hour and location.
// A nil location means the system's local timezone.
func NewCutoff(hour int, loc *time.Location) (Cutoff, error) {
	if hour < 0 || hour > 23 {
		return Cutoff{}, fmt.Errorf("cutoff hour must be in [0,23], got %d", hour)
	}
	if loc == nil {
		loc = time.Local
	}
	return Cutoff{hour: hour, loc: loc}, nil
}

// Normalize returns the cutoff instant on the same calendar date as t,
// in the cutoff's location.
func (c Cutoff) Normalize(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.hour, 0, 0, 0, c.loc)
}

// Hour reports the configured cutoff hour.
func (c Cutoff) Hour() int { return c.hour }
