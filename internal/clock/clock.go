// Package clock provides the scheduler's wall-clock source, replaceable
// in tests without touching the real monotonic timeline.
package clock

import "time"

// Clock returns the current time. Now must return values from a single,
// monotonically-comparable timeline for the duration of a process; it is
// the caller's responsibility to feed skew corrections through
// Scheduler.AdjustAll rather than through Clock itself.
type Clock interface {
	Now() time.Time
}

// Real is the production Clock, backed by time.Now.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Manual is a virtual Clock for deterministic tests. The zero value reads
// as the zero time.Time until Set is called.
type Manual struct {
	now time.Time
}

// NewManual returns a Manual clock initialized to t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// Set moves the virtual clock to t. t may be before the current value,
// simulating a backwards wall-clock jump.
func (m *Manual) Set(t time.Time) {
	m.now = t
}

// Advance moves the virtual clock forward (or backward, for negative d)
// by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.now = m.now.Add(d)
	return m.now
}
