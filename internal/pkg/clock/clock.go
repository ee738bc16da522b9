// Package clock abstracts time so timed-effect expiry and periodic
// execution can be driven deterministically in tests.
package clock

import "time"

//go:generate mockgen -destination=mock/mock.go -package=clockmock github.com/KirkDiggler/effect-runtime/internal/pkg/clock Clock

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// Real implements Clock using system time
type Real struct{}

// Now returns the current time
func (c *Real) Now() time.Time {
	return time.Now()
}

// New returns a new real clock
func New() Clock {
	return &Real{}
}

// Fixed is a manually advanced clock for tests and scripted simulations.
type Fixed struct {
	now time.Time
}

// NewFixed returns a clock pinned to the given instant
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

// Now returns the pinned instant
func (c *Fixed) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d
func (c *Fixed) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set pins the clock to a specific instant
func (c *Fixed) Set(now time.Time) {
	c.now = now
}
