// Package clock provides the time source for the scheduler and timers.
// Time is represented as fractional seconds, matching the resolution the
// timer surface exposes (whole seconds plus microseconds).
package clock

import "time"

// Clock returns the current time as fractional seconds.
type Clock interface {
	Now() float64
}

// System reads the host wall clock.
type System struct{}

func (System) Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Fake is a manually advanced clock for tests and simulation.
// Not safe for concurrent use; the execution model is single-threaded.
type Fake struct {
	now float64
}

// NewFake creates a Fake clock starting at t seconds.
func NewFake(t float64) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() float64 {
	return f.now
}

// Set jumps the clock to an absolute time.
func (f *Fake) Set(t float64) {
	f.now = t
}

// Advance moves the clock forward by d seconds.
func (f *Fake) Advance(d float64) {
	f.now += d
}
