// Package clock abstracts timers so retry, stall and polling logic can be
// driven deterministically in tests.
package clock

import "time"

// Timer is a single-shot timer that can be cancelled before it fires.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was already stopped.
	Stop() bool
}

// Clock is the time source used by the playback core.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now.
func (Real) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Stop stops t if it is non-nil and returns nil so callers can clear their
// reference in one statement: `a.timer = clock.Stop(a.timer)`.
func Stop(t Timer) Timer {
	if t != nil {
		t.Stop()
	}
	return nil
}
