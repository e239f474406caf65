package utils

import "time"

// -----------------------------------------------------------------------------
// Clock abstracts wall time and scheduled callbacks so the poll and reconnect
// timers can be driven by hand in tests.
// -----------------------------------------------------------------------------

type Timer interface {
	// Stop cancels the timer. It returns false if the callback already ran
	// or the timer was already stopped.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// -----------------------------------------------------------------------------

type realClock struct{}

// RealClock returns the process wall clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
