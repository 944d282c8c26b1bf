// Package clock abstracts timer creation so timer-driven behavior
// (crash windows, restart delays, watchdogs, kill escalation) can be
// driven deterministically in tests. Production code injects Real();
// tests inject NewFake() and call Advance.
package clock

import "time"

// Clock creates timers and reports the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for duration d, then calls f in its own
	// goroutine. The returned Timer can cancel the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the timer from firing. Returns false if the timer
	// already fired or was already stopped.
	Stop() bool
}
