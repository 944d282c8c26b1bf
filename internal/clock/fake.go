package clock

import (
	"sync"
	"time"
)

// NewFake returns a Fake clock initialized to the given time. Time
// stands still until Advance is called.
func NewFake(initial time.Time) *Fake {
	f := &Fake{current: initial}
	f.changed = sync.NewCond(&f.mu)
	return f
}

// Fake is a deterministic Clock for tests. AfterFunc callbacks fire
// synchronously, in deadline order, from inside Advance. Safe for
// concurrent use.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeTimer
	changed *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	callback func()
	stopped  bool
	fired    bool
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// AfterFunc registers a callback to fire when the clock advances past
// its deadline. A non-positive duration fires synchronously before
// AfterFunc returns.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	if d <= 0 {
		fn()
		return stoppedTimer{}
	}

	f.mu.Lock()
	w := &fakeTimer{
		deadline: f.current.Add(d),
		callback: fn,
	}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()
	f.mu.Unlock()

	return &fakeTimerHandle{clock: f, timer: w}
}

// Advance moves the clock forward by d and fires every registered
// callback whose deadline falls within the new time, in deadline order.
// Callbacks run synchronously in the calling goroutine; callbacks may
// register new timers, which fire too if they fall within the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	target := f.current
	f.mu.Unlock()

	for {
		next := f.takeNextExpired(target)
		if next == nil {
			return
		}
		next.callback()
	}
}

// takeNextExpired pops the earliest-deadline unexpired waiter at or
// before target, marking it fired. Returns nil when none remain.
func (f *Fake) takeNextExpired(target time.Time) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	var next *fakeTimer
	for _, w := range f.waiters {
		if w.stopped || w.fired || w.deadline.After(target) {
			continue
		}
		if next == nil || w.deadline.Before(next.deadline) {
			next = w
		}
	}
	if next != nil {
		next.fired = true
	}
	return next
}

// WaitForTimers blocks until at least n timers are pending. This
// removes the race between a goroutine arming a timer and the test
// advancing the clock.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pendingLocked() < n {
		f.changed.Wait()
	}
}

// PendingCount returns the number of armed, unfired timers.
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingLocked()
}

func (f *Fake) pendingLocked() int {
	count := 0
	for _, w := range f.waiters {
		if !w.stopped && !w.fired {
			count++
		}
	}
	return count
}

type fakeTimerHandle struct {
	clock *Fake
	timer *fakeTimer
}

func (h *fakeTimerHandle) Stop() bool {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	if h.timer.stopped || h.timer.fired {
		return false
	}
	h.timer.stopped = true
	return true
}

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return false }
