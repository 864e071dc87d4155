// Package clock abstracts wall and monotonic time so that token expiry and
// request latency can be tested deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock supplies wall-clock timestamps and monotonic elapsed durations.
type Clock interface {
	// Now returns the current wall time. Values returned by the system clock
	// carry a monotonic reading, so Since on them is immune to clock steps.
	Now() time.Time
	// Since returns the time elapsed since start.
	Since(start time.Time) time.Duration
}

type systemClock struct{}

// System returns the real clock.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Since(start time.Time) time.Duration { return time.Since(start) }

// Fake is a manually advanced clock for tests. It is safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake positioned at now.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Since returns the fake time elapsed since start.
func (f *Fake) Since(start time.Time) time.Duration {
	return f.Now().Sub(start)
}

// Advance moves the fake forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set positions the fake at t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
