package testutil

import (
	"sync"
	"time"
)

// FakeClock is a wall clock that only moves when told to.
//
// Unlike the system clock, FakeClock makes last-updated stamps reproducible,
// so the same scenario produces byte-identical plans.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewFakeClock creates a clock fixed at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// NewSteppingClock creates a clock starting at t that advances by step
// after every Now call.
func NewSteppingClock(t time.Time, step time.Duration) *FakeClock {
	return &FakeClock{current: t, step: step}
}

// Now returns the current fake time, then advances it by the step.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
