// Package timeutil provides the clock the pipeline reads timestamps from
// and a stopwatch that totals time spent per stage.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the source of run timestamps and elapsed times.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// FakeClock is a deterministic Clock for tests. Every call to Now returns
// the current instant and then moves the clock forward by Step, so code
// that measures Now-to-Since intervals sees a fixed, non-zero duration.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFakeClock returns a FakeClock at start that ticks by step per Now.
// A zero step freezes the clock until Advance is called.
func NewFakeClock(start time.Time, step time.Duration) *FakeClock {
	return &FakeClock{now: start, step: step}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Since measures against the current instant without ticking.
func (c *FakeClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
