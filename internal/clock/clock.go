// Package clock provides monotonic time sources expressed as float64 seconds.
package clock

import (
	"sync"
	"time"
)

// Clock returns monotonic timestamps in seconds. Values from a single Clock
// never decrease.
type Clock interface {
	Now() float64
}

// Monotonic measures seconds elapsed since it was created using the runtime's
// monotonic clock reading, so wall-clock adjustments do not affect it.
type Monotonic struct {
	start time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

func (c *Monotonic) Now() float64 {
	return time.Since(c.start).Seconds()
}

// Manual is a clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu      sync.RWMutex
	current float64
}

// NewManual creates a Manual clock reading start.
func NewManual(start float64) *Manual {
	return &Manual{current: start}
}

func (c *Manual) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Advance moves the clock forward by d seconds. Panics if d is negative.
func (c *Manual) Advance(d float64) {
	if d < 0 {
		panic("clock: cannot advance by negative duration")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current += d
}

// Set moves the clock to t. Panics if t is before the current reading.
func (c *Manual) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.current {
		panic("clock: cannot set time to the past")
	}
	c.current = t
}
