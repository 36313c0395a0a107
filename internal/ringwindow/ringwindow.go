// Package ringwindow implements a sliding window rate limiter backed by a
// fixed-size ring of event timestamps.
//
// The ring holds exactly budget timestamps. Once it is full, the slot that the
// next write will overwrite holds the oldest surviving event, and that single
// timestamp decides admission: if it is still inside the window then every
// newer event is too and the budget is spent, otherwise at least one slot is
// free. Checks are therefore O(1) and the limiter never allocates after New.
//
// Timestamps are plain float64 seconds from a monotonic source. The package
// never samples a clock itself and does no locking; see the inmemory package
// for the clock-driven, mutex-guarded wrapper.
package ringwindow

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidConfiguration is wrapped by every error returned from New.
var ErrInvalidConfiguration = errors.New("invalid rate limiter configuration")

// LimitExceededError is returned by Check when admission is denied.
type LimitExceededError struct {
	Budget int
	Window float64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("Exceeded %d events in %s seconds", e.Budget, strconv.FormatFloat(e.Window, 'f', -1, 64))
}

// RateLimiter admits at most budget events in any window-second span.
type RateLimiter struct {
	buffer []float64
	budget int
	window float64
	events uint64

	// exceeded is returned on every denial so Check never allocates.
	exceeded LimitExceededError
}

// New creates a limiter allowing budget events per window seconds.
func New(budget int, window float64) (*RateLimiter, error) {
	if budget < 1 {
		return nil, fmt.Errorf("%w: budget must be at least 1, got %d", ErrInvalidConfiguration, budget)
	}
	if math.IsNaN(window) || window <= 0 {
		return nil, fmt.Errorf("%w: window must be a positive number of seconds, got %v", ErrInvalidConfiguration, window)
	}

	return &RateLimiter{
		buffer:   make([]float64, budget),
		budget:   budget,
		window:   window,
		exceeded: LimitExceededError{Budget: budget, Window: window},
	}, nil
}

// Budget returns the number of events permitted per window.
func (rl *RateLimiter) Budget() int { return rl.budget }

// Window returns the window length in seconds.
func (rl *RateLimiter) Window() float64 { return rl.window }

// Events returns the number of events recorded since construction.
func (rl *RateLimiter) Events() uint64 { return rl.events }

// Timestamps returns a copy of the ring in slot order.
func (rl *RateLimiter) Timestamps() []float64 {
	out := make([]float64, len(rl.buffer))
	copy(out, rl.buffer)
	return out
}

func (rl *RateLimiter) slot() int {
	return int(rl.events % uint64(rl.budget))
}

// Record stores eventTime unconditionally, overwriting the oldest slot.
func (rl *RateLimiter) Record(eventTime float64) {
	rl.buffer[rl.slot()] = eventTime
	rl.events++
}

// IsExceeded reports whether the budget is spent at currentTime. It does not
// modify the limiter.
func (rl *RateLimiter) IsExceeded(currentTime float64) bool {
	if rl.events < uint64(rl.budget) {
		return false
	}
	// The lower bound is inclusive: an event exactly window seconds old still counts.
	return rl.buffer[rl.slot()] >= currentTime-rl.window
}

// Check records an event at currentTime if the budget allows it. A denied
// event is not recorded. The returned *LimitExceededError is shared by all
// denials of this limiter and must not be modified.
func (rl *RateLimiter) Check(currentTime float64) error {
	if rl.IsExceeded(currentTime) {
		return &rl.exceeded
	}
	rl.Record(currentTime)
	return nil
}

// Do runs fn only if an event at currentTime is admitted. Nothing needs
// releasing afterwards; slots free up as time passes.
func (rl *RateLimiter) Do(currentTime float64, fn func() error) error {
	if err := rl.Check(currentTime); err != nil {
		return err
	}
	return fn()
}
