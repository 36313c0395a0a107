// Package rwinmemory wraps the ring window core with a clock and the locking
// needed to share a limiter between goroutines.
package rwinmemory

import (
	"context"
	"sync"

	"learn.ringlimiter/internal/clock"
	"learn.ringlimiter/internal/ringwindow"
)

// Stream guards a single ring window limiter. The mutex is held across the
// clock read, the query and the record in Check so two callers can never both
// take the last slot, and timestamps reach the ring in the order they were read.
type Stream struct {
	mu    sync.Mutex
	rl    *ringwindow.RateLimiter
	clock clock.Clock
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithClock sets the time source used when no explicit timestamp is given.
func WithClock(c clock.Clock) StreamOption {
	return func(s *Stream) {
		s.clock = c
	}
}

// NewStream creates a Stream admitting budget events per window seconds.
func NewStream(budget int, window float64, opts ...StreamOption) (*Stream, error) {
	rl, err := ringwindow.New(budget, window)
	if err != nil {
		return nil, err
	}
	s := &Stream{rl: rl}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.NewMonotonic()
	}
	return s, nil
}

// Budget returns the number of events permitted per window.
func (s *Stream) Budget() int { return s.rl.Budget() }

// Window returns the window length in seconds.
func (s *Stream) Window() float64 { return s.rl.Window() }

// Events returns the number of admitted or recorded events.
func (s *Stream) Events() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rl.Events()
}

// Timestamps returns a copy of the ring in slot order.
func (s *Stream) Timestamps() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rl.Timestamps()
}

// Record stores an event at the current time without checking the budget.
func (s *Stream) Record() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rl.Record(s.clock.Now())
}

// RecordAt stores an event at eventTime without checking the budget.
func (s *Stream) RecordAt(eventTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rl.Record(eventTime)
}

// IsExceeded reports whether the budget is spent right now.
func (s *Stream) IsExceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rl.IsExceeded(s.clock.Now())
}

// IsExceededAt reports whether the budget is spent at currentTime.
func (s *Stream) IsExceededAt(currentTime float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rl.IsExceeded(currentTime)
}

// Check admits and records an event at the current time.
func (s *Stream) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rl.Check(s.clock.Now())
}

// CheckAt admits and records an event at currentTime.
func (s *Stream) CheckAt(currentTime float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rl.Check(currentTime)
}

// Do runs fn if an event is admitted now. The lock is released before fn
// runs; admission is the only thing serialized.
func (s *Stream) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Check(); err != nil {
		return err
	}
	return fn(ctx)
}
