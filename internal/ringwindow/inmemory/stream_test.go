package rwinmemory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"learn.ringlimiter/internal/clock"
	"learn.ringlimiter/internal/ringwindow"
	rwinmemory "learn.ringlimiter/internal/ringwindow/inmemory"
)

func TestNewStream_InvalidConfiguration(t *testing.T) {
	if _, err := rwinmemory.NewStream(0, 10); !errors.Is(err, ringwindow.ErrInvalidConfiguration) {
		t.Fatalf("Expected ErrInvalidConfiguration for zero budget, got %v", err)
	}
	if _, err := rwinmemory.NewStream(3, -1); !errors.Is(err, ringwindow.ErrInvalidConfiguration) {
		t.Fatalf("Expected ErrInvalidConfiguration for negative window, got %v", err)
	}
}

func TestStream_UsesClock(t *testing.T) {
	c := clock.NewManual(0)
	s, err := rwinmemory.NewStream(5, 60, rwinmemory.WithClock(c))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := s.Check(); err != nil {
			t.Fatalf("Check %d unexpectedly denied: %v", i+1, err)
		}
		c.Advance(1)
	}

	var limitErr *ringwindow.LimitExceededError
	if err := s.Check(); !errors.As(err, &limitErr) {
		t.Fatalf("Check 6: expected LimitExceededError, got %v", err)
	}
	if !s.IsExceeded() {
		t.Fatal("IsExceeded() = false with spent budget")
	}

	c.Set(61)
	if s.IsExceeded() {
		t.Fatal("IsExceeded() = true after the oldest event aged out")
	}
	if err := s.Check(); err != nil {
		t.Fatalf("Check at 61 unexpectedly denied: %v", err)
	}
	if s.Events() != 6 {
		t.Fatalf("Events() = %d, want 6", s.Events())
	}
}

func TestStream_RecordIgnoresBudget(t *testing.T) {
	c := clock.NewManual(10)
	s, _ := rwinmemory.NewStream(1, 5, rwinmemory.WithClock(c))

	s.Record()
	s.Record()
	s.RecordAt(10)
	if s.Events() != 3 {
		t.Fatalf("Events() = %d, want 3", s.Events())
	}
	if !s.IsExceededAt(15) {
		t.Fatal("IsExceededAt(15) = false, want true at the inclusive bound")
	}
	if s.IsExceededAt(15.5) {
		t.Fatal("IsExceededAt(15.5) = true, want false")
	}
}

func TestStream_Do(t *testing.T) {
	c := clock.NewManual(0)
	s, _ := rwinmemory.NewStream(1, 10, rwinmemory.WithClock(c))
	ctx := context.Background()

	ran := 0
	work := func(context.Context) error {
		ran++
		return nil
	}

	if err := s.Do(ctx, work); err != nil {
		t.Fatalf("Do 1 failed: %v", err)
	}
	if err := s.Do(ctx, work); err == nil {
		t.Fatal("Do 2 unexpectedly admitted")
	}
	if ran != 1 {
		t.Fatalf("work ran %d times, want 1", ran)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	c.Advance(100)
	if err := s.Do(cancelled, work); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if s.Events() != 1 {
		t.Fatalf("cancelled Do recorded an event: Events() = %d", s.Events())
	}
}

func TestStream_ConcurrentCheckAdmitsExactlyBudget(t *testing.T) {
	const budget = 5
	c := clock.NewManual(100)
	s, _ := rwinmemory.NewStream(budget, 60, rwinmemory.WithClock(c))

	numRequests := 50
	var wg sync.WaitGroup
	results := make(chan bool, numRequests)
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Check() == nil
		}()
	}
	wg.Wait()
	close(results)

	allowedCount := 0
	for ok := range results {
		if ok {
			allowedCount++
		}
	}
	if allowedCount != budget {
		t.Fatalf("Allowed %d requests, expected exactly %d", allowedCount, budget)
	}
	if s.Events() != budget {
		t.Fatalf("Events() = %d, want %d", s.Events(), budget)
	}
}

// gatedClock returns 1 to its first caller only once release is closed and 2
// to everyone after.
type gatedClock struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (c *gatedClock) Now() float64 {
	if c.calls.Add(1) == 1 {
		close(c.entered)
		<-c.release
		return 1
	}
	return 2
}

func TestStream_ClockReadInsideCriticalSection(t *testing.T) {
	c := &gatedClock{entered: make(chan struct{}), release: make(chan struct{})}
	s, _ := rwinmemory.NewStream(2, 10, rwinmemory.WithClock(c))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.Check(); err != nil {
			t.Errorf("first Check denied: %v", err)
		}
	}()
	<-c.entered
	go func() {
		defer wg.Done()
		if err := s.Check(); err != nil {
			t.Errorf("second Check denied: %v", err)
		}
	}()
	// Give the second caller time to overtake the first if it could.
	time.Sleep(20 * time.Millisecond)
	close(c.release)
	wg.Wait()

	got := s.Timestamps()
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("Timestamps() = %v, want [1 2] in write order", got)
	}
	// Only the event at 2 is inside (1.5, 11.5].
	if err := s.CheckAt(11.5); err != nil {
		t.Fatalf("CheckAt(11.5) denied with one event in window: %v", err)
	}
}

// tickingClock advances by one on every read.
type tickingClock struct {
	ticks atomic.Int64
}

func (c *tickingClock) Now() float64 {
	return float64(c.ticks.Add(1))
}

func TestStream_ConcurrentCheckWritesInOrder(t *testing.T) {
	const numRequests = 50
	c := &tickingClock{}
	// Budget exceeds the request count so slot order is write order.
	s, _ := rwinmemory.NewStream(numRequests*2, 1000, rwinmemory.WithClock(c))

	var wg sync.WaitGroup
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Check(); err != nil {
				t.Errorf("Check unexpectedly denied: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.Events() != numRequests {
		t.Fatalf("Events() = %d, want %d", s.Events(), numRequests)
	}
	ts := s.Timestamps()[:numRequests]
	for i := 1; i < len(ts); i++ {
		if ts[i] < ts[i-1] {
			t.Fatalf("Timestamps out of order at slot %d: %v", i, ts)
		}
	}
}
