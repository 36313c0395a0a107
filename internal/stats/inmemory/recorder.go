// Package stinmemory keeps admission tallies in process memory.
package stinmemory

import (
	"context"
	"sync"

	"learn.ringlimiter/internal/stats"
)

type Recorder struct {
	mu     sync.Mutex
	totals map[string]stats.Totals
}

func NewRecorder() *Recorder {
	return &Recorder{totals: make(map[string]stats.Totals)}
}

func (r *Recorder) Record(ctx context.Context, ev stats.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.totals[ev.Identifier]
	if ev.Allowed {
		t.Allowed++
	} else {
		t.Rejected++
	}
	r.totals[ev.Identifier] = t
	return nil
}

func (r *Recorder) Totals(ctx context.Context, identifier string) (stats.Totals, error) {
	if err := ctx.Err(); err != nil {
		return stats.Totals{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals[identifier], nil
}
