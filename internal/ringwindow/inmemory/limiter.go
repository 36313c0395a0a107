package rwinmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"learn.ringlimiter/internal/clock"
	"learn.ringlimiter/types"
)

// Scope selects how identifiers map onto streams.
type Scope string

const (
	// ScopeGlobal shares one stream between every identifier.
	ScopeGlobal Scope = "global"
	// ScopePerClient gives every identifier its own stream.
	ScopePerClient Scope = "per_client"
)

// Limiter multiplexes identifiers onto ring window streams.
type Limiter struct {
	key    string
	scope  Scope
	budget int
	window float64
	clock  clock.Clock

	global  *Stream
	streams sync.Map // identifier -> *Stream
}

// NewLimiter creates a keyed ring window limiter. Budget and window are
// validated here so per-client streams created later cannot fail.
func NewLimiter(key string, scope Scope, budget int, window float64, c clock.Clock) (*Limiter, error) {
	if c == nil {
		c = clock.NewMonotonic()
	}
	l := &Limiter{
		key:    key,
		scope:  scope,
		budget: budget,
		window: window,
		clock:  c,
	}

	switch scope {
	case ScopeGlobal, ScopePerClient:
	default:
		return nil, fmt.Errorf("limiter '%s': unsupported scope '%s'", key, scope)
	}

	stream, err := NewStream(budget, window, WithClock(c))
	if err != nil {
		log.Error().Err(err).Str("limiter_type", "RingWindow").Str("backend", "InMemory").Str("limiter_key", key).Msg("Limiter: Initialization failed")
		return nil, fmt.Errorf("limiter '%s': %w", key, err)
	}
	if scope == ScopeGlobal {
		l.global = stream
	}

	log.Info().Str("limiter_type", "RingWindow").Str("backend", "InMemory").Str("limiter_key", key).Str("scope", string(scope)).Int("budget", budget).Float64("window_seconds", window).Msg("Limiter: Initialized")
	return l, nil
}

var _ types.Limiter = (*Limiter)(nil)

// Stream returns the stream serving identifier, creating it if needed.
func (l *Limiter) Stream(identifier string) *Stream {
	if l.scope == ScopeGlobal {
		return l.global
	}
	if s, ok := l.streams.Load(identifier); ok {
		return s.(*Stream)
	}
	// Parameters were validated in NewLimiter.
	fresh, _ := NewStream(l.budget, l.window, WithClock(l.clock))
	s, loaded := l.streams.LoadOrStore(identifier, fresh)
	if !loaded {
		log.Debug().Str("limiter_type", "RingWindow").Str("limiter_key", l.key).Str("identifier", identifier).Msg("Limiter: Created stream")
	}
	return s.(*Stream)
}

// Check admits and records one event for identifier at the current time.
func (l *Limiter) Check(ctx context.Context, identifier string) error {
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Str("limiter_type", "RingWindow").Str("limiter_key", l.key).Str("identifier", identifier).Msg("Limiter: Context cancelled during check")
		return ctx.Err()
	default:
	}

	err := l.Stream(identifier).Check()
	if err != nil {
		log.Debug().Str("limiter_type", "RingWindow").Str("limiter_key", l.key).Str("identifier", identifier).Msg("Limiter: Request denied")
		return err
	}
	log.Debug().Str("limiter_type", "RingWindow").Str("limiter_key", l.key).Str("identifier", identifier).Msg("Limiter: Request allowed")
	return nil
}

// Budget and Window describe every stream of this limiter.
func (l *Limiter) Budget() int     { return l.budget }
func (l *Limiter) Window() float64 { return l.window }
