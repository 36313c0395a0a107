package factory

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"learn.ringlimiter/config"
	"learn.ringlimiter/internal/clock"
	rwinmemory "learn.ringlimiter/internal/ringwindow/inmemory"
)

type RingWindowFactory struct {
	clock clock.Clock
}

// NewRingWindowFactory creates a factory whose limiters read time from c.
// A nil clock gives each limiter its own monotonic clock.
func NewRingWindowFactory(c clock.Clock) *RingWindowFactory {
	return &RingWindowFactory{clock: c}
}

func (f *RingWindowFactory) CreateLimiter(cfg config.LimiterConfig) (*rwinmemory.Limiter, error) {
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("Factory(RingWindow): Creation failed")
		return nil, err
	}

	var scope rwinmemory.Scope
	switch cfg.Scope {
	case config.Global:
		scope = rwinmemory.ScopeGlobal
	case config.PerClient:
		scope = rwinmemory.ScopePerClient
	default:
		return nil, fmt.Errorf("unsupported scope '%s' for key '%s'", cfg.Scope, cfg.Key)
	}

	log.Debug().Str("limiter_key", cfg.Key).Str("scope", string(cfg.Scope)).Int("budget", cfg.Budget).Dur("window", cfg.Window).Msg("Factory(RingWindow): Creating limiter")
	return rwinmemory.NewLimiter(cfg.Key, scope, cfg.Budget, cfg.WindowSeconds(), f.clock)
}
