package factory

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"learn.ringlimiter/config"
	"learn.ringlimiter/internal/stats"
	stinmemory "learn.ringlimiter/internal/stats/inmemory"
	stmemcache "learn.ringlimiter/internal/stats/memcache"
	stredis "learn.ringlimiter/internal/stats/redis"
	"learn.ringlimiter/types"
)

// DefaultStatsPrefix is prepended to the limiter key when no key_prefix is set.
const DefaultStatsPrefix = "ringlimiter:stats"

type StatsFactory struct{}

func NewStatsFactory() *StatsFactory {
	return &StatsFactory{}
}

func (*StatsFactory) CreateRecorder(cfg config.LimiterConfig, clients types.BackendClients) (stats.Recorder, error) {
	prefix := fmt.Sprintf("%s:%s", DefaultStatsPrefix, cfg.Key)
	var ttl time.Duration
	if cfg.Stats != nil {
		ttl = cfg.Stats.TTL
		if cfg.Stats.KeyPrefix != "" {
			prefix = cfg.Stats.KeyPrefix
		}
	}

	switch cfg.StatsBackend() {
	case config.InMemory:
		log.Debug().Str("limiter_key", cfg.Key).Msg("Factory(Stats): Creating in-memory recorder")
		return stinmemory.NewRecorder(), nil
	case config.Redis:
		if clients.RedisClient == nil {
			err := fmt.Errorf("redis client is required but not provided for redis backend for key '%s'", cfg.Key)
			log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("Factory(Stats): Creation failed")
			return nil, err
		}
		var opts []stredis.RecorderOption
		if ttl > 0 {
			opts = append(opts, stredis.WithTTL(ttl))
		}
		return stredis.NewRecorder(clients.RedisClient, prefix, opts...), nil
	case config.Memcache:
		if clients.MemcacheClient == nil {
			err := fmt.Errorf("memcache client is required but not provided for memcache backend for key '%s'", cfg.Key)
			log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("Factory(Stats): Creation failed")
			return nil, err
		}
		var opts []stmemcache.RecorderOption
		if ttl > 0 {
			opts = append(opts, stmemcache.WithTTL(ttl))
		}
		return stmemcache.NewRecorder(clients.MemcacheClient, prefix, opts...), nil
	default:
		err := fmt.Errorf("unsupported backend type '%s' for stats for key '%s'", cfg.StatsBackend(), cfg.Key)
		log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("Factory(Stats): Creation failed")
		return nil, err
	}
}
