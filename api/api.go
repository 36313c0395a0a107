// Package api builds ring window limiters and their stats recorders from a
// configuration file.
package api

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	apiinternal "learn.ringlimiter/api/internal"
	"learn.ringlimiter/config"
	"learn.ringlimiter/internal/clock"
	"learn.ringlimiter/internal/factory"
	"learn.ringlimiter/internal/stats"
	"learn.ringlimiter/types"
)

// Instance is one configured limiter with its stats recorder.
type Instance struct {
	Config  config.LimiterConfig
	Limiter types.Limiter
	Stats   stats.Recorder
}

// clientCloser holds the backend clients dialled for stats and implements io.Closer.
type clientCloser struct {
	redisClients    map[string]*redis.Client
	memcacheClients map[string]*memcache.Client
}

// Close shuts down every backend client, collecting all failures.
func (c *clientCloser) Close() error {
	var errs []error
	for addr, client := range c.redisClients {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Str("address", addr).Msg("API: Error closing Redis client")
			errs = append(errs, fmt.Errorf("failed to close Redis client %s: %w", addr, err))
		}
	}
	for addr, client := range c.memcacheClients {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Str("address", addr).Msg("API: Error closing Memcache client")
			errs = append(errs, fmt.Errorf("failed to close Memcache client %s: %w", addr, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during client shutdown: %w", errors.Join(errs...))
	}
	log.Info().Msg("API: Backend client shutdown complete")
	return nil
}

// Options tune how limiters are built.
type Options struct {
	// Clock is shared by every limiter; nil gives each its own monotonic clock.
	Clock clock.Clock
	// DialRedis and DialMemcache override backend connection setup.
	DialRedis    func(*config.RedisBackendConfig) (*redis.Client, error)
	DialMemcache func(*config.MemcacheBackendConfig) (*memcache.Client, error)
}

// NewLimitersFromConfigPath loads config, dials the backends the stats
// recorders need, and returns the limiters keyed by their config key.
func NewLimitersFromConfigPath(configPath string) (map[string]Instance, io.Closer, error) {
	cfgFile, err := apiinternal.LoadConfig(configPath)
	if err != nil {
		log.Error().Err(err).Str("config_path", configPath).Msg("API: Initialization failed: Error loading configuration")
		return nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return NewLimiters(cfgFile.Limiters, Options{})
}

// NewLimiters builds one Instance per config. On error every client dialled so
// far is closed.
func NewLimiters(cfgs []config.LimiterConfig, opts Options) (map[string]Instance, io.Closer, error) {
	if len(cfgs) == 0 {
		return nil, nil, fmt.Errorf("no limiter configurations found")
	}
	if opts.DialRedis == nil {
		opts.DialRedis = apiinternal.InitRedisClient
	}
	if opts.DialMemcache == nil {
		opts.DialMemcache = apiinternal.InitMemcacheClient
	}

	closer := &clientCloser{
		redisClients:    make(map[string]*redis.Client),
		memcacheClients: make(map[string]*memcache.Client),
	}
	fail := func(err error) (map[string]Instance, io.Closer, error) {
		if cerr := closer.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("API: Cleanup after failed initialization")
		}
		return nil, nil, err
	}

	limiterFactory := factory.NewRingWindowFactory(opts.Clock)
	statsFactory := factory.NewStatsFactory()
	instances := make(map[string]Instance, len(cfgs))

	log.Info().Int("count", len(cfgs)).Msg("API: Creating limiter instances")
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("API: Initialization failed: Invalid limiter configuration")
			return fail(err)
		}
		if _, dup := instances[cfg.Key]; dup {
			return fail(fmt.Errorf("duplicate limiter key '%s'", cfg.Key))
		}

		clients, err := closer.clientsFor(cfg, opts)
		if err != nil {
			log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("API: Initialization failed: Backend client")
			return fail(fmt.Errorf("limiter '%s': %w", cfg.Key, err))
		}

		limiter, err := limiterFactory.CreateLimiter(cfg)
		if err != nil {
			return fail(fmt.Errorf("limiter '%s': failed to create instance: %w", cfg.Key, err))
		}
		recorder, err := statsFactory.CreateRecorder(cfg, clients)
		if err != nil {
			return fail(fmt.Errorf("limiter '%s': failed to create stats recorder: %w", cfg.Key, err))
		}

		instances[cfg.Key] = Instance{Config: cfg, Limiter: limiter, Stats: recorder}
		log.Info().Str("limiter_key", cfg.Key).Str("scope", string(cfg.Scope)).Str("stats_backend", string(cfg.StatsBackend())).Msg("API: Limiter created successfully")
	}

	return instances, closer, nil
}

// clientsFor dials (or reuses) the backend client cfg's stats backend needs.
func (c *clientCloser) clientsFor(cfg config.LimiterConfig, opts Options) (types.BackendClients, error) {
	var clients types.BackendClients

	switch cfg.StatsBackend() {
	case config.Redis:
		params := cfg.Stats.RedisParams
		addr := fmt.Sprintf("%s/%d", params.Address, params.DB)
		client, ok := c.redisClients[addr]
		if !ok {
			var err error
			if client, err = opts.DialRedis(params); err != nil {
				return clients, err
			}
			c.redisClients[addr] = client
		}
		clients.RedisClient = client
	case config.Memcache:
		params := cfg.Stats.MemcacheParams
		addr := strings.Join(params.Addresses, ",")
		client, ok := c.memcacheClients[addr]
		if !ok {
			var err error
			if client, err = opts.DialMemcache(params); err != nil {
				return clients, err
			}
			c.memcacheClients[addr] = client
		}
		clients.MemcacheClient = client
	}
	return clients, nil
}
