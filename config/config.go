package config

import (
	"fmt"
	"time"
)

// ScopeType selects how request identifiers map onto ring window instances.
type ScopeType string

const (
	// Global shares one ring between all callers.
	Global ScopeType = "global"
	// PerClient keeps one ring per request identifier.
	PerClient ScopeType = "per_client"
)

// BackendType represents the storage backend for admission stats.
type BackendType string

const (
	InMemory BackendType = "in_memory"
	Redis    BackendType = "redis"
	Memcache BackendType = "memcache"
)

// LimiterConfig holds the configuration for a single rate limiter instance.
type LimiterConfig struct {
	Key    string        `yaml:"key"`
	Scope  ScopeType     `yaml:"scope"`
	Budget int           `yaml:"budget"`
	Window time.Duration `yaml:"window"`

	Stats *StatsConfig `yaml:"stats,omitempty"`
}

// StatsConfig selects where admission decisions are tallied.
type StatsConfig struct {
	Backend   BackendType   `yaml:"backend"`
	KeyPrefix string        `yaml:"key_prefix,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`

	RedisParams    *RedisBackendConfig    `yaml:"redis_params,omitempty"`
	MemcacheParams *MemcacheBackendConfig `yaml:"memcache_params,omitempty"`
}

// RedisBackendConfig holds parameters for the Redis backend.
type RedisBackendConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// MemcacheBackendConfig holds parameters for the Memcache backend.
type MemcacheBackendConfig struct {
	Addresses []string `yaml:"addresses"`
}

// WindowSeconds returns the window in the float seconds the ring limiter uses.
func (c LimiterConfig) WindowSeconds() float64 {
	return c.Window.Seconds()
}

// StatsBackend returns the configured stats backend, defaulting to in-memory.
func (c LimiterConfig) StatsBackend() BackendType {
	if c.Stats == nil || c.Stats.Backend == "" {
		return InMemory
	}
	return c.Stats.Backend
}

// Validate checks the fields a limiter cannot be built without.
func (c LimiterConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("limiter configuration missing 'key' field")
	}
	switch c.Scope {
	case Global, PerClient:
	case "":
		return fmt.Errorf("limiter '%s': missing 'scope' field", c.Key)
	default:
		return fmt.Errorf("limiter '%s': unsupported scope '%s'", c.Key, c.Scope)
	}
	if c.Budget < 1 {
		return fmt.Errorf("limiter '%s': budget must be at least 1, got %d", c.Key, c.Budget)
	}
	if c.Window <= 0 {
		return fmt.Errorf("limiter '%s': window must be positive, got %s", c.Key, c.Window)
	}

	switch c.StatsBackend() {
	case InMemory:
	case Redis:
		if c.Stats.RedisParams == nil || c.Stats.RedisParams.Address == "" {
			return fmt.Errorf("limiter '%s': redis stats backend selected but redis_params are missing", c.Key)
		}
	case Memcache:
		if c.Stats.MemcacheParams == nil || len(c.Stats.MemcacheParams.Addresses) == 0 {
			return fmt.Errorf("limiter '%s': memcache stats backend selected but memcache_params are missing", c.Key)
		}
	default:
		return fmt.Errorf("limiter '%s': unsupported stats backend '%s'", c.Key, c.StatsBackend())
	}
	return nil
}
