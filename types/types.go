// Package types defines common types and interfaces used throughout the rate limiter.
package types

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/go-redis/redis/v8"
)

// Limiter is the interface that every admission controller exposes to transports.
type Limiter interface {
	// Check admits and records one event for identifier. It returns a
	// *ringwindow.LimitExceededError when the budget is spent and any other
	// error when the check itself could not be carried out.
	Check(ctx context.Context, identifier string) error
}

// BackendClients holds initialized backend client instances.
type BackendClients struct {
	RedisClient    *redis.Client
	MemcacheClient *memcache.Client
}
