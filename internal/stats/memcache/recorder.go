// Package stmemcache keeps admission tallies as Memcache counters.
package stmemcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/rs/zerolog/log"

	"learn.ringlimiter/internal/memcacheiface"
	"learn.ringlimiter/internal/stats"
)

// Recorder keeps two counters per identifier,
// "<prefix>:<identifier>:allowed" and "<prefix>:<identifier>:rejected".
type Recorder struct {
	client memcacheiface.Client
	prefix string
	ttl    time.Duration
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithTTL sets the counter expiry. Memcache only applies it when a counter is
// created; increments do not refresh it.
func WithTTL(ttl time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.ttl = ttl
	}
}

func NewRecorder(client memcacheiface.Client, prefix string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		client: client,
		prefix: strings.Trim(prefix, ":"),
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	log.Info().Str("backend", "Memcache").Str("key_prefix", r.prefix).Dur("ttl", r.ttl).Msg("Stats: Initialized")
	return r
}

func (r *Recorder) key(identifier, field string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, identifier, field)
}

func (r *Recorder) expiration() int32 {
	if r.ttl <= 0 {
		return 0
	}
	secs := int32(r.ttl.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (r *Recorder) Record(ctx context.Context, ev stats.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	memcacheKey := r.key(ev.Identifier, ev.Field())

	err := r.client.Add(&memcache.Item{
		Key:        memcacheKey,
		Value:      []byte("1"),
		Expiration: r.expiration(),
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, memcache.ErrNotStored) {
		return fmt.Errorf("memcache Add operation failed for key '%s': %w", memcacheKey, err)
	}

	if _, err := r.client.Increment(memcacheKey, 1); err != nil {
		return fmt.Errorf("memcache increment failed for key '%s': %w", memcacheKey, err)
	}
	return nil
}

func (r *Recorder) Totals(ctx context.Context, identifier string) (stats.Totals, error) {
	if err := ctx.Err(); err != nil {
		return stats.Totals{}, err
	}
	allowed, err := r.count(r.key(identifier, stats.FieldAllowed))
	if err != nil {
		return stats.Totals{}, err
	}
	rejected, err := r.count(r.key(identifier, stats.FieldRejected))
	if err != nil {
		return stats.Totals{}, err
	}
	return stats.Totals{Allowed: allowed, Rejected: rejected}, nil
}

func (r *Recorder) count(memcacheKey string) (int64, error) {
	item, err := r.client.Get(memcacheKey)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("memcache Get failed for key '%s': %w", memcacheKey, err)
	}
	// Incremented counters may carry trailing spaces.
	n, err := strconv.ParseInt(strings.TrimSpace(string(item.Value)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("memcache key '%s' does not hold a counter: %w", memcacheKey, err)
	}
	return n, nil
}
