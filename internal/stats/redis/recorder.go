// Package stredis keeps admission tallies in Redis hashes.
package stredis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"learn.ringlimiter/internal/stats"
)

// Recorder stores one hash per identifier at "<prefix>:<identifier>" with
// "allowed" and "rejected" fields.
type Recorder struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithTTL sets how long an idle identifier's hash is kept. Zero keeps it forever.
func WithTTL(ttl time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.ttl = ttl
	}
}

func NewRecorder(client *redis.Client, prefix string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		client: client,
		prefix: strings.Trim(prefix, ":"),
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	log.Info().Str("backend", "Redis").Str("key_prefix", r.prefix).Dur("ttl", r.ttl).Msg("Stats: Initialized")
	return r
}

func (r *Recorder) key(identifier string) string {
	return fmt.Sprintf("%s:%s", r.prefix, identifier)
}

func (r *Recorder) Record(ctx context.Context, ev stats.Event) error {
	redisKey := r.key(ev.Identifier)

	if err := r.client.HIncrBy(ctx, redisKey, ev.Field(), 1).Err(); err != nil {
		return fmt.Errorf("redis HINCRBY failed for key '%s': %w", redisKey, err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, redisKey, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis EXPIRE failed for key '%s': %w", redisKey, err)
		}
	}
	return nil
}

func (r *Recorder) Totals(ctx context.Context, identifier string) (stats.Totals, error) {
	redisKey := r.key(identifier)

	fields, err := r.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return stats.Totals{}, fmt.Errorf("redis HGETALL failed for key '%s': %w", redisKey, err)
	}

	var totals stats.Totals
	if totals.Allowed, err = parseCount(fields, stats.FieldAllowed); err != nil {
		return stats.Totals{}, fmt.Errorf("key '%s': %w", redisKey, err)
	}
	if totals.Rejected, err = parseCount(fields, stats.FieldRejected); err != nil {
		return stats.Totals{}, fmt.Errorf("key '%s': %w", redisKey, err)
	}
	return totals, nil
}

func parseCount(fields map[string]string, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field '%s' is not a number: %w", name, err)
	}
	return n, nil
}
