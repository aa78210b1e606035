package antrian

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOutcomeRecorder keeps outcome counters in Redis hashes:
//
//	<prefix>:total            result -> count
//	<prefix>:minute:<stamp>   result -> count, expiring after ttl
//	<prefix>:class            "<class>:<result>" -> count
//	<prefix>:kind             kind -> count, failures only
type RedisOutcomeRecorder struct {
	rdb redis.Cmdable

	prefix string
	// ttl applies to per-minute buckets only; totals never expire.
	ttl    time.Duration
	bucket bool
}

// RedisOutcomeOption configures a RedisOutcomeRecorder.
type RedisOutcomeOption func(*RedisOutcomeRecorder)

// WithOutcomePrefix sets the key prefix. Default "antrian:outcomes".
func WithOutcomePrefix(prefix string) RedisOutcomeOption {
	return func(r *RedisOutcomeRecorder) {
		r.prefix = strings.Trim(prefix, ":")
	}
}

// WithOutcomeTTL sets the expiry of per-minute buckets. Default 24h.
func WithOutcomeTTL(d time.Duration) RedisOutcomeOption {
	return func(r *RedisOutcomeRecorder) { r.ttl = d }
}

// WithOutcomeBuckets toggles per-minute buckets. Default on.
func WithOutcomeBuckets(enabled bool) RedisOutcomeOption {
	return func(r *RedisOutcomeRecorder) { r.bucket = enabled }
}

// NewRedisOutcomeRecorder creates a recorder on rdb, usually a *redis.Client.
func NewRedisOutcomeRecorder(rdb redis.Cmdable, opts ...RedisOutcomeOption) *RedisOutcomeRecorder {
	r := &RedisOutcomeRecorder{
		rdb:    rdb,
		prefix: "antrian:outcomes",
		ttl:    24 * time.Hour,
		bucket: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements OutcomeRecorder with a single pipelined round trip.
func (r *RedisOutcomeRecorder) Record(ctx context.Context, o Outcome) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	at := o.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(o.Result)

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":total", field, 1)

	if r.bucket {
		bucketKey := fmt.Sprintf("%s:minute:%s", r.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, bucketKey, r.ttl)
		}
	}

	if class := strings.TrimSpace(o.Class); class != "" {
		pipe.HIncrBy(ctx, r.prefix+":class", class+":"+field, 1)
	}

	if o.Result == OutcomeFailed {
		pipe.HIncrBy(ctx, r.prefix+":kind", o.Kind.String(), 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}
