package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a fixed-window limiter shared by every instance pointing at the
// same Redis. PerMinute attempts are admitted per key per minute.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedis returns a limiter backed by client.
func NewRedis(client *redis.Client, cfg Config, prefix string) *Redis {
	cfg = cfg.normalized()
	if prefix == "" {
		prefix = "counselbot:login"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  int64(cfg.PerMinute),
		window: time.Minute,
	}
}

// Allow increments the window counter for key. On Redis errors it fails open
// and returns the error for logging.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	ttl, err := r.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: redis ttl: %w", err)
	}
	if ttl < 0 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return Decision{Allowed: true}, fmt.Errorf("ratelimit: redis expire: %w", err)
		}
		ttl = r.window
	}

	if count > r.limit {
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: int(r.limit - count)}, nil
}

// Ping checks Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
