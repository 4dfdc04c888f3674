// Package ratelimit throttles login attempts per client key, either in
// process or shared across instances through Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits or rejects one attempt for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config sizes a limiter: Burst attempts at once, refilled at PerMinute.
type Config struct {
	Burst     int
	PerMinute int
}

func (c Config) normalized() Config {
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.PerMinute <= 0 {
		c.PerMinute = c.Burst
	}
	return c
}

const (
	idleTTL    = 10 * time.Minute
	sweepEvery = 256
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Memory is a per-process token bucket limiter keyed by client.
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   int
}

// NewMemory returns an in-process limiter.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg.normalized(),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token for key if available.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(m.cfg.PerMinute)/60), m.cfg.Burst)}
		m.buckets[key] = b
	}
	b.seen = now

	res := b.lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: int(b.lim.TokensAt(now))}, nil
}

func (m *Memory) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.seen) > idleTTL {
			delete(m.buckets, k)
		}
	}
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
