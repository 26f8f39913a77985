// Package cache holds fixed-window counters for rate limiting, in Redis when
// configured so limits are shared across instances.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter increments key inside a window that starts on first use. It
// returns the new count and the time left in the window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
}

type Redis struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects and pings with a short timeout.
func OpenRedis(ctx context.Context, addr, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, prefix: "hrleave:rl:"}, nil
}

func (r *Redis) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	key = r.prefix + key
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("rate counter %s: %w", key, err)
	}
	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return int(incr.Val()), remaining, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type bucket struct {
	count int
	reset time.Time
}

// Memory is the single-instance Counter.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{buckets: map[string]*bucket{}, now: time.Now}
}

func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || !now.Before(b.reset) {
		b = &bucket{reset: now.Add(window)}
		m.buckets[key] = b
	}
	b.count++
	m.sweep(now)
	return b.count, b.reset.Sub(now), nil
}

// sweep drops expired buckets once the map grows large.
func (m *Memory) sweep(now time.Time) {
	if len(m.buckets) < 10000 {
		return
	}
	for key, b := range m.buckets {
		if !now.Before(b.reset) {
			delete(m.buckets, key)
		}
	}
}
