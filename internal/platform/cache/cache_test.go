package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryWindow(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		count, ttl, err := m.Incr(context.Background(), "ip:1", time.Minute)
		if err != nil || count != i {
			t.Fatalf("expected count %d, got %d %v", i, count, err)
		}
		if ttl != time.Minute {
			t.Fatalf("expected full window, got %v", ttl)
		}
	}

	now = now.Add(61 * time.Second)
	count, _, _ := m.Incr(context.Background(), "ip:1", time.Minute)
	if count != 1 {
		t.Fatalf("expected window reset, got %d", count)
	}
	if other, _, _ := m.Incr(context.Background(), "ip:2", time.Minute); other != 1 {
		t.Fatalf("keys must be independent, got %d", other)
	}
}

func TestRedisCounter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r, err := OpenRedis(context.Background(), addr, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	key := uuid.NewString()
	for i := 1; i <= 2; i++ {
		count, ttl, err := r.Incr(context.Background(), key, time.Minute)
		if err != nil || count != i {
			t.Fatalf("expected %d, got %d %v", i, count, err)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Fatalf("unexpected ttl %v", ttl)
		}
	}
}
