package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCounter(t *testing.T, window time.Duration) (*AttemptCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewAttemptCounter(rdb, window), mr
}

func TestAttemptCounterWindow(t *testing.T) {
	c, mr := newTestCounter(t, time.Minute)
	ctx := context.Background()
	key := FormatLoginAttemptKey("ada@example.com")

	for want := int64(1); want <= 3; want++ {
		got, err := c.Hit(ctx, key)
		if err != nil {
			t.Fatalf("hit: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
		mr.FastForward(10 * time.Second)
	}

	// Later hits must not push the window out.
	if ttl := mr.TTL(key); ttl <= 0 || ttl > 30*time.Second {
		t.Fatalf("expected ttl anchored at first hit, got %v", ttl)
	}

	mr.FastForward(31 * time.Second)
	if n, err := c.Count(ctx, key); err != nil || n != 0 {
		t.Fatalf("expected window expired, got %d (%v)", n, err)
	}
}

func TestAttemptCounterRepairsMissingTTL(t *testing.T) {
	c, mr := newTestCounter(t, time.Minute)
	ctx := context.Background()
	key := FormatLoginAttemptKey("stuck@example.com")

	// A counter left behind without an expiry.
	if err := mr.Set(key, "4"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n, err := c.Hit(ctx, key); err != nil || n != 5 {
		t.Fatalf("expected count 5, got %d (%v)", n, err)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("expected ttl set on stuck counter, got %v", ttl)
	}
}

func TestAttemptCounterReportsErrors(t *testing.T) {
	c, mr := newTestCounter(t, time.Minute)
	ctx := context.Background()
	key := FormatLoginAttemptKey("down@example.com")

	mr.SetError("ERR injected failure")
	if _, err := c.Hit(ctx, key); err == nil {
		t.Fatal("expected hit error while redis fails")
	}
	mr.SetError("")

	if _, err := c.Hit(ctx, key); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := c.Reset(ctx, key); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := c.Count(ctx, key); n != 0 {
		t.Fatalf("expected reset count 0, got %d", n)
	}
}
