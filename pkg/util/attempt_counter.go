package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptCounter counts events per key inside a fixed window that starts at
// the first event.
type AttemptCounter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewAttemptCounter(rdb *redis.Client, window time.Duration) *AttemptCounter {
	return &AttemptCounter{rdb: rdb, window: window}
}

// Hit increments the count for key and returns the new count.
func (c *AttemptCounter) Hit(ctx context.Context, key string) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first event and repairs a key
	// left without a TTL.
	pipe.ExpireNX(ctx, key, c.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Count returns the current count for key.
func (c *AttemptCounter) Count(ctx context.Context, key string) (int64, error) {
	count, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// Reset clears the count for key.
func (c *AttemptCounter) Reset(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// FormatLoginAttemptKey formats the counter key for failed logins of an email.
func FormatLoginAttemptKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", strings.ToLower(strings.TrimSpace(email)))
}
