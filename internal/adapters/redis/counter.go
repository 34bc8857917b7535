// Package redis holds the thin Redis-backed pieces: the fixed-window
// rate counter and the idempotency replay cache.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Counter struct {
	client *redis.Client
}

func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// Incr bumps key and returns the new count. The TTL is only set when
// the key has none, so the window starts at the first request and is
// not extended by later ones.
func (c *Counter) Incr(ctx context.Context, key string, period time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, period)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
