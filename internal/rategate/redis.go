package rategate

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	redisadapter "github.com/tripagenda/bookings/internal/adapters/redis"
	"github.com/tripagenda/bookings/internal/domain"
)

// RedisWindow is a fixed-window gate whose counters live in Redis, for
// deployments with more than one API instance. The window boundary is
// set by the key's TTL on first increment.
type RedisWindow struct {
	counter *redisadapter.Counter
	window  time.Duration
	max     int
}

func NewRedisWindow(counter *redisadapter.Counter, window time.Duration, max int) *RedisWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &RedisWindow{counter: counter, window: window, max: max}
}

func (g *RedisWindow) Allow(ctx context.Context, clientID string) error {
	n, err := g.counter.Incr(ctx, "rl:"+clientID, g.window)
	if err != nil {
		return errors.Wrap(err, "rate counter")
	}
	if n > int64(g.max) {
		return domain.ErrRateLimitExceeded
	}
	return nil
}
