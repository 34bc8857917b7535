// Package idempotency replays stored responses for repeated
// Idempotency-Key headers, so callers retrying a create never book
// twice.
package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/tripagenda/bookings/internal/adapters/redis"
)

type Idempotency struct {
	store *redisadapter.Idempotency
	ttl   time.Duration
}

func New(store *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Body   []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Body: stored.Body}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.store.Set(ctx, key, redisadapter.StoredResponse{Status: resp.Status, Body: resp.Body}, i.ttl)
}
