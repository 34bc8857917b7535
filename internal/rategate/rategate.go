// Package rategate bounds the request rate per client over a fixed
// window. The default implementation keeps its counters in process so
// the core needs no shared clock service; a Redis-backed variant
// covers multi-instance deployments.
package rategate

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/tripagenda/bookings/internal/domain"
)

// Gate admits or rejects one request for a client. A nil error admits;
// ErrRateLimitExceeded rejects.
type Gate interface {
	Allow(ctx context.Context, clientID string) error
}

const (
	DefaultWindow = 60 * time.Second
	DefaultMax    = 60
)

const shardCount = 32

type record struct {
	windowStart time.Time
	count       int
}

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

// FixedWindow is an in-memory fixed-window limiter. Client records
// live in fnv-sharded maps so distinct clients only contend within a
// shard; the check-and-increment for one client is atomic under the
// shard lock.
type FixedWindow struct {
	window time.Duration
	max    int
	now    func() time.Time
	shards [shardCount]shard
}

// NewFixedWindow builds a limiter. now is the injected clock; pass
// time.Now outside tests. Non-positive window or max fall back to the
// defaults.
func NewFixedWindow(window time.Duration, max int, now func() time.Time) *FixedWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	fw := &FixedWindow{window: window, max: max, now: now}
	for i := range fw.shards {
		fw.shards[i].records = make(map[string]*record)
	}
	return fw
}

func (fw *FixedWindow) shard(clientID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(clientID))
	return &fw.shards[h.Sum32()%shardCount]
}

func (fw *FixedWindow) Allow(ctx context.Context, clientID string) error {
	now := fw.now()
	sh := fw.shard(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[clientID]
	if !ok {
		rec = &record{windowStart: now}
		sh.records[clientID] = rec
	}
	if now.Sub(rec.windowStart) > fw.window {
		rec.windowStart = now
		rec.count = 0
	}
	if rec.count >= fw.max {
		return domain.ErrRateLimitExceeded
	}
	rec.count++
	return nil
}

// EvictIdle drops records whose window started more than idle ago.
// idle must be at least one full window: such records would be reset
// on the client's next request anyway, so dropping them never changes
// an admission decision.
func (fw *FixedWindow) EvictIdle(idle time.Duration) int {
	now := fw.now()
	evicted := 0
	for i := range fw.shards {
		sh := &fw.shards[i]
		sh.mu.Lock()
		for id, rec := range sh.records {
			if now.Sub(rec.windowStart) > idle {
				delete(sh.records, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}
