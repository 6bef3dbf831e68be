package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/sosrelay/internal/cache"
)

// RateStore counts requests per key within a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// pruneEvery bounds how often the memory store sweeps closed windows.
const pruneEvery = 256

type window struct {
	hits  int
	until time.Time
}

// MemoryRateStore keeps counters in process memory. Closed windows are swept during increments.
type MemoryRateStore struct {
	mu      sync.Mutex
	windows map[string]window
	calls   int
	now     func() time.Time
}

// NewMemoryRateStore returns a process-local RateStore for single instances and tests.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{windows: make(map[string]window), now: time.Now}
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, span time.Duration) (int, time.Duration, error) {
	if span <= 0 {
		span = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.calls++
	if s.calls%pruneEvery == 0 {
		for k, w := range s.windows {
			if !now.Before(w.until) {
				delete(s.windows, k)
			}
		}
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.until) {
		w = window{until: now.Add(span)}
	}
	w.hits++
	s.windows[key] = w
	return w.hits, w.until.Sub(now), nil
}

// cacheRateStore shares counters across instances through Redis or the database.
type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore returns nil for a nil store so callers fall back to memory.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return cacheRateStore{store: store}
}

func (s cacheRateStore) Increment(ctx context.Context, key string, span time.Duration) (int, time.Duration, error) {
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, span)
	return int(count), ttl, err
}
