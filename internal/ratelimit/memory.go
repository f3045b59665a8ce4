package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is an in-process window counter for single-instance
// deployments and tests. Expired windows are reset lazily on next access;
// there is no background sweep.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryStore creates an in-process window counter.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window), now: time.Now}
}

// Incr implements Store. The mutex makes increment-and-read atomic under
// concurrent requests from the same key.
func (s *MemoryStore) Incr(_ context.Context, key string, windowSize time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(windowSize)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}
