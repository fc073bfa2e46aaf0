package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type window struct {
	start time.Time
	count int64
}

// MemoryStore keeps windows in process. Expired windows are evicted by ttlcache,
// so idle clients cost nothing once their window is over.
type MemoryStore struct {
	mu      sync.Mutex
	windows *ttlcache.Cache[string, *window]
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now for window accounting.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		windows: ttlcache.New[string, *window](
			ttlcache.WithDisableTouchOnHit[string, *window](),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.windows.Start()
	return s
}

func (s *MemoryStore) Increment(_ context.Context, key string, w time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var win *window
	if item := s.windows.Get(key); item != nil {
		win = item.Value()
	}
	if win == nil || now.Sub(win.start) >= w {
		win = &window{start: now}
		s.windows.Set(key, win, w)
	}
	win.count++
	return win.count, win.start.Add(w).Sub(now), nil
}

// Len is the number of live windows.
func (s *MemoryStore) Len() int {
	return s.windows.Len()
}

func (s *MemoryStore) Close() {
	s.windows.Stop()
}
