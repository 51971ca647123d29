package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is a stored value together with the time it was last written.
type Entry[V any] struct {
	Value     V
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory value store keyed by string.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL. A non-positive TTL disables
// expiry.
type Store[V any] struct {
	mu   sync.RWMutex
	data map[string]*Entry[V]
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		data: make(map[string]*Entry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// WithClock replaces the store clock. Intended for tests.
func (s *Store[V]) WithClock(now func() time.Time) *Store[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Put stores or replaces the value for key.
// Callers must not modify v after calling Put if V is a pointer.
func (s *Store[V]) Put(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &Entry[V]{
		Value:     v,
		UpdatedAt: s.now(),
	}
}

// Get returns the Entry for key and whether one was found. The entry may be
// stale if the TTL has elapsed but eviction has not run yet.
func (s *Store[V]) Get(key string) (*Entry[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	return e, ok
}

// Fresh returns the value for key only if it is within the TTL.
func (s *Store[V]) Fresh(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || !s.live(e, s.now()) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// List returns all entries whose UpdatedAt is within the TTL.
// Stale entries that have not yet been evicted are excluded.
func (s *Store[V]) List() []*Entry[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make([]*Entry[V], 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store[V]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store[V]) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}

func (s *Store[V]) live(e *Entry[V], now time.Time) bool {
	return s.ttl <= 0 || e.UpdatedAt.After(now.Add(-s.ttl))
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store[V]) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				zap.L().Debug("store: evicted stale entries", zap.Int("count", n))
			}
		}
	}
}
