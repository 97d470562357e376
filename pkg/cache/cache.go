package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a missing or expired key.
type ComputeFunc func(ctx context.Context) (any, error)

// Store memoizes derived values. Nothing stored in it is authoritative.
type Store interface {
	Remember(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (any, error)
	Forget(keys ...string)
}

type entry struct {
	value     any
	expiresAt time.Time
}

type Stats struct {
	Hits   uint64
	Misses uint64
}

// MemoryStore is a bounded in-process Store. Least recently used entries are
// evicted once MaxEntries is reached and concurrent misses on one key share
// a single computation.
type MemoryStore struct {
	mu      sync.Mutex
	entries *lru.Cache[string, entry]
	group   singleflight.Group
	now     func() time.Time
	epoch   atomic.Uint64
	hits    atomic.Uint64
	misses  atomic.Uint64
}

type Option func(*MemoryStore)

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(maxEntries int, opts ...Option) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	s := &MemoryStore{
		entries: entries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *MemoryStore) Remember(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (any, error) {
	if v, ok := s.get(key); ok {
		s.hits.Add(1)
		return v, nil
	}
	s.misses.Add(1)

	v, err, _ := s.group.Do(key, func() (any, error) {
		epoch := s.epoch.Load()
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		s.put(key, value, ttl, epoch)
		return value, nil
	})
	return v, err
}

// Forget drops keys and any computation for them still in flight. A
// computation that started before Forget is not stored.
func (s *MemoryStore) Forget(keys ...string) {
	s.epoch.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.entries.Remove(key)
		s.group.Forget(key)
	}
}

func (s *MemoryStore) Purge() {
	s.epoch.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Purge()
}

func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

func (s *MemoryStore) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

func (s *MemoryStore) get(key string) (any, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		s.entries.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) put(key string, value any, ttl time.Duration, epoch uint64) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch.Load() != epoch {
		return
	}
	s.entries.Add(key, entry{value: value, expiresAt: s.now().Add(ttl)})
}

// Remember is the typed form of Store.Remember.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	v, err := s.Remember(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %q holds %T", key, v)
	}
	return typed, nil
}
