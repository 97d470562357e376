package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrTimeout = errors.New("timed out waiting for lock")

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

// Locker serializes work per key with a bounded wait.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Each key owns a one-slot semaphore that
// is dropped once nobody holds or waits for it.
type KeyedMutex struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
}

func NewKeyedMutex(timeout time.Duration) *KeyedMutex {
	return &KeyedMutex{
		slots:   make(map[string]*slot),
		timeout: timeout,
	}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	s := m.acquireSlot(key)

	var timer <-chan time.Time
	if m.timeout > 0 {
		t := time.NewTimer(m.timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case s.ch <- struct{}{}:
	case <-timer:
		m.releaseSlot(key, s)
		return nil, ErrTimeout
	case <-ctx.Done():
		m.releaseSlot(key, s)
		return nil, ctx.Err()
	}

	return Once(func() {
		<-s.ch
		m.releaseSlot(key, s)
	}), nil
}

// Once wraps release so that only the first call runs it, whichever
// goroutine makes it.
func Once(release func()) Unlock {
	var once sync.Once
	return func() {
		once.Do(release)
	}
}

// Len is the number of keys currently held or waited on.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *KeyedMutex) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) releaseSlot(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}
