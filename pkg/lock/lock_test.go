package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex(time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "room-1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
	if m.Len() != 0 {
		t.Fatalf("slots leaked: %d", m.Len())
	}
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex(50 * time.Millisecond)

	unlockA, err := m.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	unlockB, err := m.Lock(context.Background(), "b")
	if err != nil {
		t.Fatalf("lock b should not wait on a: %v", err)
	}
	unlockB()
}

func TestKeyedMutex_Timeout(t *testing.T) {
	m := NewKeyedMutex(20 * time.Millisecond)

	unlock, err := m.Lock(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := m.Lock(context.Background(), "room-1"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	unlock()
	unlock()

	again, err := m.Lock(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
	if m.Len() != 0 {
		t.Fatalf("slots leaked: %d", m.Len())
	}
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	m := NewKeyedMutex(time.Second)
	unlock, _ := m.Lock(context.Background(), "k")
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Lock(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOnce_ConcurrentUnlockReleasesOnce(t *testing.T) {
	var calls int32
	unlock := Once(func() { atomic.AddInt32(&calls, 1) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock()
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("release ran %d times, want 1", got)
	}
}

func TestKeyedMutex_ConcurrentUnlockKeepsNextHolder(t *testing.T) {
	m := NewKeyedMutex(100 * time.Millisecond)
	ctx := context.Background()

	first, err := m.Lock(ctx, "room-1")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first()
		}()
	}
	wg.Wait()

	second, err := m.Lock(ctx, "room-1")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	defer second()

	// A stray unlock of the first holder must not free the second.
	first()
	if _, err := m.Lock(ctx, "room-1"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout while held, got %v", err)
	}
}
