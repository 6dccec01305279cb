package admission

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_NeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	pool := New(capacity)

	var inFlight, maxInFlight int32
	for i := 0; i < 10; i++ {
		if err := pool.Go(context.Background(), func(context.Context) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				cur := atomic.LoadInt32(&maxInFlight)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		}); err != nil {
			t.Fatalf("Go() error = %v", err)
		}
	}

	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if maxInFlight > capacity {
		t.Errorf("maxInFlight = %d, want <= %d", maxInFlight, capacity)
	}
}

func TestPool_WaitReturnsFirstError(t *testing.T) {
	pool := New(2)
	boom := errors.New("boom")

	_ = pool.Go(context.Background(), func(context.Context) error { return boom })
	_ = pool.Go(context.Background(), func(context.Context) error { return nil })

	if err := pool.Wait(); !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
}

func TestPool_GoRespectsCancellation(t *testing.T) {
	pool := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = pool.Go(context.Background(), func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	if err := pool.Go(ctx, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error from canceled context while pool is full")
	}

	_ = pool.Wait()
}
