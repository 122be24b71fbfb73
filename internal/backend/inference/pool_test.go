package inference

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPool_AcquireRelease(t *testing.T) {
	pool := NewPool("a")
	ctx := context.Background()

	got, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if got != "a" {
		t.Fatalf("Acquire = %q, want %q", got, "a")
	}

	pool.Release(got)
	if _, err := pool.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after Release error: %v", err)
	}
}

func TestPool_CancelledWhileEmpty(t *testing.T) {
	pool := NewPool(1)
	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := pool.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got != 0 {
		t.Errorf("Acquire returned %d on cancellation, want zero value", got)
	}
}

func TestPool_DeadlineWhileEmpty(t *testing.T) {
	pool := NewPool[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestPool_WaiterReceivesReleasedItem(t *testing.T) {
	pool := NewPool("only")
	item, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	done := make(chan string, 1)
	go func() {
		got, err := pool.Acquire(context.Background())
		if err != nil {
			done <- "error: " + err.Error()
			return
		}
		done <- got
	}()

	pool.Release(item)
	select {
	case got := <-done:
		if got != "only" {
			t.Fatalf("waiter got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not handed the released item")
	}
}
