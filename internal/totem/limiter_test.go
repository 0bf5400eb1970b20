package totem

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunLimiterSingleSlot(t *testing.T) {
	l := NewRunLimiter()

	if l.Active() {
		t.Error("Active() = true before any acquire")
	}
	if !l.TryAcquire() {
		t.Fatal("first TryAcquire() = false, want true")
	}
	if !l.Active() {
		t.Error("Active() = false while holding the slot")
	}
	if l.TryAcquire() {
		t.Error("second TryAcquire() = true, want rejection")
	}

	l.Release()
	if l.Active() {
		t.Error("Active() = true after release")
	}
	if !l.TryAcquire() {
		t.Error("TryAcquire() after release = false, want true")
	}
	l.Release()
}

func TestWaitForDrainReturnsWhenIdle(t *testing.T) {
	l := NewRunLimiter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain() on idle limiter error = %v", err)
	}
}

func TestWaitForDrainBlocksUntilRelease(t *testing.T) {
	l := NewRunLimiter()
	if !l.TryAcquire() {
		t.Fatal("TryAcquire() = false")
	}

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- l.WaitForDrain(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("WaitForDrain() returned %v while the slot was held", err)
	case <-time.After(150 * time.Millisecond):
	}

	l.Release()
	if err := <-done; err != nil {
		t.Errorf("WaitForDrain() after release error = %v", err)
	}
}

func TestWaitForDrainHonorsContext(t *testing.T) {
	l := NewRunLimiter()
	if !l.TryAcquire() {
		t.Fatal("TryAcquire() = false")
	}
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := l.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain() error = %v, want DeadlineExceeded", err)
	}
}
