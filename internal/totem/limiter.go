package totem

// limiter.go implements concurrency control for synchronization runs.
//
// The limiter uses a semaphore pattern with a single slot: a new run that
// cannot take the slot immediately is rejected with ErrSyncInProgress rather
// than queued, matching the one-run-at-a-time policy. It also supports
// graceful shutdown via WaitForDrain, which blocks until the active run
// finishes.

import (
	"context"
	"sync"
	"time"
)

// RunLimiter serializes synchronization runs.
type RunLimiter struct {
	semaphore chan struct{}

	mu     sync.RWMutex
	active int
}

// NewRunLimiter creates a limiter allowing at most one run in flight.
func NewRunLimiter() *RunLimiter {
	return &RunLimiter{semaphore: make(chan struct{}, 1)}
}

// TryAcquire attempts to take the run slot without blocking. Returns false
// when a run is already in flight. The caller MUST call Release when the run
// completes (use defer).
func (l *RunLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees the run slot. Must be called exactly once per successful
// TryAcquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// Active reports whether a run is currently in flight.
func (l *RunLimiter) Active() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active > 0
}

// WaitForDrain blocks until the active run completes or the context is
// cancelled. Used for graceful shutdown so a run is not killed mid-sheet.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !l.Active() {
				return nil
			}
		}
	}
}
