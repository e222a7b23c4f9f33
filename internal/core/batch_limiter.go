package core

// batch_limiter.go limits how many generation batches run at once.
//
// Each batch already fans out to Config.LLM.Concurrency completion calls, so
// batches are gated separately with a semaphore. When every slot is taken a
// new batch waits up to maxWait before failing with ErrBatchInProgress.
// WaitForDrain lets shutdown wait for running batches.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBatchInProgress is returned when no batch slot frees up in time.
var ErrBatchInProgress = errors.New("a generation batch is already in progress")

// BatchLimiter is a counting semaphore for generation batches.
type BatchLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewBatchLimiter allows at most maxConcurrent batches. Non-positive values
// fall back to one batch and a ten second wait.
func NewBatchLimiter(maxConcurrent int, maxWait time.Duration) *BatchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = 10 * time.Second
	}
	return &BatchLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a slot. The caller must Release it when the batch ends.
func (l *BatchLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBatchInProgress
	}
}

// Release frees a slot taken by Acquire.
func (l *BatchLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// Active returns the number of running batches.
func (l *BatchLimiter) Active() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no batch is running or ctx is done.
func (l *BatchLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
