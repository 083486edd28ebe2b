package core

// io_limiter.go bounds concurrent document loads and stores.
//
// Codec and snapshot I/O runs outside the workbook lock, so nothing else
// stops a burst of open/save requests from each holding a full document copy
// in memory. The limiter is a semaphore: callers wait up to maxWait for a
// slot and then fail with ErrTooManyIO. WaitForDrain lets shutdown finish
// in-flight saves.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentIO is the default number of simultaneous loads/stores.
const DefaultMaxConcurrentIO = 4

// DefaultIOMaxWait is how long to wait for a slot before rejecting.
const DefaultIOMaxWait = 30 * time.Second

// IOLimiter is a counting semaphore over document I/O.
type IOLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewIOLimiter allows at most maxConcurrent operations at once.
func NewIOLimiter(maxConcurrent int, maxWait time.Duration) *IOLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIO
	}
	if maxWait <= 0 {
		maxWait = DefaultIOMaxWait
	}
	return &IOLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. The caller must Release it.
func (l *IOLimiter) Acquire(ctx context.Context) error {
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
		return ErrTooManyIO
	}
}

// TryAcquire takes a slot only if one is free.
func (l *IOLimiter) TryAcquire() bool {
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

// Release returns a slot taken by Acquire or TryAcquire.
func (l *IOLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

func (l *IOLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

func (l *IOLimiter) MaxConcurrent() int { return cap(l.semaphore) }

func (l *IOLimiter) Available() int { return cap(l.semaphore) - len(l.semaphore) }

// WaitForDrain blocks until no operation holds a slot or ctx is done.
func (l *IOLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// IOLimiterStatus is a point-in-time view of the limiter.
type IOLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *IOLimiter) Status() IOLimiterStatus {
	return IOLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
