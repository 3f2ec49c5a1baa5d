package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/zjrosen/cmdgate/internal/log"
)

// GoPool runs each piece of work on its own goroutine. With a positive limit
// at most limit pieces run at once; the rest wait inside their goroutine, so
// Go itself never blocks.
type GoPool struct {
	sem   *semaphore.Weighted
	limit int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Pool = (*GoPool)(nil)

// NewGoPool creates a pool. A non-positive limit means unbounded.
func NewGoPool(limit int) *GoPool {
	p := &GoPool{limit: limit}
	if limit > 0 {
		p.sem = semaphore.NewWeighted(int64(limit))
	}
	return p
}

// Limit returns the concurrency limit, or 0 when unbounded.
func (p *GoPool) Limit() int {
	if p.limit < 0 {
		return 0
	}
	return p.limit
}

// Go implements Pool.
func (p *GoPool) Go(fn func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	go func() {
		defer p.wg.Done()

		if p.sem != nil {
			// Background never cancels, so Acquire only returns once a slot frees.
			_ = p.sem.Acquire(context.Background(), 1)
			defer p.sem.Release(1)
		}

		defer func() {
			if r := recover(); r != nil {
				log.Error(log.CatDispatch, "pooled work panicked", "panic", r)
			}
		}()
		fn()
	}()
	return nil
}

// Close rejects new work. Work already scheduled still runs.
func (p *GoPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Wait blocks until all scheduled work has finished.
func (p *GoPool) Wait() {
	p.wg.Wait()
}
