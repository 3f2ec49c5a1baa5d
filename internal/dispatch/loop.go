package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/cmdgate/internal/log"
)

// DefaultQueueCapacity is the default buffer size for a Loop queue.
const DefaultQueueCapacity = 1000

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithQueueCapacity sets the queue buffer capacity.
func WithQueueCapacity(capacity int) LoopOption {
	return func(l *Loop) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// Loop is a single-goroutine FIFO dispatcher. Everything posted to it runs on
// the goroutine that called Run, one item at a time.
type Loop struct {
	queue    chan func()
	capacity int

	stopCh   chan struct{}
	stopOnce sync.Once

	started atomic.Bool
	running atomic.Bool
	readyCh chan struct{}

	processed atomic.Int64
	panics    atomic.Int64
}

var _ Dispatcher = (*Loop)(nil)

// NewLoop creates a Loop. Work can be posted before Run starts; it is held in
// the queue until then.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		capacity: DefaultQueueCapacity,
		stopCh:   make(chan struct{}),
		readyCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.queue = make(chan func(), l.capacity)
	return l
}

// Run processes posted work until ctx is cancelled or Stop is called.
// Run can only be called once; later calls return immediately.
func (l *Loop) Run(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}

	l.running.Store(true)
	close(l.readyCh)
	defer l.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case fn := <-l.queue:
			l.invoke(fn)
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			log.Error(log.CatDispatch, "posted work panicked", "panic", r)
		}
	}()
	fn()
	l.processed.Add(1)
}

// WaitForReady blocks until Run has started or ctx is done.
func (l *Loop) WaitForReady(ctx context.Context) error {
	select {
	case <-l.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn. Returns ErrStopped after Stop and ErrQueueFull when the
// queue is at capacity. Never blocks.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.stopCh:
		return ErrStopped
	default:
	}

	select {
	case l.queue <- fn:
		return nil
	default:
		log.Warn(log.CatDispatch, "loop queue full", "capacity", l.capacity)
		return ErrQueueFull
	}
}

// Do posts fn and waits for it to finish. It must not be called from the
// loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends Run. Queued work that has not started is discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// IsRunning reports whether Run is currently processing.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// QueueLen returns the number of items waiting to run.
func (l *Loop) QueueLen() int {
	return len(l.queue)
}

// Processed returns the number of items that completed without panicking.
func (l *Loop) Processed() int64 {
	return l.processed.Load()
}

// Panics returns the number of items that panicked.
func (l *Loop) Panics() int64 {
	return l.panics.Load()
}
