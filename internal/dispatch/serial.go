package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/zjrosen/cmdgate/internal/log"
)

// Serial runs posted work one item at a time without a goroutine of its own.
// The first poster drains the queue on its own goroutine; work posted while a
// drain is in progress, from any goroutine or from the work itself, is queued
// and run by that drain in posting order.
type Serial struct {
	mu       sync.Mutex
	queue    []func()
	draining bool

	panics atomic.Int64
}

var _ Dispatcher = (*Serial)(nil)

// NewSerial creates an idle Serial.
func NewSerial() *Serial {
	return &Serial{}
}

// Post implements Dispatcher. fn has run when Post returns unless another
// drain was already in progress. Never fails.
func (s *Serial) Post(fn func()) error {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.draining {
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return nil
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.invoke(next)
	}
}

func (s *Serial) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			log.Error(log.CatDispatch, "serial work panicked", "panic", r)
		}
	}()
	fn()
}

// Pending returns the number of items waiting behind the current drain.
func (s *Serial) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Panics returns the number of items that panicked.
func (s *Serial) Panics() int64 {
	return s.panics.Load()
}
