// Package dispatch abstracts the two execution contexts a command touches:
// the interaction context, where state changes and callbacks are observed, and
// the worker context, where actions run.
package dispatch

import "errors"

var (
	// ErrStopped is returned when posting to a dispatcher that has shut down.
	ErrStopped = errors.New("dispatcher stopped")

	// ErrQueueFull is returned when a bounded dispatcher queue is at capacity.
	ErrQueueFull = errors.New("dispatcher queue full")

	// ErrPoolClosed is returned when scheduling on a closed worker pool.
	ErrPoolClosed = errors.New("worker pool closed")
)

// Dispatcher serializes work onto the interaction context.
// Work posted from one goroutine runs in posting order.
type Dispatcher interface {
	Post(fn func()) error
}

// Pool runs work off the interaction context.
type Pool interface {
	Go(fn func()) error
}

// Inline runs posted work immediately on the caller's goroutine. It suits
// tests and headless callers that have no interaction context of their own.
type Inline struct{}

var _ Dispatcher = Inline{}

// Post implements Dispatcher.
func (Inline) Post(fn func()) error {
	fn()
	return nil
}
