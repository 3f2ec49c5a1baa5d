package command

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/cmdgate/internal/dispatch"
	"github.com/zjrosen/cmdgate/internal/gate"
	"github.com/zjrosen/cmdgate/internal/history"
	"github.com/zjrosen/cmdgate/internal/subject"
)

// Option configures a command at construction.
type Option func(*settings)

type settings struct {
	predicate    func() bool
	paramCheck   func(param any) bool
	bound        *gate.Bound
	observes     []subject.Source
	heartbeat    bool
	autoActivate bool

	onCompleted func()
	onError     func(error)
	onCanceled  func()

	dispatcher dispatch.Dispatcher
	pool       dispatch.Pool
	tracer     trace.Tracer
	history    *history.Store
	ctx        context.Context
}

// WithPredicate gates the command on fn. Only one of WithPredicate,
// WithParamPredicate and WithBound may be given.
func WithPredicate(fn func() bool) Option {
	return func(s *settings) {
		s.predicate = fn
	}
}

// WithParamPredicate gates the command on fn applied to the run parameter.
// CanRun asks about a nil parameter; CanRunWith asks about a specific one.
func WithParamPredicate(fn func(param any) bool) Option {
	return func(s *settings) {
		s.paramCheck = fn
	}
}

// WithTypedPredicate is WithParamPredicate over a concrete parameter type,
// the gating counterpart of Typed. A nil parameter is checked as T's zero
// value; a parameter of any other type is disallowed.
func WithTypedPredicate[T any](fn func(param T) bool) Option {
	return WithParamPredicate(func(param any) bool {
		var v T
		if param != nil {
			p, ok := param.(T)
			if !ok {
				return false
			}
			v = p
		}
		return fn(v)
	})
}

// WithBound gates the command on an observable predicate. The predicate's
// subject is observed first. Mutually exclusive with WithPredicate.
func WithBound(b *gate.Bound) Option {
	return func(s *settings) {
		s.bound = b
	}
}

// WithObserves re-evaluates the predicate whenever any of subjects fires.
// Repeated subjects are observed once.
func WithObserves(subjects ...subject.Source) Option {
	return func(s *settings) {
		s.observes = append(s.observes, subjects...)
	}
}

// WithHeartbeat observes the process-wide heartbeat.
func WithHeartbeat() Option {
	return func(s *settings) {
		s.heartbeat = true
	}
}

// WithOnCompleted is called on the dispatcher after a run completes.
func WithOnCompleted(fn func()) Option {
	return func(s *settings) {
		s.onCompleted = fn
	}
}

// WithOnError is called on the dispatcher with the fault of a failed run.
func WithOnError(fn func(error)) Option {
	return func(s *settings) {
		s.onError = fn
	}
}

// WithOnCanceled is called on the dispatcher after a run is canceled.
func WithOnCanceled(fn func()) Option {
	return func(s *settings) {
		s.onCanceled = fn
	}
}

// WithAutoActivate activates an activatable command at construction.
// Plain commands ignore it.
func WithAutoActivate() Option {
	return func(s *settings) {
		s.autoActivate = true
	}
}

// WithDispatcher sets the interaction context completions are posted to.
// Defaults to dispatch.Inline, which completes on the worker; the command's
// own serial queue still keeps its notifications ordered.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(s *settings) {
		s.dispatcher = d
	}
}

// WithPool sets where actions run. Defaults to an unbounded dispatch.GoPool.
func WithPool(p dispatch.Pool) Option {
	return func(s *settings) {
		s.pool = p
	}
}

// WithTracer records one span per run.
func WithTracer(t trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
	}
}

// WithHistory records every finished run in store.
func WithHistory(store *history.Store) Option {
	return func(s *settings) {
		s.history = store
	}
}

// WithContext sets the lifetime context. Every run context derives from it,
// so cancelling it cancels in-flight work.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		s.ctx = ctx
	}
}
