// Package command implements cancellable, gated commands for interactive
// applications.
//
// A Command wraps an action and an optional gating predicate. Run schedules the
// action on a worker pool and posts its completion back to a dispatcher, the
// interaction context where callbacks and change notifications are delivered.
// Subjects registered with the command tell it when its predicate may have
// changed; the command re-posts that to the dispatcher as a CanRunChanged.
//
// Every change notification of one command passes through that command's
// dispatch.Serial, so notifications are never concurrent and a run's start
// notifications always follow the previous run's completion notifications.
package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/cmdgate/internal/dispatch"
	"github.com/zjrosen/cmdgate/internal/gate"
	"github.com/zjrosen/cmdgate/internal/history"
	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/pubsub"
	"github.com/zjrosen/cmdgate/internal/subject"
	"github.com/zjrosen/cmdgate/internal/tracing"
)

// Action is the work a command performs. It runs off the interaction context
// and should return an error wrapping context.Canceled when it stops because
// ctx was canceled.
type Action func(ctx context.Context, param any) error

// Command is the handle a UI layer triggers and queries.
type Command struct {
	name       string
	action     Action
	predicate  gate.Predicate
	paramCheck func(param any) bool

	machine    Machine
	registry   *Registry
	activation *Activation

	dispatcher dispatch.Dispatcher
	serial     *dispatch.Serial
	pool       dispatch.Pool
	tracer     trace.Tracer
	history    *history.Store

	onCompleted func()
	onError     func(error)
	onCanceled  func()

	ctx    context.Context
	stop   context.CancelFunc
	closed atomic.Bool

	watchers  watchList
	events    *pubsub.Broker[Change]
	cancelCmd atomic.Pointer[DirectCommand]
}

var _ subject.Observer = (*Command)(nil)

// New creates a command and subscribes it to every subject it observes.
func New(name string, action Action, opts ...Option) (*Command, error) {
	c, _, err := build(name, action, opts)
	if err != nil {
		return nil, err
	}
	c.registry.SubscribeAll(c)
	return c, nil
}

func build(name string, action Action, opts []Option) (*Command, *settings, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	if name == "" {
		return nil, nil, ErrNoName
	}
	if action == nil {
		return nil, nil, fmt.Errorf("command %q: %w", name, ErrNoAction)
	}
	forms := 0
	for _, set := range []bool{s.predicate != nil, s.bound != nil, s.paramCheck != nil} {
		if set {
			forms++
		}
	}
	if forms > 1 {
		return nil, nil, fmt.Errorf("command %q: %w", name, ErrPredicateConflict)
	}
	if forms == 0 && (len(s.observes) > 0 || s.heartbeat) {
		return nil, nil, fmt.Errorf("command %q: %w", name, ErrNoPredicate)
	}

	parent := s.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := context.WithCancel(parent)

	c := &Command{
		name:        name,
		action:      action,
		registry:    NewRegistry(),
		paramCheck:  s.paramCheck,
		dispatcher:  s.dispatcher,
		serial:      dispatch.NewSerial(),
		pool:        s.pool,
		tracer:      s.tracer,
		history:     s.history,
		onCompleted: s.onCompleted,
		onError:     s.onError,
		onCanceled:  s.onCanceled,
		ctx:         ctx,
		stop:        stop,
		events:      pubsub.NewBroker[Change](),
	}
	if c.dispatcher == nil {
		c.dispatcher = dispatch.Inline{}
	}
	if c.pool == nil {
		c.pool = dispatch.NewGoPool(0)
	}
	if c.tracer == nil {
		c.tracer = tracing.Noop()
	}

	switch {
	case s.bound != nil:
		c.predicate = s.bound
		c.registry.Add(s.bound)
	case s.predicate != nil:
		c.predicate = gate.Func(s.predicate)
	}
	c.registry.Add(s.observes...)
	if s.heartbeat {
		c.registry.Add(subject.Heartbeat())
	}

	log.Debug(log.CatCommand, "command created", "command", name, "subjects", len(c.registry.Subjects()))
	return c, s, nil
}

// Name returns the command name.
func (c *Command) Name() string {
	return c.name
}

// CanRun reports whether Run(nil) would be accepted right now. It has no side
// effects beyond evaluating the predicate.
func (c *Command) CanRun() bool {
	return c.CanRunWith(nil)
}

// CanRunWith reports whether Run(param) would be accepted right now.
func (c *Command) CanRunWith(param any) bool {
	return !c.closed.Load() && !c.machine.IsExecuting() && c.IsActive() && c.allowed(param)
}

func (c *Command) allowed(param any) bool {
	if c.paramCheck != nil {
		return c.paramCheck(param)
	}
	return c.predicate == nil || c.predicate.CanRun()
}

// IsActive reports whether the command is active. Plain commands always are.
func (c *Command) IsActive() bool {
	return c.activation == nil || c.activation.IsActive()
}

// Run starts the action with param. It returns an ErrRejected error when
// CanRunWith(param) is false and the pool's error when the action cannot be
// scheduled. Faults of the action itself never surface here.
//
// The start notifications are raised before Run returns, unless a completion
// of this command is being delivered on another goroutine at that moment; they
// then follow that completion's notifications.
func (c *Command) Run(param any) error {
	var reason error
	switch {
	case c.closed.Load():
		reason = ErrClosed
	case c.machine.IsExecuting():
		reason = ErrBusy
	case !c.IsActive():
		reason = ErrInactive
	case !c.allowed(param):
		reason = ErrGated
	}
	if reason != nil {
		log.Debug(log.CatCommand, "run rejected", "command", c.name, "reason", reason.Error())
		return reject(c.name, reason)
	}

	ctx, rec, ok := c.machine.begin(c.ctx, c.name, c.startSpan)
	if !ok {
		return reject(c.name, ErrBusy)
	}
	span := trace.SpanFromContext(ctx)

	log.Debug(log.CatCommand, "run started", "command", c.name, "run", rec.ID.String())
	c.deliver(func() {
		c.raise(BusyChanged, rec.ID, Running)
		c.raise(CanRunChanged, rec.ID, Running)
		c.invalidateCancelCommand()
	})

	if err := c.pool.Go(func() { c.execute(ctx, span, rec.ID, param) }); err != nil {
		log.ErrorErr(log.CatCommand, "run not scheduled", err, "command", c.name, "run", rec.ID.String())
		if c.machine.abort(rec.ID) {
			tracing.AbortRun(span, err)
			c.deliver(func() {
				c.raise(BusyChanged, rec.ID, Idle)
				c.raise(CanRunChanged, rec.ID, Idle)
				c.invalidateCancelCommand()
			})
		}
		return fmt.Errorf("schedule %s: %w", c.name, err)
	}
	return nil
}

// deliver runs fn on the command's serial queue.
func (c *Command) deliver(fn func()) {
	_ = c.serial.Post(fn)
}

func (c *Command) startSpan(ctx context.Context, id uuid.UUID) context.Context {
	ctx, _ = tracing.StartRun(ctx, c.tracer, c.name, id)
	return ctx
}

// execute runs on the worker pool.
func (c *Command) execute(ctx context.Context, span trace.Span, id uuid.UUID, param any) {
	err := ctx.Err()
	if err == nil {
		err = c.invoke(ctx, param)
	}

	done := func() { c.deliver(func() { c.complete(span, id, err) }) }
	if perr := c.dispatcher.Post(done); perr != nil {
		log.Warn(log.CatCommand, "dispatcher unavailable, completing on worker",
			"command", c.name, "error", perr.Error())
		done()
	}
}

func (c *Command) invoke(ctx context.Context, param any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return c.action(ctx, param)
}

// complete runs on the serial queue, reached through the dispatcher, exactly
// once per run. The transition to the outcome happens here so that no new run
// can begin until this run's notifications are queued ahead of it.
func (c *Command) complete(span trace.Span, id uuid.UUID, err error) {
	rec, state, ok := c.machine.finish(id, err)
	if !ok {
		return
	}
	tracing.EndRun(span, state.String(), err)
	if c.history != nil {
		c.history.Record(rec)
	}

	if state == Faulted {
		log.ErrorErr(log.CatCommand, "run faulted", err, "command", c.name, "run", id.String())
	} else {
		log.Debug(log.CatCommand, "run finished", "command", c.name, "run", id.String(), "outcome", state.String())
	}

	if c.closed.Load() {
		return
	}

	switch state {
	case Completed:
		if c.onCompleted != nil {
			c.onCompleted()
		}
	case Faulted:
		if c.onError != nil {
			c.onError(err)
		}
	case Canceled:
		if c.onCanceled != nil {
			c.onCanceled()
		}
	}

	c.raise(BusyChanged, id, state)
	c.raise(CanRunChanged, id, state)
	c.raise(OutcomeChanged, id, state)
	c.invalidateCancelCommand()
}

// Cancel requests cooperative cancellation of the in-flight run. No-op when
// idle. Never blocks.
func (c *Command) Cancel() {
	if ctx := c.machine.requestCancel(); ctx != nil {
		tracing.MarkCanceled(ctx)
		log.Debug(log.CatCommand, "cancel requested", "command", c.name)
	}
}

// CancelCommand returns a command that cancels this one and is only runnable
// while this one executes.
func (c *Command) CancelCommand() *DirectCommand {
	if d := c.cancelCmd.Load(); d != nil {
		return d
	}
	c.cancelCmd.CompareAndSwap(nil, NewDirect(c.name+".cancel", c.Cancel, c.IsExecuting))
	return c.cancelCmd.Load()
}

func (c *Command) invalidateCancelCommand() {
	if d := c.cancelCmd.Load(); d != nil {
		d.Invalidate()
	}
}

// Invalidate implements subject.Observer. The notification is re-posted to
// the dispatcher so watchers always hear about changes on the interaction
// context. A nil *Command ignores it.
func (c *Command) Invalidate() {
	if c == nil || c.closed.Load() {
		return
	}
	err := c.dispatcher.Post(func() {
		c.deliver(func() {
			if c.closed.Load() {
				return
			}
			c.raise(CanRunChanged, uuid.Nil, c.machine.State())
		})
	})
	if err != nil {
		log.Warn(log.CatCommand, "invalidation dropped", "command", c.name, "error", err.Error())
	}
}

// Watch registers fn for change notifications. fn runs synchronously on the
// goroutine draining the command's serial queue, one change at a time.
func (c *Command) Watch(fn func(Change)) func() {
	return c.watchers.add(fn)
}

// Subscribe streams change notifications until ctx is done or the command is
// closed. Slow subscribers miss events rather than stall the command.
func (c *Command) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return c.events.Subscribe(ctx)
}

// raise must run on the serial queue. state is the state the change reports,
// which a later run may already have moved past.
func (c *Command) raise(kind ChangeKind, runID uuid.UUID, state State) {
	ch := Change{Kind: kind, Command: c.name, State: state, RunID: runID}
	c.watchers.emit(ch)
	c.events.Publish(pubsub.ChangedEvent, ch)
}

// State returns the execution state.
func (c *Command) State() State { return c.machine.State() }

// IsExecuting reports whether a run is in flight.
func (c *Command) IsExecuting() bool { return c.machine.IsExecuting() }

// WasSuccessful reports whether the last run completed.
func (c *Command) WasSuccessful() bool { return c.machine.WasSuccessful() }

// WasFaulty reports whether the last run faulted.
func (c *Command) WasFaulty() bool { return c.machine.WasFaulty() }

// WasCanceled reports whether the last run was canceled.
func (c *Command) WasCanceled() bool { return c.machine.WasCanceled() }

// LastError returns the fault of the last run.
func (c *Command) LastError() error { return c.machine.LastError() }

// LastRun returns the record of the last finished run.
func (c *Command) LastRun() history.RunRecord { return c.machine.LastRun() }

// Subjects returns the observed subjects in registration order.
func (c *Command) Subjects() []subject.Source { return c.registry.Subjects() }

// Close cancels in-flight work and releases every subscription. A run
// finishing after Close still updates state but raises nothing. Idempotent.
func (c *Command) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.stop()
	if c.activation != nil {
		c.activation.Deactivate()
	}
	c.registry.UnsubscribeAll(c)
	c.watchers.clear()
	if d := c.cancelCmd.Load(); d != nil {
		d.Close()
	}
	c.events.Publish(pubsub.ClosedEvent, Change{Command: c.name, State: c.machine.State()})
	c.events.Close()

	log.Debug(log.CatCommand, "command closed", "command", c.name)
}

// IsClosed reports whether Close has been called.
func (c *Command) IsClosed() bool {
	return c.closed.Load()
}
