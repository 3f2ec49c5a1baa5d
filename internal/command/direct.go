package command

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/subject"
)

// DirectCommand runs a synchronous function when its predicate allows.
// A command's cancel command is a DirectCommand enabled while it executes.
//
// A DirectCommand can observe subjects like a Command does. One created with
// NewActivatableDirect only observes them, and only runs, while active.
type DirectCommand struct {
	name     string
	run      func()
	canRun   func() bool
	watchers watchList

	registry   *Registry
	activation *Activation
	closed     atomic.Bool
}

var (
	_ Runnable         = (*DirectCommand)(nil)
	_ Activator        = (*DirectCommand)(nil)
	_ subject.Observer = (*DirectCommand)(nil)
)

// NewDirect creates a DirectCommand. A nil canRun always allows running.
func NewDirect(name string, run func(), canRun func() bool) *DirectCommand {
	return &DirectCommand{name: name, run: run, canRun: canRun, registry: NewRegistry()}
}

// NewActivatableDirect creates an inactive DirectCommand.
func NewActivatableDirect(name string, run func(), canRun func() bool) *DirectCommand {
	d := NewDirect(name, run, canRun)
	d.activation = NewActivation(d.registry, d)
	return d
}

// Name returns the command name.
func (d *DirectCommand) Name() string {
	return d.name
}

// Observe registers subjects whose notifications raise CanRunChanged.
// Subscription is immediate unless the command is activatable.
func (d *DirectCommand) Observe(subjects ...subject.Source) *DirectCommand {
	d.registry.Add(subjects...)
	if d.activation == nil && !d.closed.Load() {
		d.registry.SubscribeAll(d)
	}
	return d
}

// Subjects returns the observed subjects in registration order.
func (d *DirectCommand) Subjects() []subject.Source {
	return d.registry.Subjects()
}

// CanRun implements Gateable.
func (d *DirectCommand) CanRun() bool {
	return !d.closed.Load() && d.IsActive() && (d.canRun == nil || d.canRun())
}

// Run calls the function on the caller's goroutine. The parameter is ignored.
func (d *DirectCommand) Run(any) error {
	if !d.CanRun() {
		reason := ErrGated
		switch {
		case d.closed.Load():
			reason = ErrClosed
		case !d.IsActive():
			reason = ErrInactive
		}
		log.Debug(log.CatCommand, "run rejected", "command", d.name, "reason", reason.Error())
		return reject(d.name, reason)
	}
	if d.run != nil {
		d.run()
	}
	return nil
}

// Watch implements Gateable.
func (d *DirectCommand) Watch(fn func(Change)) func() {
	return d.watchers.add(fn)
}

// Invalidate tells watchers CanRun may have changed. A nil *DirectCommand
// ignores it.
func (d *DirectCommand) Invalidate() {
	if d == nil || d.closed.Load() {
		return
	}
	d.watchers.emit(Change{Kind: CanRunChanged, Command: d.name})
}

// IsActive reports whether the command is active. Non-activatable direct
// commands always are.
func (d *DirectCommand) IsActive() bool {
	return d.activation == nil || d.activation.IsActive()
}

// Activate subscribes to the observed subjects and enables the command.
// No-op unless the command is activatable, inactive and open.
func (d *DirectCommand) Activate() {
	if d.activation == nil || d.closed.Load() || !d.activation.Activate() {
		return
	}
	d.watchers.emit(Change{Kind: ActiveChanged, Command: d.name, RunID: uuid.Nil})
	d.watchers.emit(Change{Kind: CanRunChanged, Command: d.name, RunID: uuid.Nil})
}

// Deactivate mirrors Activate.
func (d *DirectCommand) Deactivate() {
	if d.activation == nil || d.closed.Load() || !d.activation.Deactivate() {
		return
	}
	d.watchers.emit(Change{Kind: ActiveChanged, Command: d.name, RunID: uuid.Nil})
	d.watchers.emit(Change{Kind: CanRunChanged, Command: d.name, RunID: uuid.Nil})
}

// Close unsubscribes from every subject and drops every watcher. Idempotent.
func (d *DirectCommand) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	if d.activation != nil {
		d.activation.Deactivate()
	}
	d.registry.UnsubscribeAll(d)
	d.watchers.clear()
}

// IsClosed reports whether Close has been called.
func (d *DirectCommand) IsClosed() bool {
	return d.closed.Load()
}
