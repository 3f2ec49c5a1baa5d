package command

import (
	"github.com/google/uuid"

	"github.com/zjrosen/cmdgate/internal/log"
)

// Activatable is a command that only observes its subjects, and only runs,
// while active. Typical use is a command bound to a panel that is shown and
// hidden.
type Activatable struct {
	*Command
}

// NewActivatable creates an inactive command unless WithAutoActivate is given.
func NewActivatable(name string, action Action, opts ...Option) (*Activatable, error) {
	c, s, err := build(name, action, opts)
	if err != nil {
		return nil, err
	}
	c.activation = NewActivation(c.registry, c)

	a := &Activatable{Command: c}
	if s.autoActivate {
		a.Activate()
	}
	return a, nil
}

// Activate subscribes to every observed subject and enables the command.
// No-op when already active or closed.
func (a *Activatable) Activate() {
	if a.closed.Load() || !a.activation.Activate() {
		return
	}
	log.Debug(log.CatCommand, "activated", "command", a.name)
	a.deliver(func() {
		a.raise(ActiveChanged, uuid.Nil, a.machine.State())
		a.raise(CanRunChanged, uuid.Nil, a.machine.State())
	})
}

// Deactivate unsubscribes from every observed subject and disables the
// command. A run already in flight is not canceled.
func (a *Activatable) Deactivate() {
	if a.closed.Load() || !a.activation.Deactivate() {
		return
	}
	log.Debug(log.CatCommand, "deactivated", "command", a.name)
	a.deliver(func() {
		a.raise(ActiveChanged, uuid.Nil, a.machine.State())
		a.raise(CanRunChanged, uuid.Nil, a.machine.State())
	})
}
