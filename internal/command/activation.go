package command

import (
	"sync"

	"github.com/zjrosen/cmdgate/internal/subject"
)

// Activation owns the active flag of an activatable command and ties it to
// the command's subscriptions: active exactly when subscribed.
type Activation struct {
	mu       sync.Mutex
	active   bool
	registry *Registry
	observer subject.Observer
}

// NewActivation creates an inactive controller for observer over registry.
func NewActivation(registry *Registry, observer subject.Observer) *Activation {
	return &Activation{registry: registry, observer: observer}
}

// Activate subscribes the observer to every registered subject and marks the
// controller active. Reports whether anything changed.
func (a *Activation) Activate() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active {
		return false
	}
	a.registry.SubscribeAll(a.observer)
	a.active = true
	return true
}

// Deactivate mirrors Activate.
func (a *Activation) Deactivate() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return false
	}
	a.registry.UnsubscribeAll(a.observer)
	a.active = false
	return true
}

// IsActive reports the active flag.
func (a *Activation) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}
