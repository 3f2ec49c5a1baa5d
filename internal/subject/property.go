package subject

import "sync"

// Notifier is the minimal contract for an externally observable value:
// register a callback that fires when the value might have changed.
// The returned function cancels the registration.
type Notifier interface {
	Subscribe(fn func()) (cancel func())
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(fn func()) func()

// Subscribe implements Notifier.
func (f NotifierFunc) Subscribe(fn func()) func() {
	return f(fn)
}

// FromNotifier builds a property-change subject over n. The subject only holds
// a registration on n while it has at least one observer, so an unobserved
// subject can be collected even if n lives for the whole process.
func FromNotifier(name string, n Notifier) *Subject {
	s := New(name)
	s.attach = func() func() {
		return n.Subscribe(s.Notify)
	}
	return s
}

// Property is an observable value. Set only notifies when the value changes
// by ==, which keeps toggling the same value from spamming subscribers.
type Property[T comparable] struct {
	mu     sync.RWMutex
	value  T
	nextID uint64
	subs   map[uint64]func()
}

var _ Notifier = (*Property[bool])(nil)

// NewProperty creates a property holding initial.
func NewProperty[T comparable](initial T) *Property[T] {
	return &Property[T]{
		value: initial,
		subs:  make(map[uint64]func()),
	}
}

// Get returns the current value.
func (p *Property[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set stores v and notifies subscribers if it differs from the current value.
// Reports whether a change happened.
func (p *Property[T]) Set(v T) bool {
	p.mu.Lock()
	if p.value == v {
		p.mu.Unlock()
		return false
	}
	p.value = v
	fns := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return true
}

// Subscribe implements Notifier.
func (p *Property[T]) Subscribe(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live registrations.
func (p *Property[T]) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
