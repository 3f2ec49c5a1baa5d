// Package gate provides the two gating predicate forms a command can use:
// a plain function, or a predicate bound to an observable source with a
// declared fallback for when the source cannot be read.
package gate

import (
	"fmt"

	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/subject"
)

// Predicate answers "may the command run right now?".
type Predicate interface {
	CanRun() bool
}

// Func is a predicate over no external state.
type Func func() bool

// CanRun implements Predicate. A nil Func allows running.
func (f Func) CanRun() bool {
	if f == nil {
		return true
	}
	return f()
}

// ReadFunc reads the bound value. A non-nil error means the value cannot be
// read right now and the fallback applies.
type ReadFunc func() (bool, error)

// Bound is a predicate fed by an observable source. It is also a subject:
// commands register it so source changes reach their registry.
type Bound struct {
	*subject.Subject

	read     ReadFunc
	fallback bool
}

var (
	_ Predicate      = (*Bound)(nil)
	_ subject.Source = (*Bound)(nil)
)

// Observe binds read to n. fallback is returned whenever read fails or panics.
func Observe(name string, n subject.Notifier, read ReadFunc, fallback bool) *Bound {
	return &Bound{
		Subject:  subject.FromNotifier(name, n),
		read:     read,
		fallback: fallback,
	}
}

// ObserveProperty binds directly to a boolean property. A property can always
// be read, so the fallback only matters for a nil property.
func ObserveProperty(name string, p *subject.Property[bool], fallback bool) *Bound {
	var n subject.Notifier = p
	if p == nil {
		n = subject.NotifierFunc(func(func()) func() { return func() {} })
	}
	return Observe(name, n, func() (bool, error) {
		if p == nil {
			return false, fmt.Errorf("property %q is nil", name)
		}
		return p.Get(), nil
	}, fallback)
}

// Fallback returns the declared fallback value.
func (b *Bound) Fallback() bool {
	return b.fallback
}

// CanRun implements Predicate.
func (b *Bound) CanRun() (ok bool) {
	if b.read == nil {
		return b.fallback
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn(log.CatGate, "bound predicate panicked, using fallback",
				"subject", b.Name(), "panic", r, "fallback", b.fallback)
			ok = b.fallback
		}
	}()

	v, err := b.read()
	if err != nil {
		log.Debug(log.CatGate, "bound predicate unreadable, using fallback",
			"subject", b.Name(), "error", err.Error(), "fallback", b.fallback)
		return b.fallback
	}
	return v
}
