// Package subject implements the invalidation graph: broadcast points that tell
// every subscribed command "your gating predicate may have changed".
//
// A Subject only holds a lookup of its observers for fan-out. It never keeps an
// observer alive on purpose; observers remove themselves when they deactivate
// or are closed.
package subject

import (
	"sync"

	"github.com/zjrosen/cmdgate/internal/log"
)

// Observer is notified when a subject fires. Implementations must be
// comparable (pointer types in practice) because membership is keyed by identity.
// Add only filters an untyped nil; a nil pointer stored in an Observer is kept,
// so its Invalidate must tolerate a nil receiver.
type Observer interface {
	Invalidate()
}

// Source is the membership half of a subject. Commands only need this to
// subscribe and unsubscribe.
type Source interface {
	Add(o Observer)
	Remove(o Observer)
}

// Subject is a set of observers with snapshot fan-out.
type Subject struct {
	name string

	mu      sync.RWMutex
	members map[Observer]struct{}

	// attach runs when membership goes 0 -> 1 and returns the matching detach,
	// which runs on 1 -> 0.
	attach func() func()
	detach func()
}

var _ Source = (*Subject)(nil)

// New creates an empty subject. The name only shows up in logs.
func New(name string) *Subject {
	return &Subject{
		name:    name,
		members: make(map[Observer]struct{}),
	}
}

// Name returns the subject's log name.
func (s *Subject) Name() string {
	return s.name
}

// Add subscribes o. Adding an existing member is a no-op.
func (s *Subject) Add(o Observer) {
	if o == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[o]; ok {
		return
	}
	s.members[o] = struct{}{}

	if len(s.members) == 1 && s.attach != nil {
		s.detach = s.attach()
	}
}

// Remove unsubscribes o. Removing a non-member is a no-op.
func (s *Subject) Remove(o Observer) {
	if o == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[o]; !ok {
		return
	}
	delete(s.members, o)

	if len(s.members) == 0 && s.detach != nil {
		s.detach()
		s.detach = nil
	}
}

// Contains reports whether o is currently subscribed.
func (s *Subject) Contains(o Observer) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[o]
	return ok
}

// Len returns the number of subscribed observers.
func (s *Subject) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Notify invalidates every observer that was a member when Notify started.
// Observers may add or remove members (themselves included) from inside
// Invalidate. Order is unspecified.
func (s *Subject) Notify() {
	s.mu.RLock()
	snapshot := make([]Observer, 0, len(s.members))
	for o := range s.members {
		snapshot = append(snapshot, o)
	}
	s.mu.RUnlock()

	log.Debug(log.CatSubject, "notify", "subject", s.name, "observers", len(snapshot))

	for _, o := range snapshot {
		o.Invalidate()
	}
}
