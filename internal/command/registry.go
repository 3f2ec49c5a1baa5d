package command

import (
	"sync"

	"github.com/zjrosen/cmdgate/internal/subject"
)

// Registry is the ordered, duplicate-free set of subjects a command observes,
// plus which of them currently have the command subscribed.
type Registry struct {
	mu         sync.Mutex
	subjects   []subject.Source
	subscribed map[subject.Source]struct{}
	observer   subject.Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subscribed: make(map[subject.Source]struct{})}
}

// Add appends subjects not already present. While an observer is subscribed,
// new subjects are subscribed immediately.
func (r *Registry) Add(subjects ...subject.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range subjects {
		if s == nil || r.has(s) {
			continue
		}
		r.subjects = append(r.subjects, s)
		if r.observer != nil {
			s.Add(r.observer)
			r.subscribed[s] = struct{}{}
		}
	}
}

// SubscribeAll adds o to every registered subject it is not yet subscribed to.
func (r *Registry) SubscribeAll(o subject.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observer = o
	for _, s := range r.subjects {
		if _, ok := r.subscribed[s]; ok {
			continue
		}
		s.Add(o)
		r.subscribed[s] = struct{}{}
	}
}

// UnsubscribeAll removes o from every subject it is subscribed to.
func (r *Registry) UnsubscribeAll(o subject.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.subjects {
		if _, ok := r.subscribed[s]; !ok {
			continue
		}
		s.Remove(o)
		delete(r.subscribed, s)
	}
	r.observer = nil
}

// Subjects returns the registered subjects in registration order.
func (r *Registry) Subjects() []subject.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]subject.Source, len(r.subjects))
	copy(out, r.subjects)
	return out
}

// Subscribed returns how many subjects currently have the observer subscribed.
func (r *Registry) Subscribed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribed)
}

func (r *Registry) has(s subject.Source) bool {
	for _, existing := range r.subjects {
		if existing == s {
			return true
		}
	}
	return false
}
