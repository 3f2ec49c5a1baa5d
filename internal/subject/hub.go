package subject

import (
	"sort"

	"github.com/alphadose/haxmap"
)

// Hub hands out one shared subject per named external signal, so every command
// interested in "selection" observes the same Subject.
type Hub struct {
	subjects *haxmap.Map[string, *Subject]
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subjects: haxmap.New[string, *Subject]()}
}

// Named returns the subject for name, creating it on first request.
func (h *Hub) Named(name string) *Subject {
	s, _ := h.subjects.GetOrCompute(name, func() *Subject {
		return New(name)
	})
	return s
}

// Lookup returns the subject for name if it was created.
func (h *Hub) Lookup(name string) (*Subject, bool) {
	return h.subjects.Get(name)
}

// Notify fires the named subject. Reports false if no such subject exists.
func (h *Hub) Notify(name string) bool {
	s, ok := h.subjects.Get(name)
	if !ok {
		return false
	}
	s.Notify()
	return true
}

// Names returns the sorted names of all created subjects.
func (h *Hub) Names() []string {
	names := make([]string, 0, int(h.subjects.Len()))
	h.subjects.ForEach(func(name string, _ *Subject) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
