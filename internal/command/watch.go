package command

import "sync"

type watchEntry struct {
	id uint64
	fn func(Change)
}

// watchList holds synchronous change callbacks in registration order.
type watchList struct {
	mu      sync.RWMutex
	next    uint64
	entries []watchEntry
}

func (w *watchList) add(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}

	w.mu.Lock()
	id := w.next
	w.next++
	w.entries = append(w.entries, watchEntry{id: id, fn: fn})
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			for i, e := range w.entries {
				if e.id == id {
					w.entries = append(w.entries[:i:i], w.entries[i+1:]...)
					return
				}
			}
		})
	}
}

func (w *watchList) emit(ch Change) {
	w.mu.RLock()
	fns := make([]func(Change), len(w.entries))
	for i, e := range w.entries {
		fns[i] = e.fn
	}
	w.mu.RUnlock()

	for _, fn := range fns {
		fn(ch)
	}
}

func (w *watchList) clear() {
	w.mu.Lock()
	w.entries = nil
	w.mu.Unlock()
}

func (w *watchList) len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}
