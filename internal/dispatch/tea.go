package dispatch

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// InvokeMsg carries posted work into a Bubble Tea Update. Call Invoke from
// Update, then re-arm the bridge with Tea.Listen.
type InvokeMsg struct {
	batch []func()
}

// Invoke runs the carried work in posting order.
func (m InvokeMsg) Invoke() {
	for _, fn := range m.batch {
		fn()
	}
}

// Len returns the number of carried work items.
func (m InvokeMsg) Len() int {
	return len(m.batch)
}

// Tea is a dispatcher whose interaction context is a Bubble Tea program's
// Update loop. Post never blocks, so it is safe to call from inside Update.
type Tea struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Dispatcher = (*Tea)(nil)

// NewTea creates a Bubble Tea dispatcher. Return Listen from Init to start it.
func NewTea() *Tea {
	return &Tea{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post implements Dispatcher.
func (t *Tea) Post(fn func()) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrStopped
	}
	t.pending = append(t.pending, fn)
	t.mu.Unlock()

	select {
	case t.signal <- struct{}{}:
	default:
	}
	return nil
}

// Listen returns a command that waits for posted work and delivers it as an
// InvokeMsg. It returns nil once the dispatcher is closed.
func (t *Tea) Listen() tea.Cmd {
	return func() tea.Msg {
		for {
			t.mu.Lock()
			if len(t.pending) > 0 {
				batch := t.pending
				t.pending = nil
				t.mu.Unlock()
				return InvokeMsg{batch: batch}
			}
			t.mu.Unlock()

			select {
			case <-t.signal:
			case <-t.done:
				return nil
			}
		}
	}
}

// Close stops accepting work and releases any pending Listen.
func (t *Tea) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.pending = nil
		t.mu.Unlock()
		close(t.done)
	})
}
