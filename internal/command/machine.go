package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/cmdgate/internal/history"
)

// Machine tracks the execution state of one command. The zero value is an
// idle machine. All methods are safe to call from any goroutine.
type Machine struct {
	mu      sync.Mutex
	state   State
	lastErr error

	// cancel and runCtx are set only while Running.
	cancel context.CancelFunc
	runCtx context.Context

	current history.RunRecord
	last    history.RunRecord
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsExecuting reports whether a run is in flight.
func (m *Machine) IsExecuting() bool {
	return m.State() == Running
}

// WasSuccessful reports whether the last run completed.
func (m *Machine) WasSuccessful() bool {
	return m.State() == Completed
}

// WasFaulty reports whether the last run faulted.
func (m *Machine) WasFaulty() bool {
	return m.State() == Faulted
}

// WasCanceled reports whether the last run was canceled.
func (m *Machine) WasCanceled() bool {
	return m.State() == Canceled
}

// LastError returns the fault of the last run, or nil unless it faulted.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// LastRun returns the record of the most recent finished run.
func (m *Machine) LastRun() history.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// begin moves to Running with a fresh cancellable context derived from parent.
// wrap, when set, decorates the run context before it is stored.
// Reports false, changing nothing, if a run is already in flight.
func (m *Machine) begin(parent context.Context, name string, wrap func(context.Context, uuid.UUID) context.Context) (context.Context, history.RunRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Running {
		return nil, history.RunRecord{}, false
	}
	if m.cancel != nil {
		m.cancel()
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(parent)
	if wrap != nil {
		ctx = wrap(ctx, id)
	}
	m.cancel = cancel
	m.runCtx = ctx
	m.state = Running
	m.lastErr = nil
	m.current = history.RunRecord{
		ID:        id,
		Command:   name,
		StartedAt: time.Now(),
	}
	return ctx, m.current, true
}

// finish records the outcome of run id. Reports false for a stale id, which
// keeps a run from finishing twice.
func (m *Machine) finish(id uuid.UUID, err error) (history.RunRecord, State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Running || m.current.ID != id {
		return history.RunRecord{}, m.state, false
	}

	switch {
	case errors.Is(err, context.Canceled):
		m.state = Canceled
	case err != nil:
		m.state = Faulted
		m.lastErr = err
	default:
		m.state = Completed
	}
	m.release()

	rec := m.current
	rec.Outcome = m.state.String()
	rec.FinishedAt = time.Now()
	if err != nil {
		rec.Err = err.Error()
	}
	m.last = rec
	m.current = history.RunRecord{}
	return rec, m.state, true
}

// abort returns run id to Idle when it could not be scheduled.
func (m *Machine) abort(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Running || m.current.ID != id {
		return false
	}
	m.state = Idle
	m.release()
	m.current = history.RunRecord{}
	return true
}

// requestCancel cancels the in-flight run and returns its context, or nil
// when nothing is running.
func (m *Machine) requestCancel() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Running || m.cancel == nil {
		return nil
	}
	m.cancel()
	return m.runCtx
}

// release must be called with m.mu held.
func (m *Machine) release() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.runCtx = nil
}
