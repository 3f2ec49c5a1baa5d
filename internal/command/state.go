package command

import "github.com/google/uuid"

// State is the execution state of a command.
type State int

const (
	Idle State = iota
	Running
	Completed
	Faulted
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Faulted:
		return "Faulted"
	case Canceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is an outcome of a finished run.
func (s State) Terminal() bool {
	return s == Completed || s == Faulted || s == Canceled
}

// ChangeKind identifies what a Change notification is about.
type ChangeKind int

const (
	// CanRunChanged means CanRun may now return a different value.
	CanRunChanged ChangeKind = iota
	// BusyChanged means IsExecuting flipped.
	BusyChanged
	// ActiveChanged means an activatable command was activated or deactivated.
	ActiveChanged
	// OutcomeChanged means a run finished and the outcome flags changed.
	OutcomeChanged
)

func (k ChangeKind) String() string {
	switch k {
	case CanRunChanged:
		return "can-run"
	case BusyChanged:
		return "busy"
	case ActiveChanged:
		return "active"
	case OutcomeChanged:
		return "outcome"
	default:
		return "unknown"
	}
}

// Change is delivered to watchers and subscribers of a command.
type Change struct {
	Kind    ChangeKind
	Command string
	State   State
	RunID   uuid.UUID
}
