package command

import (
	"errors"
	"fmt"
)

// Construction errors returned from New and NewActivatable.
var (
	ErrNoName            = errors.New("command name is required")
	ErrNoAction          = errors.New("command action is required")
	ErrPredicateConflict = errors.New("only one predicate form may be given")
	ErrNoPredicate       = errors.New("observed subjects require a predicate")
)

// Run rejections. Run returns ErrRejected wrapped together with the reason.
var (
	ErrRejected = errors.New("run rejected")
	ErrBusy     = errors.New("command is executing")
	ErrGated    = errors.New("predicate disallows running")
	ErrInactive = errors.New("command is not active")
	ErrClosed   = errors.New("command is closed")
)

// ErrParamType is returned by typed actions given a parameter of the wrong type.
var ErrParamType = errors.New("unexpected parameter type")

func reject(name string, reason error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrRejected, reason)
}

// PanicError is the fault recorded when an action panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("action panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
