package command

// Gateable is the query side a UI binds an enabled state to.
type Gateable interface {
	CanRun() bool
	Watch(fn func(Change)) (unwatch func())
}

// Runnable is a Gateable that can be triggered.
type Runnable interface {
	Gateable
	Run(param any) error
}

// ParamGateable is a Gateable whose predicate depends on the run parameter.
type ParamGateable interface {
	Gateable
	CanRunWith(param any) bool
}

// Cancelable exposes cooperative cancellation of an in-flight run.
type Cancelable interface {
	Cancel()
	IsExecuting() bool
	CancelCommand() *DirectCommand
}

// Activator is implemented by commands whose subscriptions follow an
// explicit activation lifecycle.
type Activator interface {
	Activate()
	Deactivate()
	IsActive() bool
}

var (
	_ Runnable      = (*Command)(nil)
	_ ParamGateable = (*Command)(nil)
	_ Cancelable    = (*Command)(nil)
	_ Activator     = (*Activatable)(nil)
)
