package playground

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/cmdgate/internal/command"
	"github.com/zjrosen/cmdgate/internal/dispatch"
	"github.com/zjrosen/cmdgate/internal/gate"
	"github.com/zjrosen/cmdgate/internal/history"
	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/mode/shared"
	"github.com/zjrosen/cmdgate/internal/pubsub"
	"github.com/zjrosen/cmdgate/internal/subject"
	"github.com/zjrosen/cmdgate/internal/watcher"
)

// Command names shown in the playground, in display order.
const (
	CmdSlow     = "slow"
	CmdFlaky    = "flaky"
	CmdBoth     = "both"
	CmdEither   = "either"
	CmdPanel    = "panel"
	CmdLockfile = "lockfile"
)

const (
	// DefaultSlowDuration is how long the slow command works when run
	// without a parameter.
	DefaultSlowDuration = 3 * time.Second

	// clockWindow is the period of the panel command's clock predicate. The
	// predicate holds during the first half of each window.
	clockWindow = 10 * time.Second
)

var (
	errFlaky     = errors.New("flaky: every other run fails")
	errNoWatcher = errors.New("no watcher configured")
)

// Options configures the playground commands.
type Options struct {
	Dispatcher   *dispatch.Tea
	Pool         dispatch.Pool
	Tracer       trace.Tracer
	History      *history.Store
	Fallback     bool
	Watcher      *watcher.Watcher
	SlowDuration time.Duration
	Clock        shared.Clock
}

// Entry is one command on the bench.
type Entry struct {
	Name        string
	Description string
	Cmd         *command.Command
	Panel       *command.Activatable

	changes atomic.Int64
	status  atomic.Value // string
}

// Changes returns how many change notifications the command raised.
func (e *Entry) Changes() int64 {
	return e.changes.Load()
}

// Status returns the outcome text set by the command's callbacks.
func (e *Entry) Status() string {
	s, _ := e.status.Load().(string)
	return s
}

// Workbench owns the playground's commands and the sources that gate them.
// It is shared by every copy of the Model.
type Workbench struct {
	Condition1 *subject.Property[bool]
	Condition2 *subject.Property[bool]

	hub     *subject.Hub
	events  *pubsub.Broker[command.Change]
	entries []*Entry
	history *history.Store
	clock   shared.Clock

	flakyRuns atomic.Int64
	cleanup   []func()
}

// NewWorkbench builds the demo commands.
func NewWorkbench(opts Options) (*Workbench, error) {
	if opts.SlowDuration <= 0 {
		opts.SlowDuration = DefaultSlowDuration
	}
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}

	wb := &Workbench{
		Condition1: subject.NewProperty(false),
		Condition2: subject.NewProperty(false),
		hub:        subject.NewHub(),
		events:     pubsub.NewBroker[command.Change](),
		history:    opts.History,
		clock:      opts.Clock,
	}

	c1 := wb.hub.Named("condition1")
	c2 := wb.hub.Named("condition2")
	wb.cleanup = append(wb.cleanup,
		wb.Condition1.Subscribe(func() { wb.hub.Notify("condition1") }),
		wb.Condition2.Subscribe(func() { wb.hub.Notify("condition2") }),
	)

	if err := wb.build(opts, c1, c2); err != nil {
		wb.Close()
		return nil, err
	}
	return wb, nil
}

func (wb *Workbench) build(opts Options, c1, c2 *subject.Subject) error {
	slow := command.Typed(func(ctx context.Context, d time.Duration) error {
		if d <= 0 {
			d = opts.SlowDuration
		}
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err := wb.add(CmdSlow, "works for a while, gated on condition 1", slow, opts,
		command.WithBound(gate.ObserveProperty("condition1", wb.Condition1, opts.Fallback)),
	); err != nil {
		return err
	}

	flaky := func(context.Context, any) error {
		if wb.flakyRuns.Add(1)%2 == 0 {
			return errFlaky
		}
		return nil
	}
	if err := wb.add(CmdFlaky, "faults every other run", flaky, opts); err != nil {
		return err
	}

	if err := wb.add(CmdBoth, "needs condition 1 and condition 2", instant, opts,
		command.WithPredicate(func() bool { return wb.Condition1.Get() && wb.Condition2.Get() }),
		command.WithObserves(c1, c2),
	); err != nil {
		return err
	}

	if err := wb.add(CmdEither, "needs condition 1 or condition 2", instant, opts,
		command.WithPredicate(func() bool { return wb.Condition1.Get() || wb.Condition2.Get() }),
		command.WithObserves(c1, c2),
	); err != nil {
		return err
	}

	panel, err := command.NewActivatable(CmdPanel, instant,
		append(wb.common(CmdPanel, opts),
			command.WithPredicate(wb.clockOpen),
			command.WithHeartbeat(),
		)...)
	if err != nil {
		return err
	}
	wb.track(&Entry{
		Name:        CmdPanel,
		Description: "runs while active, in the first half of every 10s",
		Cmd:         panel.Command,
		Panel:       panel,
	})

	return wb.add(CmdLockfile, "runs while the watched file is absent", instant, opts,
		command.WithBound(lockfileGate(opts.Watcher, opts.Fallback)),
	)
}

func instant(context.Context, any) error { return nil }

func lockfileGate(w *watcher.Watcher, fallback bool) *gate.Bound {
	if w == nil {
		return gate.Observe("lockfile", subject.NotifierFunc(func(func()) func() { return func() {} }),
			func() (bool, error) { return false, errNoWatcher }, fallback)
	}
	return gate.Observe("lockfile", w, func() (bool, error) {
		exists, err := w.Exists()
		return !exists, err
	}, fallback)
}

func (wb *Workbench) clockOpen() bool {
	return wb.clock.Now().UnixNano()%int64(clockWindow) < int64(clockWindow/2)
}

func (wb *Workbench) add(name, desc string, action command.Action, opts Options, extra ...command.Option) error {
	c, err := command.New(name, action, append(wb.common(name, opts), extra...)...)
	if err != nil {
		return err
	}
	wb.track(&Entry{Name: name, Description: desc, Cmd: c})
	return nil
}

// common returns the options every bench command shares. Callbacks look the
// entry up by name since it does not exist yet.
func (wb *Workbench) common(name string, opts Options) []command.Option {
	setStatus := func(s string) {
		if e := wb.Entry(name); e != nil {
			e.status.Store(s)
		}
	}
	out := []command.Option{
		command.WithPool(opts.Pool),
		command.WithTracer(opts.Tracer),
		command.WithHistory(opts.History),
		command.WithOnCompleted(func() { setStatus("completed") }),
		command.WithOnError(func(err error) { setStatus("faulted: " + err.Error()) }),
		command.WithOnCanceled(func() { setStatus("canceled") }),
	}
	if opts.Dispatcher != nil {
		out = append(out, command.WithDispatcher(opts.Dispatcher))
	}
	return out
}

func (wb *Workbench) track(e *Entry) {
	wb.entries = append(wb.entries, e)
	wb.cleanup = append(wb.cleanup, e.Cmd.Watch(func(ch command.Change) {
		e.changes.Add(1)
		wb.events.Publish(pubsub.ChangedEvent, ch)
	}))
}

// Entries returns the commands in display order.
func (wb *Workbench) Entries() []*Entry {
	return wb.entries
}

// Entry returns the named command, or nil.
func (wb *Workbench) Entry(name string) *Entry {
	for _, e := range wb.entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Subscribe streams every bench command's change notifications.
func (wb *Workbench) Subscribe(ctx context.Context) <-chan pubsub.Event[command.Change] {
	return wb.events.Subscribe(ctx)
}

// Ago formats t relative to the bench clock.
func (wb *Workbench) Ago(t time.Time) string {
	return shared.FormatAgoWithClock(t, wb.clock)
}

// Recent returns up to n finished runs, newest first.
func (wb *Workbench) Recent(n int) []history.RunRecord {
	if wb.history == nil {
		return nil
	}
	return wb.history.Recent(n)
}

// Toggle flips a condition and returns its new value.
func (wb *Workbench) Toggle(p *subject.Property[bool]) bool {
	v := !p.Get()
	p.Set(v)
	log.Debug(log.CatUI, "condition toggled", "value", fmt.Sprint(v))
	return v
}

// Close closes every command and releases the bench's subscriptions.
func (wb *Workbench) Close() {
	for _, fn := range wb.cleanup {
		fn()
	}
	wb.cleanup = nil
	for _, e := range wb.entries {
		e.Cmd.Close()
	}
	wb.events.Close()
}
