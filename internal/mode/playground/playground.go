// Package playground provides an interactive bench for exercising gated,
// cancellable commands.
package playground

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/cmdgate/internal/command"
	"github.com/zjrosen/cmdgate/internal/dispatch"
	"github.com/zjrosen/cmdgate/internal/keys"
	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/pubsub"
	"github.com/zjrosen/cmdgate/internal/subject"
)

// Model holds the playground state.
type Model struct {
	wb         *Workbench
	dispatcher *dispatch.Tea

	ctx    context.Context
	cancel context.CancelFunc
	events *pubsub.ContinuousListener[command.Change]
	logs   *log.LogListener

	keys    keys.KeyMap
	help    help.Model
	spinner spinner.Model

	selected   int
	lastChange command.Change
	lastLog    string
	message    string

	width    int
	height   int
	showHelp bool
	quitting bool
}

// New creates a playground model. The dispatcher in opts is created when
// missing so completions always land in Update.
func New(opts Options) (Model, error) {
	if opts.Dispatcher == nil {
		opts.Dispatcher = dispatch.NewTea()
	}
	wb, err := NewWorkbench(opts)
	if err != nil {
		return Model{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		wb:         wb,
		dispatcher: opts.Dispatcher,
		ctx:        ctx,
		cancel:     cancel,
		events:     pubsub.NewContinuousListener[command.Change](ctx, wb),
		logs:       log.NewListener(ctx),
		keys:       keys.DefaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
	}, nil
}

// Workbench returns the commands behind the model.
func (m Model) Workbench() *Workbench {
	return m.wb
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.dispatcher.Listen(), m.events.Listen(), m.spinner.Tick}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatch.InvokeMsg:
		msg.Invoke()
		return m, m.dispatcher.Listen()

	case pubsub.Event[command.Change]:
		m.lastChange = msg.Payload
		return m, m.events.Listen()

	case log.LogEvent:
		m.lastLog = msg.Payload
		return m, m.logs.Listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.wb.Entries()
	current := entries[m.selected]

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.selected--
		if m.selected < 0 {
			m.selected = len(entries) - 1
		}

	case key.Matches(msg, m.keys.Down):
		m.selected++
		if m.selected >= len(entries) {
			m.selected = 0
		}

	case key.Matches(msg, m.keys.Run):
		m.message = runMessage(current.Name, current.Cmd.Run(nil))

	case key.Matches(msg, m.keys.Cancel):
		m.message = runMessage(current.Name+" cancel", current.Cmd.CancelCommand().Run(nil))

	case key.Matches(msg, m.keys.ToggleCondition1):
		m.wb.Toggle(m.wb.Condition1)

	case key.Matches(msg, m.keys.ToggleCondition2):
		m.wb.Toggle(m.wb.Condition2)

	case key.Matches(msg, m.keys.ToggleActive):
		panel := m.wb.Entry(CmdPanel).Panel
		if panel.IsActive() {
			panel.Deactivate()
		} else {
			panel.Activate()
		}

	case key.Matches(msg, m.keys.Heartbeat):
		subject.InvalidateAll()
		m.message = "heartbeat"

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	return m, nil
}

func runMessage(name string, err error) string {
	switch {
	case err == nil:
		return name + ": started"
	case errors.Is(err, command.ErrRejected):
		return name + ": " + err.Error()
	default:
		log.ErrorErr(log.CatUI, "run failed", err, "command", name)
		return name + ": " + err.Error()
	}
}

// Close releases the commands and stops the listeners. Safe to call more
// than once.
func (m Model) Close() {
	m.cancel()
	m.wb.Close()
	m.dispatcher.Close()
}
