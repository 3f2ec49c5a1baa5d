// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the playground.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Commands
	Run    key.Binding
	Cancel key.Binding

	// Sources
	ToggleCondition1 key.Binding
	ToggleCondition2 key.Binding
	ToggleActive     key.Binding
	Heartbeat        key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "move down"),
		),
		Run: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel"),
		),
		ToggleCondition1: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "toggle condition 1"),
		),
		ToggleCondition2: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "toggle condition 2"),
		),
		ToggleActive: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle activation"),
		),
		Heartbeat: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "heartbeat"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Cancel, k.ToggleCondition1, k.ToggleCondition2, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Run, k.Cancel},
		{k.ToggleCondition1, k.ToggleCondition2, k.ToggleActive, k.Heartbeat},
		{k.Help, k.Quit},
	}
}
