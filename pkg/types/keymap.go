package types

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the scanner TUI. It lives in pkg/types
// so the model and the help view share one definition.
type KeyMap struct {
	// Session triggers
	Start    key.Binding
	Stop     key.Binding
	Switch   key.Binding
	Download key.Binding
	Reset    key.Binding

	// General
	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "start scanner"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x", "esc"),
			key.WithHelp("x", "stop scanner"),
		),
		Switch: key.NewBinding(
			key.WithKeys("c", "tab"),
			key.WithHelp("c", "switch camera"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "dismiss notice"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Switch, k.Download, k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Switch},
		{k.Download, k.Reset},
		{k.Dismiss, k.Help, k.Quit},
	}
}
