package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Action is the input vocabulary the dashboard understands. Key and
// mouse events resolve to actions before any state is touched, so the
// mapping is testable without a terminal.
type Action int

const (
	ActionNone Action = iota
	ActionScrollUp
	ActionScrollDown
	ActionPageUp
	ActionPageDown
	ActionScrollTop
	ActionScrollBottom
	ActionSwitchFocus
	ActionNextJob
	ActionPrevJob
	ActionRemoveJob
	ActionFollow
	ActionCopyPane
	ActionToggleHelp
	ActionQuit
)

// KeyMap defines keybindings for the dashboard.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	SwitchFocus key.Binding
	NextJob     key.Binding
	PrevJob     key.Binding
	RemoveJob   key.Binding
	Follow      key.Binding
	CopyPane    key.Binding
	ToggleHelp  key.Binding
	Quit        key.Binding
}

var keys = KeyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
	Top:         key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	Bottom:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	SwitchFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
	NextJob:     key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "next job")),
	PrevJob:     key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev job")),
	RemoveJob:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove job")),
	Follow:      key.NewBinding(key.WithKeys("f", "esc"), key.WithHelp("f", "follow")),
	CopyPane:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy pane")),
	ToggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.SwitchFocus, k.NextJob, k.RemoveJob, k.ToggleHelp, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.SwitchFocus, k.NextJob, k.PrevJob, k.RemoveJob},
		{k.Follow, k.CopyPane, k.ToggleHelp, k.Quit},
	}
}

// ActionFor resolves a key event to an action.
func (k KeyMap) ActionFor(msg tea.KeyMsg) Action {
	switch {
	case key.Matches(msg, k.Up):
		return ActionScrollUp
	case key.Matches(msg, k.Down):
		return ActionScrollDown
	case key.Matches(msg, k.PageUp):
		return ActionPageUp
	case key.Matches(msg, k.PageDown):
		return ActionPageDown
	case key.Matches(msg, k.Top):
		return ActionScrollTop
	case key.Matches(msg, k.Bottom):
		return ActionScrollBottom
	case key.Matches(msg, k.SwitchFocus):
		return ActionSwitchFocus
	case key.Matches(msg, k.NextJob):
		return ActionNextJob
	case key.Matches(msg, k.PrevJob):
		return ActionPrevJob
	case key.Matches(msg, k.RemoveJob):
		return ActionRemoveJob
	case key.Matches(msg, k.Follow):
		return ActionFollow
	case key.Matches(msg, k.CopyPane):
		return ActionCopyPane
	case key.Matches(msg, k.ToggleHelp):
		return ActionToggleHelp
	case key.Matches(msg, k.Quit):
		return ActionQuit
	default:
		return ActionNone
	}
}
