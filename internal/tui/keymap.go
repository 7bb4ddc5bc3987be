package tui

import "github.com/charmbracelet/bubbles/key"

// editor
type editorKeyMap struct {
	up     key.Binding
	down   key.Binding
	action key.Binding
	prev   key.Binding
	next   key.Binding
	run    key.Binding
	quit   key.Binding
}

func newEditorKeyMap() editorKeyMap {
	return editorKeyMap{
		up:   key.NewBinding(key.WithKeys("up", "k")),
		down: key.NewBinding(key.WithKeys("down", "j")),
		action: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "edit/toggle"),
		),
		prev: key.NewBinding(key.WithKeys("left", "h")),
		next: key.NewBinding(key.WithKeys("right", "l")),
		run: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "combine"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k editorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "move")),
		k.action,
		k.run,
		k.quit,
	}
}

func (k editorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{}, // only render short help
	}
}

// text entry within the editor
type entryKeyMap struct {
	confirm key.Binding
	abort   key.Binding
}

func newEntryKeyMap() entryKeyMap {
	return entryKeyMap{
		confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		abort: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "discard"),
		),
	}
}

func (k entryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.confirm, k.abort}
}

func (k entryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{},
	}
}

// running session
type runKeyMap struct {
	cancel key.Binding
}

func newRunKeyMap() runKeyMap {
	return runKeyMap{
		cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func (k runKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.cancel}
}

func (k runKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{},
	}
}

// finished session, transcript still showing
type doneKeyMap struct {
	close key.Binding
	quit  key.Binding
}

func newDoneKeyMap() doneKeyMap {
	return doneKeyMap{
		close: key.NewBinding(
			key.WithKeys("esc", "enter"),
			key.WithHelp("esc", "back to editor"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k doneKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.close, k.quit}
}

func (k doneKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{},
	}
}
