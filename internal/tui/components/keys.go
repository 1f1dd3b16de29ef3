package components

import "github.com/charmbracelet/bubbles/key"

// ListKeyMap defines key bindings for list navigation
type ListKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Home     key.Binding
	End      key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Escape   key.Binding
	Enter    key.Binding
	Filter   key.Binding
}

// DefaultListKeyMap returns the default list key bindings
func DefaultListKeyMap() ListKeyMap {
	return ListKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "page down"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept filter"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
	}
}

// FormKeyMap defines key bindings inside an expanded create form
type FormKeyMap struct {
	Submit     key.Binding
	Cancel     key.Binding
	PickImage  key.Binding
	ClearImage key.Binding
}

// DefaultFormKeyMap returns the default form key bindings
func DefaultFormKeyMap() FormKeyMap {
	return FormKeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "create"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		PickImage: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "choose image"),
		),
		ClearImage: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "remove image"),
		),
	}
}

// ConfirmKeyMap defines key bindings for yes/no prompts
type ConfirmKeyMap struct {
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultConfirmKeyMap returns the default confirmation key bindings
func DefaultConfirmKeyMap() ConfirmKeyMap {
	return ConfirmKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
	}
}

// AlbumModalKeyMap defines key bindings for the album modal
type AlbumModalKeyMap struct {
	New    key.Binding
	Delete key.Binding
	Retry  key.Binding
	Open   key.Binding
	Close  key.Binding
}

// DefaultAlbumModalKeyMap returns the default album modal key bindings
func DefaultAlbumModalKeyMap() AlbumModalKeyMap {
	return AlbumModalKeyMap{
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new album"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open cover"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "close"),
		),
	}
}

// Package-level key map instances
var (
	ListKeys       = DefaultListKeyMap()
	FormKeys       = DefaultFormKeyMap()
	ConfirmKeys    = DefaultConfirmKeyMap()
	AlbumModalKeys = DefaultAlbumModalKeyMap()
)
