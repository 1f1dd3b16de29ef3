package tui

import (
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/store"
)

// Message types for the TUI

// ArtistsSettledMsg signals that an artist refresh finished
type ArtistsSettledMsg struct {
	Ticket  store.Ticket
	Applied bool // False when a later refresh superseded this one
	Err     error
}

// AlbumsSettledMsg signals that an album refresh finished
type AlbumsSettledMsg struct {
	Ticket  store.Ticket
	Applied bool // False when a later refresh or a scope change superseded this one
	Err     error
}

// ArtistCreatedMsg signals the end of a create-artist call
type ArtistCreatedMsg struct {
	Artist domain.Artist
	Err    error
}

// AlbumCreatedMsg signals the end of a create-album call
type AlbumCreatedMsg struct {
	ArtistID string // Scope the create was dispatched in
	Album    domain.Album
	Err      error
}

// AlbumDeletedMsg signals the end of a delete-album call
type AlbumDeletedMsg struct {
	ArtistID string
	AlbumID  string
	Err      error
}

// ImageOpenedMsg signals that the external viewer was launched
type ImageOpenedMsg struct {
	URL string
	Err error
}

// TickMsg advances the spinner
type TickMsg struct{}

// ClearStatusMsg clears a status message if it is still the one shown
type ClearStatusMsg struct {
	ID int
}
