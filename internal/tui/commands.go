package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/store"
)

// Command factories for async operations. Refresh tickets are taken in
// Update, before the command runs, so dispatch order is the order keys
// were pressed.

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 60 * time.Second // Uploads can be large
)

// Opener shows an image URL outside the terminal
type Opener interface {
	Launch(url string) error
}

// FetchArtistsCmd performs the artist refresh identified by t
func FetchArtistsCmd(s *store.ArtistStore, t store.Ticket) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()

		applied, err := s.Fetch(ctx, t)
		return ArtistsSettledMsg{Ticket: t, Applied: applied, Err: err}
	}
}

// FetchAlbumsCmd performs the album refresh identified by t
func FetchAlbumsCmd(s *store.AlbumStore, t store.Ticket) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()

		applied, err := s.Fetch(ctx, t)
		return AlbumsSettledMsg{Ticket: t, Applied: applied, Err: err}
	}
}

// CreateArtistCmd creates an artist through the store
func CreateArtistCmd(s *store.ArtistStore, in domain.NewArtist) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		artist, err := s.Create(ctx, in)
		return ArtistCreatedMsg{Artist: artist, Err: err}
	}
}

// CreateAlbumCmd creates an album for the artist in scope
func CreateAlbumCmd(s *store.AlbumStore, artistID, title string, cover *domain.ImageUpload) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		album, err := s.Create(ctx, title, cover)
		return AlbumCreatedMsg{ArtistID: artistID, Album: album, Err: err}
	}
}

// DeleteAlbumCmd deletes an album through the store
func DeleteAlbumCmd(s *store.AlbumStore, artistID, albumID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		err := s.Delete(ctx, albumID)
		return AlbumDeletedMsg{ArtistID: artistID, AlbumID: albumID, Err: err}
	}
}

// OpenImageCmd hands url to the external viewer
func OpenImageCmd(o Opener, url string) tea.Cmd {
	return func() tea.Msg {
		return ImageOpenedMsg{URL: url, Err: o.Launch(url)}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status id after a delay
func ClearStatusCmd(id int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{ID: id}
	})
}
