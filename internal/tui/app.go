package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/preview"
	"github.com/mmcdole/crate/internal/store"
	"github.com/mmcdole/crate/internal/tui/components"
)

const (
	tickInterval  = 100 * time.Millisecond
	statusTimeout = 4 * time.Second
)

// Deps are the collaborators the TUI drives
type Deps struct {
	Artists        *store.ArtistStore
	Albums         *store.AlbumStore
	ArtistPreviews *preview.Manager
	AlbumPreviews  *preview.Manager
	Opener         Opener                  // Optional
	Credentials    domain.CredentialSource // Optional, used for the footer
	Logger         *slog.Logger
}

// Model is the main Bubble Tea model for the application
type Model struct {
	Ready bool

	// Stores
	Artists *store.ArtistStore
	Albums  *store.AlbumStore

	// UI Components
	ArtistList *components.List[domain.Artist]
	ArtistForm *components.CreateForm
	AlbumModal *components.AlbumModal

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	AuthRejected bool // Sticky until a refresh succeeds
	ShowHelp     bool
	SpinnerFrame int

	statusID int
	opener   Opener
	creds    domain.CredentialSource
	logger   *slog.Logger
	now      func() time.Time
}

// NewModel creates a new application model
func NewModel(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deps.Artists.Subscribe(func(s domain.ViewState[domain.Artist]) {
		logger.Debug("artist list changed", "state", s.Kind.String(), "count", len(s.Items))
	})
	deps.Albums.Subscribe(func(s domain.ViewState[domain.Album]) {
		logger.Debug("album list changed", "state", s.Kind.String(), "count", len(s.Items))
	})

	return Model{
		Artists:    deps.Artists,
		Albums:     deps.Albums,
		ArtistList: components.NewList[domain.Artist](components.RenderArtistRow, "No artists yet. Press n to add the first one."),
		ArtistForm: components.NewCreateForm("artist", "Name", deps.ArtistPreviews),
		AlbumModal: components.NewAlbumModal(deps.AlbumPreviews),
		opener:     deps.Opener,
		creds:      deps.Credentials,
		logger:     logger,
		now:        time.Now,
	}
}

// Init loads the artist collection and starts the spinner
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshArtists(),
		TickCmd(tickInterval),
	)
}

// Close releases resources held by the forms. Call it once the program exits.
func (m Model) Close() {
	m.ArtistForm.Close()
	m.AlbumModal.Form().Close()
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		artistCmd, _ := m.ArtistForm.Update(msg)
		albumCmd, _ := m.AlbumModal.Form().Update(msg)
		return m, tea.Batch(artistCmd, albumCmd)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(tickInterval)

	case ArtistsSettledMsg:
		if !msg.Applied {
			return m, nil
		}
		m.ArtistList.Sync(m.Artists.State())
		if msg.Err == nil {
			m.AuthRejected = false
		}
		m.noteError(msg.Err)
		return m, nil

	case AlbumsSettledMsg:
		if !msg.Applied {
			return m, nil
		}
		m.syncAlbums()
		m.noteError(msg.Err)
		return m, nil

	case ArtistCreatedMsg:
		if msg.Err != nil {
			m.noteError(msg.Err)
			return m, m.ArtistForm.Failed(domain.Describe(msg.Err))
		}
		m.ArtistForm.Succeeded()
		m.ArtistList.Sync(m.Artists.State())
		return m, m.setStatus(fmt.Sprintf("Created artist %s", msg.Artist.Name), false)

	case AlbumCreatedMsg:
		m.noteError(msg.Err)
		if msg.ArtistID != m.AlbumModal.ArtistID() {
			// The modal was closed or moved to another artist meanwhile
			return m, nil
		}
		if msg.Err != nil {
			return m, m.AlbumModal.Form().Failed(domain.Describe(msg.Err))
		}
		m.AlbumModal.Form().Succeeded()
		m.syncAlbums()
		return m, m.setStatus(fmt.Sprintf("Created album %s", msg.Album.Title), false)

	case AlbumDeletedMsg:
		m.noteError(msg.Err)
		if msg.ArtistID != m.AlbumModal.ArtistID() {
			return m, nil
		}
		m.syncAlbums()
		if msg.Err != nil {
			m.AlbumModal.SetError("Could not delete album: " + domain.Describe(msg.Err))
			return m, nil
		}
		return m, m.setStatus("Deleted album", false)

	case ImageOpenedMsg:
		if msg.Err != nil {
			return m, m.setStatus("Could not open image: "+msg.Err.Error(), true)
		}
		return m, nil

	case ClearStatusMsg:
		if msg.ID == m.statusID {
			m.StatusMsg = ""
			m.StatusIsErr = false
		}
		return m, nil
	}

	// Cursor blink and filepicker directory reads
	artistCmd, _ := m.ArtistForm.Update(msg)
	albumCmd, _ := m.AlbumModal.Form().Update(msg)
	return m, tea.Batch(artistCmd, albumCmd)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.ShowHelp {
		m.ShowHelp = false
		return m, nil
	}

	if m.AlbumModal.IsOpen() {
		return m.handleModalKey(msg)
	}

	if m.ArtistForm.IsActive() {
		cmd, ev := m.ArtistForm.Update(msg)
		if ev == components.FormSubmitRequested {
			if in, ok := m.ArtistForm.Submit(); ok {
				return m, CreateArtistCmd(m.Artists, domain.NewArtist{Name: in.Text, Image: in.Image})
			}
		}
		return m, cmd
	}

	if m.ArtistList.IsFiltering() {
		return m, m.ArtistList.Update(msg)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, Keys.Help):
		m.ShowHelp = true
	case key.Matches(msg, Keys.New):
		return m, m.ArtistForm.Open()
	case key.Matches(msg, Keys.Refresh):
		return m, m.refreshArtists()
	case key.Matches(msg, Keys.Open):
		if artist, ok := m.ArtistList.Selected(); ok {
			return m, m.openAlbums(artist)
		}
	case key.Matches(msg, Keys.Image):
		if artist, ok := m.ArtistList.Selected(); ok && artist.HasImage() {
			return m, m.openImage(artist.ImageURL)
		}
	default:
		return m, m.ArtistList.Update(msg)
	}
	return m, nil
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd, intent := m.AlbumModal.Update(msg)
	artistID := m.AlbumModal.ArtistID()

	switch intent.Kind {
	case components.IntentClose:
		m.closeAlbums()
		return m, nil
	case components.IntentRetry:
		return m, m.refreshAlbums()
	case components.IntentCreate:
		return m, CreateAlbumCmd(m.Albums, artistID, intent.Input.Text, intent.Input.Image)
	case components.IntentDelete:
		return m, DeleteAlbumCmd(m.Albums, artistID, intent.AlbumID)
	case components.IntentOpenImage:
		return m, m.openImage(intent.URL)
	}
	return m, cmd
}

// refreshArtists dispatches an artist refresh; the list shows loading until it settles
func (m Model) refreshArtists() tea.Cmd {
	t := m.Artists.Begin()
	m.ArtistList.Sync(m.Artists.State())
	return FetchArtistsCmd(m.Artists, t)
}

// refreshAlbums dispatches a refresh for the open artist
func (m Model) refreshAlbums() tea.Cmd {
	if !m.Albums.IsOpen() {
		return nil
	}
	t := m.Albums.Begin()
	m.syncAlbums()
	return FetchAlbumsCmd(m.Albums, t)
}

// openAlbums opens the modal for artist and scopes the album store to it
func (m Model) openAlbums(artist domain.Artist) tea.Cmd {
	m.AlbumModal.Open(artist.ID, artist.Name)
	t := m.Albums.Open(artist.ID)
	m.syncAlbums()
	m.logger.Debug("album modal opened", "artist", artist.ID)
	return FetchAlbumsCmd(m.Albums, t)
}

// closeAlbums discards the album scope; in-flight reads for it are dropped
func (m Model) closeAlbums() {
	m.Albums.Close()
	m.AlbumModal.Close()
}

func (m Model) syncAlbums() {
	if m.AlbumModal.IsOpen() {
		m.AlbumModal.Sync(m.Albums.State())
	}
}

func (m *Model) openImage(url string) tea.Cmd {
	if m.opener == nil {
		return m.setStatus("No image viewer configured", true)
	}
	return OpenImageCmd(m.opener, url)
}

// noteError remembers credential rejections for the footer
func (m *Model) noteError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrAuth) {
		m.AuthRejected = true
	}
	m.logger.Debug("operation failed", "error", err)
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusID++
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(m.statusID, statusTimeout)
}

func (m *Model) updateLayout() {
	m.ArtistForm.SetWidth(m.Width - 4)
	m.AlbumModal.SetSize(min(80, m.Width-4), m.Height-4)
}
