package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/preview"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// ModalIntent tells the owner which store operation the modal wants
type ModalIntent struct {
	Kind    IntentKind
	AlbumID string     // IntentDelete
	URL     string     // IntentOpenImage
	Input   Submission // IntentCreate
}

// IntentKind enumerates modal requests
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentClose
	IntentRetry
	IntentCreate
	IntentDelete
	IntentOpenImage
)

// AlbumModal shows one artist's albums: closed, or open(artistID, artistName).
// It only manages presentation; the owner performs store calls for each intent.
type AlbumModal struct {
	open       bool
	artistID   string
	artistName string

	list    *List[domain.Album]
	form    *CreateForm
	confirm Confirm
	err     string // Inline failure of the last delete

	width  int
	height int
}

// NewAlbumModal creates a closed modal
func NewAlbumModal(previews *preview.Manager) *AlbumModal {
	return &AlbumModal{
		list: NewList[domain.Album](RenderAlbumRow, "This artist has no albums yet. Press n to add one."),
		form: NewCreateForm("album", "Title", previews),
	}
}

// Open associates the modal with an artist
func (m *AlbumModal) Open(artistID, artistName string) {
	m.open = true
	m.artistID = artistID
	m.artistName = artistName
	m.err = ""
	m.list.Sync(domain.Loading[domain.Album]())
}

// Close clears the association, the displayed albums and any form input
func (m *AlbumModal) Close() {
	m.open = false
	m.artistID = ""
	m.artistName = ""
	m.err = ""
	m.confirm.Hide()
	m.form.reset()
	m.list.Sync(domain.Loading[domain.Album]())
}

// IsOpen reports whether the modal is open
func (m *AlbumModal) IsOpen() bool { return m.open }

// ArtistID returns the artist in scope, empty when closed
func (m *AlbumModal) ArtistID() string { return m.artistID }

// ArtistName returns the artist's display name
func (m *AlbumModal) ArtistName() string { return m.artistName }

// Form returns the nested create-album form
func (m *AlbumModal) Form() *CreateForm { return m.form }

// List returns the album list
func (m *AlbumModal) List() *List[domain.Album] { return m.list }

// Sync shows a new album view state
func (m *AlbumModal) Sync(state domain.ViewState[domain.Album]) {
	m.list.Sync(state)
}

// SetError shows an inline message (failed delete)
func (m *AlbumModal) SetError(msg string) { m.err = msg }

// SetSize sets the modal's outer size
func (m *AlbumModal) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetWidth(width - 6)
	m.list.SetSize(width-6, max(3, height-12))
}

// Update maps a message to an intent
func (m *AlbumModal) Update(msg tea.Msg) (tea.Cmd, ModalIntent) {
	if !m.open {
		return nil, ModalIntent{}
	}

	if m.confirm.IsVisible() {
		if target, done := m.confirm.Update(msg); done && target != "" {
			return nil, ModalIntent{Kind: IntentDelete, AlbumID: target}
		}
		return nil, ModalIntent{}
	}

	if m.form.IsActive() {
		cmd, ev := m.form.Update(msg)
		if ev == FormSubmitRequested {
			if input, ok := m.form.Submit(); ok {
				return cmd, ModalIntent{Kind: IntentCreate, Input: input}
			}
		}
		return cmd, ModalIntent{}
	}

	if _, ok := msg.(tea.WindowSizeMsg); ok {
		cmd, _ := m.form.Update(msg)
		return cmd, ModalIntent{}
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, ModalIntent{}
	}
	if m.list.IsFiltering() {
		return m.list.Update(msg), ModalIntent{}
	}

	switch {
	case key.Matches(keyMsg, AlbumModalKeys.Close):
		if m.list.HasFilter() {
			return m.list.Update(msg), ModalIntent{}
		}
		return nil, ModalIntent{Kind: IntentClose}
	case key.Matches(keyMsg, AlbumModalKeys.New):
		m.err = ""
		return m.form.Open(), ModalIntent{}
	case key.Matches(keyMsg, AlbumModalKeys.Retry):
		return nil, ModalIntent{Kind: IntentRetry}
	case key.Matches(keyMsg, AlbumModalKeys.Delete):
		if album, ok := m.list.Selected(); ok {
			m.err = ""
			m.confirm.Show(fmt.Sprintf("Delete %q?", album.Title), album.ID)
		}
	case key.Matches(keyMsg, AlbumModalKeys.Open):
		if album, ok := m.list.Selected(); ok && album.HasCover() {
			return nil, ModalIntent{Kind: IntentOpenImage, URL: album.CoverURL}
		}
	default:
		return m.list.Update(msg), ModalIntent{}
	}
	return nil, ModalIntent{}
}

// View renders the modal
func (m *AlbumModal) View(spinnerFrame int) string {
	if !m.open {
		return ""
	}
	if m.confirm.IsVisible() {
		return m.confirm.View()
	}

	state := m.list.State()
	header := styles.ModalTitleStyle.Render(m.artistName)
	if state.Kind == domain.ViewPopulated {
		header = styles.ModalTitleStyle.Render(fmt.Sprintf("%s · %d albums", m.artistName, len(state.Items)))
	}

	parts := []string{header, m.list.View(spinnerFrame), ""}
	if m.err != "" {
		parts = append(parts, styles.ErrorStyle.Render(m.err))
	}
	parts = append(parts, m.form.View())
	if !m.form.IsActive() {
		parts = append(parts, styles.AccentStyle.Render("x")+styles.DimStyle.Render(" delete  ")+
			styles.AccentStyle.Render("o")+styles.DimStyle.Render(" open cover  ")+
			styles.AccentStyle.Render("esc")+styles.DimStyle.Render(" close"))
	}

	width := max(30, m.width-4)
	return styles.ModalStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// RenderAlbumRow draws one album card
func RenderAlbumRow(album domain.Album, selected bool, width int) string {
	return styles.RenderListRow([]styles.RowPart{
		imagePart(album.HasCover()),
		{Text: styles.Truncate(album.Title, width-6)},
	}, selected, width)
}

// RenderArtistRow draws one artist card
func RenderArtistRow(artist domain.Artist, selected bool, width int) string {
	return styles.RenderListRow([]styles.RowPart{
		imagePart(artist.HasImage()),
		{Text: styles.Truncate(artist.Name, width-6)},
	}, selected, width)
}

func imagePart(has bool) styles.RowPart {
	if has {
		return styles.RowPart{Text: styles.ImageChar + " ", Foreground: &styles.Green}
	}
	return styles.RowPart{Text: styles.NoImageChar + " ", Foreground: &styles.DimGray}
}
