package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderBrowser(),
		m.renderFooter(),
	)

	if m.AlbumModal.IsOpen() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.AlbumModal.View(m.SpinnerFrame))
	}
	return view
}

func (m Model) renderBrowser() string {
	header := styles.TitleStyle.Render("Artists")
	if state := m.ArtistList.State(); state.Kind == domain.ViewPopulated {
		header += styles.DimStyle.Render(fmt.Sprintf("  %d", len(state.Items)))
	}

	form := m.ArtistForm.View()

	// Padding (2) + header (2) + gap (1) + footer (1)
	listHeight := m.Height - 6 - lipgloss.Height(form)
	m.ArtistList.SetSize(max(10, m.Width-4), max(1, listHeight))

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.ArtistList.View(m.SpinnerFrame),
	)
	body = lipgloss.NewStyle().Height(max(1, listHeight+2)).Render(body)

	return styles.BrowserStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body, "", form))
}

// renderFooter renders a single-line footer: status or auth hint on the
// left, credential summary and help on the right.
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.SuccessStyle.Render(m.StatusMsg)
	case m.AuthRejected:
		left = styles.ErrorStyle.Render("Session rejected. Run `crate login` to sign in again.")
	}

	right := styles.DimStyle.Render(m.credentialSummary()) + "  " +
		styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) credentialSummary() string {
	if m.creds == nil || m.creds.Token() == "" {
		return "not logged in"
	}
	return adapter.InspectToken(m.creds.Token()).Summary(m.now())
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
ARTISTS                         ALBUMS (enter on an artist)
  j/k        Up/down              n      New album
  g/G        First/last           x      Delete album
  /          Filter               o      Open cover
  n          New artist           r      Refresh
  enter      Show albums          esc    Close
  o          Open photo
  r          Refresh            FORMS
  q          Quit                 enter  Create
                                  C-o    Choose image
                                  C-x    Remove image
                                  esc    Cancel

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}
