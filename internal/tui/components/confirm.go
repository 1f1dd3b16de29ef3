package components

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// Confirm is a yes/no prompt carrying the id it asks about
type Confirm struct {
	visible bool
	title   string
	target  string
}

// Show displays the prompt for target
func (c *Confirm) Show(title, target string) {
	c.visible = true
	c.title = title
	c.target = target
}

// Hide dismisses the prompt
func (c *Confirm) Hide() {
	c.visible = false
	c.target = ""
}

// IsVisible returns whether the prompt is shown
func (c *Confirm) IsVisible() bool { return c.visible }

// Update handles a key, returning the confirmed target (empty when denied
// or still pending) and whether the prompt closed.
func (c *Confirm) Update(msg tea.Msg) (target string, done bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !c.visible || !ok {
		return "", false
	}
	switch {
	case key.Matches(keyMsg, ConfirmKeys.Confirm):
		target = c.target
		c.Hide()
		return target, true
	case key.Matches(keyMsg, ConfirmKeys.Deny):
		c.Hide()
		return "", true
	}
	return "", false
}

// View renders the prompt
func (c *Confirm) View() string {
	if !c.visible {
		return ""
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render(c.title),
		"",
		styles.AccentStyle.Render("[Y]")+styles.DimStyle.Render(" Yes      ")+
			styles.AccentStyle.Render("[N]")+styles.DimStyle.Render(" No"),
	)
	return styles.ModalStyle.Render(content)
}
