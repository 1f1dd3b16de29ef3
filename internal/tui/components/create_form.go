package components

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/preview"
	"github.com/mmcdole/crate/internal/tui/styles"
)

// FormState is the create form state machine
type FormState int

const (
	FormCollapsed FormState = iota
	FormExpanded
	FormSubmitting
)

func (s FormState) String() string {
	switch s {
	case FormCollapsed:
		return "collapsed"
	case FormExpanded:
		return "expanded"
	case FormSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// FormEvent is what a key press asked the owner of the form to do
type FormEvent int

const (
	FormNoEvent FormEvent = iota
	FormSubmitRequested
	FormCancelled
)

// Submission is the validated input of a create form
type Submission struct {
	Text  string
	Image *domain.ImageUpload
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

// CreateForm collects a name (or title) and an optional image.
//
//	collapsed --Open--> expanded --Submit(valid)--> submitting
//	submitting --Succeeded--> collapsed, submitting --Failed--> expanded
//	expanded --Cancel--> collapsed
//
// Leaving the form by success or cancel releases the pending image.
type CreateForm struct {
	noun     string // "artist", "album"
	field    string // "Name", "Title"
	state    FormState
	input    textinput.Model
	picker   filepicker.Model
	picking  bool
	previews *preview.Manager
	err      string
	width    int
}

// NewCreateForm creates a collapsed form
func NewCreateForm(noun, field string, previews *preview.Manager) *CreateForm {
	ti := textinput.New()
	ti.Placeholder = field + "..."
	ti.CharLimit = 120
	ti.Width = 40
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	fp := filepicker.New()
	fp.AllowedTypes = imageExtensions
	fp.ShowPermissions = false
	fp.AutoHeight = true
	if home, err := os.UserHomeDir(); err == nil {
		fp.CurrentDirectory = home
	}

	return &CreateForm{
		noun:     noun,
		field:    field,
		input:    ti,
		picker:   fp,
		previews: previews,
	}
}

// State returns the current form state
func (f *CreateForm) State() FormState { return f.state }

// Err returns the inline error, if any
func (f *CreateForm) Err() string { return f.err }

// Value returns the text input value
func (f *CreateForm) Value() string { return f.input.Value() }

// SetValue replaces the text input value
func (f *CreateForm) SetValue(v string) { f.input.SetValue(v) }

// Previews returns the form's image preview manager
func (f *CreateForm) Previews() *preview.Manager { return f.previews }

// IsActive reports whether the form is capturing keys
func (f *CreateForm) IsActive() bool { return f.state != FormCollapsed }

// SetWidth sets the render width
func (f *CreateForm) SetWidth(w int) {
	f.width = w
	f.input.Width = max(10, w-8)
}

// Open expands a collapsed form
func (f *CreateForm) Open() tea.Cmd {
	if f.state != FormCollapsed {
		return nil
	}
	f.state = FormExpanded
	f.err = ""
	return f.input.Focus()
}

// Cancel discards input and the pending image
func (f *CreateForm) Cancel() {
	if f.state != FormExpanded {
		return
	}
	f.reset()
}

// Submit validates and moves to submitting. Invalid input stays expanded
// with an inline error and nothing is dispatched.
func (f *CreateForm) Submit() (Submission, bool) {
	if f.state != FormExpanded {
		return Submission{}, false
	}
	text := strings.TrimSpace(f.input.Value())
	if text == "" {
		f.err = f.field + " is required"
		return Submission{}, false
	}

	f.state = FormSubmitting
	f.err = ""
	f.input.Blur()
	return Submission{Text: text, Image: f.previews.Upload()}, true
}

// Succeeded collapses the form after the create call returned
func (f *CreateForm) Succeeded() {
	if f.state != FormSubmitting {
		return
	}
	f.reset()
}

// Failed reopens the form with an inline message, keeping the input
func (f *CreateForm) Failed(message string) tea.Cmd {
	if f.state != FormSubmitting {
		return nil
	}
	f.state = FormExpanded
	f.err = message
	return f.input.Focus()
}

// Close releases resources when the form is torn down
func (f *CreateForm) Close() {
	f.reset()
	f.previews.Close()
}

func (f *CreateForm) reset() {
	f.state = FormCollapsed
	f.err = ""
	f.picking = false
	f.input.SetValue("")
	f.input.Blur()
	f.previews.Clear()
}

// Update handles input while the form is expanded
func (f *CreateForm) Update(msg tea.Msg) (tea.Cmd, FormEvent) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		var cmd tea.Cmd
		f.picker, cmd = f.picker.Update(ws)
		return cmd, FormNoEvent
	}
	if f.state != FormExpanded {
		return nil, FormNoEvent
	}
	if f.picking {
		return f.updatePicker(msg), FormNoEvent
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch {
		case key.Matches(keyMsg, FormKeys.Submit):
			return nil, FormSubmitRequested
		case key.Matches(keyMsg, FormKeys.Cancel):
			f.Cancel()
			return nil, FormCancelled
		case key.Matches(keyMsg, FormKeys.PickImage):
			f.picking = true
			f.err = ""
			return f.picker.Init(), FormNoEvent
		case key.Matches(keyMsg, FormKeys.ClearImage):
			f.previews.Clear()
			return nil, FormNoEvent
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd, FormNoEvent
}

func (f *CreateForm) updatePicker(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, FormKeys.Cancel) {
		f.picking = false
		return nil
	}

	var cmd tea.Cmd
	f.picker, cmd = f.picker.Update(msg)

	if didSelect, path := f.picker.DidSelectFile(msg); didSelect {
		f.picking = false
		f.SelectImage(path)
	}
	return cmd
}

// SelectImage makes path the pending image. On failure the previous
// image stays and the reason is shown inline.
func (f *CreateForm) SelectImage(path string) {
	if _, err := f.previews.Select(path); err != nil {
		f.err = domain.Describe(err)
		return
	}
	f.err = ""
}

// View renders the form
func (f *CreateForm) View() string {
	if f.state == FormCollapsed {
		return styles.AccentStyle.Render("n") + styles.DimStyle.Render(" new "+f.noun)
	}

	title := styles.TitleStyle.Render("New " + f.noun)
	if f.picking {
		return styles.FormActiveStyle.Width(max(20, f.width-2)).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			styles.DimStyle.Render("Choose an image (esc to go back)"),
			f.picker.View(),
		))
	}

	lines := []string{
		title,
		styles.SubtitleStyle.Render(f.field+": ") + f.input.View(),
	}

	if p := f.previews.Active(); p != nil {
		lines = append(lines, f.previews.Render(p.Ref), styles.DimStyle.Render(p.Label()))
	} else {
		lines = append(lines, styles.DimStyle.Render("No image"))
	}

	if f.err != "" {
		lines = append(lines, styles.ErrorStyle.Render(f.err))
	}

	if f.state == FormSubmitting {
		lines = append(lines, styles.DimStyle.Render("Creating "+f.noun+"..."))
	} else {
		lines = append(lines, styles.AccentStyle.Render("enter")+styles.DimStyle.Render(" create  ")+
			styles.AccentStyle.Render("C-o")+styles.DimStyle.Render(" image  ")+
			styles.AccentStyle.Render("C-x")+styles.DimStyle.Render(" remove image  ")+
			styles.AccentStyle.Render("esc")+styles.DimStyle.Render(" cancel"))
	}

	return styles.FormActiveStyle.Width(max(20, f.width-2)).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
