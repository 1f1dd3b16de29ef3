package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// RowRenderer draws one entity as a card row
type RowRenderer[T domain.ListItem] func(item T, selected bool, width int) string

// List renders a store's view state: a spinner while loading, the message
// and a retry hint on error, an explanation when empty and one row per
// entity in server order when populated. Filtering only changes what is
// shown, never the underlying collection.
type List[T domain.ListItem] struct {
	state     domain.ViewState[T]
	render    RowRenderer[T]
	emptyText string

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width  int
	height int

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filteredIdx  []int // indices into state.Items
}

// NewList creates a list showing emptyText when the collection is empty
func NewList[T domain.ListItem](render RowRenderer[T], emptyText string) *List[T] {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &List[T]{
		state:       domain.Loading[T](),
		render:      render,
		emptyText:   emptyText,
		filterInput: ti,
	}
}

// Sync replaces the displayed view state, keeping the cursor on the same
// entity when it is still present.
func (l *List[T]) Sync(state domain.ViewState[T]) {
	var selectedID string
	if item, ok := l.Selected(); ok {
		selectedID = item.GetID()
	}

	l.state = state
	if l.filterActive {
		l.applyFilter()
	}

	l.cursor = 0
	if selectedID != "" {
		for i, idx := range l.visible() {
			if l.state.Items[idx].GetID() == selectedID {
				l.cursor = i
				break
			}
		}
	}
	l.clamp()
}

// State returns the displayed view state
func (l *List[T]) State() domain.ViewState[T] {
	return l.state
}

// SetSize sets the list's dimensions
func (l *List[T]) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.clamp()
}

// Selected returns the entity under the cursor
func (l *List[T]) Selected() (T, bool) {
	var zero T
	if l.state.Kind != domain.ViewPopulated {
		return zero, false
	}
	vis := l.visible()
	if l.cursor < 0 || l.cursor >= len(vis) {
		return zero, false
	}
	return l.state.Items[vis[l.cursor]], true
}

// IsFiltering reports whether the filter input has focus
func (l *List[T]) IsFiltering() bool {
	return l.filterActive && l.filterInput.Focused()
}

// Update handles navigation and filter keys
func (l *List[T]) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if l.IsFiltering() {
		switch {
		case key.Matches(keyMsg, ListKeys.Escape):
			l.clearFilter()
			return nil
		case key.Matches(keyMsg, ListKeys.Enter):
			// Accept filter, blur input to allow navigation
			l.filterInput.Blur()
			return nil
		}
		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		return cmd
	}

	n := len(l.visible())
	switch {
	case key.Matches(keyMsg, ListKeys.Filter):
		if l.state.Kind == domain.ViewPopulated {
			l.filterActive = true
			l.recalcMaxVisible()
			return l.filterInput.Focus()
		}
	case key.Matches(keyMsg, ListKeys.Escape):
		if l.filterActive {
			l.clearFilter()
		}
	case key.Matches(keyMsg, ListKeys.Up):
		l.cursor--
	case key.Matches(keyMsg, ListKeys.Down):
		l.cursor++
	case key.Matches(keyMsg, ListKeys.Home):
		l.cursor = 0
	case key.Matches(keyMsg, ListKeys.End):
		l.cursor = n - 1
	case key.Matches(keyMsg, ListKeys.PageUp):
		l.cursor -= max(1, l.maxVisible)
	case key.Matches(keyMsg, ListKeys.PageDown):
		l.cursor += max(1, l.maxVisible)
	}
	l.clamp()
	return nil
}

// HasFilter reports whether a filter is applied (typing or accepted)
func (l *List[T]) HasFilter() bool {
	return l.filterActive
}

func (l *List[T]) visible() []int {
	if l.filterActive && l.filterInput.Value() != "" {
		return l.filteredIdx
	}
	idx := make([]int, len(l.state.Items))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (l *List[T]) clamp() {
	n := len(l.visible())
	if l.cursor >= n {
		l.cursor = n - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}

	// Don't adjust offset if size hasn't been set yet
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
	if l.offset > max(0, n-l.maxVisible) {
		l.offset = max(0, n-l.maxVisible)
	}
}

func (l *List[T]) recalcMaxVisible() {
	l.maxVisible = l.height
	if l.filterActive {
		l.maxVisible-- // Filter input line
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *List[T]) clearFilter() {
	l.filterActive = false
	l.filteredIdx = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.recalcMaxVisible()
	l.clamp()
}

func (l *List[T]) applyFilter() {
	query := strings.ToLower(l.filterInput.Value())
	if query == "" {
		l.filteredIdx = nil
		return
	}

	lowerTitles := make([]string, len(l.state.Items))
	for i, item := range l.state.Items {
		lowerTitles[i] = strings.ToLower(item.GetTitle())
	}

	matches := fuzzy.Find(query, lowerTitles)
	l.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		l.filteredIdx[i] = match.Index
	}

	// Reset cursor to first match
	l.cursor = 0
	l.offset = 0
}

// View renders the list for the current view state
func (l *List[T]) View(spinnerFrame int) string {
	var lines []string

	switch l.state.Kind {
	case domain.ViewLoading:
		lines = append(lines, styles.RenderSpinner(spinnerFrame)+styles.DimStyle.Render(" Loading..."))

	case domain.ViewError:
		lines = append(lines,
			styles.ErrorStyle.Render(styles.Truncate(l.state.Message, l.width)),
			"",
			styles.AccentStyle.Render("r")+styles.DimStyle.Render(" retry"))

	case domain.ViewEmpty:
		lines = append(lines, styles.DimStyle.Render(l.emptyText))

	case domain.ViewPopulated:
		if l.filterActive {
			lines = append(lines, l.filterInput.View())
		}
		vis := l.visible()
		if len(vis) == 0 {
			lines = append(lines, styles.DimStyle.Render("No matches"))
		}
		end := len(vis)
		if l.maxVisible > 0 {
			end = min(len(vis), l.offset+l.maxVisible)
		}
		for i := l.offset; i < end; i++ {
			lines = append(lines, l.render(l.state.Items[vis[i]], i == l.cursor, l.width))
		}
	}

	return strings.Join(lines, "\n")
}
