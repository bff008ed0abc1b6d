package common

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justchokingaround/playcore/internal/tui/styles"
)

// Filter is the fuzzy filter input shared by the list views. While focused
// it swallows keys; once locked the query stays applied and action keys
// reach the list again.
type Filter struct {
	input  textinput.Model
	active bool
}

// NewFilter creates an inactive filter
func NewFilter() *Filter {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = ""
	ti.CharLimit = 120
	ti.TextStyle = styles.MetadataStyle
	ti.PlaceholderStyle = styles.HelpStyle
	return &Filter{input: ti}
}

// Focus starts editing the query
func (f *Filter) Focus() tea.Cmd {
	f.active = true
	f.input.Focus()
	return textinput.Blink
}

// Lock keeps the query but stops editing
func (f *Filter) Lock() {
	f.input.Blur()
}

// Clear drops the query and deactivates the filter
func (f *Filter) Clear() {
	f.active = false
	f.input.Blur()
	f.input.SetValue("")
}

// Editing reports whether keys go to the input
func (f *Filter) Editing() bool {
	return f.input.Focused()
}

// Query returns the current query, empty when inactive
func (f *Filter) Query() string {
	if !f.active {
		return ""
	}
	return f.input.Value()
}

// Update forwards msg to the input while editing
func (f *Filter) Update(msg tea.Msg) tea.Cmd {
	if !f.Editing() {
		return nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd
}

// View renders the filter line
func (f *Filter) View() string {
	if !f.active {
		return ""
	}
	label := styles.MetadataStyle.Render("Filter: ")
	if !f.Editing() {
		return label + styles.SubtitleStyle.Render(f.input.Value()) +
			styles.HelpStyle.Render("  (/ to edit, esc to clear)")
	}
	return label + f.input.View() + styles.HelpStyle.Render("  (enter to apply)")
}

// SetWidth sizes the input
func (f *Filter) SetWidth(width int) {
	f.input.Width = max(width-24, 10)
}
