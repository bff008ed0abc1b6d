package audioselect

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/tui/common"
	"github.com/justchokingaround/playcore/internal/tui/styles"
)

// OriginalAudio labels the entry that detaches any dubbed track.
const OriginalAudio = "Original audio"

// SelectionMsg is sent when the user picks a track. An empty TrackID means
// the original audio.
type SelectionMsg struct {
	TrackID string
}

// CancelMsg is sent when the picker is dismissed
type CancelMsg struct{}

// Model lists the selectable dubbed tracks of a movie. Tracks still
// processing are never offered.
type Model struct {
	tracks   dub.Catalog
	current  string
	filter   *common.Filter
	selected int
}

// New builds a picker over tracks; current is the active track id.
func New(tracks dub.Catalog, current string) Model {
	return Model{
		tracks:  tracks.Selectable(),
		current: current,
		filter:  common.NewFilter(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// entries is the original audio followed by the filtered tracks.
func (m Model) entries() []dub.Track {
	out := []dub.Track{{}}
	if q := m.filter.Query(); q != "" {
		return append(out, m.tracks.Search(q)...)
	}
	return append(out, m.tracks...)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filter.Editing() {
			switch msg.String() {
			case "enter":
				m.filter.Lock()
				m.selected = 0
				return m, nil
			case "esc":
				m.filter.Clear()
				m.selected = 0
				return m, nil
			}
			cmd := m.filter.Update(msg)
			m.selected = 0
			return m, cmd
		}

		entries := m.entries()
		switch msg.String() {
		case "/":
			return m, m.filter.Focus()
		case "j", "down":
			if m.selected < len(entries)-1 {
				m.selected++
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
		case "enter":
			if m.selected < len(entries) {
				id := entries[m.selected].ID
				return m, func() tea.Msg { return SelectionMsg{TrackID: id} }
			}
		case "esc", "q":
			if m.filter.Query() != "" {
				m.filter.Clear()
				m.selected = 0
				return m, nil
			}
			return m, func() tea.Msg { return CancelMsg{} }
		}

	case tea.WindowSizeMsg:
		m.filter.SetWidth(msg.Width)
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(styles.SubtitleStyle.Render("Audio track") + "\n\n")

	for i, t := range m.entries() {
		label := OriginalAudio
		if t.ID != "" {
			label = t.Label()
		}
		if t.ID == m.current {
			label += " ✓"
		}
		if i == m.selected {
			s.WriteString(styles.SelectedItemStyle.Render(label) + "\n")
		} else {
			s.WriteString(styles.ItemStyle.Render(label) + "\n")
		}
	}
	if len(m.tracks) == 0 {
		s.WriteString("\n" + styles.HelpStyle.Render("No dubbed tracks are ready for this movie.") + "\n")
	}

	if f := m.filter.View(); f != "" {
		s.WriteString("\n" + f + "\n")
	}
	s.WriteString("\n" + styles.HelpStyle.Render("j/k: navigate • /: filter • enter: select • esc: cancel"))
	return styles.PopupStyle.Render(s.String())
}
