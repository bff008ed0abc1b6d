package browse

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/justchokingaround/playcore/internal/catalog"
	"github.com/justchokingaround/playcore/internal/core"
	"github.com/justchokingaround/playcore/internal/source"
	"github.com/justchokingaround/playcore/internal/tui/common"
	"github.com/justchokingaround/playcore/internal/tui/styles"
)

// Model is the movie list shown before playback.
type Model struct {
	catalog  *catalog.Catalog
	filter   *common.Filter
	selected int
	offset   int
	height   int
}

// New creates the list over c
func New(c *catalog.Catalog) Model {
	return Model{catalog: c, filter: common.NewFilter(), height: 20}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) movies() []core.Movie {
	return m.catalog.Search(m.filter.Query())
}

// Editing reports whether the filter owns the keyboard.
func (m Model) Editing() bool {
	return m.filter.Editing()
}

func (m Model) visibleRows() int {
	// two lines per movie plus header and footer
	return max((m.height-8)/2, 1)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filter.Editing() {
			switch msg.String() {
			case "enter":
				m.filter.Lock()
			case "esc":
				m.filter.Clear()
			default:
				cmd := m.filter.Update(msg)
				m.selected, m.offset = 0, 0
				return m, cmd
			}
			m.selected, m.offset = 0, 0
			return m, nil
		}

		movies := m.movies()
		switch msg.String() {
		case "/":
			return m, m.filter.Focus()
		case "j", "down":
			if m.selected < len(movies)-1 {
				m.selected++
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
		case "esc":
			m.filter.Clear()
			m.selected, m.offset = 0, 0
		case "enter":
			if m.selected < len(movies) {
				movie := movies[m.selected]
				return m, func() tea.Msg { return common.PlayMsg{Movie: movie} }
			}
		}
		rows := m.visibleRows()
		if m.selected < m.offset {
			m.offset = m.selected
		} else if m.selected >= m.offset+rows {
			m.offset = m.selected - rows + 1
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.filter.SetWidth(msg.Width)
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(styles.TitleStyle.Render("playcore") + "  " +
		styles.MetadataStyle.Render(fmt.Sprintf("%d movies", m.catalog.Len())) + "\n\n")

	movies := m.movies()
	if len(movies) == 0 {
		s.WriteString(styles.HelpStyle.Render("Nothing matches.") + "\n")
	}
	end := min(m.offset+m.visibleRows(), len(movies))
	for i := m.offset; i < end; i++ {
		mv := movies[i]
		line := mv.Title + "\n" + styles.MetadataStyle.Render(Describe(mv))
		if i == m.selected {
			s.WriteString(styles.SelectedItemStyle.Render(line) + "\n")
		} else {
			s.WriteString(styles.ItemStyle.Render(line) + "\n")
		}
	}

	if f := m.filter.View(); f != "" {
		s.WriteString("\n" + f + "\n")
	}
	s.WriteString("\n" + styles.HelpStyle.Render("j/k: navigate • /: filter • enter: play • q: quit"))
	return s.String()
}

// Describe summarises what a movie offers: its declared source, runtime and
// ready dubbed tracks.
func Describe(m core.Movie) string {
	var parts []string
	switch {
	case m.HostedAssetKey != "" && strings.EqualFold(m.TranscodingStatus, "completed"):
		parts = append(parts, "hosted")
	case m.EmbedURL != "":
		d := source.Classify(m.EmbedURL)
		if d.Platform != source.PlatformNone {
			parts = append(parts, string(d.Platform))
		} else {
			parts = append(parts, string(d.Kind))
		}
	case m.MobileFallbackURL != "":
		parts = append(parts, "mobile only")
	default:
		parts = append(parts, "no source")
	}
	if m.Duration > 0 {
		parts = append(parts, common.FormatClock(m.Duration))
	}
	if n := len(m.DubbedTracks.Selectable()); n > 0 {
		parts = append(parts, humanize.Comma(int64(n))+" "+plural(n, "dub", "dubs"))
	}
	return strings.Join(parts, " • ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
