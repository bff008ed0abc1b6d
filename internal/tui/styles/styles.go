package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/justchokingaround/playcore/internal/playerr"
)

// Oxocarbon palette
var (
	Black   = lipgloss.Color("#161616")
	Base00  = lipgloss.Color("#262626")
	Base01  = lipgloss.Color("#393939")
	Base02  = lipgloss.Color("#525252")
	Base03  = lipgloss.Color("#767676")
	Base04  = lipgloss.Color("#dde1e6")
	Base05  = lipgloss.Color("#f2f4f8")
	White   = lipgloss.Color("#ffffff")
	Teal    = lipgloss.Color("#3ddbd9")
	Blue    = lipgloss.Color("#78a9ff")
	Pink    = lipgloss.Color("#ee5396")
	Red     = lipgloss.Color("#ff5252")
	Cyan    = lipgloss.Color("#33b1ff")
	Green   = lipgloss.Color("#42be65")
	Purple  = lipgloss.Color("#be95ff")
	Mauve   = lipgloss.Color("#d1aaff")
	Warning = lipgloss.Color("#f1c21b")
)

var (
	AppStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Base01)

	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(Purple).
			Padding(0, 1).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Mauve).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Base03).
			Italic(true)

	MetadataStyle = lipgloss.NewStyle().
			Foreground(Base04)

	URLStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Italic(true)

	ItemStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Base02).
			BorderLeft(true).
			PaddingLeft(2).
			MarginLeft(1)

	SelectedItemStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.ThickBorder()).
				BorderForeground(Purple).
				BorderLeft(true).
				PaddingLeft(2).
				MarginLeft(1).
				Foreground(Purple).
				Bold(true)

	// Skip buttons appear only while their window is open.
	ButtonStyle = lipgloss.NewStyle().
			Foreground(Black).
			Background(Teal).
			Padding(0, 2).
			MarginRight(2).
			Bold(true)

	BadgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Base05).
			Background(Base01).
			Padding(0, 1)

	PopupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Purple).
			Padding(1, 2)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)
)

// OutcomeColor maps a playback outcome to its badge colour
func OutcomeColor(o playerr.Outcome) lipgloss.Color {
	switch o {
	case playerr.OutcomePlaying:
		return Green
	case playerr.OutcomeRecovering:
		return Warning
	case playerr.OutcomeUnavailable:
		return Red
	default:
		return Base03
	}
}

// OutcomeBadge renders a coloured outcome label
func OutcomeBadge(o playerr.Outcome) string {
	label := string(o)
	if label == "" {
		label = "idle"
	}
	return BadgeStyle.Foreground(OutcomeColor(o)).Render(label)
}
