package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	TogglePause key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	Mute        key.Binding
	SkipIntro   key.Binding
	SkipCredits key.Binding
	Tracks      key.Binding
	Tap         key.Binding
	Retry       key.Binding
	Copy        key.Binding
	Back        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		TogglePause: key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		SeekBack:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-10s")),
		SeekForward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+10s")),
		VolumeUp:    key.NewBinding(key.WithKeys("up", "+"), key.WithHelp("↑", "volume +")),
		VolumeDown:  key.NewBinding(key.WithKeys("down", "-"), key.WithHelp("↓", "volume -")),
		Mute:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		SkipIntro:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "skip intro")),
		SkipCredits: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "skip credits")),
		Tracks:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "audio track")),
		Tap:         key.NewBinding(key.WithKeys("enter", "t"), key.WithHelp("enter", "start")),
		Retry:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy source url")),
		Back:        key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "back")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePause, k.SeekForward, k.Tracks, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TogglePause, k.SeekBack, k.SeekForward},
		{k.VolumeUp, k.VolumeDown, k.Mute},
		{k.SkipIntro, k.SkipCredits, k.Tracks},
		{k.Tap, k.Retry, k.Copy},
		{k.Back, k.Help, k.Quit},
	}
}
