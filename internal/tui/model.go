package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justchokingaround/playcore/internal/catalog"
	"github.com/justchokingaround/playcore/internal/clipboard"
	"github.com/justchokingaround/playcore/internal/core"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/skip"
	"github.com/justchokingaround/playcore/internal/source"
	"github.com/justchokingaround/playcore/internal/tui/common"
	"github.com/justchokingaround/playcore/internal/tui/components/audioselect"
	"github.com/justchokingaround/playcore/internal/tui/components/browse"
	"github.com/justchokingaround/playcore/internal/tui/styles"
	"github.com/justchokingaround/playcore/internal/tui/utils"
)

const (
	seekStep   = 10
	volumeStep = 5
	statusTTL  = 3 * time.Second
)

// Player is the part of *core.Core the TUI drives.
type Player interface {
	Mount(ctx context.Context, m core.Movie) error
	Tap(ctx context.Context) error
	Retry(ctx context.Context) error
	TogglePause() error
	SeekRelative(delta float64) error
	SetVolume(volume int) error
	SetMuted(muted bool) error
	SkipIntro() error
	SkipCredits() error
	SelectTrack(ctx context.Context, id string) error
	Snapshot() core.Snapshot
}

// Copier copies text to the clipboard asynchronously.
type Copier interface {
	CopyCmd(text string) tea.Cmd
}

type view int

const (
	viewBrowse view = iota
	viewPlayer
	viewTracks
)

type clearStatusMsg struct{ seq int }

// App is the root bubbletea model.
type App struct {
	ctx    context.Context
	player Player
	copier Copier
	logger *slog.Logger

	view     view
	browse   browse.Model
	tracks   audioselect.Model
	keys     keyMap
	help     help.Model
	progress progress.Model
	spinner  spinner.Model

	movie     core.Movie
	mounting  bool
	outcome   playerr.Outcome
	err       error
	source    source.Descriptor
	sources   int
	status    player.Status
	telemetry core.Telemetry
	skip      skip.Visibility
	trackID   string
	volume    int
	muted     bool
	ended     bool

	statusText string
	statusErr  bool
	statusSeq  int

	width, height int
}

// Options configures NewApp.
type Options struct {
	Catalog *catalog.Catalog
	Player  Player
	Copier  Copier
	Volume  int
	Logger  *slog.Logger
	// Autoplay mounts this movie on start instead of showing the list.
	Autoplay *core.Movie
}

// NewApp creates the root model
func NewApp(ctx context.Context, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Volume <= 0 {
		opts.Volume = 100
	}
	if opts.Catalog == nil {
		opts.Catalog, _ = catalog.New(nil)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Warning)

	a := &App{
		ctx:      ctx,
		player:   opts.Player,
		copier:   opts.Copier,
		logger:   opts.Logger,
		browse:   browse.New(opts.Catalog),
		keys:     defaultKeys(),
		help:     help.New(),
		progress: progress.New(progress.WithGradient(string(styles.Purple), string(styles.Teal)), progress.WithoutPercentage()),
		spinner:  sp,
		volume:   player.ClampVolume(opts.Volume),
	}
	if opts.Autoplay != nil {
		a.movie = *opts.Autoplay
		a.view = viewPlayer
		a.mounting = true
	}
	return a
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	if a.view == viewPlayer && a.mounting {
		return tea.Batch(a.spinner.Tick, a.mount(a.movie))
	}
	return a.spinner.Tick
}

func (a *App) mount(m core.Movie) tea.Cmd {
	ctx, p := a.ctx, a.player
	return func() tea.Msg {
		return common.MountedMsg{MovieID: m.ID, Err: p.Mount(ctx, m)}
	}
}

// do runs fn off the UI goroutine and reports a failure in the footer.
func (a *App) do(what string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return common.StatusMsg{Text: what + " failed", Err: err}
		}
		return nil
	}
}

func (a *App) setStatus(text string, isErr bool) tea.Cmd {
	a.statusSeq++
	a.statusText, a.statusErr = text, isErr
	seq := a.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (a *App) refresh() {
	snap := a.player.Snapshot()
	a.status = snap.State.Status
	a.trackID = snap.TrackID
	if snap.Outcome != "" {
		a.outcome, a.err = snap.Outcome, snap.Err
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.help.Width = msg.Width
		a.progress.Width = max(msg.Width-24, 10)
		var cmd tea.Cmd
		a.browse, cmd = a.browse.Update(msg)
		return a, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case progress.FrameMsg:
		pm, cmd := a.progress.Update(msg)
		a.progress = pm.(progress.Model)
		return a, cmd

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.statusText = ""
		}
		return a, nil

	case common.StatusMsg:
		if msg.Err != nil {
			a.logger.Warn(msg.Text, "error", msg.Err)
			return a, a.setStatus(fmt.Sprintf("%s: %v", msg.Text, msg.Err), true)
		}
		return a, a.setStatus(msg.Text, false)

	case clipboard.CopiedMsg:
		if msg.Err != nil {
			a.logger.Warn("copy failed", "error", msg.Err)
			return a, a.setStatus("Copy failed: "+msg.Err.Error(), true)
		}
		return a, a.setStatus("Source URL copied", false)

	case common.PlayMsg:
		a.movie = msg.Movie
		a.view = viewPlayer
		a.mounting = true
		a.outcome, a.err = playerr.OutcomeRecovering, nil
		a.source, a.sources = source.Descriptor{}, 0
		a.telemetry = core.Telemetry{MovieID: msg.Movie.ID, Duration: msg.Movie.Duration}
		a.skip, a.trackID, a.ended, a.status = skip.Visibility{}, "", false, ""
		return a, a.mount(msg.Movie)

	case common.MountedMsg:
		if msg.MovieID != a.movie.ID {
			return a, nil
		}
		a.mounting = false
		if errors.Is(msg.Err, playerr.ErrSuperseded) {
			return a, nil
		}
		a.refresh()
		if msg.Err != nil {
			a.outcome, a.err = playerr.OutcomeOf(msg.Err), msg.Err
		}
		return a, nil

	case common.OutcomeMsg:
		a.outcome, a.err = msg.Outcome, msg.Err
		a.refresh()
		return a, nil

	case common.SourceMsg:
		a.source = msg.Source
		a.sources++
		a.refresh()
		return a, nil

	case common.TelemetryMsg:
		if msg.MovieID != a.movie.ID {
			return a, nil
		}
		a.telemetry = core.Telemetry(msg)
		if a.telemetry.Duration > 0 {
			return a, a.progress.SetPercent(min(a.telemetry.Time/a.telemetry.Duration, 1))
		}
		return a, nil

	case common.SkipMsg:
		a.skip = skip.Visibility(msg)
		return a, nil

	case common.TrackMsg:
		a.trackID = msg.TrackID
		return a, nil

	case common.EndedMsg:
		a.ended = true
		return a, a.setStatus("Finished", false)

	case audioselect.SelectionMsg:
		a.view = viewPlayer
		if msg.TrackID == a.trackID {
			return a, nil
		}
		ctx, p, id := a.ctx, a.player, msg.TrackID
		return a, a.do("Switching audio", func() error { return p.SelectTrack(ctx, id) })

	case audioselect.CancelMsg:
		a.view = viewPlayer
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.view {
	case viewTracks:
		var cmd tea.Cmd
		a.tracks, cmd = a.tracks.Update(msg)
		return a, cmd

	case viewBrowse:
		if !a.browse.Editing() && key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		var cmd tea.Cmd
		a.browse, cmd = a.browse.Update(msg)
		return a, cmd
	}

	p := a.player
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.Back):
		a.view = viewBrowse
	case key.Matches(msg, a.keys.Tap):
		if a.status == player.StatusAwaitingTap {
			ctx := a.ctx
			return a, a.do("Starting", func() error { return p.Tap(ctx) })
		}
	case key.Matches(msg, a.keys.Retry):
		if a.outcome == playerr.OutcomeUnavailable {
			ctx := a.ctx
			a.outcome, a.err = playerr.OutcomeRecovering, nil
			return a, a.do("Retry", func() error { return p.Retry(ctx) })
		}
	case key.Matches(msg, a.keys.TogglePause):
		return a, a.do("Play/pause", p.TogglePause)
	case key.Matches(msg, a.keys.SeekBack):
		return a, a.do("Seek", func() error { return p.SeekRelative(-seekStep) })
	case key.Matches(msg, a.keys.SeekForward):
		return a, a.do("Seek", func() error { return p.SeekRelative(seekStep) })
	case key.Matches(msg, a.keys.VolumeUp), key.Matches(msg, a.keys.VolumeDown):
		step := volumeStep
		if key.Matches(msg, a.keys.VolumeDown) {
			step = -volumeStep
		}
		a.volume = player.ClampVolume(a.volume + step)
		v := a.volume
		return a, a.do("Volume", func() error { return p.SetVolume(v) })
	case key.Matches(msg, a.keys.Mute):
		a.muted = !a.muted
		muted := a.muted
		return a, a.do("Mute", func() error { return p.SetMuted(muted) })
	case key.Matches(msg, a.keys.SkipIntro):
		if a.skip.Intro {
			return a, a.do("Skip intro", p.SkipIntro)
		}
	case key.Matches(msg, a.keys.SkipCredits):
		if a.skip.Credits {
			return a, a.do("Skip credits", p.SkipCredits)
		}
	case key.Matches(msg, a.keys.Tracks):
		if len(a.movie.DubbedTracks.Selectable()) == 0 {
			return a, a.setStatus("No dubbed tracks for this movie", false)
		}
		a.tracks = audioselect.New(a.movie.DubbedTracks, a.trackID)
		a.view = viewTracks
	case key.Matches(msg, a.keys.Copy):
		if a.copier != nil && !a.source.IsZero() {
			return a, a.copier.CopyCmd(source.CanonicalURL(a.source))
		}
	}
	return a, nil
}

// View implements tea.Model
func (a *App) View() string {
	var body string
	switch a.view {
	case viewBrowse:
		body = a.browse.View()
	case viewTracks:
		body = a.playerView() + "\n\n" + a.tracks.View()
	default:
		body = a.playerView()
	}
	if a.statusText != "" {
		style := styles.FooterStyle
		if a.statusErr {
			style = style.Foreground(styles.Red)
		}
		body += "\n\n" + style.Render(a.statusText)
	}
	return styles.AppStyle.Render(body)
}

func (a *App) playerView() string {
	var s strings.Builder
	width := max(a.width-12, 20)

	s.WriteString(styles.TitleStyle.Render(utils.Truncate(a.movie.Title, width)) + " ")
	s.WriteString(styles.OutcomeBadge(a.outcome))
	if a.outcome == playerr.OutcomeRecovering || a.mounting {
		s.WriteString(" " + a.spinner.View())
	}
	s.WriteString("\n")

	if !a.source.IsZero() {
		line := sourceLabel(a.source)
		if a.sources > 1 {
			line += " (fallback)"
		}
		s.WriteString(styles.URLStyle.Render(line) + "\n")
	}
	s.WriteString("\n")

	switch {
	case a.outcome == playerr.OutcomeUnavailable:
		msg := "This movie can't be played right now."
		if a.err != nil {
			msg += " " + a.err.Error()
		}
		s.WriteString(styles.ErrorStyle.Render(utils.Truncate(msg, width*2)) + "\n")
		s.WriteString(styles.HelpStyle.Render("press r to retry") + "\n")
	case a.status == player.StatusAwaitingTap:
		s.WriteString(styles.SubtitleStyle.Render("▶ Press enter to start playback") + "\n")
	case a.source.Kind == source.KindEmbed && a.source.Platform != source.PlatformYouTube && a.source.Platform != source.PlatformVimeo:
		s.WriteString(styles.MetadataStyle.Render("Playing in the browser. Controls are not available for this source.") + "\n")
	default:
		s.WriteString(a.progress.View() + "  " +
			styles.MetadataStyle.Render(common.FormatClock(a.telemetry.Time)+" / "+common.FormatClock(a.telemetry.Duration)) + "\n")
	}

	var buttons []string
	if a.skip.Intro {
		buttons = append(buttons, styles.ButtonStyle.Render("Skip intro [i]"))
	}
	if a.skip.Credits {
		buttons = append(buttons, styles.ButtonStyle.Render("Skip credits [c]"))
	}
	if len(buttons) > 0 {
		s.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top, buttons...) + "\n")
	}

	audio := audioselect.OriginalAudio
	if t, ok := a.movie.DubbedTracks.Find(a.trackID); ok && a.trackID != "" {
		audio = t.Label()
	}
	meta := fmt.Sprintf("Audio: %s • Volume: %d%%", audio, a.volume)
	if a.muted {
		meta += " (muted)"
	}
	s.WriteString("\n" + styles.MetadataStyle.Render(meta) + "\n\n")
	s.WriteString(a.help.View(a.keys))
	return s.String()
}

func sourceLabel(d source.Descriptor) string {
	switch d.Kind {
	case source.KindEmbed:
		return "embed • " + string(d.Platform)
	default:
		return string(d.Kind)
	}
}
