package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/playcore/internal/catalog"
	"github.com/justchokingaround/playcore/internal/clipboard"
	"github.com/justchokingaround/playcore/internal/core"
	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/skip"
	"github.com/justchokingaround/playcore/internal/source"
	"github.com/justchokingaround/playcore/internal/tui/common"
	"github.com/justchokingaround/playcore/internal/tui/components/audioselect"
)

type fakePlayer struct {
	mu       sync.Mutex
	calls    []string
	mountErr error
	snapshot core.Snapshot
}

func (f *fakePlayer) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakePlayer) Mount(ctx context.Context, m core.Movie) error {
	_ = f.record("mount " + m.ID)
	return f.mountErr
}
func (f *fakePlayer) Tap(ctx context.Context) error   { return f.record("tap") }
func (f *fakePlayer) Retry(ctx context.Context) error { return f.record("retry") }
func (f *fakePlayer) TogglePause() error              { return f.record("toggle") }
func (f *fakePlayer) SeekRelative(d float64) error {
	if d < 0 {
		return f.record("seek-")
	}
	return f.record("seek+")
}
func (f *fakePlayer) SetVolume(v int) error   { return f.record("volume") }
func (f *fakePlayer) SetMuted(m bool) error   { return f.record("mute") }
func (f *fakePlayer) SkipIntro() error        { return f.record("skip-intro") }
func (f *fakePlayer) SkipCredits() error      { return f.record("skip-credits") }
func (f *fakePlayer) Snapshot() core.Snapshot { return f.snapshot }
func (f *fakePlayer) SelectTrack(ctx context.Context, id string) error {
	return f.record("track " + id)
}

func (f *fakePlayer) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeCopier struct{ copied []string }

func (c *fakeCopier) CopyCmd(text string) tea.Cmd {
	c.copied = append(c.copied, text)
	return nil
}

var night = core.Movie{
	ID:       "m1",
	Title:    "Night Train",
	EmbedURL: "https://cdn.example.com/night.mp4",
	Duration: 5460,
	DubbedTracks: dub.Catalog{
		{ID: "t-es", LanguageCode: "es", LanguageName: "Spanish", Status: "completed"},
	},
}

func newTestApp(t *testing.T) (*App, *fakePlayer, *fakeCopier) {
	t.Helper()
	c, err := catalog.New([]core.Movie{night, {ID: "m2", Title: "Harbour Lights"}})
	require.NoError(t, err)
	p := &fakePlayer{}
	cp := &fakeCopier{}
	a := NewApp(context.Background(), Options{Catalog: c, Player: p, Copier: cp, Volume: 80})
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return a, p, cp
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers msg, runs the resulting command and feeds its message back
// once. Paths that arm status timers are driven through Update directly.
func send(a *App, msg tea.Msg) {
	_, cmd := a.Update(msg)
	if cmd == nil {
		return
	}
	if out := cmd(); out != nil {
		a.Update(out)
	}
}

func play(t *testing.T, a *App) {
	t.Helper()
	send(a, common.PlayMsg{Movie: night})
	require.Equal(t, viewPlayer, a.view)
}

func TestBrowseEnterMountsSelectedMovie(t *testing.T) {
	a, p, _ := newTestApp(t)
	assert.Contains(t, a.View(), "Night Train")
	assert.Contains(t, a.View(), "1 dub")

	// sorted by title: Harbour Lights, Night Train
	_, cmd := a.Update(keyMsg("j"))
	assert.Nil(t, cmd)
	_, cmd = a.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	send(a, cmd())

	assert.Equal(t, viewPlayer, a.view)
	assert.Equal(t, []string{"mount m1"}, p.history())
	assert.False(t, a.mounting)
}

func TestMountFailureShowsUnavailable(t *testing.T) {
	a, p, _ := newTestApp(t)
	p.mountErr = playerr.ErrAllSourcesExhausted
	play(t, a)

	assert.Equal(t, playerr.OutcomeUnavailable, a.outcome)
	assert.Contains(t, a.View(), "press r to retry")

	send(a, keyMsg("r"))
	assert.Contains(t, p.history(), "retry")
}

func TestSupersededMountIsIgnored(t *testing.T) {
	a, p, _ := newTestApp(t)
	p.mountErr = playerr.ErrSuperseded
	play(t, a)
	assert.NotEqual(t, playerr.OutcomeUnavailable, a.outcome)
}

func TestRetryOnlyWhenUnavailable(t *testing.T) {
	a, p, _ := newTestApp(t)
	play(t, a)
	send(a, common.OutcomeMsg{Outcome: playerr.OutcomePlaying})
	send(a, keyMsg("r"))
	assert.NotContains(t, p.history(), "retry")
}

func TestSkipButtonsFollowVisibility(t *testing.T) {
	a, p, _ := newTestApp(t)
	play(t, a)

	send(a, keyMsg("i"))
	assert.NotContains(t, p.history(), "skip-intro")
	assert.NotContains(t, a.View(), "Skip intro")

	send(a, common.SkipMsg(skip.Visibility{Intro: true}))
	assert.Contains(t, a.View(), "Skip intro")
	assert.NotContains(t, a.View(), "Skip credits")
	send(a, keyMsg("i"))
	assert.Contains(t, p.history(), "skip-intro")

	send(a, common.SkipMsg(skip.Visibility{Credits: true}))
	assert.Contains(t, a.View(), "Skip credits")
	send(a, keyMsg("c"))
	assert.Contains(t, p.history(), "skip-credits")
}

func TestTransportKeys(t *testing.T) {
	a, p, _ := newTestApp(t)
	play(t, a)

	for _, k := range []string{" ", "l", "h", "up", "m"} {
		send(a, keyMsg(k))
	}
	assert.Equal(t, []string{"mount m1", "toggle", "seek+", "seek-", "volume", "mute"}, p.history())
	assert.Equal(t, 85, a.volume)
}

func TestTapOnlyWhenAwaitingTap(t *testing.T) {
	a, p, _ := newTestApp(t)
	play(t, a)
	send(a, keyMsg("enter"))
	assert.NotContains(t, p.history(), "tap")

	p.snapshot = core.Snapshot{State: player.State{Status: player.StatusAwaitingTap}}
	send(a, common.SourceMsg{Source: source.Descriptor{Kind: source.KindEmbed, Platform: source.PlatformYouTube, Reference: "dQw4w9WgXcQ"}})
	assert.Contains(t, a.View(), "Press enter to start")

	send(a, keyMsg("enter"))
	assert.Contains(t, p.history(), "tap")
}

func TestTrackPicker(t *testing.T) {
	a, p, _ := newTestApp(t)
	play(t, a)

	send(a, keyMsg("a"))
	require.Equal(t, viewTracks, a.view)
	assert.Contains(t, a.View(), "Spanish (es)")
	assert.Contains(t, a.View(), audioselect.OriginalAudio)

	_, cmd := a.Update(keyMsg("j"))
	assert.Nil(t, cmd)
	_, cmd = a.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	send(a, cmd())

	assert.Equal(t, viewPlayer, a.view)
	assert.Contains(t, p.history(), "track t-es")

	send(a, common.TrackMsg{TrackID: "t-es"})
	assert.Contains(t, a.View(), "Audio: Spanish (es)")
}

func TestSelectTrackFailureShowsStatus(t *testing.T) {
	a, _, _ := newTestApp(t)
	play(t, a)
	a.Update(common.StatusMsg{Text: "Switching audio failed", Err: playerr.ErrDubAudioUnavailable})
	assert.Contains(t, a.View(), "Switching audio failed")
}

func TestIframeSourceHasNoProgress(t *testing.T) {
	a, _, _ := newTestApp(t)
	play(t, a)
	send(a, common.SourceMsg{Source: source.Descriptor{Kind: source.KindEmbed, Platform: source.PlatformGeneric, Reference: "https://player.example.org/e/1"}})
	send(a, common.SourceMsg{Source: source.Descriptor{Kind: source.KindEmbed, Platform: source.PlatformGeneric, Reference: "https://player.example.org/e/1"}})

	view := a.View()
	assert.Contains(t, view, "Controls are not available")
	assert.Contains(t, view, "(fallback)")
}

func TestCopySourceURL(t *testing.T) {
	a, _, cp := newTestApp(t)
	play(t, a)
	send(a, keyMsg("y"))
	assert.Empty(t, cp.copied, "nothing to copy before a source is known")

	send(a, common.SourceMsg{Source: source.Descriptor{Kind: source.KindEmbed, Platform: source.PlatformYouTube, Reference: "dQw4w9WgXcQ"}})
	send(a, keyMsg("y"))
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}, cp.copied)

	a.Update(clipboard.CopiedMsg{Text: cp.copied[0]})
	assert.Contains(t, a.View(), "Source URL copied")
}

func TestTelemetryForOtherMovieIgnored(t *testing.T) {
	a, _, _ := newTestApp(t)
	play(t, a)
	send(a, common.TelemetryMsg{MovieID: "m1", Time: 61, Duration: 5460, Playing: true})
	send(a, common.TelemetryMsg{MovieID: "old", Time: 999})
	assert.Contains(t, a.View(), "1:01 / 1:31:00")
}

func TestBridgeForwardsAndChains(t *testing.T) {
	var chained []string
	b := common.NewBridge(core.Host{
		OnEnded: func() { chained = append(chained, "ended") },
	})
	h := b.Host()

	h.OnEnded() // dropped before attach
	var got []tea.Msg
	b.Attach(func(m tea.Msg) { got = append(got, m) })
	h.OnEnded()
	h.OnTrackChanged("t-es")
	h.OnOutcome(playerr.OutcomeUnavailable, errors.New("x"))

	assert.Equal(t, []string{"ended", "ended"}, chained)
	require.Len(t, got, 3)
	assert.Equal(t, common.EndedMsg{}, got[0])
	assert.Equal(t, common.TrackMsg{TrackID: "t-es"}, got[1])
}
