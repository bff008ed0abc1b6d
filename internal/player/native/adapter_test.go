package native

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/playcore/internal/clock/clocktest"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
)

type recorder struct {
	fatals    []error
	stalls    int
	buffering []bool
	playing   []bool
	seeks     []float64
	durations []float64
}

func (r *recorder) events() player.Events {
	return player.Events{
		OnFatalError:       func(err error) { r.fatals = append(r.fatals, err) },
		OnStalled:          func() { r.stalls++ },
		OnBuffering:        func(b bool) { r.buffering = append(r.buffering, b) },
		OnPlayStateChanged: func(p bool) { r.playing = append(r.playing, p) },
		OnSeeking:          func(t float64) { r.seeks = append(r.seeks, t) },
		OnDurationKnown:    func(d float64) { r.durations = append(r.durations, d) },
	}
}

func startPlaying(t *testing.T, el *fakeElement, a *Adapter, at float64) {
	t.Helper()
	require.NoError(t, a.Start(context.Background()))
	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	require.NoError(t, a.Play())
	el.emit(Event{Type: EventPlaying})
	el.emit(Event{Type: EventTimeUpdate, Time: at})
}

func TestRetryBudgetThenFatal(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	rec := &recorder{}
	a := New(el, "https://cdn.example.com/a.mp4", rec.events(), WithClock(clk))
	defer a.Close()

	startPlaying(t, el, a, 42)
	assert.Equal(t, 1, el.loadCount())

	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		el.emit(Event{Type: EventError, ErrorKind: playerr.KindDecode})
		assert.Equal(t, player.StatusRecovering, a.State().Status)
		assert.Equal(t, 1, clk.Pending(), "exactly one reload scheduled")

		delay := time.Duration(attempt) * time.Second
		clk.Advance(delay - time.Millisecond)
		assert.Equal(t, attempt, el.loadCount(), "reload fired early on attempt %d", attempt)
		clk.Advance(time.Millisecond)
		assert.Equal(t, attempt+1, el.loadCount())

		el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
		pos, ok := el.lastSeek()
		require.True(t, ok)
		assert.Equal(t, 42.0, pos)
		assert.Equal(t, player.StatusReady, a.State().Status)
	}
	assert.Empty(t, rec.fatals)

	el.emit(Event{Type: EventError, ErrorKind: playerr.KindDecode})
	require.Len(t, rec.fatals, 1)
	var fatal *playerr.PlaybackFatalError
	require.True(t, errors.As(rec.fatals[0], &fatal))
	assert.Equal(t, playerr.KindDecode, fatal.Kind)
	assert.True(t, fatal.Exhausted)

	st := a.State()
	assert.Equal(t, player.StatusFailed, st.Status)
	assert.Equal(t, DefaultMaxRetries, st.RetryCount)
	assert.Equal(t, 0, clk.Pending())

	el.emit(Event{Type: EventError, ErrorKind: playerr.KindDecode})
	assert.Len(t, rec.fatals, 1, "failed adapter reports once")
}

func TestRetryRestoresPlayState(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk))
	defer a.Close()

	startPlaying(t, el, a, 10)
	plays := el.playCount()

	el.emit(Event{Type: EventError, ErrorKind: playerr.KindNetwork})
	// Events emitted by the reload itself must not leak out as user state.
	el.emit(Event{Type: EventPause})
	el.emit(Event{Type: EventTimeUpdate, Time: 0})
	assert.Equal(t, 10.0, a.CurrentTime())

	clk.Advance(time.Second)
	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	assert.Equal(t, plays+1, el.playCount())
}

func TestPauseDuringRecoveryIsHonoured(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk))
	defer a.Close()

	startPlaying(t, el, a, 10)
	plays := el.playCount()

	el.emit(Event{Type: EventError, ErrorKind: playerr.KindNetwork})
	require.NoError(t, a.Pause())
	require.NoError(t, a.Seek(77))
	clk.Advance(time.Second)
	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})

	assert.Equal(t, plays, el.playCount())
	pos, _ := el.lastSeek()
	assert.Equal(t, 77.0, pos)
}

func TestLoadFailureEntersRetry(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{loadErr: errors.New("connection refused")}
	rec := &recorder{}
	a := New(el, "src", rec.events(), WithClock(clk), WithRetryPolicy(1, time.Second))
	defer a.Close()

	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, player.StatusRecovering, a.State().Status)

	clk.Advance(time.Second)
	require.Len(t, rec.fatals, 1)
	assert.Equal(t, playerr.KindNetwork, playerr.KindOf(rec.fatals[0]))
}

func TestInitialPositionAppliedOnce(t *testing.T) {
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clocktest.New()), WithInitialPosition(120))
	defer a.Close()

	require.NoError(t, a.Start(context.Background()))
	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	pos, ok := el.lastSeek()
	require.True(t, ok)
	assert.Equal(t, 120.0, pos)

	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	el.mu.Lock()
	n := len(el.seeks)
	el.mu.Unlock()
	assert.Equal(t, 1, n)
}

func TestInitialPositionSurvivesRetryBeforeMetadata(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk), WithInitialPosition(120))
	defer a.Close()

	require.NoError(t, a.Start(context.Background()))
	el.emit(Event{Type: EventError, ErrorKind: playerr.KindNetwork})
	clk.Advance(time.Second)
	require.Equal(t, 2, el.loadCount())

	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	pos, ok := el.lastSeek()
	require.True(t, ok)
	assert.Equal(t, 120.0, pos)
	assert.Equal(t, 120.0, a.CurrentTime())

	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	el.mu.Lock()
	n := len(el.seeks)
	el.mu.Unlock()
	assert.Equal(t, 1, n)
}

func TestInitialPositionSurvivesStallBeforeMetadata(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk), WithInitialPosition(120))
	defer a.Close()

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Play())
	el.emit(Event{Type: EventStalled})
	clk.Advance(DefaultStallGrace)
	require.Equal(t, 2, el.loadCount())

	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	pos, ok := el.lastSeek()
	require.True(t, ok)
	assert.Equal(t, 120.0, pos)
}

func TestReloadEffectErrorsAreLogged(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := New(el, "src", player.Events{}, WithClock(clk), WithLogger(logger))
	defer a.Close()

	startPlaying(t, el, a, 10)
	el.mu.Lock()
	el.seekErr = errors.New("seek rejected")
	el.playErr = errors.New("play rejected")
	el.mu.Unlock()

	el.emit(Event{Type: EventError, ErrorKind: playerr.KindNetwork})
	clk.Advance(time.Second)
	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})

	assert.Contains(t, buf.String(), "seek rejected")
	assert.Contains(t, buf.String(), "play rejected")
}

func TestInitialPositionSkippedAfterUserSeek(t *testing.T) {
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clocktest.New()), WithInitialPosition(120))
	defer a.Close()

	require.NoError(t, a.Start(context.Background()))
	// The user seeked before metadata arrived.
	el.mu.Lock()
	el.pos = 5
	el.mu.Unlock()
	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})

	_, ok := el.lastSeek()
	assert.False(t, ok)
}

func TestStallRecoveryReloadsAndResumes(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	rec := &recorder{}
	a := New(el, "src", rec.events(), WithClock(clk))
	defer a.Close()

	startPlaying(t, el, a, 30)
	plays := el.playCount()

	el.emit(Event{Type: EventStalled})
	assert.Equal(t, 1, rec.stalls)
	assert.True(t, a.State().Buffering)

	clk.Advance(DefaultStallGrace)
	assert.Equal(t, 2, el.loadCount())
	assert.Equal(t, player.StatusRecovering, a.State().Status)

	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
	pos, _ := el.lastSeek()
	assert.Equal(t, 30.0, pos)
	assert.Equal(t, plays+1, el.playCount())
	assert.Equal(t, 0, a.State().RetryCount, "stall recovery is not a retry")
	assert.False(t, a.State().Buffering)
}

func TestStallClearedByProgress(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk))
	defer a.Close()

	startPlaying(t, el, a, 30)
	el.emit(Event{Type: EventWaiting})
	assert.Equal(t, 1, clk.Pending())

	el.emit(Event{Type: EventTimeUpdate, Time: 30.5})
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(10 * time.Second)
	assert.Equal(t, 1, el.loadCount())
}

func TestStallSkippedWhenElementRecovered(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk))
	defer a.Close()

	startPlaying(t, el, a, 30)
	el.emit(Event{Type: EventWaiting})
	el.mu.Lock()
	el.ready = HaveEnoughData
	el.mu.Unlock()

	clk.Advance(DefaultStallGrace)
	assert.Equal(t, 1, el.loadCount())
}

func TestStallCapEscalatesToRetry(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk), WithStallCap(2, time.Minute))
	defer a.Close()

	startPlaying(t, el, a, 30)
	for i := 0; i < 2; i++ {
		el.emit(Event{Type: EventStalled})
		clk.Advance(DefaultStallGrace)
		el.emit(Event{Type: EventLoadedMetadata, Duration: 600})
		el.emit(Event{Type: EventPlaying})
	}
	assert.Equal(t, 3, el.loadCount())
	assert.Equal(t, 0, a.State().RetryCount)

	el.emit(Event{Type: EventStalled})
	clk.Advance(DefaultStallGrace)
	assert.Equal(t, 3, el.loadCount(), "escalated stall waits for the retry delay")
	assert.Equal(t, 1, a.State().RetryCount)
	assert.Equal(t, playerr.KindNetwork, playerr.KindOf(a.State().LastError))

	clk.Advance(time.Second)
	assert.Equal(t, 4, el.loadCount())
}

func TestCloseClearsTimers(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk))

	startPlaying(t, el, a, 30)
	el.emit(Event{Type: EventError, ErrorKind: playerr.KindNetwork})
	assert.Equal(t, 1, clk.Pending())

	require.NoError(t, a.Close())
	assert.Equal(t, 0, clk.Pending())
	assert.Equal(t, player.StatusClosed, a.State().Status)
	assert.Equal(t, 1, el.released)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, el.loadCount())

	assert.ErrorIs(t, a.Play(), playerr.ErrClosed)
	require.NoError(t, a.Close())
	assert.Equal(t, 1, el.released)
}

func TestSeekingEventForwarded(t *testing.T) {
	el := &fakeElement{}
	rec := &recorder{}
	a := New(el, "src", rec.events(), WithClock(clocktest.New()))
	defer a.Close()

	startPlaying(t, el, a, 3)
	require.NoError(t, a.Seek(120))
	assert.Equal(t, []float64{120}, rec.seeks)
	assert.Equal(t, 120.0, a.CurrentTime())
}

func TestSettingsRestoredAfterReload(t *testing.T) {
	clk := clocktest.New()
	el := &fakeElement{}
	a := New(el, "src", player.Events{}, WithClock(clk))
	defer a.Close()

	startPlaying(t, el, a, 3)
	require.NoError(t, a.SetPlaybackRate(1.5))
	require.NoError(t, a.SetVolume(140))
	assert.Equal(t, 100, a.Volume())

	el.emit(Event{Type: EventError, ErrorKind: playerr.KindNetwork})
	clk.Advance(time.Second)
	el.emit(Event{Type: EventLoadedMetadata, Duration: 600})

	el.mu.Lock()
	defer el.mu.Unlock()
	assert.Equal(t, 1.5, el.rates[len(el.rates)-1])
	assert.Equal(t, 100, el.volumes[len(el.volumes)-1])
}
