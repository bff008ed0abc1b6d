package mpv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/playcore/internal/clock/clocktest"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/player/native"
	"github.com/justchokingaround/playcore/internal/playerr"
)

type fakeConn struct {
	mu    sync.Mutex
	props map[string]any
	sets  map[string]any
	loads []string
	fail  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		props: map[string]any{
			"time-pos": 0.0, "duration": 0.0, "pause": true, "eof-reached": false,
			"paused-for-cache": false, "speed": 1.0, "idle-active": false,
		},
		sets: map[string]any{},
	}
}

func (f *fakeConn) get(name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("broken pipe")
	}
	return f.props[name], nil
}

func (f *fakeConn) set(name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets[name] = value
	return nil
}

func (f *fakeConn) loadFile(src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, src)
	return nil
}

func (f *fakeConn) quit() error { return nil }

func (f *fakeConn) put(name string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[name] = v
}

func (f *fakeConn) setValue(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[name]
}

type eventLog struct {
	mu  sync.Mutex
	evs []native.Event
}

func (l *eventLog) handle(ev native.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evs = append(l.evs, ev)
}

func (l *eventLog) types() []native.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]native.EventType, 0, len(l.evs))
	for _, ev := range l.evs {
		out = append(out, ev.Type)
	}
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evs = nil
}

func newTestElement(t *testing.T, c *fakeConn) (*Element, *clocktest.Fake, *eventLog, *int) {
	t.Helper()
	clk := clocktest.New()
	stops := 0
	e := New(Options{PollInterval: 100 * time.Millisecond},
		WithClock(clk),
		withLauncher(func(ctx context.Context) (*session, error) {
			return &session{conn: c, stop: func() { stops++ }}, nil
		}),
	)
	log := &eventLog{}
	e.SetEventHandler(log.handle)
	return e, clk, log, &stops
}

func TestElementLoadAndTransport(t *testing.T) {
	c := newFakeConn()
	e, clk, log, _ := newTestElement(t, c)
	defer e.Release()

	require.NoError(t, e.Load("https://cdn.example.com/a.mp4"))
	assert.Equal(t, []string{"https://cdn.example.com/a.mp4"}, c.loads)
	assert.Equal(t, true, c.setValue("pause"))

	clk.Advance(100 * time.Millisecond)
	assert.Empty(t, log.types())

	c.put("duration", 600.0)
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, []native.EventType{native.EventLoadedMetadata, native.EventCanPlay}, log.types())
	assert.Equal(t, native.HaveEnoughData, e.ReadyState())
	log.reset()

	c.put("pause", false)
	c.put("time-pos", 1.5)
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, []native.EventType{native.EventPlaying, native.EventTimeUpdate}, log.types())
	assert.Equal(t, 1.5, e.CurrentTime())
	log.reset()

	c.put("paused-for-cache", true)
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, []native.EventType{native.EventWaiting}, log.types())
	assert.Equal(t, native.HaveCurrentData, e.ReadyState())
	log.reset()

	c.put("paused-for-cache", false)
	c.put("speed", 2.0)
	c.put("eof-reached", true)
	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, []native.EventType{native.EventCanPlay, native.EventRateChange, native.EventEnded}, log.types())

	assert.Equal(t, 1, clk.Pending(), "poll timer is re-armed, never stacked")
}

func TestElementUnopenableSource(t *testing.T) {
	c := newFakeConn()
	c.put("idle-active", true)
	e, clk, log, _ := newTestElement(t, c)
	defer e.Release()

	require.NoError(t, e.Load("https://cdn.example.com/missing.mp4"))
	clk.Advance(time.Second)

	require.Equal(t, []native.EventType{native.EventError}, log.types())
	assert.Equal(t, playerr.KindSourceUnsupported, log.evs[0].ErrorKind)
	assert.Equal(t, 0, clk.Pending())
}

func TestElementIPCFailure(t *testing.T) {
	c := newFakeConn()
	e, clk, log, _ := newTestElement(t, c)
	defer e.Release()

	require.NoError(t, e.Load("src"))
	c.mu.Lock()
	c.fail = true
	c.mu.Unlock()
	clk.Advance(100 * time.Millisecond)

	require.Len(t, log.evs, 1)
	assert.Equal(t, playerr.KindNetwork, log.evs[0].ErrorKind)
	assert.ErrorIs(t, log.evs[0].Err, errIPCUnresponsive)
}

func TestElementSeekEmitsSeeking(t *testing.T) {
	c := newFakeConn()
	e, _, log, _ := newTestElement(t, c)
	defer e.Release()

	require.NoError(t, e.Load("src"))
	require.NoError(t, e.Seek(120))
	assert.Equal(t, 120.0, c.setValue("time-pos"))
	assert.Equal(t, []native.EventType{native.EventSeeking}, log.types())
	assert.Equal(t, 120.0, e.CurrentTime())
}

func TestElementSettersAndChapters(t *testing.T) {
	c := newFakeConn()
	e, _, _, _ := newTestElement(t, c)
	defer e.Release()

	assert.Error(t, e.Play(), "no session before the first load")

	require.NoError(t, e.Load("src"))
	require.NoError(t, e.SetVolume(130))
	require.NoError(t, e.SetMuted(true))
	require.NoError(t, e.SetPlaybackRate(1.25))
	require.NoError(t, e.SetChapters([]player.Chapter{{Title: "Intro", Time: 0}, {Title: "Main", Time: 90}}))

	assert.Equal(t, 100.0, c.setValue("volume"))
	assert.Equal(t, true, c.setValue("mute"))
	assert.Equal(t, 1.25, c.setValue("speed"))
	chapters, ok := c.setValue("chapter-list").([]map[string]any)
	require.True(t, ok)
	assert.Len(t, chapters, 2)
	assert.Equal(t, 90.0, chapters[1]["time"])
}

func TestElementReleaseStopsPolling(t *testing.T) {
	c := newFakeConn()
	e, clk, log, stops := newTestElement(t, c)

	require.NoError(t, e.Load("src"))
	assert.Equal(t, 1, clk.Pending())

	require.NoError(t, e.Release())
	require.NoError(t, e.Release())
	assert.Equal(t, 0, clk.Pending())
	assert.Equal(t, 1, *stops)

	c.put("duration", 10.0)
	clk.Advance(time.Second)
	assert.Empty(t, log.types())
	assert.ErrorIs(t, e.Load("src"), playerr.ErrClosed)
}

func TestElementReloadResetsMetadata(t *testing.T) {
	c := newFakeConn()
	c.put("duration", 600.0)
	e, clk, log, _ := newTestElement(t, c)
	defer e.Release()

	require.NoError(t, e.Load("src"))
	clk.Advance(100 * time.Millisecond)
	require.NoError(t, e.Load("src"))
	clk.Advance(100 * time.Millisecond)

	assert.Equal(t, []native.EventType{
		native.EventLoadedMetadata, native.EventCanPlay,
		native.EventLoadedMetadata, native.EventCanPlay,
	}, log.types())
	assert.Equal(t, 1, clk.Pending())
}

func TestElementProcessExit(t *testing.T) {
	c := newFakeConn()
	exited := make(chan error, 1)
	got := make(chan native.Event, 1)
	e := New(Options{}, WithClock(clocktest.New()), withLauncher(func(ctx context.Context) (*session, error) {
		return &session{conn: c, exited: exited, stop: func() {}}, nil
	}))
	e.SetEventHandler(func(ev native.Event) { got <- ev })
	defer e.Release()

	require.NoError(t, e.Load("src"))
	exited <- errors.New("signal: killed")

	select {
	case ev := <-got:
		assert.Equal(t, native.EventError, ev.Type)
		assert.Equal(t, playerr.KindAborted, ev.ErrorKind)
	case <-time.After(2 * time.Second):
		t.Fatal("no error event after process exit")
	}
}
