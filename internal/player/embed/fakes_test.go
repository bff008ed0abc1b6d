package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/justchokingaround/playcore/internal/httpclient"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/source"
)

type scriptServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
}

func newScriptServer(t *testing.T) *scriptServer {
	t.Helper()
	s := &scriptServer{}
	s.status.Store(http.StatusOK)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if code := int(s.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte("/* sdk " + r.URL.Path + " */"))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *scriptServer) loader(t *testing.T) *Loader {
	t.Helper()
	client := httpclient.New(httpclient.Config{MaxRetries: 0})
	t.Cleanup(func() { client.Resty().GetClient().CloseIdleConnections() })
	return NewLoader(client, WithScripts(map[source.Platform]string{
		source.PlatformYouTube: s.URL + "/iframe_api",
		source.PlatformVimeo:   s.URL + "/player.js",
	}))
}

type recorder struct {
	mu        sync.Mutex
	times     []float64
	durations []float64
	playing   []bool
	buffering []bool
	seeks     []float64
	rates     []float64
	fatals    []error
	ended     int
}

func (r *recorder) events() player.Events {
	return player.Events{
		OnTimeUpdate:       func(t float64) { r.mu.Lock(); r.times = append(r.times, t); r.mu.Unlock() },
		OnDurationKnown:    func(d float64) { r.mu.Lock(); r.durations = append(r.durations, d); r.mu.Unlock() },
		OnPlayStateChanged: func(p bool) { r.mu.Lock(); r.playing = append(r.playing, p); r.mu.Unlock() },
		OnBuffering:        func(b bool) { r.mu.Lock(); r.buffering = append(r.buffering, b); r.mu.Unlock() },
		OnSeeking:          func(t float64) { r.mu.Lock(); r.seeks = append(r.seeks, t); r.mu.Unlock() },
		OnRateChange:       func(x float64) { r.mu.Lock(); r.rates = append(r.rates, x); r.mu.Unlock() },
		OnFatalError:       func(err error) { r.mu.Lock(); r.fatals = append(r.fatals, err); r.mu.Unlock() },
		OnEnded:            func() { r.mu.Lock(); r.ended++; r.mu.Unlock() },
	}
}

func (r *recorder) fatalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fatals)
}

type fakeYTPlayer struct {
	mu        sync.Mutex
	time      float64
	duration  float64
	rate      float64
	plays     int
	pauses    int
	seeks     []float64
	volume    int
	muted     bool
	reloads   []float64
	destroyed int
}

func (p *fakeYTPlayer) PlayVideo()  { p.mu.Lock(); p.plays++; p.mu.Unlock() }
func (p *fakeYTPlayer) PauseVideo() { p.mu.Lock(); p.pauses++; p.mu.Unlock() }
func (p *fakeYTPlayer) SeekTo(s float64, _ bool) {
	p.mu.Lock()
	p.seeks = append(p.seeks, s)
	p.time = s
	p.mu.Unlock()
}
func (p *fakeYTPlayer) SetVolume(v int)           { p.mu.Lock(); p.volume = v; p.mu.Unlock() }
func (p *fakeYTPlayer) Mute()                     { p.mu.Lock(); p.muted = true; p.mu.Unlock() }
func (p *fakeYTPlayer) UnMute()                   { p.mu.Lock(); p.muted = false; p.mu.Unlock() }
func (p *fakeYTPlayer) SetPlaybackRate(r float64) { p.mu.Lock(); p.rate = r; p.mu.Unlock() }
func (p *fakeYTPlayer) GetCurrentTime() float64   { p.mu.Lock(); defer p.mu.Unlock(); return p.time }
func (p *fakeYTPlayer) GetDuration() float64      { p.mu.Lock(); defer p.mu.Unlock(); return p.duration }
func (p *fakeYTPlayer) GetPlaybackRate() float64  { p.mu.Lock(); defer p.mu.Unlock(); return p.rate }
func (p *fakeYTPlayer) LoadVideoByID(_ string, start float64) {
	p.mu.Lock()
	p.reloads = append(p.reloads, start)
	p.mu.Unlock()
}
func (p *fakeYTPlayer) Destroy() { p.mu.Lock(); p.destroyed++; p.mu.Unlock() }

func (p *fakeYTPlayer) set(t, d float64) {
	p.mu.Lock()
	p.time, p.duration = t, d
	p.mu.Unlock()
}

type fakeYTSDK struct {
	mu        sync.Mutex
	created   int
	readySync bool
	player    *fakeYTPlayer
	handlers  YouTubeHandlers
}

func newFakeYTSDK() *fakeYTSDK {
	return &fakeYTSDK{player: &fakeYTPlayer{rate: 1, duration: 300}}
}

func (s *fakeYTSDK) NewPlayer(videoID string, h YouTubeHandlers) (YouTubePlayer, error) {
	s.mu.Lock()
	s.created++
	s.handlers = h
	readyNow := s.readySync
	s.mu.Unlock()
	if readyNow {
		h.OnReady()
	}
	return s.player, nil
}

func (s *fakeYTSDK) h() YouTubeHandlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers
}

func (s *fakeYTSDK) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

type fakeVimeoPlayer struct {
	mu        sync.Mutex
	handlers  map[string]func(VimeoEvent)
	time      float64
	duration  float64
	timeErr   error
	readyErr  error
	readyGate chan struct{}
	plays     int
	loads     int
	loadErr   error
	seeks     []float64
	volume    float64
	destroyed int
}

func newFakeVimeoPlayer() *fakeVimeoPlayer {
	return &fakeVimeoPlayer{handlers: map[string]func(VimeoEvent){}, duration: 420}
}

func (p *fakeVimeoPlayer) Ready(ctx context.Context) error {
	p.mu.Lock()
	gate, err := p.readyGate, p.readyErr
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (p *fakeVimeoPlayer) Play(context.Context) error {
	p.mu.Lock()
	p.plays++
	p.mu.Unlock()
	return nil
}
func (p *fakeVimeoPlayer) Pause(context.Context) error { return nil }
func (p *fakeVimeoPlayer) SetCurrentTime(_ context.Context, s float64) error {
	p.mu.Lock()
	p.seeks = append(p.seeks, s)
	p.time = s
	p.mu.Unlock()
	return nil
}
func (p *fakeVimeoPlayer) SetVolume(_ context.Context, v float64) error {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	return nil
}
func (p *fakeVimeoPlayer) SetMuted(context.Context, bool) error           { return nil }
func (p *fakeVimeoPlayer) SetPlaybackRate(context.Context, float64) error { return nil }
func (p *fakeVimeoPlayer) GetCurrentTime(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time, p.timeErr
}
func (p *fakeVimeoPlayer) GetDuration(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, nil
}
func (p *fakeVimeoPlayer) GetPaused(context.Context) (bool, error) { return false, nil }
func (p *fakeVimeoPlayer) LoadVideo(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	return p.loadErr
}
func (p *fakeVimeoPlayer) On(event string, fn func(VimeoEvent)) {
	p.mu.Lock()
	p.handlers[event] = fn
	p.mu.Unlock()
}
func (p *fakeVimeoPlayer) Destroy(context.Context) error {
	p.mu.Lock()
	p.destroyed++
	p.mu.Unlock()
	return nil
}

func (p *fakeVimeoPlayer) fire(event string, ev VimeoEvent) {
	p.mu.Lock()
	fn := p.handlers[event]
	p.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

type fakeVimeoSDK struct {
	mu      sync.Mutex
	created int
	player  *fakeVimeoPlayer
}

func (s *fakeVimeoSDK) NewPlayer(string) (VimeoPlayer, error) {
	s.mu.Lock()
	s.created++
	s.mu.Unlock()
	return s.player, nil
}
