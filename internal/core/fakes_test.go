package core

import (
	"context"
	"sync"

	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/player/embed"
	"github.com/justchokingaround/playcore/internal/player/native"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/skip"
	"github.com/justchokingaround/playcore/internal/source"
)

// journal records lifecycle calls across elements in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.entries = append(j.entries, s)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeElement struct {
	name     string
	journal  *journal
	mu       sync.Mutex
	handler  func(native.Event)
	loads    []string
	seeks    []float64
	volumes  []int
	rates    []float64
	chapters []player.Chapter
	plays    int
	pos      float64
	released int
}

func (f *fakeElement) SetEventHandler(h func(native.Event)) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeElement) emit(ev native.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeElement) Load(src string) error {
	f.mu.Lock()
	f.loads = append(f.loads, src)
	f.pos = 0
	f.mu.Unlock()
	if f.journal != nil {
		f.journal.add("load " + f.name)
	}
	return nil
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeElement) Pause() error { return nil }

func (f *fakeElement) Seek(t float64) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, t)
	f.pos = t
	f.mu.Unlock()
	f.emit(native.Event{Type: native.EventSeeking, Time: t})
	return nil
}

func (f *fakeElement) SetVolume(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, v)
	return nil
}

func (f *fakeElement) SetMuted(bool) error { return nil }

func (f *fakeElement) SetPlaybackRate(r float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = append(f.rates, r)
	return nil
}

func (f *fakeElement) SetChapters(ch []player.Chapter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapters = ch
	return nil
}

func (f *fakeElement) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeElement) ReadyState() native.ReadyState { return native.HaveEnoughData }

func (f *fakeElement) Release() error {
	f.mu.Lock()
	f.released++
	f.mu.Unlock()
	if f.journal != nil {
		f.journal.add("release " + f.name)
	}
	return nil
}

func (f *fakeElement) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeElement) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *fakeElement) seekList() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.seeks...)
}

func (f *fakeElement) volumeList() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.volumes...)
}

// elements hands out fake elements and remembers which descriptor each was
// created for.
type elements struct {
	mu      sync.Mutex
	journal *journal
	created []*fakeElement
	descs   []source.Descriptor
}

func (e *elements) factory(d source.Descriptor) native.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	el := &fakeElement{name: d.Reference, journal: e.journal}
	e.created = append(e.created, el)
	e.descs = append(e.descs, d)
	return el
}

func (e *elements) audio() native.Element {
	return e.factory(source.Descriptor{Reference: "audio"})
}

func (e *elements) at(i int) *fakeElement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created[i]
}

func (e *elements) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.created)
}

type renderer struct {
	mu      sync.Mutex
	urls    []string
	err     error
	journal *journal
}

func (r *renderer) Render(_ context.Context, url string) error {
	if r.journal != nil {
		r.journal.add("render " + url)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	return r.err
}

func (r *renderer) rendered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

type blockingResolver struct {
	mu      sync.Mutex
	calls   []string
	started chan string
	release chan struct{}
	url     string
	err     error
}

func (r *blockingResolver) ResolveHostedURL(ctx context.Context, movieID string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, movieID)
	r.mu.Unlock()
	if r.started != nil {
		r.started <- movieID
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.url + movieID, r.err
}

func (r *blockingResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type trackResolver struct {
	err error
}

func (r trackResolver) ResolveTrackStreamURL(_ context.Context, id string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "https://cdn.example.com/dub/" + id + ".m4a", nil
}

type memoryPrefs struct {
	mu    sync.Mutex
	langs map[string]string
}

func (p *memoryPrefs) AudioLanguage(_ context.Context, movieID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.langs[movieID], nil
}

func (p *memoryPrefs) SetAudioLanguage(_ context.Context, movieID, lang string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.langs == nil {
		p.langs = map[string]string{}
	}
	p.langs[movieID] = lang
	return nil
}

type savedProgress map[string]float64

func (s savedProgress) LoadSavedProgress(_ context.Context, movieID string) (float64, bool, error) {
	v, ok := s[movieID]
	return v, ok, nil
}

type fakeYTPlayer struct{}

func (fakeYTPlayer) PlayVideo()                    {}
func (fakeYTPlayer) PauseVideo()                   {}
func (fakeYTPlayer) SeekTo(float64, bool)          {}
func (fakeYTPlayer) SetVolume(int)                 {}
func (fakeYTPlayer) Mute()                         {}
func (fakeYTPlayer) UnMute()                       {}
func (fakeYTPlayer) SetPlaybackRate(float64)       {}
func (fakeYTPlayer) GetCurrentTime() float64       { return 0 }
func (fakeYTPlayer) GetDuration() float64          { return 0 }
func (fakeYTPlayer) GetPlaybackRate() float64      { return 1 }
func (fakeYTPlayer) LoadVideoByID(string, float64) {}
func (fakeYTPlayer) Destroy()                      {}

type fakeYTSDK struct {
	mu  sync.Mutex
	ids []string
}

func (s *fakeYTSDK) NewPlayer(id string, _ embed.YouTubeHandlers) (embed.YouTubePlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return fakeYTPlayer{}, nil
}

func (s *fakeYTSDK) players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

type hostRecorder struct {
	mu        sync.Mutex
	outcomes  []playerr.Outcome
	errs      []error
	telemetry []Telemetry
	skips     []skip.Visibility
	tracks    []string
	sources   []source.Descriptor
	ended     int
}

func (h *hostRecorder) host() Host {
	return Host{
		OnOutcome: func(o playerr.Outcome, err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.outcomes = append(h.outcomes, o)
			h.errs = append(h.errs, err)
		},
		OnTelemetry: func(t Telemetry) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.telemetry = append(h.telemetry, t)
		},
		OnSkip: func(v skip.Visibility) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.skips = append(h.skips, v)
		},
		OnTrackChanged: func(id string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.tracks = append(h.tracks, id)
		},
		OnSource: func(d source.Descriptor) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.sources = append(h.sources, d)
		},
		OnEnded: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.ended++
		},
	}
}

func (h *hostRecorder) trackList() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.tracks...)
}

func (h *hostRecorder) sourceKinds() []source.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []source.Kind
	for _, d := range h.sources {
		out = append(out, d.Kind)
	}
	return out
}

func (h *hostRecorder) lastTelemetry() (Telemetry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.telemetry) == 0 {
		return Telemetry{}, false
	}
	return h.telemetry[len(h.telemetry)-1], true
}

func (h *hostRecorder) lastSkip() skip.Visibility {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.skips) == 0 {
		return skip.Visibility{}
	}
	return h.skips[len(h.skips)-1]
}
