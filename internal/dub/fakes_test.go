package dub

import (
	"context"
	"sync"

	"github.com/justchokingaround/playcore/internal/player/native"
)

type fakePrimary struct {
	mu      sync.Mutex
	time    float64
	rate    float64
	playing bool
	volume  int
	volumes []int
}

func newFakePrimary() *fakePrimary {
	return &fakePrimary{rate: 1, volume: 80}
}

func (p *fakePrimary) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time
}

func (p *fakePrimary) PlaybackRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

func (p *fakePrimary) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePrimary) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *fakePrimary) SetVolume(v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	p.volumes = append(p.volumes, v)
	return nil
}

type fakeAudio struct {
	mu       sync.Mutex
	handler  func(native.Event)
	src      string
	pos      float64
	playing  bool
	rate     float64
	volume   int
	seeks    []float64
	released int
	loadErr  error
}

func (f *fakeAudio) SetEventHandler(h func(native.Event)) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeAudio) emit(ev native.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeAudio) Load(src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = src
	return f.loadErr
}

func (f *fakeAudio) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	return nil
}

func (f *fakeAudio) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

func (f *fakeAudio) Seek(t float64) error {
	f.mu.Lock()
	f.pos = t
	f.seeks = append(f.seeks, t)
	f.mu.Unlock()
	f.emit(native.Event{Type: native.EventSeeking, Time: t})
	return nil
}

func (f *fakeAudio) SetVolume(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return nil
}

func (f *fakeAudio) SetMuted(bool) error { return nil }

func (f *fakeAudio) SetPlaybackRate(r float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = r
	return nil
}

func (f *fakeAudio) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeAudio) ReadyState() native.ReadyState { return native.HaveEnoughData }

func (f *fakeAudio) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func (f *fakeAudio) setPos(t float64) {
	f.mu.Lock()
	f.pos = t
	f.mu.Unlock()
}

func (f *fakeAudio) snapshot() fakeAudio {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeAudio{
		src:      f.src,
		pos:      f.pos,
		playing:  f.playing,
		rate:     f.rate,
		volume:   f.volume,
		seeks:    append([]float64(nil), f.seeks...),
		released: f.released,
	}
}

type stubResolver struct {
	url   string
	err   error
	block chan struct{}
	calls int
}

func (r *stubResolver) ResolveTrackStreamURL(ctx context.Context, trackID string) (string, error) {
	r.calls++
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.url, r.err
}
