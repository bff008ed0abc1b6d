package native

import (
	"sync"
)

type fakeElement struct {
	mu       sync.Mutex
	handler  func(Event)
	loads    []string
	seeks    []float64
	plays    int
	pauses   int
	volumes  []int
	rates    []float64
	pos      float64
	ready    ReadyState
	loadErr  error
	seekErr  error
	playErr  error
	released int
}

func (f *fakeElement) SetEventHandler(h func(Event)) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeElement) emit(ev Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeElement) Load(src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, src)
	f.pos = 0
	f.ready = HaveNothing
	return f.loadErr
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return f.playErr
}

func (f *fakeElement) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeElement) Seek(seconds float64) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, seconds)
	f.pos = seconds
	err := f.seekErr
	f.mu.Unlock()
	f.emit(Event{Type: EventSeeking, Time: seconds})
	return err
}

func (f *fakeElement) SetVolume(volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, volume)
	return nil
}

func (f *fakeElement) SetMuted(bool) error { return nil }

func (f *fakeElement) SetPlaybackRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = append(f.rates, rate)
	return nil
}

func (f *fakeElement) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeElement) ReadyState() ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeElement) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func (f *fakeElement) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeElement) lastSeek() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return 0, false
	}
	return f.seeks[len(f.seeks)-1], true
}

func (f *fakeElement) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}
