// Package dub keeps a dubbed audio track in step with the primary video.
//
// The secondary stream is a best-effort mirror: transport changes of the
// primary are replicated as they happen and every primary time update
// reconciles any drift beyond the tolerance with a single seek.
package dub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/justchokingaround/playcore/internal/metrics"
	"github.com/justchokingaround/playcore/internal/player/native"
	"github.com/justchokingaround/playcore/internal/playerr"
)

const (
	DefaultDriftTolerance = 0.3
	DefaultDuckVolume     = 10
)

// Primary is the transport of the video the track follows. native.Adapter
// satisfies it.
type Primary interface {
	CurrentTime() float64
	PlaybackRate() float64
	Playing() bool
	Volume() int
	SetVolume(volume int) error
}

// TrackResolver turns a track id into a streamable URL.
type TrackResolver interface {
	ResolveTrackStreamURL(ctx context.Context, trackID string) (string, error)
}

// ElementFactory creates the secondary audio element.
type ElementFactory func() native.Element

// SyncState is a snapshot of the synchronizer.
type SyncState struct {
	DriftTolerance float64 `json:"drift_tolerance"`
	Attached       bool    `json:"attached"`
	TrackID        string  `json:"track_id,omitempty"`
	Corrections    int     `json:"corrections"`
}

// Synchronizer drives a secondary audio element from a primary's transport.
type Synchronizer struct {
	primary    Primary
	resolver   TrackResolver
	newElement ElementFactory
	tolerance  float64
	duck       int
	logger     *slog.Logger
	onLost     func(Track, error)

	mu          sync.Mutex
	gen         uint64
	el          native.Element
	track       Track
	attached    bool
	ready       bool
	restore     int
	corrections int
	closed      bool
}

type Option func(*Synchronizer)

func WithDriftTolerance(seconds float64) Option {
	return func(s *Synchronizer) {
		if seconds > 0 {
			s.tolerance = seconds
		}
	}
}

func WithDuckVolume(volume int) Option {
	return func(s *Synchronizer) {
		if volume >= 0 && volume <= 100 {
			s.duck = volume
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOnLost registers a callback for tracks dropped after a successful
// attach because the secondary stream failed.
func WithOnLost(fn func(Track, error)) Option {
	return func(s *Synchronizer) {
		s.onLost = fn
	}
}

// New returns a detached synchronizer over primary.
func New(primary Primary, resolver TrackResolver, newElement ElementFactory, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		primary:    primary,
		resolver:   resolver,
		newElement: newElement,
		tolerance:  DefaultDriftTolerance,
		duck:       DefaultDuckVolume,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach resolves track and starts mirroring the primary. A previously
// attached track is detached first. Any failure leaves the primary audio
// untouched and returns an error wrapping ErrDubAudioUnavailable.
func (s *Synchronizer) Attach(ctx context.Context, track Track) error {
	if !track.Selectable() {
		return fmt.Errorf("%w: track %s is %q", playerr.ErrDubAudioUnavailable, track.ID, track.Status)
	}
	if s.resolver == nil || s.newElement == nil {
		return fmt.Errorf("%w: no track resolver", playerr.ErrDubAudioUnavailable)
	}
	s.Detach()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return playerr.ErrClosed
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	url, err := s.resolver.ResolveTrackStreamURL(ctx, track.ID)
	if err == nil && url == "" {
		err = errors.New("empty stream url")
	}
	if err != nil {
		metrics.RecordDubAttach(false)
		s.logger.Warn("dubbed track unavailable", "track", track.ID, "error", err)
		return fmt.Errorf("%w: %v", playerr.ErrDubAudioUnavailable, err)
	}

	el := s.newElement()
	restore := s.primary.Volume()

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		_ = el.Release()
		return playerr.ErrSuperseded
	}
	s.el = el
	s.track = track
	s.attached = true
	s.ready = false
	s.restore = restore
	s.corrections = 0
	s.mu.Unlock()

	el.SetEventHandler(func(ev native.Event) { s.handle(gen, ev) })
	if err := el.SetVolume(restore); err != nil {
		s.logger.Debug("set dub volume", "error", err)
	}
	if err := el.Load(url); err != nil {
		s.Detach()
		metrics.RecordDubAttach(false)
		return fmt.Errorf("%w: load: %v", playerr.ErrDubAudioUnavailable, err)
	}

	duck := min(s.duck, restore)
	if err := s.primary.SetVolume(duck); err != nil {
		s.logger.Debug("duck primary", "error", err)
	}
	metrics.RecordDubAttach(true)
	s.logger.Info("dubbed track attached", "track", track.ID, "language", track.LanguageCode)
	return nil
}

// handle consumes secondary element events.
func (s *Synchronizer) handle(gen uint64, ev native.Event) {
	switch ev.Type {
	case native.EventLoadedMetadata:
		s.mu.Lock()
		if s.gen != gen || !s.attached {
			s.mu.Unlock()
			return
		}
		s.ready = true
		el := s.el
		s.mu.Unlock()
		s.align(el)
	case native.EventError:
		s.mu.Lock()
		if s.gen != gen || !s.attached {
			s.mu.Unlock()
			return
		}
		track := s.track
		s.mu.Unlock()

		s.logger.Warn("dubbed track lost", "track", track.ID, "error", ev.Err)
		s.Detach()
		if s.onLost != nil {
			s.onLost(track, fmt.Errorf("%w: %v", playerr.ErrDubAudioUnavailable, ev.Err))
		}
	}
}

// align snaps the secondary to the primary's full transport state.
func (s *Synchronizer) align(el native.Element) {
	_ = el.SetPlaybackRate(s.primary.PlaybackRate())
	_ = el.Seek(s.primary.CurrentTime())
	if s.primary.Playing() {
		_ = el.Play()
	} else {
		_ = el.Pause()
	}
}

// active returns the element when the secondary can take commands.
func (s *Synchronizer) active() native.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached || !s.ready {
		return nil
	}
	return s.el
}

// PlayStateChanged mirrors primary play and pause.
func (s *Synchronizer) PlayStateChanged(playing bool) {
	el := s.active()
	if el == nil {
		return
	}
	if playing {
		_ = el.Play()
	} else {
		_ = el.Pause()
	}
}

// Seeking snaps the secondary to the primary's seek target.
func (s *Synchronizer) Seeking(t float64) {
	if el := s.active(); el != nil {
		_ = el.Seek(t)
	}
}

// RateChange mirrors the primary playback rate.
func (s *Synchronizer) RateChange(rate float64) {
	if el := s.active(); el != nil && rate > 0 {
		_ = el.SetPlaybackRate(rate)
	}
}

// TimeUpdate corrects the secondary when it drifted past the tolerance.
func (s *Synchronizer) TimeUpdate(t float64) {
	el := s.active()
	if el == nil {
		return
	}
	if math.Abs(el.CurrentTime()-t) <= s.tolerance {
		return
	}
	s.mu.Lock()
	s.corrections++
	s.mu.Unlock()
	_ = el.Seek(t)
}

// SetVolume changes the listening volume while a track is attached: it is
// applied to the secondary and becomes the primary's restore value.
func (s *Synchronizer) SetVolume(volume int) bool {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return false
	}
	s.restore = volume
	el := s.el
	s.mu.Unlock()

	_ = el.SetVolume(volume)
	_ = s.primary.SetVolume(min(s.duck, volume))
	return true
}

// Detach stops the secondary and restores the primary's volume to its
// pre-attach value. It also cancels an attach still resolving. Detach is
// idempotent.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	s.gen++
	if !s.attached {
		s.mu.Unlock()
		return
	}
	el, restore, track := s.el, s.restore, s.track
	s.el = nil
	s.track = Track{}
	s.attached = false
	s.ready = false
	s.mu.Unlock()

	el.SetEventHandler(nil)
	if err := el.Release(); err != nil {
		s.logger.Debug("release dub element", "error", err)
	}
	if err := s.primary.SetVolume(restore); err != nil {
		s.logger.Debug("restore primary volume", "error", err)
	}
	s.logger.Info("dubbed track detached", "track", track.ID)
}

// Close detaches and refuses further attaches.
func (s *Synchronizer) Close() {
	s.Detach()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Attached reports whether a track is attached.
func (s *Synchronizer) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

func (s *Synchronizer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncState{
		DriftTolerance: s.tolerance,
		Attached:       s.attached,
		TrackID:        s.track.ID,
		Corrections:    s.corrections,
	}
}
