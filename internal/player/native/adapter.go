package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/justchokingaround/playcore/internal/clock"
	"github.com/justchokingaround/playcore/internal/metrics"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
)

var errStallLimit = errors.New("stall recovery limit reached")

type recovery int

const (
	recoveryNone recovery = iota
	recoveryStall
	recoveryRetry
)

// Adapter drives one Element for one source URL.
type Adapter struct {
	mu     sync.Mutex
	el     Element
	src    string
	events player.Events
	clk    clock.Clock
	logger *slog.Logger

	retry      *RetryPolicy
	stalls     *StallGuard
	stallGrace time.Duration

	status      player.Status
	currentTime float64
	duration    float64
	playing     bool
	buffering   bool
	lastErr     error
	volume      int
	muted       bool
	rate        float64
	wantPlaying bool

	initialPos     float64
	initialApplied bool

	mode       recovery
	snapshot   float64
	resumePlay bool

	// seq invalidates timers that fired after being superseded.
	seq        uint64
	retryTimer clock.Timer
	stallTimer clock.Timer

	started bool
	closed  bool
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithClock(c clock.Clock) Option {
	return func(a *Adapter) { a.clk = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithInitialPosition seeks to seconds once, on the first metadata load, if
// nothing else moved the element in the meantime.
func WithInitialPosition(seconds float64) Option {
	return func(a *Adapter) {
		if seconds > 0 {
			a.initialPos = seconds
		}
	}
}

func WithRetryPolicy(maxRetries int, step time.Duration) Option {
	return func(a *Adapter) { a.retry = NewRetryPolicy(maxRetries, step) }
}

func WithStallGrace(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.stallGrace = d
		}
	}
}

// WithStallCap bounds stall recoveries to cap per window.
func WithStallCap(cap int, window time.Duration) Option {
	return func(a *Adapter) { a.stalls = NewStallGuard(cap, window) }
}

// WithVolume sets the volume applied on every (re)load.
func WithVolume(volume int) Option {
	return func(a *Adapter) { a.volume = player.ClampVolume(volume) }
}

// New returns an adapter for src over el. Nothing is loaded until Start.
func New(el Element, src string, events player.Events, opts ...Option) *Adapter {
	a := &Adapter{
		el:         el,
		src:        src,
		events:     events,
		clk:        clock.Real{},
		logger:     slog.Default(),
		retry:      NewRetryPolicy(DefaultMaxRetries, DefaultRetryStep),
		stalls:     NewStallGuard(DefaultStallCap, DefaultStallWindow),
		stallGrace: DefaultStallGrace,
		status:     player.StatusIdle,
		volume:     100,
		rate:       1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start registers the event handler and loads the source.
func (a *Adapter) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return playerr.ErrClosed
	}
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.status = player.StatusLoading
	a.mu.Unlock()

	a.logger.Debug("loading native source", "src", a.src)
	a.el.SetEventHandler(a.handle)
	a.load()
	return nil
}

// load reloads the element and routes a synchronous failure into the retry
// machine.
func (a *Adapter) load() {
	if err := a.el.Load(a.src); err != nil {
		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return
		}
		fx := a.failLocked(kindFor(err), err)
		a.mu.Unlock()
		run(fx)
	}
}

func kindFor(err error) playerr.ErrorKind {
	if k := playerr.KindOf(err); k != playerr.KindUnknown {
		return k
	}
	return playerr.KindNetwork
}

func (a *Adapter) handle(ev Event) {
	var pos float64
	if ev.Type == EventLoadedMetadata {
		pos = a.el.CurrentTime()
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	fx := a.applyLocked(ev, pos)
	a.mu.Unlock()
	run(fx)
}

// applyLocked updates state for ev and returns the side effects to run once
// the lock is released.
func (a *Adapter) applyLocked(ev Event, elementPos float64) []func() {
	var fx []func()
	events := a.events

	switch ev.Type {
	case EventLoadedMetadata:
		if ev.Duration > 0 {
			a.duration = ev.Duration
			d := ev.Duration
			fx = append(fx, func() { events.DurationKnown(d) })
		}
		a.status = player.StatusReady
		fx = append(fx, a.restoreSettingsLocked()...)

		if a.mode != recoveryNone {
			pos, resume := a.snapshot, a.resumePlay
			a.logger.Info("native source reloaded", "src", a.src, "position", pos, "resume", resume)
			a.mode = recoveryNone
			a.currentTime = pos
			a.initialApplied = true
			if pos > 0 {
				fx = append(fx, a.seekEffect(pos))
			}
			if resume {
				fx = append(fx, a.playEffect())
			}
			if a.buffering {
				a.buffering = false
				fx = append(fx, func() { events.Buffering(false) })
			}
			return fx
		}

		if !a.initialApplied {
			a.initialApplied = true
			if a.initialPos > 0 && elementPos <= 0 {
				pos := a.initialPos
				a.currentTime = pos
				a.logger.Debug("resuming at saved position", "position", pos)
				fx = append(fx, a.seekEffect(pos))
			}
		}
		if a.wantPlaying {
			fx = append(fx, a.playEffect())
		}

	case EventTimeUpdate:
		if a.mode != recoveryNone {
			return nil
		}
		if ev.Time > a.currentTime && a.stallTimer != nil {
			a.stallTimer = clock.Stop(a.stallTimer)
			if a.buffering {
				a.buffering = false
				fx = append(fx, func() { events.Buffering(false) })
			}
		}
		a.currentTime = ev.Time
		t := ev.Time
		fx = append(fx, func() { events.TimeUpdate(t) })

	case EventPlaying:
		if a.mode != recoveryNone {
			return nil
		}
		a.stallTimer = clock.Stop(a.stallTimer)
		if a.buffering {
			a.buffering = false
			fx = append(fx, func() { events.Buffering(false) })
		}
		if !a.playing {
			a.playing = true
			fx = append(fx, func() { events.PlayStateChanged(true) })
		}

	case EventPause:
		if a.mode != recoveryNone {
			return nil
		}
		a.stallTimer = clock.Stop(a.stallTimer)
		if a.playing {
			a.playing = false
			fx = append(fx, func() { events.PlayStateChanged(false) })
		}

	case EventWaiting, EventStalled:
		if a.mode != recoveryNone {
			return nil
		}
		if !a.buffering {
			a.buffering = true
			fx = append(fx, func() { events.Buffering(true) })
		}
		if ev.Type == EventStalled {
			fx = append(fx, events.Stalled)
		}
		if a.stallTimer == nil && (a.playing || a.wantPlaying) {
			a.seq++
			seq := a.seq
			a.stallTimer = a.clk.AfterFunc(a.stallGrace, func() { a.onStallGrace(seq) })
		}

	case EventCanPlay:
		if a.mode != recoveryNone {
			return nil
		}
		a.stallTimer = clock.Stop(a.stallTimer)
		if a.buffering {
			a.buffering = false
			fx = append(fx, func() { events.Buffering(false) })
		}

	case EventSeeking:
		if a.mode != recoveryNone {
			return nil
		}
		a.currentTime = ev.Time
		t := ev.Time
		fx = append(fx, func() { events.Seeking(t) })

	case EventRateChange:
		if ev.Rate > 0 {
			a.rate = ev.Rate
		}
		r := a.rate
		fx = append(fx, func() { events.RateChange(r) })

	case EventEnded:
		a.stallTimer = clock.Stop(a.stallTimer)
		a.playing = false
		a.wantPlaying = false
		fx = append(fx, func() { events.PlayStateChanged(false) }, events.Ended)

	case EventError:
		kind := ev.ErrorKind
		if kind == playerr.KindUnknown && ev.Err != nil {
			kind = playerr.KindOf(ev.Err)
		}
		fx = append(fx, a.failLocked(kind, ev.Err)...)
	}
	return fx
}

// restoreSettingsLocked re-applies user settings a reload resets.
func (a *Adapter) restoreSettingsLocked() []func() {
	vol, muted, rate := a.volume, a.muted, a.rate
	fx := []func(){func() { _ = a.el.SetVolume(vol) }}
	if muted {
		fx = append(fx, func() { _ = a.el.SetMuted(true) })
	}
	if rate != 1 {
		fx = append(fx, func() { _ = a.el.SetPlaybackRate(rate) })
	}
	return fx
}

// failLocked feeds a fatal element error into the retry machine.
func (a *Adapter) failLocked(kind playerr.ErrorKind, err error) []func() {
	if a.status == player.StatusFailed {
		return nil
	}
	// A reload is already scheduled; one failure per attempt.
	if a.retryTimer != nil {
		return nil
	}
	a.stallTimer = clock.Stop(a.stallTimer)
	a.lastErr = playerr.Fatal(kind, err)
	events := a.events

	attempt, delay, ok := a.retry.Next()
	if !ok {
		a.status = player.StatusFailed
		a.mode = recoveryNone
		fatal := &playerr.PlaybackFatalError{Kind: kind, Exhausted: true, Err: err}
		a.lastErr = fatal
		a.logger.Warn("native source failed", "src", a.src, "kind", kind.String(), "retries", attempt, "error", err)
		var fx []func()
		if a.buffering {
			a.buffering = false
			fx = append(fx, func() { events.Buffering(false) })
		}
		if a.playing {
			a.playing = false
			fx = append(fx, func() { events.PlayStateChanged(false) })
		}
		return append(fx, func() { events.FatalError(fatal) })
	}

	if a.mode == recoveryNone {
		a.snapshot = a.resumePointLocked()
		a.resumePlay = a.playing || a.wantPlaying
	}
	a.mode = recoveryRetry
	a.status = player.StatusRecovering
	a.seq++
	seq := a.seq
	a.retryTimer = a.clk.AfterFunc(delay, func() { a.onRetry(seq) })
	metrics.RecordRetry(kind.String())
	a.logger.Info("retrying native source", "src", a.src, "kind", kind.String(), "attempt", attempt, "delay", delay)

	if !a.buffering {
		a.buffering = true
		return []func(){func() { events.Buffering(true) }}
	}
	return nil
}

// resumePointLocked is the position a reload returns to. Before the first
// metadata load that is still the initial position.
func (a *Adapter) resumePointLocked() float64 {
	if !a.initialApplied && a.initialPos > 0 && a.currentTime <= 0 {
		return a.initialPos
	}
	return a.currentTime
}

func (a *Adapter) seekEffect(pos float64) func() {
	return func() {
		if err := a.el.Seek(pos); err != nil {
			a.logger.Debug("seek after load", "src", a.src, "position", pos, "error", err)
		}
	}
}

func (a *Adapter) playEffect() func() {
	return func() {
		if err := a.el.Play(); err != nil {
			a.logger.Debug("resume after load", "src", a.src, "error", err)
		}
	}
}

func (a *Adapter) onRetry(seq uint64) {
	a.mu.Lock()
	if a.closed || seq != a.seq || a.retryTimer == nil {
		a.mu.Unlock()
		return
	}
	a.retryTimer = nil
	a.mu.Unlock()
	a.load()
}

func (a *Adapter) onStallGrace(seq uint64) {
	ready := a.el.ReadyState() >= HaveFutureData

	a.mu.Lock()
	if a.closed || seq != a.seq || a.stallTimer == nil {
		a.mu.Unlock()
		return
	}
	a.stallTimer = nil
	if ready || a.mode != recoveryNone {
		a.mu.Unlock()
		return
	}
	if !a.stalls.Allow(a.clk.Now()) {
		a.logger.Warn("stall recovery limit reached", "src", a.src, "cap", a.stalls.Cap, "window", a.stalls.Window)
		fx := a.failLocked(playerr.KindNetwork, fmt.Errorf("%w: %d in %s", errStallLimit, a.stalls.Cap, a.stalls.Window))
		a.mu.Unlock()
		run(fx)
		return
	}
	a.mode = recoveryStall
	a.status = player.StatusRecovering
	a.snapshot = a.resumePointLocked()
	a.resumePlay = a.playing || a.wantPlaying
	a.logger.Info("reloading stalled source", "src", a.src, "position", a.snapshot)
	a.mu.Unlock()

	metrics.RecordStallRecovery()
	a.load()
}

func (a *Adapter) Play() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return playerr.ErrClosed
	}
	a.wantPlaying = true
	if a.mode != recoveryNone || a.status != player.StatusReady {
		a.resumePlay = true
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()
	return a.el.Play()
}

func (a *Adapter) Pause() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return playerr.ErrClosed
	}
	a.wantPlaying = false
	if a.mode != recoveryNone {
		a.resumePlay = false
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()
	return a.el.Pause()
}

// Seek moves the element. During recovery the target replaces the snapshot
// restored after the reload.
func (a *Adapter) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return playerr.ErrClosed
	}
	if a.mode != recoveryNone {
		a.snapshot = seconds
		a.mu.Unlock()
		return nil
	}
	a.currentTime = seconds
	a.initialApplied = true
	a.mu.Unlock()
	return a.el.Seek(seconds)
}

func (a *Adapter) SetVolume(volume int) error {
	volume = player.ClampVolume(volume)
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return playerr.ErrClosed
	}
	a.volume = volume
	a.mu.Unlock()
	return a.el.SetVolume(volume)
}

func (a *Adapter) SetMuted(muted bool) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return playerr.ErrClosed
	}
	a.muted = muted
	a.mu.Unlock()
	return a.el.SetMuted(muted)
}

func (a *Adapter) SetPlaybackRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return playerr.ErrClosed
	}
	a.rate = rate
	a.mu.Unlock()
	return a.el.SetPlaybackRate(rate)
}

// CurrentTime returns the last known position.
func (a *Adapter) CurrentTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentTime
}

// PlaybackRate returns the last known rate.
func (a *Adapter) PlaybackRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rate
}

// Playing reports whether the element is playing.
func (a *Adapter) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// Volume returns the volume last applied by the caller.
func (a *Adapter) Volume() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume
}

func (a *Adapter) State() player.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return player.State{
		Status:      a.status,
		CurrentTime: a.currentTime,
		Duration:    a.duration,
		Playing:     a.playing,
		Buffering:   a.buffering,
		LastError:   a.lastErr,
		RetryCount:  a.retry.Attempts(),
		Telemetry:   true,
	}
}

// Close clears every pending timer and releases the element.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.seq++
	a.retryTimer = clock.Stop(a.retryTimer)
	a.stallTimer = clock.Stop(a.stallTimer)
	a.status = player.StatusClosed
	a.playing = false
	started := a.started
	a.mu.Unlock()

	if started {
		a.el.SetEventHandler(nil)
	}
	if err := a.el.Release(); err != nil {
		return fmt.Errorf("release element: %w", err)
	}
	return nil
}

func run(fx []func()) {
	for _, f := range fx {
		f()
	}
}

var (
	_ player.Adapter = (*Adapter)(nil)
)
