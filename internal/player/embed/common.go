package embed

import (
	"log/slog"
	"sync"
	"time"

	"github.com/justchokingaround/playcore/internal/clock"
	"github.com/justchokingaround/playcore/internal/player"
)

// DefaultPollInterval is the time-sync cadence of controllable embeds.
const DefaultPollInterval = 500 * time.Millisecond

type config struct {
	clk        clock.Clock
	logger     *slog.Logger
	loader     *Loader
	interval   time.Duration
	mobile     bool
	initialPos float64
}

// Option configures an embedded adapter.
type Option func(*config)

func WithClock(c clock.Clock) Option {
	return func(cfg *config) { cfg.clk = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithLoader overrides the process-wide SDK loader.
func WithLoader(l *Loader) Option {
	return func(cfg *config) { cfg.loader = l }
}

func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.interval = d
		}
	}
}

// WithMobile gates SDK initialisation behind Tap.
func WithMobile(mobile bool) Option {
	return func(cfg *config) { cfg.mobile = mobile }
}

// WithInitialPosition seeks once when the player becomes ready.
func WithInitialPosition(seconds float64) Option {
	return func(cfg *config) {
		if seconds > 0 {
			cfg.initialPos = seconds
		}
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		clk:      clock.Real{},
		logger:   slog.Default(),
		interval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.loader == nil {
		cfg.loader = SharedLoader()
	}
	return cfg
}

// base is the state shared by the controllable embed adapters. All fields
// are guarded by mu; platform calls are made with mu released.
type base struct {
	mu     sync.Mutex
	cfg    config
	events player.Events

	status   player.Status
	started  bool
	tapped   bool
	closed   bool
	reloaded bool
	initDone bool
	gen      uint64
	poll     clock.Timer

	currentTime float64
	duration    float64
	rate        float64
	playing     bool
	buffering   bool
	lastErr     error

	wantPlaying    bool
	volume         int
	muted          bool
	initialPos     float64
	initialApplied bool
}

func newBase(events player.Events, opts []Option) base {
	cfg := newConfig(opts)
	return base{
		cfg:        cfg,
		events:     events,
		status:     player.StatusIdle,
		rate:       1,
		volume:     -1,
		initialPos: cfg.initialPos,
	}
}

// gateLocked marks the adapter started and reports whether initialisation may
// proceed now. On mobile it waits for a tap.
func (b *base) gateLocked() bool {
	b.started = true
	if b.cfg.mobile && !b.tapped {
		b.status = player.StatusAwaitingTap
		return false
	}
	b.status = player.StatusLoading
	return true
}

// tapLocked records a user gesture and reports whether initialisation should
// run now.
func (b *base) tapLocked() bool {
	if b.tapped {
		return false
	}
	b.tapped = true
	if b.status == player.StatusAwaitingTap {
		b.status = player.StatusLoading
		return true
	}
	return false
}

// claimInitLocked makes initialisation run at most once.
func (b *base) claimInitLocked() bool {
	if b.initDone || b.closed {
		return false
	}
	b.initDone = true
	return true
}

// armLocked schedules one poll. The timer is never stacked.
func (b *base) armLocked(tick func(gen uint64)) {
	b.poll = clock.Stop(b.poll)
	gen := b.gen
	b.poll = b.cfg.clk.AfterFunc(b.cfg.interval, func() { tick(gen) })
}

// pollLiveLocked reports whether a poll scheduled for gen should run.
func (b *base) pollLiveLocked(gen uint64) bool {
	return !b.closed && gen == b.gen && b.status != player.StatusFailed
}

// observeLocked merges a poll result and returns the events to emit.
func (b *base) observeLocked(t, d, rate float64) []func() {
	var fx []func()
	events := b.events
	if d > 0 && d != b.duration {
		b.duration = d
		fx = append(fx, func() { events.DurationKnown(d) })
	}
	if t != b.currentTime {
		b.currentTime = t
		fx = append(fx, func() { events.TimeUpdate(t) })
	}
	if rate > 0 && rate != b.rate {
		b.rate = rate
		fx = append(fx, func() { events.RateChange(rate) })
	}
	return fx
}

// setPlayingLocked records a settled play state. Playing, paused and ended
// all end a buffering episode.
func (b *base) setPlayingLocked(playing bool) []func() {
	var fx []func()
	events := b.events
	if b.buffering {
		b.buffering = false
		fx = append(fx, func() { events.Buffering(false) })
	}
	if b.playing != playing {
		b.playing = playing
		fx = append(fx, func() { events.PlayStateChanged(playing) })
	}
	return fx
}

func (b *base) setBufferingLocked(buffering bool) []func() {
	if b.buffering == buffering {
		return nil
	}
	b.buffering = buffering
	events := b.events
	return []func(){func() { events.Buffering(buffering) }}
}

// failLocked moves the adapter to the terminal failed state.
func (b *base) failLocked(err error) []func() {
	b.status = player.StatusFailed
	b.lastErr = err
	b.poll = clock.Stop(b.poll)
	fx := b.setBufferingLocked(false)
	fx = append(fx, b.setPlayingLocked(false)...)
	events := b.events
	return append(fx, func() { events.FatalError(err) })
}

// closeLocked marks the adapter closed and clears its timer. It reports
// false if it was already closed.
func (b *base) closeLocked() bool {
	if b.closed {
		return false
	}
	b.closed = true
	b.gen++
	b.poll = clock.Stop(b.poll)
	b.status = player.StatusClosed
	b.playing = false
	return true
}

func (b *base) stateLocked() player.State {
	retries := 0
	if b.reloaded {
		retries = 1
	}
	return player.State{
		Status:      b.status,
		CurrentTime: b.currentTime,
		Duration:    b.duration,
		Playing:     b.playing,
		Buffering:   b.buffering,
		LastError:   b.lastErr,
		RetryCount:  retries,
		Telemetry:   true,
	}
}

// takeInitialLocked returns the pending initial position once.
func (b *base) takeInitialLocked() float64 {
	if b.initialApplied {
		return 0
	}
	b.initialApplied = true
	return b.initialPos
}

func run(fx []func()) {
	for _, f := range fx {
		f()
	}
}
