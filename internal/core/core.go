// Package core is the composition root of a playback session: it selects the
// source, runs the matching adapter, falls back once on fatal failure and
// attaches the skip and dubbed audio controllers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/metrics"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/player/embed"
	"github.com/justchokingaround/playcore/internal/player/native"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/skip"
	"github.com/justchokingaround/playcore/internal/source"
)

// ErrNotMounted is returned by controls before the first Mount.
var ErrNotMounted = errors.New("no movie mounted")

// generation scopes every async result and adapter event. The movie counter
// moves on mount and close, the attempt counter on every activation.
type generation struct {
	movie   uint64
	attempt int
}

// chapterSetter is implemented by elements that can show timeline markers.
type chapterSetter interface {
	SetChapters([]player.Chapter) error
}

// Core owns one playback session at a time.
type Core struct {
	cfg    Config
	policy *source.Policy
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	gen       generation
	closed    bool
	mounted   bool
	sessionID string
	movie     Movie
	fallback  *source.Fallback
	active    source.Descriptor
	adapter   player.Adapter
	nat       *native.Adapter
	element   native.Element
	sync      *dub.Synchronizer
	skip      *skip.Controller
	trackID   string
	outcome   playerr.Outcome
	lastErr   error
	time      float64
	duration  float64
	playing   bool
	volume    int
}

// New returns an idle core.
func New(cfg Config) *Core {
	cfg.setDefaults()
	policyOpts := []source.PolicyOption{source.WithLogger(cfg.Logger)}
	if cfg.Classifier != nil {
		policyOpts = append(policyOpts, source.WithClassifier(cfg.Classifier))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Core{
		cfg:     cfg,
		policy:  source.NewPolicy(cfg.AssetResolver, policyOpts...),
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		outcome: playerr.OutcomeRecovering,
		volume:  cfg.Volume,
	}
}

// activation is an adapter created under the lock and started after it.
type activation struct {
	gen     generation
	adapter player.Adapter
	desc    source.Descriptor
	native  bool
}

// Mount tears down the current session and starts m. It blocks through
// source resolution and adapter start. A newer Mount or Close racing it makes
// it return ErrSuperseded without touching the newer session.
func (c *Core) Mount(ctx context.Context, m Movie) error {
	if m.ID == "" {
		return errors.New("movie id is required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return playerr.ErrClosed
	}
	c.gen = generation{movie: c.gen.movie + 1}
	gen := c.gen
	teardown := c.teardownLocked()
	c.sessionID = uuid.NewString()
	c.movie = m
	c.mounted = true
	c.fallback = nil
	c.active = source.Descriptor{}
	c.time, c.duration, c.playing = 0, 0, false
	c.skip = skip.NewController(m.Skip, c.cfg.Host.OnSkip)
	fx := c.setOutcomeLocked(playerr.OutcomeRecovering, nil)
	logger := c.logger.With("movie_id", m.ID, "session", c.sessionID)
	c.mu.Unlock()

	teardown()
	run(fx)
	logger.Info("mounting movie", "title", m.Title)

	start := c.startPosition(ctx, m)
	input := m.Input(c.cfg.Mobile)
	desc, err := c.policy.Resolve(ctx, input)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		logger.Debug("discarding stale source resolution", "kind", desc.Kind)
		return playerr.ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			c.mu.Unlock()
			return ctx.Err()
		}
		fx := c.setOutcomeLocked(playerr.OutcomeUnavailable, err)
		c.mu.Unlock()
		logger.Warn("no playable source", "error", err)
		run(fx)
		return err
	}
	embedDesc, hasEmbed := c.policy.EmbedCandidate(input)
	c.fallback = source.NewFallback(desc, embedDesc, hasEmbed)
	act := c.activateLocked(desc, start)
	c.mu.Unlock()

	return c.start(ctx, act)
}

// startPosition returns the resume target for m, or 0.
func (c *Core) startPosition(ctx context.Context, m Movie) float64 {
	var pos float64
	switch {
	case m.SavedPosition != nil:
		pos = *m.SavedPosition
	case c.cfg.Progress != nil:
		saved, ok, err := c.cfg.Progress.LoadSavedProgress(ctx, m.ID)
		if err != nil {
			c.logger.Debug("load saved progress", "movie_id", m.ID, "error", err)
		}
		if ok {
			pos = saved
		}
	}
	if pos <= 0 {
		return 0
	}
	if m.Duration > 0 && pos >= m.Duration*c.cfg.ResumeThreshold {
		c.logger.Debug("saved position near the end, starting over", "movie_id", m.ID, "position", pos)
		return 0
	}
	return pos
}

// activateLocked builds the adapter for desc. Its events are bound to a fresh
// generation so nothing from a previous adapter reaches the sinks.
func (c *Core) activateLocked(desc source.Descriptor, pos float64) activation {
	c.gen.attempt++
	gen := c.gen
	c.active = desc
	c.time, c.duration, c.playing = pos, 0, false
	events := c.eventsFor(gen)

	act := activation{gen: gen, desc: desc}
	switch {
	case desc.Kind.Native():
		el := c.cfg.NewElement(desc)
		opts := append([]native.Option{
			native.WithClock(c.cfg.Clock),
			native.WithLogger(c.logger),
			native.WithInitialPosition(pos),
			native.WithVolume(c.volume),
		}, c.cfg.NativeOptions...)
		a := native.New(el, desc.Reference, events, opts...)
		c.nat, c.element, c.adapter = a, el, a
		act.native = true
	case desc.Platform == source.PlatformYouTube && c.cfg.YouTube != nil:
		c.adapter = embed.NewYouTube(c.cfg.YouTube, desc.Reference, events, c.embedOptions(pos)...)
	case desc.Platform == source.PlatformVimeo && c.cfg.Vimeo != nil:
		c.adapter = embed.NewVimeo(c.cfg.Vimeo, desc.Reference, events, c.embedOptions(pos)...)
	default:
		c.adapter = embed.NewIframe(desc, c.cfg.Renderer, events, c.logger)
	}
	act.adapter = c.adapter

	metrics.RecordSourceSelected(string(desc.Kind), string(desc.Platform))
	c.logger.Info("source activated",
		"movie_id", c.movie.ID,
		"kind", desc.Kind,
		"platform", desc.Platform,
		"attempt", gen.attempt,
	)
	return act
}

func (c *Core) embedOptions(pos float64) []embed.Option {
	opts := []embed.Option{
		embed.WithClock(c.cfg.Clock),
		embed.WithLogger(c.logger),
		embed.WithMobile(c.cfg.Mobile),
		embed.WithInitialPosition(pos),
	}
	if c.cfg.Loader != nil {
		opts = append(opts, embed.WithLoader(c.cfg.Loader))
	}
	return append(opts, c.cfg.EmbedOptions...)
}

// start runs the adapter outside the lock. A fatal error reported during
// Start may already have activated the fallback.
func (c *Core) start(ctx context.Context, act activation) error {
	if cb := c.cfg.Host.OnSource; cb != nil {
		cb(act.desc)
	}
	err := act.adapter.Start(ctx)
	status := act.adapter.State().Status

	c.mu.Lock()
	if c.gen.movie != act.gen.movie {
		c.mu.Unlock()
		return playerr.ErrSuperseded
	}
	if c.gen != act.gen {
		// The fallback took over.
		result := c.resultLocked()
		c.mu.Unlock()
		return result
	}
	if err != nil {
		c.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.onFatal(act.gen, playerr.Fatal(playerr.KindUnknown, err))
		c.mu.Lock()
		result := c.resultLocked()
		c.mu.Unlock()
		return result
	}

	var fx []func()
	switch status {
	case player.StatusReady, player.StatusAwaitingTap:
		fx = c.setOutcomeLocked(playerr.OutcomePlaying, nil)
	}
	movieID := c.movie.ID
	c.mu.Unlock()
	run(fx)

	if act.native {
		c.restoreAudioPreference(ctx, act.gen, movieID)
	}
	return nil
}

func (c *Core) resultLocked() error {
	if c.outcome == playerr.OutcomeUnavailable {
		return c.lastErr
	}
	return nil
}

// teardownLocked detaches the session's adapter and controllers and returns
// the function releasing them. It must run before the next adapter starts.
func (c *Core) teardownLocked() func() {
	a, sy := c.adapter, c.sync
	c.adapter, c.nat, c.element, c.sync = nil, nil, nil, nil
	c.trackID = ""
	return func() {
		if sy != nil {
			sy.Close()
		}
		if a != nil {
			if err := a.Close(); err != nil {
				c.logger.Debug("close adapter", "error", err)
			}
		}
	}
}

// onFatal demotes to the embed candidate once, then gives up.
func (c *Core) onFatal(gen generation, err error) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	from := c.active
	hadTrack := c.trackID != ""
	next, ok := c.fallback.Fail()
	teardown := c.teardownLocked()
	movieID := c.movie.ID

	if !ok {
		final := fmt.Errorf("%w: %w", playerr.ErrAllSourcesExhausted, err)
		c.active = source.Descriptor{}
		c.playing = false
		fx := c.setOutcomeLocked(playerr.OutcomeUnavailable, final)
		c.mu.Unlock()

		teardown()
		c.logger.Error("all sources exhausted", "movie_id", movieID, "kind", from.Kind, "error", err)
		c.notifyTrack(hadTrack)
		run(fx)
		return
	}

	metrics.RecordFallback(string(from.Kind))
	act := c.activateLocked(next, c.time)
	fx := c.setOutcomeLocked(playerr.OutcomeRecovering, err)
	c.mu.Unlock()

	teardown()
	c.logger.Warn("source failed, falling back",
		"movie_id", movieID,
		"from", from.Kind,
		"to", next.Kind,
		"platform", next.Platform,
		"error", err,
	)
	c.notifyTrack(hadTrack)
	run(fx)
	_ = c.start(c.ctx, act)
}

func (c *Core) notifyTrack(hadTrack bool) {
	if hadTrack && c.cfg.Host.OnTrackChanged != nil {
		c.cfg.Host.OnTrackChanged("")
	}
}

// setOutcomeLocked records the host outcome and returns the notification.
func (c *Core) setOutcomeLocked(o playerr.Outcome, err error) []func() {
	if c.outcome == o && c.lastErr == err {
		return nil
	}
	changed := c.outcome != o
	c.outcome, c.lastErr = o, err
	if !changed {
		return nil
	}
	metrics.RecordOutcome(string(o))
	if cb := c.cfg.Host.OnOutcome; cb != nil {
		return []func(){func() { cb(o, err) }}
	}
	return nil
}

func (c *Core) telemetryLocked() []func() {
	cb := c.cfg.Host.OnTelemetry
	if cb == nil {
		return nil
	}
	t := Telemetry{MovieID: c.movie.ID, Time: c.time, Duration: c.duration, Playing: c.playing}
	return []func(){func() { cb(t) }}
}

// Tap forwards the viewer's gesture to a tap-gated adapter.
func (c *Core) Tap(ctx context.Context) error {
	a, err := c.current()
	if err != nil {
		return err
	}
	if t, ok := a.(player.Tapper); ok {
		return t.Tap(ctx)
	}
	return nil
}

// Retry remounts the movie after the unavailable outcome.
func (c *Core) Retry(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	if c.outcome != playerr.OutcomeUnavailable {
		c.mu.Unlock()
		return nil
	}
	m := c.movie
	c.mu.Unlock()
	return c.Mount(ctx, m)
}

// Outcome is what the host shows: playing, recovering or unavailable.
func (c *Core) Outcome() (playerr.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome, c.lastErr
}

func (c *Core) current() (player.Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return nil, playerr.ErrClosed
	case !c.mounted:
		return nil, ErrNotMounted
	case c.adapter == nil:
		return nil, fmt.Errorf("movie %s: %w", c.movie.ID, playerr.ErrAllSourcesExhausted)
	}
	return c.adapter, nil
}

func (c *Core) Play() error {
	a, err := c.current()
	if err != nil {
		return err
	}
	return a.Play()
}

func (c *Core) Pause() error {
	a, err := c.current()
	if err != nil {
		return err
	}
	return a.Pause()
}

// TogglePause flips the play state.
func (c *Core) TogglePause() error {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()
	if playing {
		return c.Pause()
	}
	return c.Play()
}

func (c *Core) Seek(seconds float64) error {
	a, err := c.current()
	if err != nil {
		return err
	}
	if seconds < 0 {
		seconds = 0
	}
	return a.Seek(seconds)
}

// SeekRelative seeks by delta seconds from the last known position.
func (c *Core) SeekRelative(delta float64) error {
	c.mu.Lock()
	target := c.time + delta
	if c.duration > 0 && target > c.duration {
		target = c.duration
	}
	c.mu.Unlock()
	return c.Seek(target)
}

// SetVolume sets the listening volume. With a dubbed track attached it
// applies to the track and the ducked primary keeps its low level.
func (c *Core) SetVolume(volume int) error {
	volume = player.ClampVolume(volume)
	a, err := c.current()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.volume = volume
	sy := c.sync
	c.mu.Unlock()

	if sy != nil && sy.SetVolume(volume) {
		return nil
	}
	return a.SetVolume(volume)
}

func (c *Core) SetMuted(muted bool) error {
	a, err := c.current()
	if err != nil {
		return err
	}
	return a.SetMuted(muted)
}

func (c *Core) SetPlaybackRate(rate float64) error {
	a, err := c.current()
	if err != nil {
		return err
	}
	return a.SetPlaybackRate(rate)
}

// SkipIntro seeks once to the end of the intro window.
func (c *Core) SkipIntro() error {
	a, sk, err := c.skipTarget()
	if err != nil {
		return err
	}
	return sk.SkipIntro(a)
}

// SkipCredits seeks once to the end of the movie.
func (c *Core) SkipCredits() error {
	a, sk, err := c.skipTarget()
	if err != nil {
		return err
	}
	return sk.SkipCredits(a)
}

func (c *Core) skipTarget() (player.Adapter, *skip.Controller, error) {
	a, err := c.current()
	if err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	sk := c.skip
	c.mu.Unlock()
	return a, sk, nil
}

// Snapshot returns the current session view.
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		SessionID: c.sessionID,
		MovieID:   c.movie.ID,
		Title:     c.movie.Title,
		Source:    c.active,
		Outcome:   c.outcome,
		Err:       c.lastErr,
		TrackID:   c.trackID,
	}
	if c.fallback != nil {
		s.Demoted = c.fallback.Demoted()
	}
	a, sk, sy := c.adapter, c.skip, c.sync
	c.mu.Unlock()

	if a != nil {
		s.State = a.State()
	}
	if sk != nil {
		s.Skip = sk.Visibility()
	}
	if sy != nil {
		s.Sync = sy.State()
	}
	return s
}

// Movie returns the mounted movie.
func (c *Core) Movie() (Movie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.movie, c.mounted
}

// Close tears the session down. Results still in flight are discarded.
func (c *Core) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen = generation{movie: c.gen.movie + 1}
	teardown := c.teardownLocked()
	c.mu.Unlock()

	teardown()
	c.cancel()
	return nil
}

func run(fx []func()) {
	for _, f := range fx {
		f()
	}
}
