// Package mpv implements the native media element on top of an mpv process
// driven over its JSON IPC protocol.
package mpv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/justchokingaround/playcore/internal/clock"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/player/native"
	"github.com/justchokingaround/playcore/internal/playerr"
)

const (
	DefaultPollInterval   = 250 * time.Millisecond
	DefaultStartupTimeout = 15 * time.Second

	// idlePollLimit is how many polls mpv may report idle after loadfile
	// before the source is declared unplayable.
	idlePollLimit = 3
)

var errOpenFailed = errors.New("mpv could not open source")

// observed is one poll of mpv properties.
type observed struct {
	timePos   float64
	duration  float64
	paused    bool
	eof       bool
	buffering bool
	speed     float64
	idle      bool
	failures  int
}

// Element is a native.Element backed by mpv. mpv has no push events over
// gopv's request interface, so transport state is polled on a single-shot
// timer that is re-armed after every poll.
type Element struct {
	mu       sync.Mutex
	opts     Options
	clk      clock.Clock
	logger   *slog.Logger
	launch   launcher
	handler  func(native.Event)
	sess     *session
	gen      uint64
	poll     clock.Timer
	released bool

	metadata  bool
	idlePolls int
	last      observed
	ready     native.ReadyState
}

// Option configures an Element.
type Option func(*Element)

func WithClock(c clock.Clock) Option {
	return func(e *Element) { e.clk = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Element) {
		if l != nil {
			e.logger = l
		}
	}
}

// withLauncher replaces process startup, for tests.
func withLauncher(l launcher) Option {
	return func(e *Element) { e.launch = l }
}

// New returns an element that lazily starts mpv on the first Load.
func New(opts Options, options ...Option) *Element {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = DefaultStartupTimeout
	}
	e := &Element{
		opts:   opts,
		clk:    clock.Real{},
		logger: slog.Default(),
	}
	for _, o := range options {
		o(e)
	}
	if e.launch == nil {
		e.launch = processLauncher(DetectPlatform(), opts, e.logger)
	}
	return e
}

func (e *Element) SetEventHandler(h func(native.Event)) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

func (e *Element) emit(evs ...native.Event) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h == nil {
		return
	}
	for _, ev := range evs {
		h(ev)
	}
}

func (e *Element) ensureSession() (*session, error) {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return nil, playerr.ErrClosed
	}
	sess := e.sess
	e.mu.Unlock()
	if sess != nil {
		return sess, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.StartupTimeout)
	defer cancel()
	sess, err := e.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch mpv: %w", err)
	}

	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		sess.stop()
		return nil, playerr.ErrClosed
	}
	e.sess = sess
	e.mu.Unlock()
	if sess.exited != nil {
		go e.watchExit(sess)
	}
	return sess, nil
}

// Load opens src paused from position zero and starts polling.
func (e *Element) Load(src string) error {
	sess, err := e.ensureSession()
	if err != nil {
		return err
	}
	if err := sess.conn.set("pause", true); err != nil {
		return fmt.Errorf("pause before load: %w", err)
	}
	if err := sess.conn.loadFile(src); err != nil {
		return fmt.Errorf("loadfile: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return playerr.ErrClosed
	}
	e.gen++
	e.metadata = false
	e.idlePolls = 0
	e.last = observed{paused: true, speed: 1}
	e.ready = native.HaveNothing
	e.poll = clock.Stop(e.poll)
	e.armLocked()
	return nil
}

func (e *Element) armLocked() {
	gen := e.gen
	e.poll = e.clk.AfterFunc(e.opts.PollInterval, func() { e.tick(gen) })
}

func (e *Element) tick(gen uint64) {
	e.mu.Lock()
	if e.released || gen != e.gen || e.sess == nil {
		e.mu.Unlock()
		return
	}
	e.poll = nil
	c := e.sess.conn
	e.mu.Unlock()

	obs := read(c)

	e.mu.Lock()
	if e.released || gen != e.gen {
		e.mu.Unlock()
		return
	}
	evs, keep := e.diffLocked(obs)
	if keep {
		e.armLocked()
	}
	e.mu.Unlock()

	e.emit(evs...)
}

// read queries every polled property. Failed reads keep zero values.
func read(c conn) observed {
	o := observed{speed: 1}
	if v, err := c.get("time-pos"); err == nil {
		o.timePos, _ = v.(float64)
	} else {
		o.failures++
	}
	if v, err := c.get("duration"); err == nil {
		o.duration, _ = v.(float64)
	} else {
		o.failures++
	}
	if v, err := c.get("pause"); err == nil {
		o.paused, _ = v.(bool)
	} else {
		o.failures++
	}
	if v, err := c.get("eof-reached"); err == nil {
		o.eof, _ = v.(bool)
	}
	if v, err := c.get("paused-for-cache"); err == nil {
		o.buffering, _ = v.(bool)
	}
	if v, err := c.get("speed"); err == nil {
		if s, ok := v.(float64); ok && s > 0 {
			o.speed = s
		}
	}
	if v, err := c.get("idle-active"); err == nil {
		o.idle, _ = v.(bool)
	}
	return o
}

// diffLocked turns a poll into element events. keep is false once polling
// must stop.
func (e *Element) diffLocked(o observed) (evs []native.Event, keep bool) {
	if o.failures >= 3 {
		return []native.Event{{Type: native.EventError, ErrorKind: playerr.KindNetwork, Err: errIPCUnresponsive}}, false
	}

	if !e.metadata {
		if o.duration > 0 {
			e.metadata = true
			e.ready = native.HaveEnoughData
			e.last.duration = o.duration
			evs = append(evs,
				native.Event{Type: native.EventLoadedMetadata, Duration: o.duration},
				native.Event{Type: native.EventCanPlay},
			)
			return evs, true
		}
		if o.idle {
			e.idlePolls++
			if e.idlePolls >= idlePollLimit {
				return []native.Event{{Type: native.EventError, ErrorKind: playerr.KindSourceUnsupported, Err: errOpenFailed}}, false
			}
		}
		return nil, true
	}

	if o.buffering != e.last.buffering {
		if o.buffering {
			e.ready = native.HaveCurrentData
			evs = append(evs, native.Event{Type: native.EventWaiting})
		} else {
			e.ready = native.HaveEnoughData
			evs = append(evs, native.Event{Type: native.EventCanPlay})
		}
	}
	if o.paused != e.last.paused {
		if o.paused {
			evs = append(evs, native.Event{Type: native.EventPause})
		} else {
			evs = append(evs, native.Event{Type: native.EventPlaying})
		}
	}
	if o.speed != e.last.speed {
		evs = append(evs, native.Event{Type: native.EventRateChange, Rate: o.speed})
	}
	if o.duration > 0 && o.duration != e.last.duration {
		evs = append(evs, native.Event{Type: native.EventLoadedMetadata, Duration: o.duration})
	}
	if math.Abs(o.timePos-e.last.timePos) > 0.001 {
		evs = append(evs, native.Event{Type: native.EventTimeUpdate, Time: o.timePos})
	}
	if o.eof && !e.last.eof {
		evs = append(evs, native.Event{Type: native.EventEnded})
	}

	dur := e.last.duration
	if o.duration > 0 {
		dur = o.duration
	}
	e.last = o
	e.last.duration = dur
	return evs, true
}

func (e *Element) watchExit(sess *session) {
	err := <-sess.exited

	e.mu.Lock()
	if e.released || e.sess != sess {
		e.mu.Unlock()
		return
	}
	e.sess = nil
	e.gen++
	e.poll = clock.Stop(e.poll)
	e.mu.Unlock()

	e.logger.Warn("mpv exited unexpectedly", "error", err)
	e.emit(native.Event{
		Type:      native.EventError,
		ErrorKind: playerr.KindAborted,
		Err:       fmt.Errorf("mpv exited: %w", err),
	})
}

func (e *Element) client() (conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return nil, playerr.ErrClosed
	}
	if e.sess == nil {
		return nil, errors.New("mpv not running")
	}
	return e.sess.conn, nil
}

func (e *Element) setProperty(name string, value any) error {
	c, err := e.client()
	if err != nil {
		return err
	}
	if err := c.set(name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

func (e *Element) Play() error  { return e.setProperty("pause", false) }
func (e *Element) Pause() error { return e.setProperty("pause", true) }

// Seek sets time-pos and reports the seek immediately; mpv has no seeking
// notification on this transport.
func (e *Element) Seek(seconds float64) error {
	if err := e.setProperty("time-pos", seconds); err != nil {
		return err
	}
	e.mu.Lock()
	e.last.timePos = seconds
	e.mu.Unlock()
	e.emit(native.Event{Type: native.EventSeeking, Time: seconds})
	return nil
}

func (e *Element) SetVolume(volume int) error {
	return e.setProperty("volume", float64(player.ClampVolume(volume)))
}

func (e *Element) SetMuted(muted bool) error {
	return e.setProperty("mute", muted)
}

func (e *Element) SetPlaybackRate(rate float64) error {
	return e.setProperty("speed", rate)
}

// SetChapters replaces mpv's chapter list with markers.
func (e *Element) SetChapters(chapters []player.Chapter) error {
	list := make([]map[string]any, 0, len(chapters))
	for _, c := range chapters {
		list = append(list, map[string]any{"title": c.Title, "time": c.Time})
	}
	return e.setProperty("chapter-list", list)
}

func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.timePos
}

func (e *Element) ReadyState() native.ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Release stops polling and quits mpv. It is idempotent.
func (e *Element) Release() error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return nil
	}
	e.released = true
	e.gen++
	e.poll = clock.Stop(e.poll)
	sess := e.sess
	e.sess = nil
	e.handler = nil
	e.mu.Unlock()

	if sess != nil {
		sess.stop()
	}
	return nil
}

var _ native.Element = (*Element)(nil)
