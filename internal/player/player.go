package player

import (
	"context"
)

// Adapter is the uniform control surface over every playback backend:
// native media elements and the embedded platform players.
type Adapter interface {
	// Start begins loading the source. Embedded adapters on mobile devices
	// return immediately in StatusAwaitingTap without any network work.
	Start(ctx context.Context) error

	// Playback control
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume int) error // 0-100
	SetMuted(muted bool) error
	SetPlaybackRate(rate float64) error

	// State returns a snapshot of the adapter-owned playback state.
	State() State

	// Close releases every platform resource: timers, SDK instances and
	// element bindings. It is idempotent.
	Close() error
}

// Tapper is implemented by adapters gated behind an explicit user gesture.
type Tapper interface {
	Tap(ctx context.Context) error
}

// Events are the normalised events an adapter emits. Any field may be nil.
// Callbacks are never invoked while the adapter holds its own lock.
type Events struct {
	OnTimeUpdate       func(seconds float64)
	OnDurationKnown    func(seconds float64)
	OnPlayStateChanged func(playing bool)
	OnBuffering        func(buffering bool)
	OnStalled          func()
	OnFatalError       func(err error)
	OnSeeking          func(seconds float64)
	OnRateChange       func(rate float64)
	OnEnded            func()
}

// State represents the current playback state of an adapter.
type State struct {
	Status      Status  `json:"status"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Playing     bool    `json:"playing"`
	Buffering   bool    `json:"buffering"`
	LastError   error   `json:"-"`
	RetryCount  int     `json:"retry_count"`
	// Telemetry is false for the iframe tier, which cannot report time.
	Telemetry bool `json:"telemetry"`
}

// Percentage returns progress in the range 0-100.
func (s State) Percentage() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.CurrentTime / s.Duration * 100
}

// Status represents the lifecycle of an adapter
type Status string

const (
	StatusIdle        Status = "idle"
	StatusAwaitingTap Status = "awaiting_tap"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusRecovering  Status = "recovering"
	StatusFailed      Status = "failed"
	StatusClosed      Status = "closed"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Emit helpers keep nil checks out of adapters.

func (e Events) TimeUpdate(t float64) {
	if e.OnTimeUpdate != nil {
		e.OnTimeUpdate(t)
	}
}

func (e Events) DurationKnown(d float64) {
	if e.OnDurationKnown != nil {
		e.OnDurationKnown(d)
	}
}

func (e Events) PlayStateChanged(playing bool) {
	if e.OnPlayStateChanged != nil {
		e.OnPlayStateChanged(playing)
	}
}

func (e Events) Buffering(b bool) {
	if e.OnBuffering != nil {
		e.OnBuffering(b)
	}
}

func (e Events) Stalled() {
	if e.OnStalled != nil {
		e.OnStalled()
	}
}

func (e Events) FatalError(err error) {
	if e.OnFatalError != nil {
		e.OnFatalError(err)
	}
}

func (e Events) Seeking(t float64) {
	if e.OnSeeking != nil {
		e.OnSeeking(t)
	}
}

func (e Events) RateChange(r float64) {
	if e.OnRateChange != nil {
		e.OnRateChange(r)
	}
}

func (e Events) Ended() {
	if e.OnEnded != nil {
		e.OnEnded()
	}
}

// Chapter is a named marker on the playback timeline.
type Chapter struct {
	Title string  `json:"title"`
	Time  float64 `json:"time"`
}

// ClampVolume bounds v to 0-100.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
