// Package native adapts a native media element (an mpv process, a decoder
// surface) to the uniform player.Adapter interface and owns its recovery:
// bounded retries on fatal errors and position-preserving stall reloads.
package native

import (
	"github.com/justchokingaround/playcore/internal/playerr"
)

// EventType enumerates the element events the adapter consumes.
type EventType int

const (
	EventLoadedMetadata EventType = iota
	EventTimeUpdate
	EventPlaying
	EventPause
	EventWaiting
	EventStalled
	EventCanPlay
	EventSeeking
	EventRateChange
	EventEnded
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventTimeUpdate:
		return "timeupdate"
	case EventPlaying:
		return "playing"
	case EventPause:
		return "pause"
	case EventWaiting:
		return "waiting"
	case EventStalled:
		return "stalled"
	case EventCanPlay:
		return "canplay"
	case EventSeeking:
		return "seeking"
	case EventRateChange:
		return "ratechange"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single element notification. Only the fields relevant to Type
// are set.
type Event struct {
	Type      EventType
	Time      float64
	Duration  float64
	Rate      float64
	ErrorKind playerr.ErrorKind
	Err       error
}

// ReadyState mirrors the media element readiness levels.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// Element is the native media primitive driven by the adapter. Implementations
// deliver events through the registered handler from any goroutine; the
// handler must not be invoked while the element holds a lock the adapter may
// need.
type Element interface {
	SetEventHandler(h func(Event))
	// Load (re)loads src from scratch, resetting position to zero.
	Load(src string) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume int) error
	SetMuted(muted bool) error
	SetPlaybackRate(rate float64) error
	CurrentTime() float64
	ReadyState() ReadyState
	// Release stops the element and frees its platform resources.
	Release() error
}
