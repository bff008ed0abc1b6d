package common

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justchokingaround/playcore/internal/core"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/skip"
	"github.com/justchokingaround/playcore/internal/source"
)

// Navigation messages

// PlayMsg asks the app to mount a movie.
type PlayMsg struct {
	Movie core.Movie
}

// BackMsg returns to the previous view.
type BackMsg struct{}

// Core messages, one per host callback.

// OutcomeMsg carries a host outcome change.
type OutcomeMsg struct {
	Outcome playerr.Outcome
	Err     error
}

// TelemetryMsg carries a progress sample.
type TelemetryMsg core.Telemetry

// SkipMsg carries skip-button visibility.
type SkipMsg skip.Visibility

// TrackMsg reports the dubbed track now playing; empty is the original
// audio.
type TrackMsg struct {
	TrackID string
}

// SourceMsg reports the source being attempted.
type SourceMsg struct {
	Source source.Descriptor
}

// EndedMsg reports the end of the movie.
type EndedMsg struct{}

// MountedMsg is the result of a mount started from the TUI.
type MountedMsg struct {
	MovieID string
	Err     error
}

// StatusMsg shows a transient footer message.
type StatusMsg struct {
	Text string
	Err  error
}

// Bridge turns core host callbacks into tea messages. Callbacks arriving
// before a program is attached are dropped; next, if set, is called first.
type Bridge struct {
	next core.Host

	mu   sync.Mutex
	send func(tea.Msg)
}

// NewBridge creates a bridge chaining to next.
func NewBridge(next core.Host) *Bridge {
	return &Bridge{next: next}
}

// Attach routes messages to send, usually (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) emit(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// Host returns the callbacks to put in core.Config.
func (b *Bridge) Host() core.Host {
	return core.Host{
		OnOutcome: func(o playerr.Outcome, err error) {
			if b.next.OnOutcome != nil {
				b.next.OnOutcome(o, err)
			}
			b.emit(OutcomeMsg{Outcome: o, Err: err})
		},
		OnTelemetry: func(t core.Telemetry) {
			if b.next.OnTelemetry != nil {
				b.next.OnTelemetry(t)
			}
			b.emit(TelemetryMsg(t))
		},
		OnSkip: func(v skip.Visibility) {
			if b.next.OnSkip != nil {
				b.next.OnSkip(v)
			}
			b.emit(SkipMsg(v))
		},
		OnTrackChanged: func(id string) {
			if b.next.OnTrackChanged != nil {
				b.next.OnTrackChanged(id)
			}
			b.emit(TrackMsg{TrackID: id})
		},
		OnSource: func(d source.Descriptor) {
			if b.next.OnSource != nil {
				b.next.OnSource(d)
			}
			b.emit(SourceMsg{Source: d})
		},
		OnEnded: func() {
			if b.next.OnEnded != nil {
				b.next.OnEnded()
			}
			b.emit(EndedMsg{})
		},
	}
}
