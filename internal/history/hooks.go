package history

import (
	"context"
	"sync"

	"github.com/justchokingaround/playcore/internal/core"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/source"
)

// Session is the part of *core.Core the reporter hooks read from.
type Session interface {
	Snapshot() core.Snapshot
	Movie() (core.Movie, bool)
}

// Hooks returns core callbacks that feed r. A new session id seen on a
// source change starts a new history row. session is usually set after the
// core is built, so it is read lazily through get.
func (r *Reporter) Hooks(ctx context.Context, get func() Session) core.Host {
	var (
		mu      sync.Mutex
		current string
	)
	return core.Host{
		OnSource: func(d source.Descriptor) {
			s := get()
			if s == nil {
				return
			}
			snap := s.Snapshot()
			if snap.SessionID == "" {
				return
			}
			mu.Lock()
			fresh := snap.SessionID != current
			current = snap.SessionID
			mu.Unlock()

			if fresh {
				movie, ok := s.Movie()
				if !ok {
					return
				}
				r.Begin(ctx, snap.SessionID, movie)
			}
			r.SetSource(ctx, d, snap.Demoted)
		},
		OnTelemetry: func(t core.Telemetry) { r.Observe(ctx, t) },
		OnOutcome: func(o playerr.Outcome, _ error) {
			if o == playerr.OutcomeUnavailable {
				r.Flush(ctx)
			}
		},
		OnEnded: func() { r.Flush(ctx) },
	}
}
