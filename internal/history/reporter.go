package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/justchokingaround/playcore/internal/clock"
	"github.com/justchokingaround/playcore/internal/core"
	"github.com/justchokingaround/playcore/internal/source"
)

// DefaultReportInterval bounds how often progress reaches the store while
// playing.
const DefaultReportInterval = 5 * time.Second

// Recorder persists progress entries. *Service implements it.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Reporter turns core telemetry into throttled history writes. Pauses,
// source switches and the end of a session are written immediately.
type Reporter struct {
	recorder Recorder
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	limiter *rate.Limiter
	entry   Entry
	dirty   bool
	playing bool
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithReportInterval overrides DefaultReportInterval.
func WithReportInterval(d time.Duration) ReporterOption {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithReporterClock injects the time source of the limiter.
func WithReporterClock(c clock.Clock) ReporterOption {
	return func(r *Reporter) { r.clock = c }
}

// WithReporterLogger sets the logger for write failures.
func WithReporterLogger(l *slog.Logger) ReporterOption {
	return func(r *Reporter) { r.logger = l }
}

// NewReporter creates a reporter writing to recorder
func NewReporter(recorder Recorder, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		recorder: recorder,
		clock:    clock.Real{},
		logger:   slog.Default(),
		interval: DefaultReportInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.limiter = rate.NewLimiter(rate.Every(r.interval), 1)
	return r
}

// Begin starts a new session, flushing whatever the previous one left.
func (r *Reporter) Begin(ctx context.Context, sessionID string, movie core.Movie) {
	r.Flush(ctx)

	r.mu.Lock()
	r.entry = Entry{
		SessionID: sessionID,
		MovieID:   movie.ID,
		Title:     movie.Title,
		Duration:  movie.Duration,
	}
	r.dirty = false
	r.playing = false
	r.limiter = rate.NewLimiter(rate.Every(r.interval), 1)
	r.mu.Unlock()
}

// SetSource records the source now playing. A demotion is written at once.
func (r *Reporter) SetSource(ctx context.Context, d source.Descriptor, demoted bool) {
	r.mu.Lock()
	changed := r.entry.SessionID != "" && r.entry.Demoted != demoted
	r.entry.SourceKind = string(d.Kind)
	r.entry.Platform = string(d.Platform)
	r.entry.Demoted = demoted
	if changed {
		r.dirty = true
	}
	r.mu.Unlock()

	if changed {
		r.Flush(ctx)
	}
}

// Observe feeds one telemetry sample.
func (r *Reporter) Observe(ctx context.Context, t core.Telemetry) {
	r.mu.Lock()
	if r.entry.SessionID == "" || t.MovieID != r.entry.MovieID {
		r.mu.Unlock()
		return
	}
	paused := r.playing && !t.Playing
	r.playing = t.Playing
	r.entry.Position = t.Time
	if t.Duration > 0 {
		r.entry.Duration = t.Duration
	}
	r.dirty = true
	write := paused || r.limiter.AllowN(r.clock.Now(), 1)
	r.mu.Unlock()

	if write {
		r.Flush(ctx)
	}
}

// Flush writes the latest sample if it has not been written yet.
func (r *Reporter) Flush(ctx context.Context) {
	r.mu.Lock()
	if !r.dirty || r.entry.SessionID == "" || r.recorder == nil {
		r.mu.Unlock()
		return
	}
	e := r.entry
	r.dirty = false
	r.mu.Unlock()

	if err := r.recorder.Record(ctx, e); err != nil {
		r.logger.Warn("failed to record watch progress",
			"movie_id", e.MovieID, "session", e.SessionID, "error", err)
		r.mu.Lock()
		if r.entry.SessionID == e.SessionID {
			r.dirty = true
		}
		r.mu.Unlock()
	}
}
