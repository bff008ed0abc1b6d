package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/browser"

	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/source"
)

// Renderer shows an embed URL to the viewer.
type Renderer interface {
	Render(ctx context.Context, embedURL string) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, embedURL string) error

func (f RendererFunc) Render(ctx context.Context, embedURL string) error {
	return f(ctx, embedURL)
}

// BrowserRenderer opens the embed in the system browser.
var BrowserRenderer Renderer = RendererFunc(func(_ context.Context, embedURL string) error {
	return browser.OpenURL(embedURL)
})

// Iframe is the tier for platforms without a control API. It renders the
// embed once and reports nothing but "loaded": no time, no duration, no
// transport control.
type Iframe struct {
	mu       sync.Mutex
	desc     source.Descriptor
	renderer Renderer
	events   player.Events
	logger   *slog.Logger
	status   player.Status
	lastErr  error
	closed   bool
}

// NewIframe returns an adapter rendering d through renderer. A nil renderer
// opens the system browser.
func NewIframe(d source.Descriptor, renderer Renderer, events player.Events, logger *slog.Logger) *Iframe {
	if renderer == nil {
		renderer = BrowserRenderer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Iframe{
		desc:     d,
		renderer: renderer,
		events:   events,
		logger:   logger,
		status:   player.StatusIdle,
	}
}

// URL is the embed URL rendered for the descriptor.
func (f *Iframe) URL() string {
	return source.EmbedURL(f.desc)
}

func (f *Iframe) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return playerr.ErrClosed
	}
	if f.status != player.StatusIdle {
		f.mu.Unlock()
		return nil
	}
	f.status = player.StatusLoading
	f.mu.Unlock()

	url := f.URL()
	err := f.renderer.Render(ctx, url)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			f.status = player.StatusIdle
			f.mu.Unlock()
			return ctx.Err()
		}
		fatal := &playerr.PlaybackFatalError{Kind: playerr.KindNetwork, Exhausted: true, Err: fmt.Errorf("render embed: %w", err)}
		f.status = player.StatusFailed
		f.lastErr = fatal
		f.mu.Unlock()
		f.logger.Warn("embed render failed", "url", url, "error", err)
		f.events.FatalError(fatal)
		return nil
	}
	f.status = player.StatusReady
	f.mu.Unlock()
	f.logger.Debug("embed rendered", "url", url, "platform", f.desc.Platform)
	return nil
}

func (f *Iframe) unsupported() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return playerr.ErrClosed
	}
	return playerr.ErrControlUnsupported
}

func (f *Iframe) Play() error                   { return f.unsupported() }
func (f *Iframe) Pause() error                  { return f.unsupported() }
func (f *Iframe) Seek(float64) error            { return f.unsupported() }
func (f *Iframe) SetVolume(int) error           { return f.unsupported() }
func (f *Iframe) SetMuted(bool) error           { return f.unsupported() }
func (f *Iframe) SetPlaybackRate(float64) error { return f.unsupported() }

func (f *Iframe) State() player.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return player.State{Status: f.status, LastError: f.lastErr, Telemetry: false}
}

func (f *Iframe) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.status = player.StatusClosed
	return nil
}

var _ player.Adapter = (*Iframe)(nil)
