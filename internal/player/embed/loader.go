package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/justchokingaround/playcore/internal/httpclient"
	"github.com/justchokingaround/playcore/internal/metrics"
	"github.com/justchokingaround/playcore/internal/source"
)

// Public script URLs of the controllable platforms.
var DefaultScripts = map[source.Platform]string{
	source.PlatformYouTube: "https://www.youtube.com/iframe_api",
	source.PlatformVimeo:   "https://player.vimeo.com/api/player.js",
}

// Installer hands a downloaded SDK script to the host runtime.
type Installer func(platform source.Platform, script []byte) error

// Loader fetches each platform SDK script at most once per process.
// Concurrent callers share one download; failures are not cached.
type Loader struct {
	client  *httpclient.Client
	scripts map[source.Platform]string
	install Installer
	logger  *slog.Logger

	group  singleflight.Group
	mu     sync.Mutex
	loaded map[source.Platform]bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

func WithScripts(scripts map[source.Platform]string) LoaderOption {
	return func(l *Loader) { l.scripts = scripts }
}

func WithInstaller(i Installer) LoaderOption {
	return func(l *Loader) { l.install = i }
}

func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a loader downloading through client.
func NewLoader(client *httpclient.Client, opts ...LoaderOption) *Loader {
	if client == nil {
		client = httpclient.New(httpclient.DefaultConfig())
	}
	l := &Loader{
		client:  client,
		scripts: DefaultScripts,
		logger:  slog.Default(),
		loaded:  map[source.Platform]bool{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

var (
	sharedOnce   sync.Once
	sharedLoader *Loader
)

// SharedLoader returns the process-wide loader, creating it on first use.
func SharedLoader() *Loader {
	sharedOnce.Do(func() {
		sharedLoader = NewLoader(nil)
	})
	return sharedLoader
}

// Loaded reports whether platform's SDK is available.
func (l *Loader) Loaded(platform source.Platform) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[platform]
}

// Load makes platform's SDK available. It returns immediately once loaded.
func (l *Loader) Load(ctx context.Context, platform source.Platform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.Loaded(platform) {
		return nil
	}
	url, ok := l.scripts[platform]
	if !ok {
		return fmt.Errorf("no sdk script for platform %q", platform)
	}

	ch := l.group.DoChan(string(platform), func() (any, error) {
		if l.Loaded(platform) {
			return nil, nil
		}
		// Detached from the first caller so a cancelled mount does not fail
		// the others sharing this download.
		script, err := l.client.Get(context.WithoutCancel(ctx), url)
		if err != nil {
			metrics.RecordSDKLoad(string(platform), false)
			return nil, fmt.Errorf("fetch %s sdk: %w", platform, err)
		}
		if l.install != nil {
			if err := l.install(platform, script); err != nil {
				metrics.RecordSDKLoad(string(platform), false)
				return nil, fmt.Errorf("install %s sdk: %w", platform, err)
			}
		}
		l.mu.Lock()
		l.loaded[platform] = true
		l.mu.Unlock()
		metrics.RecordSDKLoad(string(platform), true)
		l.logger.Debug("sdk loaded", "platform", platform, "bytes", len(script))
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}
