package core

import (
	"context"
	"log/slog"

	"github.com/justchokingaround/playcore/internal/clock"
	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/player/embed"
	"github.com/justchokingaround/playcore/internal/player/mpv"
	"github.com/justchokingaround/playcore/internal/player/native"
	"github.com/justchokingaround/playcore/internal/source"
)

// DefaultResumeThreshold is the fraction of the duration past which a saved
// position is ignored and playback starts over.
const DefaultResumeThreshold = 0.85

// ProgressLoader seeds the initial seek target once per mount.
type ProgressLoader interface {
	LoadSavedProgress(ctx context.Context, movieID string) (seconds float64, ok bool, err error)
}

// AudioPreferences remembers the dubbed language chosen per movie. An empty
// language means the original audio.
type AudioPreferences interface {
	AudioLanguage(ctx context.Context, movieID string) (string, error)
	SetAudioLanguage(ctx context.Context, movieID, language string) error
}

// ElementFactory creates the primary native element for a descriptor.
type ElementFactory func(d source.Descriptor) native.Element

// Config wires the core to its collaborators.
type Config struct {
	// Mobile enables tap gating for the controllable embeds and makes the
	// mobile mp4 eligible.
	Mobile bool

	AssetResolver source.AssetResolver
	TrackResolver dub.TrackResolver
	Classifier    *source.Classifier
	Progress      ProgressLoader
	Preferences   AudioPreferences

	// NewElement defaults to an mpv process per source.
	NewElement ElementFactory
	// NewAudioElement defaults to an audio-only mpv process.
	NewAudioElement dub.ElementFactory
	MPV             mpv.Options

	// YouTube and Vimeo are the platform SDKs. Without one the platform is
	// played through the iframe tier.
	YouTube  embed.YouTubeSDK
	Vimeo    embed.VimeoSDK
	Loader   *embed.Loader
	Renderer embed.Renderer

	NativeOptions []native.Option
	EmbedOptions  []embed.Option
	DubOptions    []dub.Option

	ResumeThreshold float64
	Volume          int

	Host   Host
	Clock  clock.Clock
	Logger *slog.Logger
}

func (cfg *Config) setDefaults() {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.ResumeThreshold <= 0 || cfg.ResumeThreshold > 1 {
		cfg.ResumeThreshold = DefaultResumeThreshold
	}
	if cfg.Volume <= 0 || cfg.Volume > 100 {
		cfg.Volume = 100
	}
	if cfg.NewElement == nil {
		opts, logger, clk := cfg.MPV, cfg.Logger, cfg.Clock
		cfg.NewElement = func(source.Descriptor) native.Element {
			return mpv.New(opts, mpv.WithLogger(logger), mpv.WithClock(clk))
		}
	}
	if cfg.NewAudioElement == nil {
		opts, logger, clk := cfg.MPV, cfg.Logger, cfg.Clock
		opts.AudioOnly = true
		cfg.NewAudioElement = func() native.Element {
			return mpv.New(opts, mpv.WithLogger(logger), mpv.WithClock(clk))
		}
	}
}
