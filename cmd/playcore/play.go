package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/justchokingaround/playcore/internal/catalog"
	"github.com/justchokingaround/playcore/internal/clipboard"
	"github.com/justchokingaround/playcore/internal/config"
	"github.com/justchokingaround/playcore/internal/core"
	"github.com/justchokingaround/playcore/internal/database"
	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/history"
	"github.com/justchokingaround/playcore/internal/metrics"
	"github.com/justchokingaround/playcore/internal/player/embed"
	"github.com/justchokingaround/playcore/internal/player/mpv"
	"github.com/justchokingaround/playcore/internal/player/native"
	"github.com/justchokingaround/playcore/internal/resolver"
	"github.com/justchokingaround/playcore/internal/source"
	"github.com/justchokingaround/playcore/internal/tui"
	"github.com/justchokingaround/playcore/internal/tui/common"
)

var mobileFlag bool

var playCmd = &cobra.Command{
	Use:   "play [movie-id]",
	Short: "Browse the catalog or play a movie directly",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		return runPlay(cmd.Context(), id)
	},
}

func init() {
	playCmd.Flags().BoolVar(&mobileFlag, "mobile", false, "behave as a mobile device (tap to start embeds, prefer the mobile mp4)")
}

func runPlay(ctx context.Context, movieID string) error {
	logger.Info("playcore starting", "version", version)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	var autoplay *core.Movie
	if movieID != "" {
		m, err := cat.Get(movieID)
		if err != nil {
			return err
		}
		autoplay = &m
	}

	store := history.NewService(database.GetDB(),
		history.WithCompletedThreshold(cfg.Progress.CompletedThreshold))
	reporter := history.NewReporter(store,
		history.WithReportInterval(cfg.Progress.ReportInterval),
		history.WithReporterLogger(logger))

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, logger)
		if err := srv.Start(); err != nil {
			logger.Warn("failed to start metrics server", "addr", cfg.Metrics.Addr, "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
	}

	var player *core.Core
	bridge := common.NewBridge(reporter.Hooks(ctx, func() history.Session {
		if player == nil {
			return nil
		}
		return player
	}))

	api := resolver.NewClient(resolver.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Debug:   cfg.Advanced.Debug,
	}, logger)

	player = core.New(coreConfig(cfg, api, store, bridge.Host()))
	defer func() {
		reporter.Flush(context.Background())
		if err := player.Close(); err != nil {
			logger.Warn("failed to close player", "error", err)
		}
	}()

	err = tui.Run(ctx, bridge, tui.Options{
		Catalog:  cat,
		Player:   player,
		Copier:   clipboard.NewService(cfg.Advanced.ClipboardCommand, logger),
		Volume:   cfg.Player.Volume,
		Logger:   logger,
		Autoplay: autoplay,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// coreConfig maps the player settings onto the core and its adapters.
// YouTube, Vimeo and Loader stay unset: a terminal has no webview to drive an
// SDK, so platform embeds resolve to the iframe tier.
func coreConfig(c *config.Config, api *resolver.Client, store *history.Service, host core.Host) core.Config {
	p := c.Player
	return core.Config{
		Mobile:        p.Mobile || mobileFlag,
		AssetResolver: api,
		TrackResolver: api,
		Classifier:    newClassifier(c),
		Progress:      store,
		Preferences:   store,
		MPV: mpv.Options{
			Executable:     p.MPVPath,
			LoadUserConfig: p.LoadUserConfig,
			Debug:          c.Advanced.Debug,
			PollInterval:   p.PollInterval,
		},
		NativeOptions: []native.Option{
			native.WithRetryPolicy(p.MaxRetries, p.RetryStep),
			native.WithStallGrace(p.StallGrace),
			native.WithStallCap(p.StallCap, p.StallWindow),
		},
		EmbedOptions: []embed.Option{
			embed.WithPollInterval(p.EmbedPollInterval),
		},
		DubOptions: []dub.Option{
			dub.WithDriftTolerance(p.DriftTolerance),
			dub.WithDuckVolume(p.DuckVolume),
		},
		ResumeThreshold: p.ResumeThreshold,
		Volume:          p.Volume,
		Host:            host,
		Logger:          logger,
	}
}

func newClassifier(c *config.Config) *source.Classifier {
	var opts []source.ClassifierOption
	if len(c.Sources.StorageHosts) > 0 {
		opts = append(opts, source.WithStorageHosts(c.Sources.StorageHosts))
	}
	if len(c.Sources.MediaExtensions) > 0 {
		opts = append(opts, source.WithMediaExtensions(c.Sources.MediaExtensions))
	}
	return source.NewClassifier(opts...)
}
