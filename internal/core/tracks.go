package core

import (
	"context"
	"fmt"

	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/playerr"
)

// SelectTrack attaches the dubbed track id, or returns to the original audio
// for an empty id. Failures are non-fatal: the selection reverts to the
// original audio and video playback is untouched.
func (c *Core) SelectTrack(ctx context.Context, id string) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return playerr.ErrClosed
	case !c.mounted:
		c.mu.Unlock()
		return ErrNotMounted
	}
	gen := c.gen
	movieID := c.movie.ID

	if id == "" {
		sy, had := c.sync, c.trackID != ""
		c.trackID = ""
		c.mu.Unlock()
		if sy != nil {
			sy.Detach()
		}
		c.savePreference(ctx, movieID, "")
		c.notifyTrack(had)
		return nil
	}

	track, ok := c.movie.DubbedTracks.Find(id)
	if !ok || !track.Selectable() {
		c.mu.Unlock()
		return fmt.Errorf("%w: track %q is not selectable", playerr.ErrDubAudioUnavailable, id)
	}
	if c.nat == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: dubbing needs a native source", playerr.ErrDubAudioUnavailable)
	}
	if c.sync == nil {
		opts := append([]dub.Option{
			dub.WithLogger(c.logger),
			dub.WithOnLost(func(t dub.Track, err error) { c.onTrackLost(gen, t, err) }),
		}, c.cfg.DubOptions...)
		c.sync = dub.New(c.nat, c.cfg.TrackResolver, c.cfg.NewAudioElement, opts...)
	}
	sy := c.sync
	had := c.trackID != ""
	c.mu.Unlock()

	err := sy.Attach(ctx, track)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return playerr.ErrSuperseded
	}
	if err != nil {
		c.trackID = ""
		c.mu.Unlock()
		c.logger.Warn("dubbed track unavailable, keeping original audio", "movie_id", movieID, "track", id, "error", err)
		c.notifyTrack(had)
		return err
	}
	c.trackID = id
	c.mu.Unlock()

	c.savePreference(ctx, movieID, track.LanguageCode)
	if cb := c.cfg.Host.OnTrackChanged; cb != nil {
		cb(id)
	}
	return nil
}

func (c *Core) onTrackLost(gen generation, t dub.Track, err error) {
	c.mu.Lock()
	if c.gen != gen || c.trackID != t.ID {
		c.mu.Unlock()
		return
	}
	c.trackID = ""
	c.mu.Unlock()
	c.logger.Warn("dubbed track lost", "track", t.ID, "error", err)
	c.notifyTrack(true)
}

// restoreAudioPreference re-attaches the language remembered for the movie.
func (c *Core) restoreAudioPreference(ctx context.Context, gen generation, movieID string) {
	if c.cfg.Preferences == nil {
		return
	}
	lang, err := c.cfg.Preferences.AudioLanguage(ctx, movieID)
	if err != nil {
		c.logger.Debug("load audio preference", "movie_id", movieID, "error", err)
		return
	}
	if lang == "" {
		return
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	track, ok := c.movie.DubbedTracks.ByLanguage(lang)
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := c.SelectTrack(ctx, track.ID); err != nil {
		c.logger.Debug("restore audio preference", "movie_id", movieID, "language", lang, "error", err)
	}
}

func (c *Core) savePreference(ctx context.Context, movieID, lang string) {
	if c.cfg.Preferences == nil {
		return
	}
	if err := c.cfg.Preferences.SetAudioLanguage(ctx, movieID, lang); err != nil {
		c.logger.Debug("save audio preference", "movie_id", movieID, "error", err)
	}
}
