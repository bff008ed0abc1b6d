package embed

import (
	"context"
	"fmt"

	"github.com/justchokingaround/playcore/internal/metrics"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/source"
)

// YouTubeError is a player error code reported by the IFrame API.
type YouTubeError struct {
	Code int
}

func (e *YouTubeError) Error() string {
	switch e.Code {
	case YouTubeErrInvalidParam:
		return "youtube: invalid parameter"
	case YouTubeErrHTML5:
		return "youtube: html5 player error"
	case YouTubeErrNotFound:
		return "youtube: video unavailable"
	case YouTubeErrEmbedDisabled, YouTubeErrEmbedDisabledAlt:
		return "youtube: embedding disabled"
	default:
		return fmt.Sprintf("youtube: error %d", e.Code)
	}
}

// reloadable reports whether the code is worth one reload.
func (e *YouTubeError) reloadable() bool {
	switch e.Code {
	case YouTubeErrNotFound, YouTubeErrEmbedDisabled, YouTubeErrEmbedDisabledAlt:
		return true
	}
	return false
}

func (e *YouTubeError) kind() playerr.ErrorKind {
	switch e.Code {
	case YouTubeErrHTML5:
		return playerr.KindDecode
	case YouTubeErrInvalidParam, YouTubeErrNotFound, YouTubeErrEmbedDisabled, YouTubeErrEmbedDisabledAlt:
		return playerr.KindSourceUnsupported
	}
	return playerr.KindUnknown
}

// YouTube drives a YouTube IFrame API player. Time and duration are polled;
// play state arrives through state-change events.
type YouTube struct {
	base
	sdk     YouTubeSDK
	videoID string

	p            YouTubePlayer
	readyPending bool
}

// NewYouTube returns an adapter for videoID. Nothing is loaded until Start
// (and, on mobile, Tap).
func NewYouTube(sdk YouTubeSDK, videoID string, events player.Events, opts ...Option) *YouTube {
	return &YouTube{
		base:    newBase(events, opts),
		sdk:     sdk,
		videoID: videoID,
	}
}

func (y *YouTube) Start(ctx context.Context) error {
	y.mu.Lock()
	if y.closed {
		y.mu.Unlock()
		return playerr.ErrClosed
	}
	if y.started {
		y.mu.Unlock()
		return nil
	}
	proceed := y.gateLocked()
	y.mu.Unlock()

	if !proceed {
		y.cfg.logger.Debug("youtube waiting for tap", "video_id", y.videoID)
		return nil
	}
	return y.init(ctx)
}

// Tap releases the mobile gate.
func (y *YouTube) Tap(ctx context.Context) error {
	y.mu.Lock()
	if y.closed {
		y.mu.Unlock()
		return playerr.ErrClosed
	}
	proceed := y.tapLocked()
	y.wantPlaying = true
	y.mu.Unlock()

	if !proceed {
		return nil
	}
	return y.init(ctx)
}

func (y *YouTube) init(ctx context.Context) error {
	y.mu.Lock()
	if !y.claimInitLocked() {
		y.mu.Unlock()
		return nil
	}
	y.mu.Unlock()

	if err := y.cfg.loader.Load(ctx, source.PlatformYouTube); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		y.fatal(playerr.Fatal(playerr.KindNetwork, err))
		return nil
	}

	p, err := y.sdk.NewPlayer(y.videoID, YouTubeHandlers{
		OnReady:       y.onReady,
		OnStateChange: y.onStateChange,
		OnError:       y.onError,
	})
	if err != nil {
		y.fatal(playerr.Fatal(playerr.KindUnknown, fmt.Errorf("create youtube player: %w", err)))
		return nil
	}

	y.mu.Lock()
	if y.closed {
		y.mu.Unlock()
		p.Destroy()
		return nil
	}
	y.p = p
	pending := y.readyPending
	y.mu.Unlock()

	if pending {
		y.onReady()
	}
	return nil
}

func (y *YouTube) fatal(err *playerr.PlaybackFatalError) {
	err.Exhausted = true
	y.mu.Lock()
	if y.closed || y.status == player.StatusFailed {
		y.mu.Unlock()
		return
	}
	fx := y.failLocked(err)
	y.mu.Unlock()
	y.cfg.logger.Warn("youtube player failed", "video_id", y.videoID, "error", err)
	run(fx)
}

func (y *YouTube) onReady() {
	y.mu.Lock()
	if y.closed {
		y.mu.Unlock()
		return
	}
	p := y.p
	if p == nil {
		y.readyPending = true
		y.mu.Unlock()
		return
	}
	y.readyPending = false
	y.status = player.StatusReady
	pos := y.takeInitialLocked()
	play := y.wantPlaying
	vol, muted, rate := y.volume, y.muted, y.rate
	y.armLocked(y.tick)
	y.mu.Unlock()

	if vol >= 0 {
		p.SetVolume(vol)
	}
	if muted {
		p.Mute()
	}
	if rate != 1 {
		p.SetPlaybackRate(rate)
	}
	if pos > 0 {
		p.SeekTo(pos, true)
	}
	if play {
		p.PlayVideo()
	}

	d := p.GetDuration()
	y.mu.Lock()
	if y.closed {
		y.mu.Unlock()
		return
	}
	if pos > 0 {
		y.currentTime = pos
	}
	fx := y.observeLocked(y.currentTime, d, 0)
	y.mu.Unlock()
	run(fx)
}

func (y *YouTube) onStateChange(s YouTubeState) {
	y.mu.Lock()
	if y.closed || y.status == player.StatusFailed {
		y.mu.Unlock()
		return
	}
	var fx []func()
	switch s {
	case YouTubePlaying:
		y.status = player.StatusReady
		fx = y.setPlayingLocked(true)
	case YouTubePaused, YouTubeCued:
		if y.status == player.StatusRecovering {
			y.status = player.StatusReady
		}
		fx = y.setPlayingLocked(false)
	case YouTubeBuffering:
		fx = y.setBufferingLocked(true)
	case YouTubeEnded:
		if y.status == player.StatusRecovering {
			y.status = player.StatusReady
		}
		y.wantPlaying = false
		fx = y.setPlayingLocked(false)
		fx = append(fx, y.events.Ended)
	}
	y.mu.Unlock()
	run(fx)
}

func (y *YouTube) onError(code int) {
	yerr := &YouTubeError{Code: code}

	y.mu.Lock()
	if y.closed || y.status == player.StatusFailed {
		y.mu.Unlock()
		return
	}
	p := y.p
	if yerr.reloadable() && !y.reloaded && p != nil {
		y.reloaded = true
		y.status = player.StatusRecovering
		y.lastErr = playerr.Fatal(yerr.kind(), yerr)
		pos := y.currentTime
		fx := y.setBufferingLocked(true)
		y.mu.Unlock()

		y.cfg.logger.Info("reloading youtube video", "video_id", y.videoID, "code", code, "position", pos)
		metrics.RecordRetry(yerr.kind().String())
		run(fx)
		p.LoadVideoByID(y.videoID, pos)
		return
	}
	y.mu.Unlock()
	y.fatal(playerr.Fatal(yerr.kind(), yerr))
}

func (y *YouTube) tick(gen uint64) {
	y.mu.Lock()
	if !y.pollLiveLocked(gen) || y.p == nil {
		y.mu.Unlock()
		return
	}
	y.poll = nil
	p := y.p
	y.mu.Unlock()

	t, d, r := p.GetCurrentTime(), p.GetDuration(), p.GetPlaybackRate()

	y.mu.Lock()
	if !y.pollLiveLocked(gen) {
		y.mu.Unlock()
		return
	}
	fx := y.observeLocked(t, d, r)
	y.armLocked(y.tick)
	y.mu.Unlock()
	run(fx)
}

// control returns the live player, or nil if commands must be deferred.
func (y *YouTube) control(update func()) (YouTubePlayer, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return nil, playerr.ErrClosed
	}
	update()
	if y.status != player.StatusReady && y.status != player.StatusRecovering {
		return nil, nil
	}
	return y.p, nil
}

func (y *YouTube) Play() error {
	p, err := y.control(func() { y.wantPlaying = true })
	if p != nil {
		p.PlayVideo()
	}
	return err
}

func (y *YouTube) Pause() error {
	p, err := y.control(func() { y.wantPlaying = false })
	if p != nil {
		p.PauseVideo()
	}
	return err
}

func (y *YouTube) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	p, err := y.control(func() {
		if !y.initialApplied {
			y.initialPos = seconds
		}
	})
	if err != nil || p == nil {
		return err
	}
	p.SeekTo(seconds, true)
	y.mu.Lock()
	y.currentTime = seconds
	y.mu.Unlock()
	y.events.Seeking(seconds)
	return nil
}

func (y *YouTube) SetVolume(volume int) error {
	volume = player.ClampVolume(volume)
	p, err := y.control(func() { y.volume = volume })
	if p != nil {
		p.SetVolume(volume)
	}
	return err
}

func (y *YouTube) SetMuted(muted bool) error {
	p, err := y.control(func() { y.muted = muted })
	if p != nil {
		if muted {
			p.Mute()
		} else {
			p.UnMute()
		}
	}
	return err
}

func (y *YouTube) SetPlaybackRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	p, err := y.control(func() { y.rate = rate })
	if p != nil {
		p.SetPlaybackRate(rate)
		y.events.RateChange(rate)
	}
	return err
}

func (y *YouTube) State() player.State {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.stateLocked()
}

// Close destroys the SDK player and clears the poll timer.
func (y *YouTube) Close() error {
	y.mu.Lock()
	if !y.closeLocked() {
		y.mu.Unlock()
		return nil
	}
	p := y.p
	y.p = nil
	y.mu.Unlock()

	if p != nil {
		p.Destroy()
	}
	return nil
}

var (
	_ player.Adapter = (*YouTube)(nil)
	_ player.Tapper  = (*YouTube)(nil)
)
