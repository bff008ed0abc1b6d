package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/justchokingaround/playcore/internal/metrics"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/source"
)

// VimeoError is an "error" event or a rejected call of the Vimeo player.
type VimeoError struct {
	Name    string
	Message string
}

func (e *VimeoError) Error() string {
	if e.Message == "" {
		return "vimeo: " + e.Name
	}
	return fmt.Sprintf("vimeo: %s: %s", e.Name, e.Message)
}

func (e *VimeoError) reloadable() bool {
	return e.Name == VimeoNotFoundError || e.Name == VimeoPrivacyError
}

func (e *VimeoError) kind() playerr.ErrorKind {
	switch e.Name {
	case VimeoNotFoundError, VimeoPrivacyError, VimeoPasswordError:
		return playerr.KindSourceUnsupported
	}
	return playerr.KindUnknown
}

func asVimeoError(err error) *VimeoError {
	var ve *VimeoError
	if errors.As(err, &ve) {
		return ve
	}
	return &VimeoError{Name: "Error", Message: err.Error()}
}

// Vimeo drives a Vimeo player. Every SDK call is a promise bound to the
// adapter's lifetime context, so Close abandons calls still in flight.
type Vimeo struct {
	base
	sdk     VimeoSDK
	videoID string

	ctx    context.Context
	cancel context.CancelFunc
	p      VimeoPlayer
}

// NewVimeo returns an adapter for videoID.
func NewVimeo(sdk VimeoSDK, videoID string, events player.Events, opts ...Option) *Vimeo {
	ctx, cancel := context.WithCancel(context.Background())
	return &Vimeo{
		base:    newBase(events, opts),
		sdk:     sdk,
		videoID: videoID,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (v *Vimeo) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return playerr.ErrClosed
	}
	if v.started {
		v.mu.Unlock()
		return nil
	}
	proceed := v.gateLocked()
	v.mu.Unlock()

	if !proceed {
		v.cfg.logger.Debug("vimeo waiting for tap", "video_id", v.videoID)
		return nil
	}
	return v.init(ctx)
}

// Tap releases the mobile gate.
func (v *Vimeo) Tap(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return playerr.ErrClosed
	}
	proceed := v.tapLocked()
	v.wantPlaying = true
	v.mu.Unlock()

	if !proceed {
		return nil
	}
	return v.init(ctx)
}

func (v *Vimeo) init(ctx context.Context) error {
	v.mu.Lock()
	if !v.claimInitLocked() {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	if err := v.cfg.loader.Load(ctx, source.PlatformVimeo); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		v.fatal(playerr.Fatal(playerr.KindNetwork, err))
		return nil
	}

	p, err := v.sdk.NewPlayer(v.videoID)
	if err != nil {
		v.fatal(playerr.Fatal(playerr.KindUnknown, fmt.Errorf("create vimeo player: %w", err)))
		return nil
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		_ = p.Destroy(context.Background())
		return nil
	}
	v.p = p
	v.mu.Unlock()

	p.On("play", func(VimeoEvent) { v.onPlaying(true) })
	p.On("pause", func(VimeoEvent) { v.onPlaying(false) })
	p.On("ended", func(VimeoEvent) { v.onEnded() })
	p.On("bufferstart", func(VimeoEvent) { v.onBuffering(true) })
	p.On("bufferend", func(VimeoEvent) { v.onBuffering(false) })
	p.On("error", func(ev VimeoEvent) { v.onError(&VimeoError{Name: ev.Name, Message: ev.Message}) })

	if err := p.Ready(v.ctx); err != nil {
		if v.ctx.Err() == nil {
			v.onError(asVimeoError(err))
		}
		return nil
	}
	v.onReady(p)
	return nil
}

func (v *Vimeo) onReady(p VimeoPlayer) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.status = player.StatusReady
	pos := v.takeInitialLocked()
	play := v.wantPlaying
	vol, muted, rate := v.volume, v.muted, v.rate
	v.mu.Unlock()

	ctx := v.ctx
	if vol >= 0 {
		_ = p.SetVolume(ctx, float64(vol)/100)
	}
	if muted {
		_ = p.SetMuted(ctx, true)
	}
	if rate != 1 {
		_ = p.SetPlaybackRate(ctx, rate)
	}
	if pos > 0 {
		_ = p.SetCurrentTime(ctx, pos)
	}
	if play {
		_ = p.Play(ctx)
	}
	d, _ := p.GetDuration(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if pos > 0 {
		v.currentTime = pos
	}
	fx := v.observeLocked(v.currentTime, d, 0)
	v.armLocked(v.tick)
	v.mu.Unlock()
	run(fx)
}

func (v *Vimeo) onPlaying(playing bool) {
	v.mu.Lock()
	if v.closed || v.status == player.StatusFailed {
		v.mu.Unlock()
		return
	}
	if playing {
		v.status = player.StatusReady
	}
	fx := v.setPlayingLocked(playing)
	v.mu.Unlock()
	run(fx)
}

func (v *Vimeo) onBuffering(buffering bool) {
	v.mu.Lock()
	if v.closed || v.status == player.StatusFailed {
		v.mu.Unlock()
		return
	}
	fx := v.setBufferingLocked(buffering)
	v.mu.Unlock()
	run(fx)
}

func (v *Vimeo) onEnded() {
	v.mu.Lock()
	if v.closed || v.status == player.StatusFailed {
		v.mu.Unlock()
		return
	}
	v.wantPlaying = false
	fx := v.setPlayingLocked(false)
	fx = append(fx, v.events.Ended)
	v.mu.Unlock()
	run(fx)
}

func (v *Vimeo) onError(verr *VimeoError) {
	v.mu.Lock()
	if v.closed || v.status == player.StatusFailed {
		v.mu.Unlock()
		return
	}
	p := v.p
	if verr.reloadable() && !v.reloaded && p != nil {
		v.reloaded = true
		v.status = player.StatusRecovering
		v.lastErr = playerr.Fatal(verr.kind(), verr)
		pos, play := v.currentTime, v.playing || v.wantPlaying
		fx := v.setBufferingLocked(true)
		v.mu.Unlock()

		v.cfg.logger.Info("reloading vimeo video", "video_id", v.videoID, "error", verr.Name, "position", pos)
		metrics.RecordRetry(verr.kind().String())
		run(fx)
		v.reload(p, pos, play)
		return
	}
	v.mu.Unlock()
	v.fatal(playerr.Fatal(verr.kind(), verr))
}

func (v *Vimeo) reload(p VimeoPlayer, pos float64, play bool) {
	ctx := v.ctx
	if err := p.LoadVideo(ctx, v.videoID); err != nil {
		if ctx.Err() == nil {
			v.onError(asVimeoError(err))
		}
		return
	}
	if pos > 0 {
		_ = p.SetCurrentTime(ctx, pos)
	}
	if play {
		_ = p.Play(ctx)
	}
	v.mu.Lock()
	if v.closed || v.status == player.StatusFailed {
		v.mu.Unlock()
		return
	}
	v.status = player.StatusReady
	fx := v.setBufferingLocked(false)
	if v.poll == nil {
		v.armLocked(v.tick)
	}
	v.mu.Unlock()
	run(fx)
}

func (v *Vimeo) fatal(err *playerr.PlaybackFatalError) {
	err.Exhausted = true
	v.mu.Lock()
	if v.closed || v.status == player.StatusFailed {
		v.mu.Unlock()
		return
	}
	fx := v.failLocked(err)
	v.mu.Unlock()
	v.cfg.logger.Warn("vimeo player failed", "video_id", v.videoID, "error", err)
	run(fx)
}

func (v *Vimeo) tick(gen uint64) {
	v.mu.Lock()
	if !v.pollLiveLocked(gen) || v.p == nil {
		v.mu.Unlock()
		return
	}
	v.poll = nil
	p := v.p
	v.mu.Unlock()

	t, terr := p.GetCurrentTime(v.ctx)
	d, _ := p.GetDuration(v.ctx)

	v.mu.Lock()
	if !v.pollLiveLocked(gen) {
		v.mu.Unlock()
		return
	}
	if terr != nil {
		t = v.currentTime
	}
	fx := v.observeLocked(t, d, 0)
	v.armLocked(v.tick)
	v.mu.Unlock()
	run(fx)
}

func (v *Vimeo) control(update func()) (VimeoPlayer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, playerr.ErrClosed
	}
	update()
	if v.status != player.StatusReady && v.status != player.StatusRecovering {
		return nil, nil
	}
	return v.p, nil
}

func (v *Vimeo) Play() error {
	p, err := v.control(func() { v.wantPlaying = true })
	if p == nil {
		return err
	}
	return wrapVimeo("play", p.Play(v.ctx))
}

func (v *Vimeo) Pause() error {
	p, err := v.control(func() { v.wantPlaying = false })
	if p == nil {
		return err
	}
	return wrapVimeo("pause", p.Pause(v.ctx))
}

func (v *Vimeo) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	p, err := v.control(func() {
		if !v.initialApplied {
			v.initialPos = seconds
		}
	})
	if p == nil {
		return err
	}
	if err := p.SetCurrentTime(v.ctx, seconds); err != nil {
		return wrapVimeo("seek", err)
	}
	v.mu.Lock()
	v.currentTime = seconds
	v.mu.Unlock()
	v.events.Seeking(seconds)
	return nil
}

func (v *Vimeo) SetVolume(volume int) error {
	volume = player.ClampVolume(volume)
	p, err := v.control(func() { v.volume = volume })
	if p == nil {
		return err
	}
	return wrapVimeo("set volume", p.SetVolume(v.ctx, float64(volume)/100))
}

func (v *Vimeo) SetMuted(muted bool) error {
	p, err := v.control(func() { v.muted = muted })
	if p == nil {
		return err
	}
	return wrapVimeo("set muted", p.SetMuted(v.ctx, muted))
}

func (v *Vimeo) SetPlaybackRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	p, err := v.control(func() { v.rate = rate })
	if p == nil {
		return err
	}
	if err := p.SetPlaybackRate(v.ctx, rate); err != nil {
		return wrapVimeo("set playback rate", err)
	}
	v.events.RateChange(rate)
	return nil
}

func wrapVimeo(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("vimeo %s: %w", op, err)
}

func (v *Vimeo) State() player.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

// Close cancels in-flight calls, clears the poll timer and destroys the
// player.
func (v *Vimeo) Close() error {
	v.mu.Lock()
	if !v.closeLocked() {
		v.mu.Unlock()
		return nil
	}
	p := v.p
	v.p = nil
	v.mu.Unlock()

	v.cancel()
	if p != nil {
		return p.Destroy(context.Background())
	}
	return nil
}

var (
	_ player.Adapter = (*Vimeo)(nil)
	_ player.Tapper  = (*Vimeo)(nil)
)
