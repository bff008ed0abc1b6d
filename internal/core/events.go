package core

import (
	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/skip"
)

// eventsFor binds adapter events to gen. Events from an adapter that is no
// longer current are dropped.
func (c *Core) eventsFor(gen generation) player.Events {
	return player.Events{
		OnTimeUpdate:       func(t float64) { c.onTime(gen, t) },
		OnDurationKnown:    func(d float64) { c.onDuration(gen, d) },
		OnPlayStateChanged: func(playing bool) { c.onPlayState(gen, playing) },
		OnBuffering:        func(b bool) { c.onBuffering(gen, b) },
		OnStalled:          func() { c.onBuffering(gen, true) },
		OnFatalError:       func(err error) { c.onFatal(gen, err) },
		OnSeeking:          func(t float64) { c.onSeeking(gen, t) },
		OnRateChange:       func(r float64) { c.onRate(gen, r) },
		OnEnded:            func() { c.onEnded(gen) },
	}
}

// bound returns the controllers of gen, or ok=false when gen is stale.
func (c *Core) bound(gen generation) (sk *skip.Controller, sy *dub.Synchronizer, ok bool) {
	if c.closed || c.gen != gen {
		return nil, nil, false
	}
	return c.skip, c.sync, true
}

func (c *Core) onTime(gen generation, t float64) {
	c.mu.Lock()
	sk, sy, ok := c.bound(gen)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.time = t
	fx := c.setOutcomeLocked(playerr.OutcomePlaying, nil)
	fx = append(fx, c.telemetryLocked()...)
	c.mu.Unlock()

	run(fx)
	sk.Update(t)
	if sy != nil {
		sy.TimeUpdate(t)
	}
}

func (c *Core) onDuration(gen generation, d float64) {
	c.mu.Lock()
	sk, _, ok := c.bound(gen)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.duration = d
	el := c.element
	windows := c.movie.Skip
	fx := c.setOutcomeLocked(playerr.OutcomePlaying, nil)
	fx = append(fx, c.telemetryLocked()...)
	c.mu.Unlock()

	run(fx)
	sk.SetDuration(d)
	if cs, ok := el.(chapterSetter); ok {
		if chapters := skip.Chapters(windows, d); len(chapters) > 0 {
			if err := cs.SetChapters(chapters); err != nil {
				c.logger.Debug("set chapters", "error", err)
			}
		}
	}
}

func (c *Core) onPlayState(gen generation, playing bool) {
	c.mu.Lock()
	_, sy, ok := c.bound(gen)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.playing = playing
	var fx []func()
	if playing {
		fx = c.setOutcomeLocked(playerr.OutcomePlaying, nil)
	}
	fx = append(fx, c.telemetryLocked()...)
	c.mu.Unlock()

	run(fx)
	if sy != nil {
		sy.PlayStateChanged(playing)
	}
}

func (c *Core) onBuffering(gen generation, buffering bool) {
	c.mu.Lock()
	if _, _, ok := c.bound(gen); !ok {
		c.mu.Unlock()
		return
	}
	o := playerr.OutcomePlaying
	if buffering {
		o = playerr.OutcomeRecovering
	}
	fx := c.setOutcomeLocked(o, nil)
	c.mu.Unlock()
	run(fx)
}

func (c *Core) onSeeking(gen generation, t float64) {
	c.mu.Lock()
	sk, sy, ok := c.bound(gen)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.time = t
	c.mu.Unlock()

	sk.Update(t)
	if sy != nil {
		sy.Seeking(t)
	}
}

func (c *Core) onRate(gen generation, rate float64) {
	c.mu.Lock()
	_, sy, ok := c.bound(gen)
	c.mu.Unlock()
	if ok && sy != nil {
		sy.RateChange(rate)
	}
}

func (c *Core) onEnded(gen generation) {
	c.mu.Lock()
	if _, _, ok := c.bound(gen); !ok {
		c.mu.Unlock()
		return
	}
	c.playing = false
	if c.duration > 0 {
		c.time = c.duration
	}
	fx := c.telemetryLocked()
	c.mu.Unlock()

	run(fx)
	if cb := c.cfg.Host.OnEnded; cb != nil {
		cb()
	}
}
