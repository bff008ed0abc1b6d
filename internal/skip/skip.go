// Package skip decides when the skip-intro and skip-credits affordances are
// offered and performs the skips.
package skip

import (
	"errors"
	"sync"

	"github.com/justchokingaround/playcore/internal/player"
)

var (
	// ErrNoWindow is returned when the title has no window for the skip.
	ErrNoWindow = errors.New("no skip window configured")
	// ErrDurationUnknown is returned when skipping credits before the
	// duration is known.
	ErrDurationUnknown = errors.New("duration not known yet")
)

// Windows are the optional skip boundaries of a title, in seconds. A nil
// boundary disables its affordance for the title.
type Windows struct {
	IntroEnd     *float64 `json:"intro_end,omitempty" yaml:"intro_end,omitempty"`
	CreditsStart *float64 `json:"credits_start,omitempty" yaml:"credits_start,omitempty"`
}

// At returns a pointer to seconds, for building Windows literals.
func At(seconds float64) *float64 {
	return &seconds
}

// Visibility holds the two independent affordance flags.
type Visibility struct {
	Intro   bool `json:"intro"`
	Credits bool `json:"credits"`
}

// Evaluate is the pure visibility rule.
func Evaluate(w Windows, t, duration float64) Visibility {
	return Visibility{
		Intro:   w.IntroEnd != nil && *w.IntroEnd > 0 && t < *w.IntroEnd,
		Credits: w.CreditsStart != nil && t >= *w.CreditsStart && t < duration,
	}
}

// Seeker is anything that can seek, usually the active adapter.
type Seeker interface {
	Seek(seconds float64) error
}

// Controller re-evaluates visibility on every time update and notifies on
// changes.
type Controller struct {
	mu       sync.Mutex
	windows  Windows
	t        float64
	duration float64
	vis      Visibility
	onChange func(Visibility)
}

// NewController returns a controller over w. onChange may be nil.
func NewController(w Windows, onChange func(Visibility)) *Controller {
	c := &Controller{windows: w, onChange: onChange}
	c.vis = Evaluate(w, 0, 0)
	return c
}

// Windows returns the configured windows.
func (c *Controller) Windows() Windows {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windows
}

// Visibility returns the current flags.
func (c *Controller) Visibility() Visibility {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vis
}

// Update feeds a time update.
func (c *Controller) Update(t float64) Visibility {
	c.mu.Lock()
	c.t = t
	return c.reevaluate()
}

// SetDuration records the title duration.
func (c *Controller) SetDuration(d float64) Visibility {
	c.mu.Lock()
	c.duration = d
	return c.reevaluate()
}

// reevaluate must be called with mu held; it releases it.
func (c *Controller) reevaluate() Visibility {
	vis := Evaluate(c.windows, c.t, c.duration)
	changed := vis != c.vis
	c.vis = vis
	cb := c.onChange
	c.mu.Unlock()

	if changed && cb != nil {
		cb(vis)
	}
	return vis
}

// SkipIntro seeks once to the end of the intro. Play state is untouched.
func (c *Controller) SkipIntro(s Seeker) error {
	c.mu.Lock()
	end := c.windows.IntroEnd
	c.mu.Unlock()
	if end == nil {
		return ErrNoWindow
	}
	return s.Seek(*end)
}

// SkipCredits seeks once to the end of the title.
func (c *Controller) SkipCredits(s Seeker) error {
	c.mu.Lock()
	start, d := c.windows.CreditsStart, c.duration
	c.mu.Unlock()
	if start == nil {
		return ErrNoWindow
	}
	if d <= 0 {
		return ErrDurationUnknown
	}
	return s.Seek(d)
}

// Chapters builds timeline markers for the windows, for players that can show
// them.
func Chapters(w Windows, duration float64) []player.Chapter {
	if w.IntroEnd == nil && w.CreditsStart == nil {
		return nil
	}
	var out []player.Chapter
	if w.IntroEnd != nil && *w.IntroEnd > 0 {
		out = append(out,
			player.Chapter{Title: "Intro", Time: 0},
			player.Chapter{Title: "Main", Time: *w.IntroEnd},
		)
	} else {
		out = append(out, player.Chapter{Title: "Main", Time: 0})
	}
	if w.CreditsStart != nil && (duration <= 0 || *w.CreditsStart < duration) {
		out = append(out, player.Chapter{Title: "Credits", Time: *w.CreditsStart})
	}
	return out
}
