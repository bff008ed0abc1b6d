package native

import "time"

const (
	DefaultStallGrace  = 3 * time.Second
	DefaultStallCap    = 3
	DefaultStallWindow = time.Minute
)

// StallGuard caps stall recoveries inside a sliding window. Once the cap is
// reached further stalls are escalated to a fatal network error instead of
// reloading forever on a poor connection.
type StallGuard struct {
	Cap    int
	Window time.Duration
	hits   []time.Time
}

// NewStallGuard returns a guard allowing cap recoveries per window.
func NewStallGuard(cap int, window time.Duration) *StallGuard {
	if cap <= 0 {
		cap = DefaultStallCap
	}
	if window <= 0 {
		window = DefaultStallWindow
	}
	return &StallGuard{Cap: cap, Window: window}
}

// Allow records a stall at now and reports whether a recovery may run.
func (g *StallGuard) Allow(now time.Time) bool {
	cutoff := now.Add(-g.Window)
	kept := g.hits[:0]
	for _, t := range g.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.hits = kept
	if len(g.hits) >= g.Cap {
		return false
	}
	g.hits = append(g.hits, now)
	return true
}

// Count returns the recoveries inside the current window as of the last call.
func (g *StallGuard) Count() int {
	return len(g.hits)
}
