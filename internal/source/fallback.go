package source

// Fallback is the outer source state machine of a playback session. Each
// source kind is attempted at most once and the session demotes to the
// embed candidate at most once; after that every failure is terminal.
type Fallback struct {
	active    Descriptor
	embed     Descriptor
	hasEmbed  bool
	visited   map[Kind]bool
	demoted   bool
	exhausted bool
}

// NewFallback starts a session on active. embed is the demotion target, if
// any.
func NewFallback(active, embed Descriptor, hasEmbed bool) *Fallback {
	f := &Fallback{
		active:   active,
		embed:    embed,
		hasEmbed: hasEmbed,
		visited:  map[Kind]bool{},
	}
	if !active.IsZero() {
		f.visited[active.Kind] = true
	} else {
		f.exhausted = true
	}
	return f
}

// Active returns the descriptor currently being attempted.
func (f *Fallback) Active() Descriptor {
	return f.active
}

// Fail records a fatal failure of the active source and returns the next
// descriptor to try. ok is false once the session is exhausted.
func (f *Fallback) Fail() (next Descriptor, ok bool) {
	if f.exhausted {
		return Descriptor{}, false
	}
	if !f.demoted && f.hasEmbed && !f.visited[f.embed.Kind] && f.embed != f.active {
		f.demoted = true
		f.active = f.embed
		f.visited[f.embed.Kind] = true
		return f.embed, true
	}
	f.exhausted = true
	f.active = Descriptor{}
	return Descriptor{}, false
}

// Demoted reports whether the one-time fallback has been used.
func (f *Fallback) Demoted() bool {
	return f.demoted
}

// Exhausted reports whether no source is left.
func (f *Fallback) Exhausted() bool {
	return f.exhausted
}
