// Package source classifies raw video URLs and decides which of a title's
// candidate sources should play.
package source

import "fmt"

// Kind is the playable source tier.
type Kind string

const (
	KindNone      Kind = ""
	KindHostedMP4 Kind = "hosted-mp4"
	KindDirectMP4 Kind = "direct-mp4"
	KindMobileMP4 Kind = "mobile-mp4"
	KindEmbed     Kind = "embed"
)

// Native reports whether the kind plays through a native media element.
func (k Kind) Native() bool {
	return k == KindHostedMP4 || k == KindDirectMP4 || k == KindMobileMP4
}

// Platform identifies an external video platform for embed sources.
type Platform string

const (
	PlatformNone        Platform = ""
	PlatformYouTube     Platform = "youtube"
	PlatformVimeo       Platform = "vimeo"
	PlatformDailymotion Platform = "dailymotion"
	PlatformStreamable  Platform = "streamable"
	PlatformGeneric     Platform = "generic"
)

// Controllable reports whether the platform ships a player SDK with a
// control API. Everything else is rendered as a bare iframe.
func (p Platform) Controllable() bool {
	return p == PlatformYouTube || p == PlatformVimeo
}

// Descriptor is an immutable description of one playable source.
type Descriptor struct {
	Kind      Kind     `json:"kind"`
	Platform  Platform `json:"platform,omitempty"`
	Reference string   `json:"reference"`
}

// IsZero reports whether d describes no source.
func (d Descriptor) IsZero() bool {
	return d.Kind == KindNone
}

func (d Descriptor) String() string {
	if d.Platform != PlatformNone {
		return fmt.Sprintf("%s/%s:%s", d.Kind, d.Platform, d.Reference)
	}
	return fmt.Sprintf("%s:%s", d.Kind, d.Reference)
}
