package core

import (
	"github.com/justchokingaround/playcore/internal/dub"
	"github.com/justchokingaround/playcore/internal/player"
	"github.com/justchokingaround/playcore/internal/playerr"
	"github.com/justchokingaround/playcore/internal/skip"
	"github.com/justchokingaround/playcore/internal/source"
)

// Movie is the record the host passes in on mount.
type Movie struct {
	ID                string       `json:"id" yaml:"id"`
	Title             string       `json:"title" yaml:"title"`
	EmbedURL          string       `json:"embed_url,omitempty" yaml:"embed_url,omitempty"`
	HostedAssetKey    string       `json:"hosted_asset_key,omitempty" yaml:"hosted_asset_key,omitempty"`
	TranscodingStatus string       `json:"transcoding_status,omitempty" yaml:"transcoding_status,omitempty"`
	MobileFallbackURL string       `json:"mobile_fallback_url,omitempty" yaml:"mobile_fallback_url,omitempty"`
	Duration          float64      `json:"duration,omitempty" yaml:"duration,omitempty"`
	Skip              skip.Windows `json:"skip" yaml:"skip"`
	DubbedTracks      dub.Catalog  `json:"dubbed_tracks,omitempty" yaml:"dubbed_tracks,omitempty"`
	// SavedPosition overrides the progress store when set.
	SavedPosition *float64 `json:"saved_position,omitempty" yaml:"saved_position,omitempty"`
}

// Input returns the source selection input for the movie.
func (m Movie) Input(mobile bool) source.Input {
	return source.Input{
		MovieID:           m.ID,
		HostedAssetKey:    m.HostedAssetKey,
		TranscodingStatus: m.TranscodingStatus,
		DirectVideoURL:    m.EmbedURL,
		MobileMP4URL:      m.MobileFallbackURL,
		IsMobileDevice:    mobile,
	}
}

// Telemetry is forwarded to the host's progress collaborator.
type Telemetry struct {
	MovieID  string
	Time     float64
	Duration float64
	Playing  bool
}

// Host receives everything the core reports. Any field may be nil; no
// callback is invoked while the core holds its lock.
type Host struct {
	OnOutcome      func(outcome playerr.Outcome, err error)
	OnTelemetry    func(Telemetry)
	OnSkip         func(skip.Visibility)
	OnTrackChanged func(trackID string)
	OnSource       func(source.Descriptor)
	OnEnded        func()
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	SessionID string
	MovieID   string
	Title     string
	Source    source.Descriptor
	Demoted   bool
	State     player.State
	Outcome   playerr.Outcome
	Err       error
	Skip      skip.Visibility
	TrackID   string
	Sync      dub.SyncState
}
