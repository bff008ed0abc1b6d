// Package embed adapts third-party embedded players to player.Adapter.
//
// The platform SDKs are opaque: the host supplies implementations of the
// YouTubeSDK and VimeoSDK interfaces (a webview bridge, a remote-control
// protocol, a test double). Platforms without a control API are rendered by
// the iframe tier, which reports no telemetry. The playcore CLI is a terminal
// host with no webview, so it supplies no SDK and both platforms fall back to
// the iframe tier there.
package embed

import "context"

// YouTubeState is the player state enum of the YouTube IFrame API.
type YouTubeState int

const (
	YouTubeUnstarted YouTubeState = -1
	YouTubeEnded     YouTubeState = 0
	YouTubePlaying   YouTubeState = 1
	YouTubePaused    YouTubeState = 2
	YouTubeBuffering YouTubeState = 3
	YouTubeCued      YouTubeState = 5
)

// YouTube IFrame API error codes.
const (
	YouTubeErrInvalidParam     = 2
	YouTubeErrHTML5            = 5
	YouTubeErrNotFound         = 100
	YouTubeErrEmbedDisabled    = 101
	YouTubeErrEmbedDisabledAlt = 150
)

// YouTubeHandlers receive the push events of a YouTube player.
type YouTubeHandlers struct {
	OnReady       func()
	OnStateChange func(YouTubeState)
	OnError       func(code int)
}

// YouTubePlayer is the poll-based control surface: queries return
// immediately with the player's cached values.
type YouTubePlayer interface {
	PlayVideo()
	PauseVideo()
	SeekTo(seconds float64, allowSeekAhead bool)
	SetVolume(volume int)
	Mute()
	UnMute()
	SetPlaybackRate(rate float64)
	GetCurrentTime() float64
	GetDuration() float64
	GetPlaybackRate() float64
	LoadVideoByID(videoID string, startSeconds float64)
	Destroy()
}

// YouTubeSDK constructs players once the platform script is loaded.
type YouTubeSDK interface {
	NewPlayer(videoID string, h YouTubeHandlers) (YouTubePlayer, error)
}

// Vimeo player error names.
const (
	VimeoNotFoundError = "NotFoundError"
	VimeoPrivacyError  = "PrivacyError"
	VimeoPasswordError = "PasswordError"
	VimeoRangeError    = "RangeError"
)

// VimeoEvent is the payload of a Vimeo player event.
type VimeoEvent struct {
	Seconds  float64
	Duration float64
	Rate     float64
	// Name and Message are set for "error" events.
	Name    string
	Message string
}

// VimeoPlayer is the promise-based control surface: every call blocks until
// the player settles it or ctx is done.
type VimeoPlayer interface {
	Ready(ctx context.Context) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetCurrentTime(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume float64) error
	SetMuted(ctx context.Context, muted bool) error
	SetPlaybackRate(ctx context.Context, rate float64) error
	GetCurrentTime(ctx context.Context) (float64, error)
	GetDuration(ctx context.Context) (float64, error)
	GetPaused(ctx context.Context) (bool, error)
	LoadVideo(ctx context.Context, videoID string) error
	// On registers fn for a named event ("play", "pause", "ended",
	// "bufferstart", "bufferend", "seeked", "playbackratechange", "error").
	On(event string, fn func(VimeoEvent))
	Destroy(ctx context.Context) error
}

// VimeoSDK constructs players once the platform script is loaded.
type VimeoSDK interface {
	NewPlayer(videoID string) (VimeoPlayer, error)
}
