// Package playerr holds the error taxonomy shared by every playback component
// and the mapping from errors to the three outcomes a host may observe.
package playerr

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fatal playback failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAborted
	KindNetwork
	KindDecode
	KindSourceUnsupported
)

// String returns the name used in logs and metrics labels.
func (k ErrorKind) String() string {
	switch k {
	case KindAborted:
		return "aborted"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindSourceUnsupported:
		return "source_unsupported"
	default:
		return "unknown"
	}
}

// KindFromMediaCode maps a MediaError code (1..4) onto an ErrorKind.
func KindFromMediaCode(code int) ErrorKind {
	switch code {
	case 1:
		return KindAborted
	case 2:
		return KindNetwork
	case 3:
		return KindDecode
	case 4:
		return KindSourceUnsupported
	default:
		return KindUnknown
	}
}

var (
	// ErrClassificationAmbiguous marks a URL on a known platform host whose
	// reference could not be extracted. It is never fatal.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrSourceResolutionFailed is returned when the asset resolver rejected
	// a hosted source.
	ErrSourceResolutionFailed = errors.New("source resolution failed")

	// ErrAssetUnavailable is returned by asset resolvers when a hosted asset
	// is not transcoded or storage access failed.
	ErrAssetUnavailable = errors.New("asset unavailable")

	// ErrAllSourcesExhausted is terminal: no candidate source is left.
	ErrAllSourcesExhausted = errors.New("no video available")

	// ErrDubAudioUnavailable is non-fatal: the track selection reverts to
	// the original audio.
	ErrDubAudioUnavailable = errors.New("dubbed audio unavailable")

	// ErrClosed is returned by adapters after Close.
	ErrClosed = errors.New("player closed")

	// ErrControlUnsupported is returned by adapters that have no control API.
	ErrControlUnsupported = errors.New("control not supported by this player")

	// ErrSuperseded is returned when an async step finished after the movie
	// or the active source changed; its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer playback request")
)

// PlaybackFatalError is a failure of the active source.
type PlaybackFatalError struct {
	Kind      ErrorKind
	Exhausted bool // retry budget spent
	Err       error
}

func (e *PlaybackFatalError) Error() string {
	msg := fmt.Sprintf("playback fatal (%s)", e.Kind)
	if e.Exhausted {
		msg += " after retries"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PlaybackFatalError) Unwrap() error { return e.Err }

// Fatal builds a PlaybackFatalError.
func Fatal(kind ErrorKind, err error) *PlaybackFatalError {
	return &PlaybackFatalError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var fe *PlaybackFatalError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Outcome is what a host page observes about playback.
type Outcome string

const (
	OutcomePlaying     Outcome = "playing"
	OutcomeRecovering  Outcome = "recovering"
	OutcomeUnavailable Outcome = "unavailable"
)

// OutcomeOf classifies err into a host outcome. Transient failures are
// reported as recovering; only exhaustion is terminal.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomePlaying
	case errors.Is(err, ErrAllSourcesExhausted):
		return OutcomeUnavailable
	case errors.Is(err, ErrDubAudioUnavailable), errors.Is(err, ErrClassificationAmbiguous):
		return OutcomePlaying
	default:
		return OutcomeRecovering
	}
}
