// Package session implements the per-track streaming state machine: resolve
// playback candidates lazily, stream the primary, and on failure re-resolve
// once and retry against the fallback.
package session

import (
	"math"
	"strings"

	"github.com/famomatic/ttaudio/internal/types"
)

// DurationUnknown is reported as the playback length of every session.
const DurationUnknown int64 = math.MaxInt64

// Phase selects which candidate the session plays. A session moves from
// PhasePrimary to PhaseFallback at most once and never back.
type Phase int

const (
	PhasePrimary Phase = iota
	PhaseFallback
)

func (p Phase) String() string {
	switch p {
	case PhasePrimary:
		return "primary"
	case PhaseFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// UsedFallback reports whether the one-shot fallback was spent.
func (p Phase) UsedFallback() bool {
	return p == PhaseFallback
}

// State is the observable lifecycle of a session.
type State int

const (
	StateUnresolved State = iota
	StateResolved
	StatePlaying
	StateReresolving
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolved:
		return "resolved"
	case StatePlaying:
		return "playing"
	case StateReresolving:
		return "reresolving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Candidates are the two playback URLs of one resolution.
type Candidates struct {
	Primary  string // muxed container stream
	Fallback string // direct audio stream
}

// CandidatesFrom returns the candidates of meta, or nil when meta is not playable.
func CandidatesFrom(meta *types.ResolvedMetadata) *Candidates {
	if !meta.Playable() {
		return nil
	}
	return &Candidates{
		Primary:  meta.MuxedVideoURL,
		Fallback: meta.DirectAudioURL,
	}
}

// PlaybackURL returns the candidate for phase.
func PlaybackURL(phase Phase, c *Candidates) (string, error) {
	if c == nil || c.Primary == "" || c.Fallback == "" {
		return "", &types.Error{
			Kind:     types.KindNoPlaybackURL,
			Severity: types.SeveritySuspicious,
			Message:  "no playback url",
		}
	}
	if phase.UsedFallback() {
		return c.Fallback, nil
	}
	return c.Primary, nil
}

// Strategy is how a stream is decoded.
type Strategy int

const (
	// StrategyContainer demuxes the audio elementary stream from a media container.
	StrategyContainer Strategy = iota
	// StrategyRawAudio decodes a standalone MP3 stream.
	StrategyRawAudio
)

func (s Strategy) String() string {
	switch s {
	case StrategyContainer:
		return "container"
	case StrategyRawAudio:
		return "raw_audio"
	default:
		return "unknown"
	}
}

// SelectStrategy picks raw MP3 decoding for a fallback URL that looks like an
// MP3 payload and container demuxing otherwise.
func SelectStrategy(phase Phase, rawURL string) Strategy {
	if phase.UsedFallback() && strings.Contains(rawURL, ".mp3") {
		return StrategyRawAudio
	}
	return StrategyContainer
}
