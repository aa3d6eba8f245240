package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famomatic/ttaudio/internal/types"
)

func TestPlaybackURLFollowsPhase(t *testing.T) {
	c := &Candidates{Primary: "https://v.example/a.mp4", Fallback: "https://m.example/a.mp3"}

	got, err := PlaybackURL(PhasePrimary, c)
	require.NoError(t, err)
	assert.Equal(t, c.Primary, got)

	got, err = PlaybackURL(PhaseFallback, c)
	require.NoError(t, err)
	assert.Equal(t, c.Fallback, got)
}

func TestPlaybackURLRequiresBothCandidates(t *testing.T) {
	for name, c := range map[string]*Candidates{
		"nil":          nil,
		"no primary":   {Fallback: "https://m.example/a.mp3"},
		"no fallback":  {Primary: "https://v.example/a.mp4"},
		"both missing": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := PlaybackURL(PhasePrimary, c)
			assert.ErrorIs(t, err, types.ErrNoPlaybackURL)
		})
	}
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name  string
		phase Phase
		url   string
		want  Strategy
	}{
		{"primary mp4", PhasePrimary, "https://v.example/a.mp4", StrategyContainer},
		{"primary mp3 still container", PhasePrimary, "https://m.example/a.mp3", StrategyContainer},
		{"fallback mp3", PhaseFallback, "https://m.example/a.mp3", StrategyRawAudio},
		{"fallback mp3 with query", PhaseFallback, "https://m.example/a.mp3?sig=1", StrategyRawAudio},
		{"fallback m4a", PhaseFallback, "https://m.example/a.m4a", StrategyContainer},
		{"fallback no suffix", PhaseFallback, "https://m.example/obj/12345", StrategyContainer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStrategy(tt.phase, tt.url))
		})
	}
}

func TestCandidatesFrom(t *testing.T) {
	assert.Nil(t, CandidatesFrom(nil))
	assert.Nil(t, CandidatesFrom(&types.ResolvedMetadata{MuxedVideoURL: "a"}))
	assert.Equal(t, &Candidates{Primary: "a", Fallback: "b"},
		CandidatesFrom(&types.ResolvedMetadata{MuxedVideoURL: "a", DirectAudioURL: "b"}))
}

func TestPhaseStrings(t *testing.T) {
	assert.Equal(t, "primary", PhasePrimary.String())
	assert.Equal(t, "fallback", PhaseFallback.String())
	assert.True(t, PhaseFallback.UsedFallback())
	assert.False(t, PhasePrimary.UsedFallback())
	assert.Equal(t, "raw_audio", StrategyRawAudio.String())
	assert.Equal(t, "reresolving", StateReresolving.String())
}
