package types

// ResolvedMetadata is the normalized result of one resolution call.
type ResolvedMetadata struct {
	PageURL         string
	VideoID         string
	MuxedVideoURL   string // container stream (video+audio), primary playback candidate
	DirectAudioURL  string // standalone audio stream, fallback candidate
	CoverURL        string
	Title           string
	DurationSeconds int
	AuthorHandle    string
}

// Playable reports whether both playback candidates are present.
func (m *ResolvedMetadata) Playable() bool {
	return m != nil && m.MuxedVideoURL != "" && m.DirectAudioURL != ""
}
