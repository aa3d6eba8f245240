// Package track holds the durable track record and its binary encoding.
package track

import "github.com/famomatic/ttaudio/internal/types"

// SourceName identifies tracks produced by this resolver.
const SourceName = "tiktok"

// Info is the user-facing metadata of a track.
type Info struct {
	Title        string
	Author       string
	LengthMillis int64
	Identifier   string
	IsStream     bool
	URI          string // canonical page URL
	ArtworkURL   string
	ISRC         string
	SourceName   string
}

// Track is an immutable track record. It carries no playback URL: those are
// resolved lazily by a streaming session.
type Track struct {
	info Info
}

// New returns a Track with the given info.
func New(info Info) *Track {
	if info.SourceName == "" {
		info.SourceName = SourceName
	}
	return &Track{info: info}
}

// FromMetadata builds the Track for a resolution result.
func FromMetadata(meta *types.ResolvedMetadata) *Track {
	return New(Info{
		Title:        meta.Title,
		Author:       meta.AuthorHandle,
		LengthMillis: int64(meta.DurationSeconds) * 1000,
		Identifier:   meta.VideoID,
		IsStream:     false,
		URI:          meta.PageURL,
		ArtworkURL:   meta.CoverURL,
		SourceName:   SourceName,
	})
}

// Info returns a copy of the track metadata.
func (t *Track) Info() Info {
	return t.info
}

func (t *Track) Title() string      { return t.info.Title }
func (t *Track) Author() string     { return t.info.Author }
func (t *Track) Identifier() string { return t.info.Identifier }
func (t *Track) URI() string        { return t.info.URI }
func (t *Track) LengthMillis() int64 {
	return t.info.LengthMillis
}
