package track

import (
	"encoding/base64"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famomatic/ttaudio/internal/types"
)

func sampleMetadata() *types.ResolvedMetadata {
	return &types.ResolvedMetadata{
		PageURL:         "https://www.tiktok.com/@scout2015/video/6718335390845095173",
		VideoID:         "6718335390845095173",
		MuxedVideoURL:   "https://v16-webapp.tiktok.com/v.mp4",
		DirectAudioURL:  "https://sf16-ies-music.tiktokcdn.com/m.mp3",
		CoverURL:        "https://p16-sign.tiktokcdn.com/cover.jpeg",
		Title:           "dance 💃 with\x00nul",
		DurationSeconds: 42,
		AuthorHandle:    "scout2015",
	}
}

func TestFromMetadata(t *testing.T) {
	tr := FromMetadata(sampleMetadata())
	info := tr.Info()

	assert.Equal(t, int64(42000), info.LengthMillis)
	assert.False(t, info.IsStream)
	assert.Equal(t, "6718335390845095173", info.Identifier)
	assert.Equal(t, "scout2015", info.Author)
	assert.Equal(t, "https://www.tiktok.com/@scout2015/video/6718335390845095173", info.URI)
	assert.Equal(t, "https://p16-sign.tiktokcdn.com/cover.jpeg", info.ArtworkURL)
	assert.Equal(t, SourceName, info.SourceName)
}

func TestInfoReturnsCopy(t *testing.T) {
	tr := FromMetadata(sampleMetadata())
	info := tr.Info()
	info.Title = "changed"
	assert.Equal(t, "dance 💃 with\x00nul", tr.Title())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		info Info
	}{
		{name: "full", info: FromMetadata(sampleMetadata()).Info()},
		{name: "empty optional fields", info: Info{Title: "t", Author: "a", LengthMillis: 1000, Identifier: "1", SourceName: SourceName}},
		{name: "unicode", info: Info{Title: "日本語 ✨ ñ", Author: "ütf", Identifier: "2", URI: "https://www.tiktok.com/@ütf/video/2", SourceName: SourceName}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeString(New(tt.info))
			require.NoError(t, err)
			decoded, err := DecodeString(encoded)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.info, decoded.Info()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeHeaderLayout(t *testing.T) {
	raw, err := Encode(New(Info{Title: "a", Author: "b", Identifier: "c"}))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(raw), 5)
	assert.Equal(t, byte(0x40), raw[0]&0xC0, "versioned flag must be set")
	size := int(raw[0]&0x3F)<<24 | int(raw[1])<<16 | int(raw[2])<<8 | int(raw[3])
	assert.Equal(t, len(raw)-4, size)
	assert.Equal(t, byte(currentVersion), raw[4])
}

func TestModifiedUTF8MatchesJavaForm(t *testing.T) {
	assert.Equal(t, []byte{0xC0, 0x80}, encodeModifiedUTF8("\x00"))
	// U+1F483 becomes the surrogate pair D83D DC83, three bytes each.
	assert.Equal(t, []byte{0xED, 0xA0, 0xBD, 0xED, 0xB2, 0x83}, encodeModifiedUTF8("💃"))

	s, err := decodeModifiedUTF8([]byte{0xED, 0xA0, 0xBD, 0xED, 0xB2, 0x83})
	require.NoError(t, err)
	assert.Equal(t, "💃", s)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	valid, err := Encode(New(Info{Title: "a", Author: "b", Identifier: "c"}))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated body", data: valid[:len(valid)-3]},
		{name: "size past end", data: append([]byte{0x40, 0x00, 0x10, 0x00}, valid[4:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrMalformedTrack)
		})
	}

	_, err = DecodeString("%%%not-base64")
	assert.ErrorIs(t, err, ErrMalformedTrack)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	raw, err := Encode(New(Info{Title: "a"}))
	require.NoError(t, err)
	raw[4] = 9
	_, err = Decode(raw)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeStringAcceptsStdBase64(t *testing.T) {
	raw, err := Encode(New(Info{Title: "x", Identifier: "1"}))
	require.NoError(t, err)
	decoded, err := DecodeString(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "x", decoded.Title())
}
