package track

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

// The encoding follows the track message layout shared by lavaplayer based
// hosts: a 4 byte header (flags in the top two bits, body size below), a
// version byte, then the fields in DataOutput form.
const (
	flagVersioned  = 1
	currentVersion = 3
	maxUTFLength   = 0xFFFF
)

var (
	// ErrMalformedTrack indicates an encoded track could not be decoded.
	ErrMalformedTrack = errors.New("malformed encoded track")
	// ErrUnsupportedVersion indicates an encoded track uses an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported track version")
)

// Encode serializes t. Playback URLs are never part of the encoding.
func Encode(t *Track) ([]byte, error) {
	info := t.Info()
	w := &dataWriter{}
	w.u8(currentVersion)
	w.utf(info.Title)
	w.utf(info.Author)
	w.long(info.LengthMillis)
	w.utf(info.Identifier)
	w.boolean(info.IsStream)
	w.nullableUTF(info.URI)
	w.nullableUTF(info.ArtworkURL)
	w.nullableUTF(info.ISRC)
	w.utf(info.SourceName)
	w.long(0) // position
	if w.err != nil {
		return nil, w.err
	}

	body := w.buf.Bytes()
	out := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body))|uint32(flagVersioned)<<30)
	return append(out, body...), nil
}

// EncodeString returns the base64 form of Encode.
func EncodeString(t *Track) (string, error) {
	raw, err := Encode(t)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode rebuilds a Track from Encode output. It performs no I/O.
func Decode(data []byte) (*Track, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short header", ErrMalformedTrack)
	}
	header := binary.BigEndian.Uint32(data)
	flags := header >> 30
	size := int(header & 0x3FFFFFFF)
	if size > len(data)-4 {
		return nil, fmt.Errorf("%w: body size %d exceeds %d", ErrMalformedTrack, size, len(data)-4)
	}

	r := &dataReader{r: bytes.NewReader(data[4 : 4+size])}
	version := 1
	if flags&flagVersioned != 0 {
		version = int(r.u8())
	}
	if version < 1 || version > currentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var info Info
	info.Title = r.utf()
	info.Author = r.utf()
	info.LengthMillis = r.long()
	info.Identifier = r.utf()
	info.IsStream = r.boolean()
	if version >= 2 {
		info.URI = r.nullableUTF()
	}
	if version >= 3 {
		info.ArtworkURL = r.nullableUTF()
		info.ISRC = r.nullableUTF()
	}
	info.SourceName = r.utf()
	_ = r.long() // position
	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrack, r.err)
	}
	return New(info), nil
}

// DecodeString decodes the base64 form produced by EncodeString.
func DecodeString(s string) (*Track, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrack, err)
	}
	return Decode(raw)
}

type dataWriter struct {
	buf bytes.Buffer
	err error
}

func (w *dataWriter) u8(b byte) {
	w.buf.WriteByte(b)
}

func (w *dataWriter) boolean(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *dataWriter) long(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

func (w *dataWriter) utf(s string) {
	encoded := encodeModifiedUTF8(s)
	if len(encoded) > maxUTFLength {
		if w.err == nil {
			w.err = fmt.Errorf("string of %d bytes exceeds %d", len(encoded), maxUTFLength)
		}
		return
	}
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(len(encoded)))
	w.buf.Write(b[:])
	w.buf.Write(encoded)
}

func (w *dataWriter) nullableUTF(s string) {
	w.boolean(s != "")
	if s != "" {
		w.utf(s)
	}
}

type dataReader struct {
	r   io.Reader
	err error
}

func (r *dataReader) read(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = err
	}
	return b
}

func (r *dataReader) u8() byte {
	return r.read(1)[0]
}

func (r *dataReader) boolean() bool {
	return r.u8() != 0
}

func (r *dataReader) long() int64 {
	return int64(binary.BigEndian.Uint64(r.read(8)))
}

func (r *dataReader) utf() string {
	n := int(binary.BigEndian.Uint16(r.read(2)))
	b := r.read(n)
	if r.err != nil {
		return ""
	}
	s, err := decodeModifiedUTF8(b)
	if err != nil {
		r.err = err
	}
	return s
}

func (r *dataReader) nullableUTF() string {
	if !r.boolean() {
		return ""
	}
	return r.utf()
}

// encodeModifiedUTF8 produces Java's modified UTF-8: NUL is two bytes and
// characters outside the BMP are written as surrogate pairs.
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, c := range utf16.Encode([]rune(s)) {
		switch {
		case c != 0 && c < 0x80:
			out = append(out, byte(c))
		case c < 0x800:
			out = append(out, byte(0xC0|(c>>6)), byte(0x80|(c&0x3F)))
		default:
			out = append(out, byte(0xE0|(c>>12)), byte(0x80|((c>>6)&0x3F)), byte(0x80|(c&0x3F)))
		}
	}
	return out
}

func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("bad utf sequence at %d", i)
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("bad utf sequence at %d", i)
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("bad utf lead byte 0x%02x at %d", c, i)
		}
	}
	return string(utf16.Decode(units)), nil
}
