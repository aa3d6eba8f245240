// Package demux provides reference decoders for session streams: an ffmpeg
// backed container demuxer and a raw MP3 passthrough.
package demux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/famomatic/ttaudio/internal/session"
)

// DefaultOutputFormat is the muxer ffmpeg writes the extracted audio with.
const DefaultOutputFormat = "adts"

// FFmpeg extracts the audio elementary stream from a media container using
// the ffmpeg command line tool. The stream is fed through stdin.
type FFmpeg struct {
	Path   string
	Format string
}

// NewFFmpeg returns an FFmpeg decoder.
// If path is empty, it looks for "ffmpeg" in PATH.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path, Format: DefaultOutputFormat}
}

// Available checks if ffmpeg is executable.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

func (f *FFmpeg) args() []string {
	format := f.Format
	if format == "" {
		format = DefaultOutputFormat
	}
	// ffmpeg -i pipe:0 -vn -c:a copy -f adts pipe:1
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-c:a", "copy",
		"-f", format,
		"pipe:1",
	}
}

// Decode copies the container's audio track to req.Output.
func (f *FFmpeg) Decode(ctx context.Context, req session.DecodeRequest) error {
	if req.Stream == nil {
		return errors.New("ffmpeg demux: nil stream")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Path, f.args()...)
	cmd.Stdin = req.Stream
	cmd.Stdout = req.Output
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg demux failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg demux failed: %w", err)
	}
	return nil
}
