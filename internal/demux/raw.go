package demux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/famomatic/ttaudio/internal/session"
)

// ErrNotMP3 is returned when a raw stream does not start with an ID3 tag or
// an MPEG audio frame.
var ErrNotMP3 = errors.New("stream is not an mp3 elementary stream")

// Raw passes an MP3 elementary stream through after checking its header.
type Raw struct{}

// Decode copies req.Stream to req.Output.
func (Raw) Decode(ctx context.Context, req session.DecodeRequest) error {
	if req.Stream == nil {
		return errors.New("raw decode: nil stream")
	}
	br := bufio.NewReader(req.Stream)
	head, err := br.Peek(3)
	if err != nil {
		return fmt.Errorf("raw decode: %w", err)
	}
	if !looksLikeMP3(head) {
		return ErrNotMP3
	}
	out := req.Output
	if out == nil {
		out = io.Discard
	}
	_, err = io.Copy(out, &ctxReader{ctx: ctx, r: br})
	return err
}

func looksLikeMP3(head []byte) bool {
	if len(head) >= 3 && string(head[:3]) == "ID3" {
		return true
	}
	// 11-bit frame sync.
	return len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
