// Package stream opens media URLs as seekable byte streams.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/famomatic/ttaudio/internal/transport"
	"github.com/famomatic/ttaudio/internal/types"
)

// UnknownLength is reported when the server did not announce a content length.
const UnknownLength int64 = -1

// HTTPStream is an io.ReadSeekCloser over a remote resource. Seeking drops the
// current connection; the next Read reconnects with a Range request.
type HTTPStream struct {
	ctx     context.Context
	handle  transport.Handle
	url     string
	headers http.Header

	pos         int64
	length      int64
	contentType string
	body        io.ReadCloser
	reconnected bool
}

// Open issues the initial GET for rawURL through handle. Any status other
// than 200 fails with types.ErrUnexpectedStatus. The stream does not own handle.
func Open(ctx context.Context, handle transport.Handle, rawURL string, headers http.Header) (*HTTPStream, error) {
	s := &HTTPStream{
		ctx:     ctx,
		handle:  handle,
		url:     rawURL,
		headers: headers,
		length:  UnknownLength,
	}
	resp, err := s.request(0)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, types.NewStatusError(resp.StatusCode)
	}
	if resp.ContentLength >= 0 {
		s.length = resp.ContentLength
	}
	s.contentType = resp.Header.Get("Content-Type")
	s.body = resp.Body
	return s, nil
}

// URL returns the URL the stream reads from.
func (s *HTTPStream) URL() string {
	return s.url
}

// ContentLength returns the announced length or UnknownLength.
func (s *HTTPStream) ContentLength() int64 {
	return s.length
}

// ContentType returns the Content-Type of the initial response.
func (s *HTTPStream) ContentType() string {
	return s.contentType
}

// Position returns the current read offset.
func (s *HTTPStream) Position() int64 {
	return s.pos
}

func (s *HTTPStream) Read(p []byte) (int, error) {
	if s.length >= 0 && s.pos >= s.length {
		return 0, io.EOF
	}
	if s.body == nil {
		if err := s.reconnect(); err != nil {
			return 0, err
		}
	}
	n, err := s.body.Read(p)
	s.pos += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && !s.reconnected && s.ctx.Err() == nil {
		// One transparent reconnect per stream for dropped CDN connections.
		s.reconnected = true
		_ = s.body.Close()
		s.body = nil
		if n > 0 {
			return n, nil
		}
		return s.Read(p)
	}
	return n, err
}

// Seek implements io.Seeker. io.SeekEnd requires a known content length.
func (s *HTTPStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		if s.length < 0 {
			return s.pos, errors.New("seek from end on stream of unknown length")
		}
		target = s.length + offset
	default:
		return s.pos, fmt.Errorf("invalid whence %d", whence)
	}
	if target < 0 {
		return s.pos, errors.New("negative seek position")
	}
	if target != s.pos && s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	s.pos = target
	return s.pos, nil
}

// Close releases the current connection.
func (s *HTTPStream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

func (s *HTTPStream) request(offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vals := range s.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	resp, err := s.handle.Do(req)
	if err != nil {
		return nil, &types.Error{
			Kind:     types.KindTransport,
			Severity: types.SeveritySuspicious,
			Message:  "stream open failed",
			Err:      err,
		}
	}
	return resp, nil
}

func (s *HTTPStream) reconnect() error {
	resp, err := s.request(s.pos)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if total := totalFromContentRange(resp.Header.Get("Content-Range")); total >= 0 {
			s.length = total
		}
	case http.StatusOK:
		// Range ignored: skip to the current position.
		if s.pos > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, s.pos); err != nil {
				_ = resp.Body.Close()
				return fmt.Errorf("failed to skip to offset %d: %w", s.pos, err)
			}
		}
	default:
		_ = resp.Body.Close()
		return types.NewStatusError(resp.StatusCode)
	}
	s.body = resp.Body
	return nil
}

func totalFromContentRange(v string) int64 {
	idx := strings.LastIndexByte(v, '/')
	if idx < 0 {
		return UnknownLength
	}
	total, err := strconv.ParseInt(strings.TrimSpace(v[idx+1:]), 10, 64)
	if err != nil {
		return UnknownLength
	}
	return total
}
