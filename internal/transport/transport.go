// Package transport provides the scoped HTTP capability used for page fetches
// and media streams.
package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
)

// ErrHandleClosed is returned by Do after the handle was closed.
var ErrHandleClosed = errors.New("transport handle closed")

// Handle is a scoped HTTP capability. Close releases every response body the
// handle issued that the caller has not closed yet.
type Handle interface {
	Do(req *http.Request) (*http.Response, error)
	Close() error
}

// Pool hands out independent handles.
type Pool interface {
	Acquire(ctx context.Context) (Handle, error)
}

// HTTPPool issues handles backed by a shared *http.Client.
type HTTPPool struct {
	client  *http.Client
	headers http.Header
}

// NewHTTPPool returns a pool whose handles send headers on every request unless
// the request already sets them. A nil client means http.DefaultClient.
func NewHTTPPool(client *http.Client, headers http.Header) *HTTPPool {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPool{
		client:  client,
		headers: cloneHeader(headers),
	}
}

// Acquire returns a new handle.
func (p *HTTPPool) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpHandle{
		client:  p.client,
		headers: p.headers,
		open:    make(map[*trackedBody]struct{}),
	}, nil
}

type httpHandle struct {
	client  *http.Client
	headers http.Header

	mu     sync.Mutex
	closed bool
	open   map[*trackedBody]struct{}
}

func (h *httpHandle) Do(req *http.Request) (*http.Response, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHandleClosed
	}
	h.mu.Unlock()

	applyDefaultHeaders(req, h.headers)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}

	body := &trackedBody{ReadCloser: resp.Body, owner: h}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = resp.Body.Close()
		return nil, ErrHandleClosed
	}
	h.open[body] = struct{}{}
	h.mu.Unlock()
	resp.Body = body
	return resp, nil
}

func (h *httpHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	bodies := make([]*trackedBody, 0, len(h.open))
	for b := range h.open {
		bodies = append(bodies, b)
	}
	h.open = nil
	h.mu.Unlock()

	var errs []error
	for _, b := range bodies {
		if err := b.ReadCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *httpHandle) release(b *trackedBody) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open != nil {
		delete(h.open, b)
	}
}

type trackedBody struct {
	io.ReadCloser
	owner *httpHandle
	once  sync.Once
}

func (b *trackedBody) Close() error {
	var err error
	b.once.Do(func() {
		b.owner.release(b)
		err = b.ReadCloser.Close()
	})
	return err
}

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
