package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famomatic/ttaudio/internal/fetch"
	"github.com/famomatic/ttaudio/internal/transport"
	"github.com/famomatic/ttaudio/internal/types"
)

type fetchFunc func(ctx context.Context, rawURL string) (string, error)

func (f fetchFunc) Fetch(ctx context.Context, rawURL string) (string, error) {
	return f(ctx, rawURL)
}

func pageFor(id, playAddr, musicURL string) string {
	return `{"ItemList":{"video":["` + id + `"]},"ItemModule":{"` + id + `":{"id":"` + id + `","desc":"t","author":"a","video":{"duration":"7","playAddr":"` + playAddr + `","cover":"c.jpg"},"music":{"playUrl":"` + musicURL + `"}}}}`
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://www.tiktok.com/@scout2015/video/6718335390845095173",
		PageURL(DefaultBaseURL, "scout2015", "6718335390845095173"))
	assert.Equal(t, "http://127.0.0.1:1/@a.b/video/1", PageURL("http://127.0.0.1:1/", "a.b", "1"))
}

func TestResolveFetchesCanonicalPage(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(pageFor("77", "https://cdn.local/v.mp4", "https://cdn.local/m.mp3")))
	}))
	defer srv.Close()

	r := New(fetch.New(transport.NewHTTPPool(srv.Client(), nil)), Config{BaseURL: srv.URL})
	meta, err := r.Resolve(context.Background(), "someone", "77")
	require.NoError(t, err)

	assert.Equal(t, "/@someone/video/77", gotPath)
	assert.Equal(t, srv.URL+"/@someone/video/77", meta.PageURL)
	assert.Equal(t, "https://cdn.local/v.mp4", meta.MuxedVideoURL)
	assert.Equal(t, "https://cdn.local/m.mp3", meta.DirectAudioURL)
	assert.Equal(t, 7, meta.DurationSeconds)
}

func TestResolveHasNoCache(t *testing.T) {
	var calls atomic.Int32
	r := New(fetchFunc(func(ctx context.Context, rawURL string) (string, error) {
		n := calls.Add(1)
		if n == 1 {
			return pageFor("5", "v1.mp4", "m1.mp3"), nil
		}
		return pageFor("5", "v2.mp4", "m2.mp3"), nil
	}))

	first, err := r.Resolve(context.Background(), "a", "5")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "a", "5")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "v1.mp4", first.MuxedVideoURL)
	assert.Equal(t, "v2.mp4", second.MuxedVideoURL)
}

func TestResolvePropagatesStatusWithContext(t *testing.T) {
	r := New(fetchFunc(func(ctx context.Context, rawURL string) (string, error) {
		return "", types.NewStatusError(http.StatusForbidden)
	}))
	_, err := r.Resolve(context.Background(), "a", "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "could not load TikTok audio")
	assert.False(t, types.IsPermanent(err))
}

func TestResolvePropagatesTransportFailure(t *testing.T) {
	cause := errors.New("connection reset by peer")
	r := New(fetchFunc(func(ctx context.Context, rawURL string) (string, error) {
		return "", cause
	}))
	_, err := r.Resolve(context.Background(), "a", "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.ErrorIs(t, err, cause)
}

func TestResolvePropagatesPermanentExtractionErrors(t *testing.T) {
	r := New(fetchFunc(func(ctx context.Context, rawURL string) (string, error) {
		return `{"ItemList":{"video":["5"]}}`, nil
	}))
	_, err := r.Resolve(context.Background(), "a", "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStructureChanged)
	assert.True(t, types.IsPermanent(err))
	assert.Equal(t, types.SeveritySuspicious, types.SeverityOf(err))
}

func TestResolveKeepsFirstListedItemOnIDMismatch(t *testing.T) {
	r := New(fetchFunc(func(ctx context.Context, rawURL string) (string, error) {
		return pageFor("999", "v.mp4", "m.mp3"), nil
	}))
	meta, err := r.Resolve(context.Background(), "a", "5")
	require.NoError(t, err)
	assert.Equal(t, "999", meta.VideoID)
}
