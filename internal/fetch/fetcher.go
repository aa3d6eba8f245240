// Package fetch loads video pages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/famomatic/ttaudio/internal/metrics"
	"github.com/famomatic/ttaudio/internal/transport"
	"github.com/famomatic/ttaudio/internal/types"
)

// Config contains externally tunable settings for page fetches.
type Config struct {
	// RateLimit caps page requests per second. Zero disables limiting.
	RateLimit rate.Limit
	// RateBurst is the limiter burst size. Defaults to 1.
	RateBurst int
	Logger    zerolog.Logger
}

// Fetcher issues single GET requests for pages. It never retries.
type Fetcher struct {
	pool    transport.Pool
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New returns a Fetcher acquiring a fresh handle from pool for every fetch.
func New(pool transport.Pool, cfg ...Config) *Fetcher {
	c := Config{Logger: zerolog.Nop()}
	if len(cfg) > 0 {
		c = cfg[0]
	}
	f := &Fetcher{
		pool:   pool,
		logger: c.Logger.With().Str("component", "fetch").Logger(),
	}
	if c.RateLimit > 0 {
		burst := c.RateBurst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(c.RateLimit, burst)
	}
	return f
}

// Fetch returns the body of rawURL decoded to UTF-8. Any status other than 200
// fails with types.ErrUnexpectedStatus.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (body string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObservePageFetch(time.Since(start), err)
	}()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	handle, err := f.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire transport: %w", err)
	}
	defer handle.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := handle.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Msg("page fetch rejected")
		return "", types.NewStatusError(resp.StatusCode)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(bodyBytes), nil
}
