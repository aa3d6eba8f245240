package client

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/famomatic/ttaudio/internal/session"
)

// TrackCache stores encoded tracks keyed by video id.
type TrackCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Config holds configuration for the TikTok audio client.
type Config struct {
	// HTTPClient is the client used for page and media requests.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// ProxyURL is the optional proxy URL to use for requests.
	// If HTTPClient is provided, this field is ignored.
	ProxyURL string

	// CookieJar replaces the jar of the HTTP client, e.g. one loaded from a
	// browser cookie export.
	CookieJar http.CookieJar

	// UserAgent overrides the desktop browser User-Agent sent with every request.
	UserAgent string

	// RequestHeaders are additional headers for page and media requests.
	RequestHeaders http.Header

	// BaseURL overrides the page host (default: https://www.tiktok.com).
	BaseURL string

	// RequestTimeout bounds each page resolution, including a session's
	// fallback re-resolution, when the context has no deadline.
	RequestTimeout time.Duration

	// PageRateLimit caps page requests per second. Zero disables limiting.
	PageRateLimit float64
	PageRateBurst int

	// TrackCache is consulted by LoadItem before resolving. Nil disables caching.
	TrackCache    TrackCache
	TrackCacheTTL time.Duration

	// Decoders decode session streams. Defaults to ffmpeg for containers and
	// passthrough for MP3.
	Decoders session.DecoderFactory

	// FFmpegPath is used by the default decoders (default: "ffmpeg" in PATH).
	FFmpegPath string

	// Logger receives diagnostics. The zero value discards them.
	Logger zerolog.Logger
}
