// Package client resolves TikTok video URLs into audio tracks and streams them.
package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/famomatic/ttaudio/internal/demux"
	"github.com/famomatic/ttaudio/internal/fetch"
	"github.com/famomatic/ttaudio/internal/metrics"
	"github.com/famomatic/ttaudio/internal/resolve"
	"github.com/famomatic/ttaudio/internal/session"
	"github.com/famomatic/ttaudio/internal/track"
	"github.com/famomatic/ttaudio/internal/transport"
	"github.com/famomatic/ttaudio/internal/types"
)

// Client is the high-level TikTok audio source.
type Client struct {
	config   Config
	pool     *transport.HTTPPool
	resolver session.Resolver
	decoders session.DecoderFactory
	media    http.Header
	logger   zerolog.Logger
	loads    singleflight.Group
}

// New creates a new client.
func New(config Config) *Client {
	if config.HTTPClient == nil {
		config.HTTPClient = defaultHTTPClient(config.ProxyURL)
	}
	if config.CookieJar != nil {
		hc := *config.HTTPClient
		hc.Jar = config.CookieJar
		config.HTTPClient = &hc
	}
	headers := transport.BrowserHeaders(config.UserAgent)
	for k := range config.RequestHeaders {
		headers.Del(k)
	}
	transport.MergeHeaders(headers, config.RequestHeaders)

	logger := config.Logger.With().Str("component", "client").Logger()
	pool := transport.NewHTTPPool(config.HTTPClient, headers)
	fetcher := fetch.New(pool, fetch.Config{
		RateLimit: rate.Limit(config.PageRateLimit),
		RateBurst: config.PageRateBurst,
		Logger:    config.Logger,
	})
	resolver := timeoutResolver{
		Resolver: resolve.New(fetcher, resolve.Config{
			BaseURL: config.BaseURL,
			Logger:  config.Logger,
		}),
		timeout: config.RequestTimeout,
	}

	decoders := config.Decoders
	if decoders == nil {
		decoders = demux.NewFactory(config.FFmpegPath)
	}

	base := strings.TrimRight(config.BaseURL, "/")
	if base == "" {
		base = resolve.DefaultBaseURL
	}
	media := make(http.Header)
	media.Set("Referer", base+"/")
	media.Set("Accept", "*/*")
	media.Set("Sec-Fetch-Dest", "audio")
	media.Set("Sec-Fetch-Mode", "no-cors")

	return &Client{
		config:   config,
		pool:     pool,
		resolver: resolver,
		decoders: decoders,
		media:    media,
		logger:   logger,
	}
}

// Resolve fetches fresh metadata and playback candidates for ref.
func (c *Client) Resolve(ctx context.Context, ref VideoRef) (*types.ResolvedMetadata, error) {
	return c.resolver.Resolve(ctx, ref.Author, ref.VideoID)
}

// LoadItem turns a video URL into a track. The boolean is false when input is
// not a TikTok video URL; the error is nil in that case.
func (c *Client) LoadItem(ctx context.Context, input string) (*track.Track, bool, error) {
	ref, ok := Match(input)
	if !ok {
		return nil, false, nil
	}

	if t, hit := c.cachedTrack(ctx, ref.VideoID); hit {
		return t, true, nil
	}

	v, err, shared := c.loads.Do(ref.VideoID, func() (any, error) {
		return c.loadTrack(ctx, ref)
	})
	if shared {
		c.logger.Debug().Str("video_id", ref.VideoID).Msg("joined in-flight load")
	}
	if err != nil {
		return nil, true, err
	}
	return v.(*track.Track), true, nil
}

func (c *Client) loadTrack(ctx context.Context, ref VideoRef) (*track.Track, error) {
	meta, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !meta.Playable() {
		return nil, &types.Error{
			Kind:     types.KindNoPlaybackURL,
			Severity: types.SeveritySuspicious,
			Message:  "could not load TikTok audio: page has no playback urls",
		}
	}
	t := track.FromMetadata(meta)
	c.storeTrack(ctx, ref.VideoID, t)
	return t, nil
}

func (c *Client) cachedTrack(ctx context.Context, videoID string) (*track.Track, bool) {
	if c.config.TrackCache == nil {
		return nil, false
	}
	encoded, ok := c.config.TrackCache.Get(ctx, videoID)
	if ok {
		t, err := track.DecodeString(encoded)
		if err == nil {
			metrics.IncTrackCache(true)
			return t, true
		}
		c.logger.Warn().Err(err).Str("video_id", videoID).Msg("discarding undecodable cached track")
	}
	metrics.IncTrackCache(false)
	return nil, false
}

// storeTrack keys by the requested id, which may differ from t.Identifier().
func (c *Client) storeTrack(ctx context.Context, videoID string, t *track.Track) {
	if c.config.TrackCache == nil {
		return
	}
	encoded, err := track.EncodeString(t)
	if err != nil {
		c.logger.Warn().Err(err).Str("video_id", videoID).Msg("track not cached")
		return
	}
	c.config.TrackCache.Set(ctx, videoID, encoded, c.config.TrackCacheTTL)
}

// NewSession returns a streaming session for t. Every play attempt should use
// a fresh session.
func (c *Client) NewSession(t *track.Track, opts ...session.Option) *session.Session {
	return session.New(t, session.Config{
		Resolver: c.resolver,
		Pool:     c.pool,
		Decoders: c.decoders,
		Headers:  c.media,
		Logger:   c.config.Logger,
	}, opts...)
}

// EncodeTrack serializes t for persistence. Playback URLs are not included.
func EncodeTrack(t *track.Track) (string, error) {
	if t == nil {
		return "", &InvalidInputDetailError{Reason: "nil_track"}
	}
	return track.EncodeString(t)
}

// DecodeTrack rebuilds a track without network access.
func DecodeTrack(encoded string) (*track.Track, error) {
	t, err := track.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, &InvalidInputDetailError{Input: encoded, Reason: "malformed_track", Err: err}
	}
	if t.Info().SourceName != track.SourceName {
		return nil, &InvalidInputDetailError{Input: encoded, Reason: "foreign_source", Err: errors.New(t.Info().SourceName)}
	}
	return t, nil
}
