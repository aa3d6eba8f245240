// Package resolve turns an (author, video id) pair into fresh metadata and
// playback candidates.
package resolve

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/famomatic/ttaudio/internal/extract"
	"github.com/famomatic/ttaudio/internal/metrics"
	"github.com/famomatic/ttaudio/internal/types"
)

// DefaultBaseURL is the canonical page host.
const DefaultBaseURL = "https://www.tiktok.com"

const loadErrorMessage = "could not load TikTok audio"

// PageFetcher fetches a page body.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Resolver drives a fetch and an extraction per call. It keeps no cache:
// different sessions resolving the same id must not share mutable state.
type Resolver struct {
	fetcher PageFetcher
	baseURL string
	logger  zerolog.Logger
}

// Config contains externally tunable settings for the resolver.
type Config struct {
	// BaseURL overrides the page host (default: https://www.tiktok.com).
	BaseURL string
	Logger  zerolog.Logger
}

// New returns a Resolver.
func New(fetcher PageFetcher, cfg ...Config) *Resolver {
	c := Config{Logger: zerolog.Nop()}
	if len(cfg) > 0 {
		c = cfg[0]
	}
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{
		fetcher: fetcher,
		baseURL: baseURL,
		logger:  c.Logger.With().Str("component", "resolve").Logger(),
	}
}

// PageURL builds the canonical page URL for a video.
func PageURL(baseURL, author, videoID string) string {
	return strings.TrimRight(baseURL, "/") + "/@" + url.PathEscape(author) + "/video/" + url.PathEscape(videoID)
}

// PageURL builds the canonical page URL on the resolver's host.
func (r *Resolver) PageURL(author, videoID string) string {
	return PageURL(r.baseURL, author, videoID)
}

// Resolve fetches and extracts the page of author/videoID. Errors keep their
// classification and are tagged "could not load TikTok audio".
func (r *Resolver) Resolve(ctx context.Context, author, videoID string) (meta *types.ResolvedMetadata, err error) {
	defer func() {
		metrics.IncResolution(err)
	}()

	logger := r.logger.With().Str("author", author).Str("video_id", videoID).Logger()
	if sessionID, ok := types.SessionIDFromContext(ctx); ok {
		logger = logger.With().Str("session_id", sessionID).Logger()
	}

	pageURL := r.PageURL(author, videoID)
	logger.Debug().Str("url", pageURL).Msg("resolving page")

	body, err := r.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		logger.Warn().Err(err).Msg("page fetch failed")
		return nil, types.Wrap(types.KindTransport, loadErrorMessage, err)
	}

	meta, err = extract.Extract(pageURL, body)
	if err != nil {
		logger.Warn().Err(err).Msg("page extraction failed")
		return nil, types.Wrap(types.KindStructureChanged, loadErrorMessage, err)
	}

	if meta.VideoID != videoID {
		// The page's first listed item wins. Kept as-is; may describe a different video.
		logger.Warn().Str("extracted_video_id", meta.VideoID).Msg("page describes a different video than requested")
	}
	return meta, nil
}
