// Package cli turns command line options and the config file into a client.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/famomatic/ttaudio/client"
	"github.com/famomatic/ttaudio/internal/cache"
	"github.com/famomatic/ttaudio/internal/config"
	"github.com/famomatic/ttaudio/internal/cookies"
)

// Options holds flags shared by every subcommand. Empty values keep the
// config file setting.
type Options struct {
	ConfigFile     string // --config
	ProxyURL       string // --proxy
	CookiesFile    string // --cookies
	UserAgent      string // --user-agent
	FFmpegLocation string // --ffmpeg-location
	RedisAddr      string // --redis
	Timeout        time.Duration
	Verbose        bool
}

// LoadConfig reads the config file and applies the flag overrides.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	if opts.ProxyURL != "" {
		cfg.HTTP.Proxy = opts.ProxyURL
	}
	if opts.UserAgent != "" {
		cfg.HTTP.UserAgent = opts.UserAgent
	}
	if opts.FFmpegLocation != "" {
		cfg.FFmpeg.Path = opts.FFmpegLocation
	}
	if opts.RedisAddr != "" {
		cfg.Cache.RedisAddr = opts.RedisAddr
	}
	if opts.Timeout > 0 {
		cfg.HTTP.Timeout = opts.Timeout
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// ToClientConfig converts the loaded configuration to client.Config.
func ToClientConfig(opts Options, cfg config.Config, logger zerolog.Logger) (client.Config, error) {
	out := client.Config{
		ProxyURL:       cfg.HTTP.Proxy,
		UserAgent:      cfg.HTTP.UserAgent,
		BaseURL:        cfg.HTTP.BaseURL,
		RequestTimeout: cfg.HTTP.Timeout,
		PageRateLimit:  cfg.HTTP.PageRateLimit,
		PageRateBurst:  cfg.HTTP.PageRateBurst,
		TrackCacheTTL:  cfg.Cache.TTL,
		FFmpegPath:     cfg.FFmpeg.Path,
		Logger:         logger,
	}

	if path := strings.TrimSpace(opts.CookiesFile); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return out, fmt.Errorf("failed to open cookies file: %w", err)
		}
		defer f.Close()

		list, err := cookies.ParseNetscape(f)
		if err != nil {
			return out, fmt.Errorf("failed to parse cookies file: %w", err)
		}
		jar, err := cookies.NewJar(list)
		if err != nil {
			return out, err
		}
		out.CookieJar = jar
	}
	return out, nil
}

// NewTrackCache returns Redis when an address is configured and an in-memory
// cache otherwise. The returned func releases the cache.
func NewTrackCache(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (client.TrackCache, func() error, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(), func() error { return nil }, nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return rc, rc.Close, nil
}

// NewClient builds a client with its track cache. The returned func releases
// the cache.
func NewClient(ctx context.Context, opts Options, cfg config.Config, logger zerolog.Logger) (*client.Client, func() error, error) {
	clientCfg, err := ToClientConfig(opts, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	tc, closeCache, err := NewTrackCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, nil, err
	}
	clientCfg.TrackCache = tc
	return client.New(clientCfg), closeCache, nil
}
