// Package config loads the YAML configuration of the ttaudio command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file configuration. Zero values fall back to Default.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	HTTP   HTTPConfig   `yaml:"http"`
	Cache  CacheConfig  `yaml:"cache"`
	Server ServerConfig `yaml:"server"`
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type HTTPConfig struct {
	Proxy         string        `yaml:"proxy"`
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout"`
	PageRateLimit float64       `yaml:"page_rate_limit"` // requests per second, 0 = unlimited
	PageRateBurst int           `yaml:"page_rate_burst"`
	BaseURL       string        `yaml:"base_url"`
}

type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"` // empty = in-memory
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type ServerConfig struct {
	Listen        string `yaml:"listen"`
	RatePerMinute int    `yaml:"rate_per_minute"`
}

type FFmpegConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		HTTP: HTTPConfig{
			Timeout:       15 * time.Second,
			PageRateBurst: 1,
		},
		Cache: CacheConfig{TTL: 24 * time.Hour},
		Server: ServerConfig{
			Listen:        ":8080",
			RatePerMinute: 120,
		},
		FFmpeg: FFmpegConfig{Path: "ffmpeg"},
	}
}

// Load reads path on top of Default and applies environment overrides.
// An empty path skips the file. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return Parse(data, cfg)
}

// Parse decodes YAML data into cfg with strict field checking.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TTAUDIO_PROXY"); v != "" {
		cfg.HTTP.Proxy = v
	}
	if v := os.Getenv("TTAUDIO_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("TTAUDIO_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
}

// Validate rejects values the command cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http.timeout must not be negative"))
	}
	if c.HTTP.PageRateLimit < 0 {
		errs = append(errs, errors.New("http.page_rate_limit must not be negative"))
	}
	if c.HTTP.PageRateLimit > 0 && c.HTTP.PageRateBurst < 1 {
		errs = append(errs, errors.New("http.page_rate_burst must be at least 1 when rate limiting"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Server.RatePerMinute < 0 {
		errs = append(errs, errors.New("server.rate_per_minute must not be negative"))
	}
	return errors.Join(errs...)
}
