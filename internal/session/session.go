package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ilog "github.com/famomatic/ttaudio/internal/log"
	"github.com/famomatic/ttaudio/internal/metrics"
	"github.com/famomatic/ttaudio/internal/stream"
	"github.com/famomatic/ttaudio/internal/track"
	"github.com/famomatic/ttaudio/internal/transport"
	"github.com/famomatic/ttaudio/internal/types"
)

// Resolver produces fresh metadata for a video.
type Resolver interface {
	Resolve(ctx context.Context, author, videoID string) (*types.ResolvedMetadata, error)
}

// DecodeRequest is handed to a Decoder once a candidate stream is open.
type DecodeRequest struct {
	Track       *track.Track
	Strategy    Strategy
	URL         string
	Stream      io.ReadSeeker
	Length      int64 // stream.UnknownLength when not announced
	ContentType string
	Output      io.Writer
}

// Decoder consumes an open stream. Any returned error counts as a failed attempt.
type Decoder interface {
	Decode(ctx context.Context, req DecodeRequest) error
}

// DecoderFactory returns the decoder for a strategy.
type DecoderFactory interface {
	Decoder(strategy Strategy) (Decoder, error)
}

// DecoderFactoryFunc adapts a function to DecoderFactory.
type DecoderFactoryFunc func(Strategy) (Decoder, error)

func (f DecoderFactoryFunc) Decoder(s Strategy) (Decoder, error) {
	return f(s)
}

// Config wires a session to its collaborators.
type Config struct {
	Resolver Resolver
	Pool     transport.Pool
	Decoders DecoderFactory
	// Output receives decoded audio. Defaults to io.Discard.
	Output io.Writer
	// Headers are sent with every stream request.
	Headers http.Header
	Logger  zerolog.Logger
}

// Option adjusts a Config before a session is built.
type Option func(*Config)

// WithOutput directs decoded audio to w.
func WithOutput(w io.Writer) Option {
	return func(c *Config) { c.Output = w }
}

// WithDecoders overrides the decoder factory.
func WithDecoders(f DecoderFactory) Option {
	return func(c *Config) { c.Decoders = f }
}

// Session streams one track. It is not safe for concurrent use; each
// physical stream attempt should use its own session (see Clone).
type Session struct {
	id     string
	track  *track.Track
	cfg    Config
	logger zerolog.Logger

	phase Phase
	state State
	cache *Candidates
}

// New returns a session for t in the unresolved state.
func New(t *track.Track, cfg Config, opts ...Option) *Session {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	id := uuid.NewString()
	return &Session{
		id:    id,
		track: t,
		cfg:   cfg,
		logger: cfg.Logger.With().
			Str(ilog.FieldComponent, "session").
			Str(ilog.FieldSessionID, id).
			Str(ilog.FieldVideoID, t.Identifier()).
			Logger(),
		phase: PhasePrimary,
		state: StateUnresolved,
	}
}

// ID returns the session id used in logs.
func (s *Session) ID() string { return s.id }

// Track returns the immutable track record.
func (s *Session) Track() *track.Track { return s.track }

// Phase returns the current routing phase.
func (s *Session) Phase() Phase { return s.phase }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Candidates returns a copy of the cached candidates, or nil.
func (s *Session) Candidates() *Candidates {
	if s.cache == nil {
		return nil
	}
	c := *s.cache
	return &c
}

// Duration always reports DurationUnknown: CDN streams do not reliably match
// the duration announced by the page.
func (s *Session) Duration() int64 {
	return DurationUnknown
}

// Clone returns a fresh session for the same track. Cache and phase are not shared.
func (s *Session) Clone() *Session {
	return New(s.track, s.cfg)
}

// PlaybackURL resolves candidates when none are cached and returns the one
// selected by the current phase. Callers must call it again after a failure
// instead of reusing an earlier result.
func (s *Session) PlaybackURL(ctx context.Context) (string, error) {
	if s.cache == nil {
		ctx = types.WithSessionID(ctx, s.id)
		s.logger.Debug().Str(ilog.FieldPhase, s.phase.String()).Msg("resolving playback candidates")
		meta, err := s.cfg.Resolver.Resolve(ctx, s.track.Author(), s.track.Identifier())
		if err != nil {
			s.logger.Warn().Err(err).Msg("resolve failed")
			return "", err
		}
		c := CandidatesFrom(meta)
		if c == nil {
			s.logger.Warn().Msg("resolution yielded no usable candidate pair")
			return "", &types.Error{
				Kind:     types.KindNoPlaybackURL,
				Severity: types.SeveritySuspicious,
				Message:  "resolution yielded no playback url",
			}
		}
		s.cache = c
		if s.state == StateUnresolved {
			s.state = StateResolved
		}
	}
	return PlaybackURL(s.phase, s.cache)
}

// Process acquires a transport handle, streams the track to the configured
// output and releases the handle on every exit path.
func (s *Session) Process(ctx context.Context) error {
	handle, err := s.cfg.Pool.Acquire(ctx)
	if err != nil {
		return types.Wrap(types.KindTransport, "acquire transport", err)
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			s.logger.Debug().Err(cerr).Msg("transport release")
		}
	}()
	return s.loadStream(ctx, handle)
}

func (s *Session) loadStream(ctx context.Context, handle transport.Handle) error {
	url, err := s.PlaybackURL(ctx)
	if err != nil {
		s.state = StateFailed
		return err
	}
	out := &countingWriter{w: s.cfg.Output}
	err = s.play(ctx, handle, url, out)
	if err == nil {
		s.state = StateDone
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		s.state = StateFailed
		s.logger.Debug().Err(err).Msg("stream canceled")
		return cerr
	}
	if s.phase.UsedFallback() {
		return s.exhausted("playback failed after fallback", err)
	}
	if out.n > 0 {
		// Output already holds this candidate's audio; the other candidate must not follow it.
		return s.exhausted("playback failed with partial output", &types.Error{
			Kind:     types.KindTransport,
			Severity: types.SeverityCommon,
			Message:  fmt.Sprintf("stream failed after %d bytes were written", out.n),
			Err:      err,
		})
	}

	s.logger.Warn().Err(err).Str(ilog.FieldCandidate, s.phase.String()).Msg("primary stream failed, switching to fallback")
	metrics.IncFallback()
	s.phase = PhaseFallback
	s.cache = nil
	s.state = StateReresolving

	url, rerr := s.PlaybackURL(ctx)
	if rerr != nil {
		s.state = StateFailed
		return &types.Error{
			Kind:     types.KindNoPlaybackURL,
			Severity: types.SeveritySuspicious,
			Message:  "fallback re-resolution failed",
			Err:      errors.Join(rerr, err),
		}
	}
	if err := s.play(ctx, handle, url, out); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			s.state = StateFailed
			return cerr
		}
		return s.exhausted("playback failed after fallback", err)
	}
	s.state = StateDone
	return nil
}

func (s *Session) exhausted(message string, cause error) error {
	s.state = StateFailed
	metrics.IncRetryExhausted()
	s.logger.Error().Err(cause).Msg(message)
	return &types.Error{
		Kind:     types.KindRetryExhausted,
		Severity: types.SeveritySuspicious,
		Message:  message,
		Err:      cause,
	}
}

func (s *Session) play(ctx context.Context, handle transport.Handle, url string, out io.Writer) (err error) {
	strategy := SelectStrategy(s.phase, url)
	candidate := s.phase.String()
	defer func() {
		metrics.IncStreamAttempt(candidate, strategy.String(), err)
	}()

	s.state = StatePlaying
	s.logger.Debug().
		Str(ilog.FieldCandidate, candidate).
		Str(ilog.FieldStrategy, strategy.String()).
		Msg("opening stream")

	st, err := stream.Open(ctx, handle, url, s.cfg.Headers)
	if err != nil {
		return err
	}
	defer st.Close()

	if s.cfg.Decoders == nil {
		return errors.New("no decoder factory configured")
	}
	dec, err := s.cfg.Decoders.Decoder(strategy)
	if err != nil {
		return err
	}
	return dec.Decode(ctx, DecodeRequest{
		Track:       s.track,
		Strategy:    strategy,
		URL:         url,
		Stream:      st,
		Length:      st.ContentLength(),
		ContentType: st.ContentType(),
		Output:      out,
	})
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
