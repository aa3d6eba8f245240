package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/famomatic/ttaudio/client"
	"github.com/famomatic/ttaudio/internal/cli"
	"github.com/famomatic/ttaudio/internal/config"
	ilog "github.com/famomatic/ttaudio/internal/log"
	"github.com/famomatic/ttaudio/internal/server"
	"github.com/famomatic/ttaudio/internal/session"
	"github.com/famomatic/ttaudio/internal/track"
)

type app struct {
	opts   cli.Options
	cfg    config.Config
	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", client.ClassifyError(err), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ttaudio",
		Short:         "Resolve TikTok videos into playable audio tracks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadConfig(a.opts)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = ilog.Configure(ilog.Config{
				Level:  cfg.Log.Level,
				Output: cmd.ErrOrStderr(),
				Pretty: cfg.Log.Pretty,
			})
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.opts.ConfigFile, "config", "c", "", "YAML config file")
	f.StringVar(&a.opts.ProxyURL, "proxy", "", "Use the specified HTTP/HTTPS/SOCKS proxy")
	f.StringVar(&a.opts.CookiesFile, "cookies", "", "Netscape formatted cookies file")
	f.StringVar(&a.opts.UserAgent, "user-agent", "", "Override the browser User-Agent")
	f.StringVar(&a.opts.FFmpegLocation, "ffmpeg-location", "", "Path to ffmpeg binary")
	f.StringVar(&a.opts.RedisAddr, "redis", "", "Redis address for the track cache")
	f.DurationVar(&a.opts.Timeout, "timeout", 0, "Per request timeout")
	f.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Print debugging information")

	root.AddCommand(
		newResolveCmd(a),
		newPlayCmd(a),
		newDecodeCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) client(ctx context.Context) (*client.Client, func() error, error) {
	return cli.NewClient(ctx, a.opts, a.cfg, a.logger)
}

type resolveResult struct {
	Input      string      `json:"input"`
	Encoded    string      `json:"encoded,omitempty"`
	Info       *track.Info `json:"info,omitempty"`
	Primary    string      `json:"primary,omitempty"`
	Fallback   string      `json:"fallback,omitempty"`
	Error      string      `json:"error,omitempty"`
	Category   string      `json:"category,omitempty"`
	Recognized bool        `json:"recognized"`
}

func newResolveCmd(a *app) *cobra.Command {
	var (
		withURLs    bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "resolve URL [URL...]",
		Short: "Load track metadata for one or more video URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeClient, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			results := make([]resolveResult, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))
			for i, input := range args {
				g.Go(func() error {
					results[i] = resolveOne(ctx, c, input, withURLs)
					return nil
				})
			}
			_ = g.Wait()

			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, r := range results {
				if r.Error != "" || !r.Recognized {
					failed++
				}
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d inputs failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withURLs, "urls", false, "Also print the current playback candidates")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Parallel resolutions")
	return cmd
}

func resolveOne(ctx context.Context, c *client.Client, input string, withURLs bool) resolveResult {
	res := resolveResult{Input: input}
	t, ok, err := c.LoadItem(ctx, input)
	res.Recognized = ok
	if !ok {
		return res
	}
	if err != nil {
		res.Error = err.Error()
		res.Category = string(client.ClassifyError(err))
		return res
	}
	encoded, err := client.EncodeTrack(t)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	info := t.Info()
	res.Encoded = encoded
	res.Info = &info

	if withURLs {
		ref, _ := client.Match(input)
		meta, err := c.Resolve(ctx, ref)
		if err != nil {
			res.Error = err.Error()
			res.Category = string(client.ClassifyError(err))
			return res
		}
		res.Primary = meta.MuxedVideoURL
		res.Fallback = meta.DirectAudioURL
	}
	return res
}

func newPlayCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "play URL|TRACK",
		Short: "Stream the audio of a video URL or encoded track to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeClient, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			t, err := loadOrDecode(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			s := c.NewSession(t, session.WithOutput(out))
			start := time.Now()
			if err := s.Process(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info().
				Str("video_id", t.Identifier()).
				Str("phase", s.Phase().String()).
				Dur("took", time.Since(start)).
				Msg("playback finished")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	return cmd
}

func loadOrDecode(ctx context.Context, c *client.Client, input string) (*track.Track, error) {
	t, ok, err := c.LoadItem(ctx, input)
	if ok {
		return t, err
	}
	t, err = client.DecodeTrack(input)
	if err != nil {
		return nil, errors.Join(client.ErrInvalidInput, fmt.Errorf("%q is neither a TikTok video URL nor an encoded track", input))
	}
	return t, nil
}

func newDecodeCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode TRACK",
		Short: "Print the metadata of an encoded track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := client.DecodeTrack(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatTrack(t.Info()))
			return err
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve track loading and audio streaming over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, closeClient, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer closeClient()

			if listen == "" {
				listen = a.cfg.Server.Listen
			}
			srv := server.New(server.Config{
				Source:        c,
				Logger:        a.logger,
				RatePerMinute: a.cfg.Server.RatePerMinute,
			})
			return srv.ListenAndServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides server.listen)")
	return cmd
}

func formatTrack(info track.Info) string {
	length := time.Duration(info.LengthMillis) * time.Millisecond
	return fmt.Sprintf("[%s] %s by @%s (%s) %s", info.Identifier, info.Title, info.Author, length, info.URI)
}
