package client

import (
	"context"
	"time"

	"github.com/famomatic/ttaudio/internal/session"
	"github.com/famomatic/ttaudio/internal/types"
)

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// timeoutResolver applies Config.RequestTimeout to every resolution, including
// the ones a session makes when it re-resolves for its fallback.
type timeoutResolver struct {
	session.Resolver
	timeout time.Duration
}

func (r timeoutResolver) Resolve(ctx context.Context, author, videoID string) (*types.ResolvedMetadata, error) {
	ctx, cancel := withDefaultTimeout(ctx, r.timeout)
	defer cancel()
	return r.Resolver.Resolve(ctx, author, videoID)
}
