package types

import "context"

type contextKey string

const (
	// SessionIDKey is the context key for the streaming session id.
	SessionIDKey contextKey = "sessionID"
)

// WithSessionID returns a new context carrying the streaming session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// SessionIDFromContext returns the streaming session id from the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok && id != ""
}
