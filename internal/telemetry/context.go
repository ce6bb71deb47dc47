package telemetry

import "context"

type (
	turnIDKey    struct{}
	sessionIDKey struct{}
)

// WithTurnID returns a child context that carries the provided turn ID.
// If ctx is nil, context.Background() is used.
func WithTurnID(ctx context.Context, id string) context.Context {
	return withString(ctx, turnIDKey{}, id)
}

// TurnIDFromContext returns the turn ID from ctx, if present and non-empty.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, turnIDKey{})
}

// WithSessionID returns a child context that carries a session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withString(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session ID from ctx, if present and non-empty.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, sessionIDKey{})
}

func withString(ctx context.Context, key any, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringFrom(ctx context.Context, key any) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
