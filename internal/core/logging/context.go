package logging

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	scopeKey     contextKey = "scope"
)

// WithSessionID adds a browsing session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithScope adds the active browsing scope to the context.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// GetSessionID retrieves the session ID from the context.
// Returns empty string if not present.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// GetScope retrieves the browsing scope from the context.
// Returns empty string if not present.
func GetScope(ctx context.Context) string {
	if s, ok := ctx.Value(scopeKey).(string); ok {
		return s
	}
	return ""
}
