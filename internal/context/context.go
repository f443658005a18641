package context

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ClientIPKey is the context key for the caller's source address
	ClientIPKey ContextKey = "client_ip"
	// SessionTokenKey is the context key for the validated admin session token
	SessionTokenKey ContextKey = "session_token"
)

// WithClientIP stores the caller's source address in the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// ExtractClientIP extracts the caller's source address from the request context
func ExtractClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(ClientIPKey).(string)
	return ip, ok
}

// WithSessionToken stores the validated admin session token in the context
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, SessionTokenKey, token)
}

// ExtractSessionToken extracts the validated admin session token from the context
func ExtractSessionToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenKey).(string)
	return token, ok
}
