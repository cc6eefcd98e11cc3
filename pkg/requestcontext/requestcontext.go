// Package requestcontext carries per-request metadata through context.Context.
// Only cross-cutting values live here (request ID, injected clock, client IP);
// resolved tenant and identity travel through their own typed contexts.
package requestcontext

import (
	"context"
	"time"
)

type requestIDKey struct{}
type clockKey struct{}
type clientIPKey struct{}

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID retrieves the request correlation ID, or "" when absent.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithClock injects a clock function, used by tests to control time.
func WithClock(ctx context.Context, now func() time.Time) context.Context {
	return context.WithValue(ctx, clockKey{}, now)
}

// Now returns the injected clock's time, falling back to time.Now().
func Now(ctx context.Context) time.Time {
	if now, ok := ctx.Value(clockKey{}).(func() time.Time); ok {
		return now()
	}
	return time.Now()
}

// WithClientIP stores the caller's network address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP retrieves the caller's network address, or "" when absent.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}
