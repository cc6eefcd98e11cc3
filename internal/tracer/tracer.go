// Package tracer provides a lightweight tracing abstraction for the
// trust-boundary pipeline.
//
// The internal interface keeps the resolver and audit pipeline decoupled from
// OpenTelemetry APIs while still emitting distributed traces in production.
//
// Implementations:
//   - NewNoop: for tests and untraced deployments (zero overhead)
//   - NewOTel: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"

	id "aureon/pkg/domain"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// If err is non-nil, the span is marked as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context contains the new span and should be passed to
	// child operations. The span must be ended by calling Span.End().
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the pipeline.
const (
	SpanTenantResolve = "tenant.resolve"
	SpanAuthenticate  = "auth.authenticate"
	SpanAuditFlush    = "audit.flush"
)

// Attribute keys used by the pipeline.
const (
	AttrTenantID   = "tenant_id"
	AttrUserID     = "user_id"
	AttrSignal     = "resolution_signal"
	AttrBatchSize  = "audit.batch_size"
	AttrQueueDepth = "audit.queue_depth"
)

// ResolutionAttrs describes which tenant a request resolved to and the
// signal that carried it.
func ResolutionAttrs(tenantID id.TenantID, signal string) []Attribute {
	return []Attribute{
		String(AttrTenantID, tenantID.String()),
		String(AttrSignal, signal),
	}
}

// IdentityAttrs records the authenticated caller on a span.
func IdentityAttrs(userID id.UserID, tenantID id.TenantID) []Attribute {
	return []Attribute{
		String(AttrUserID, userID.String()),
		String(AttrTenantID, tenantID.String()),
	}
}

// BatchSize annotates an audit flush span with the number of entries written.
func BatchSize(n int) Attribute {
	return Int64(AttrBatchSize, int64(n))
}

// QueueDepth annotates an audit flush span with the entries still buffered.
func QueueDepth(n int) Attribute {
	return Int64(AttrQueueDepth, int64(n))
}
