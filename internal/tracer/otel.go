package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies this module's spans in trace backends.
const instrumentationName = "aureon/pipeline"

// OTelTracer adapts an OpenTelemetry tracer to the internal Tracer
// interface, keeping OTel APIs out of the rest of the codebase.
type OTelTracer struct {
	tracer trace.Tracer
}

// OTelOption configures the OTelTracer.
type OTelOption func(*OTelTracer)

// WithOTelTracer injects a pre-configured OpenTelemetry tracer instead of
// the global provider's.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// NewOTel creates an OpenTelemetry-backed tracer. By default it draws from
// the global tracer provider, so exporter setup stays in main.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(instrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(convert(attrs)...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(convert(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(convert(attrs)...))
}

// convert maps internal attributes onto OTel key-values. Unsupported value
// types are dropped rather than stringified; the attribute constructors in
// this package only produce supported types.
func convert(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if kv, ok := a.otel(); ok {
			out = append(out, kv)
		}
	}
	return out
}

func (a Attribute) otel() (attribute.KeyValue, bool) {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v), true
	case bool:
		return attribute.Bool(a.Key, v), true
	case int64:
		return attribute.Int64(a.Key, v), true
	case int:
		return attribute.Int64(a.Key, int64(v)), true
	case float64:
		return attribute.Float64(a.Key, v), true
	default:
		return attribute.KeyValue{}, false
	}
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = otelSpan{}
)
