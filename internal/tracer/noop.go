package tracer

import "context"

// NewNoop returns a tracer that records nothing. Every component defaults
// to it, so tracing is strictly opt-in.
func NewNoop() Tracer { return nopTracer{} }

type nopTracer struct{}

func (nopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, nopSpan{}
}

// nopSpan discards everything. A value type so Start allocates nothing.
type nopSpan struct{}

func (nopSpan) End(error)                     {}
func (nopSpan) SetAttributes(...Attribute)    {}
func (nopSpan) AddEvent(string, ...Attribute) {}

var (
	_ Tracer = nopTracer{}
	_ Span   = nopSpan{}
)
