package tracer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	id "aureon/pkg/domain"
)

func TestResolutionAttrs(t *testing.T) {
	tenantID := id.NewTenantID()
	attrs := ResolutionAttrs(tenantID, "subdomain")

	require.Len(t, attrs, 2)
	assert.Equal(t, Attribute{Key: AttrTenantID, Value: tenantID.String()}, attrs[0])
	assert.Equal(t, Attribute{Key: AttrSignal, Value: "subdomain"}, attrs[1])
}

func TestIdentityAttrs(t *testing.T) {
	userID := id.NewUserID()
	tenantID := id.NewTenantID()
	attrs := IdentityAttrs(userID, tenantID)

	require.Len(t, attrs, 2)
	assert.Equal(t, userID.String(), attrs[0].Value)
	assert.Equal(t, tenantID.String(), attrs[1].Value)
}

func TestQueueAttributesAreInt64(t *testing.T) {
	assert.Equal(t, Attribute{Key: AttrBatchSize, Value: int64(25)}, BatchSize(25))
	assert.Equal(t, Attribute{Key: AttrQueueDepth, Value: int64(0)}, QueueDepth(0))
}

func TestNoopPreservesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	got, span := NewNoop().Start(ctx, SpanTenantResolve, String(AttrSignal, "token"))
	assert.Equal(t, ctx, got)

	// All span methods are safe on the discarded span.
	span.SetAttributes(Bool("k", true))
	span.AddEvent("evt")
	span.End(nil)
}

func TestAttributeConversion(t *testing.T) {
	attrs := convert([]Attribute{
		String("s", "x"),
		Bool("b", true),
		Int64("i", 7),
		{Key: "plain", Value: 3},
		{Key: "f", Value: 1.5},
		Duration("d", 1500*time.Millisecond),
		{Key: "dropped", Value: struct{}{}},
	})

	require.Len(t, attrs, 6, "unsupported value types are dropped")
	assert.Equal(t, attribute.String("s", "x"), attrs[0])
	assert.Equal(t, attribute.Bool("b", true), attrs[1])
	assert.Equal(t, attribute.Int64("i", 7), attrs[2])
	assert.Equal(t, attribute.Int64("plain", 3), attrs[3])
	assert.Equal(t, attribute.Float64("f", 1.5), attrs[4])
	assert.Equal(t, attribute.Int64("d", 1500), attrs[5])

	assert.Nil(t, convert(nil))
}
