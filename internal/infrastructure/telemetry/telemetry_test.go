package telemetry

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "walletops-test", "dev", " ")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("http://collector:4318"), 2)
	assert.Len(t, exporterOptions("collector:4318"), 3)
}

func TestKafkaHeaders_RoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, traceIDHex := ContextWithNewTrace(context.Background())
	require.NotEmpty(t, traceIDHex)

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "source", Value: []byte("api")}})
	require.Len(t, headers, 2)

	extracted := ExtractKafkaHeaders(context.Background(), headers)
	spanCtx := trace.SpanContextFromContext(extracted)
	require.True(t, spanCtx.IsValid())
	assert.Equal(t, traceIDHex, spanCtx.TraceID().String())
	assert.True(t, spanCtx.IsRemote())
}

func TestKafkaHeaderCarrier_SetReplacesCaseInsensitively(t *testing.T) {
	carrier := &kafkaHeaderCarrier{}
	carrier.Set("Traceparent", "a")
	carrier.Set("traceparent", "b")
	assert.Equal(t, []string{"Traceparent"}, carrier.Keys())
	assert.Equal(t, "b", carrier.Get("TRACEPARENT"))
	assert.Empty(t, carrier.Get("missing"))
}

func TestContextWithTraceID(t *testing.T) {
	_, hexID, ok := NewTraceID()
	require.True(t, ok)

	ctx, ok := ContextWithTraceID(context.Background(), hexID)
	require.True(t, ok)
	spanCtx := trace.SpanContextFromContext(ctx)
	assert.Equal(t, hexID, spanCtx.TraceID().String())
	assert.True(t, spanCtx.IsRemote())

	_, ok = ContextWithTraceID(context.Background(), "nope")
	assert.False(t, ok)
}
