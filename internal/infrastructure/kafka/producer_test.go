package kafka

import (
	"context"
	"errors"
	"testing"

	"walletops/internal/domain"
	"walletops/internal/streaming"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(ProducerConfig{Chain: "arbitrum"})
	assert.Error(t, err)

	_, err = newProducer(&fakeWriter{}, ProducerConfig{})
	assert.Error(t, err)

	p, err := newProducer(&fakeWriter{}, ProducerConfig{Chain: "Arbitrum"})
	require.NoError(t, err)
	assert.Equal(t, "walletops-history-arbitrum", p.Topic())
}

func TestPublishTransactions(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	writer := &fakeWriter{}
	p, err := newProducer(writer, ProducerConfig{TopicPrefix: "hist", Chain: "arbitrum"})
	require.NoError(t, err)

	txs := []domain.NormalizedTransaction{
		{TimestampISO: "2024-05-14T12:00:00.000Z", Type: domain.OperationSwap, TxHash: "0xswap1"},
		{TimestampISO: "2024-05-14T12:00:00.000Z", Type: domain.OperationUnknown},
	}
	require.NoError(t, p.PublishTransactions(context.Background(), "0xABC", txs))
	require.Len(t, writer.messages, 2)

	first := writer.messages[0]
	assert.Equal(t, "hist-arbitrum", first.Topic)
	assert.Equal(t, "0xswap1", string(first.Key))
	assert.Equal(t, "0xabc", string(writer.messages[1].Key), "falls back to the wallet")

	var traceparent string
	for _, header := range first.Headers {
		if header.Key == "traceparent" {
			traceparent = string(header.Value)
		}
	}
	require.NotEmpty(t, traceparent)

	decoded, err := streaming.Decode(first.Value)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", decoded.Wallet)
	assert.Equal(t, "arbitrum", decoded.Chain)
	assert.Equal(t, txs[0], decoded.Transaction)
	assert.Contains(t, traceparent, decoded.TraceID)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestPublishTransactions_Empty(t *testing.T) {
	writer := &fakeWriter{err: errors.New("should not be called")}
	p, err := newProducer(writer, ProducerConfig{Chain: "arbitrum"})
	require.NoError(t, err)
	assert.NoError(t, p.PublishTransactions(context.Background(), "0xabc", nil))
}

func TestPublishTransactions_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	p, err := newProducer(writer, ProducerConfig{Chain: "arbitrum"})
	require.NoError(t, err)
	err = p.PublishTransactions(context.Background(), "0xabc", []domain.NormalizedTransaction{{TxHash: "0x1", Type: domain.OperationSwap}})
	assert.EqualError(t, err, "broker down")
}
