package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"walletops/internal/domain"
	"walletops/internal/infrastructure/telemetry"
	"walletops/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultTopicPrefix = "walletops-history"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	prefix string
	chain  string
}

type ProducerConfig struct {
	Brokers     []string
	TopicPrefix string
	Chain       string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           500 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newProducer(writer, cfg)
}

func newProducer(writer messageWriter, cfg ProducerConfig) (*Producer, error) {
	if writer == nil {
		return nil, errors.New("kafka writer is required")
	}
	if strings.TrimSpace(cfg.TopicPrefix) == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if strings.TrimSpace(cfg.Chain) == "" {
		return nil, errors.New("kafka chain is required")
	}
	return &Producer{writer: writer, prefix: cfg.TopicPrefix, chain: cfg.Chain}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Topic is the topic every message of this producer is written to.
func (p *Producer) Topic() string {
	return TopicFor(p.prefix, p.chain)
}

func TopicFor(prefix, chain string) string {
	return prefix + "-" + strings.ToLower(chain)
}

// PublishTransactions writes one message per transaction, keyed by
// transaction hash so the same transaction always lands on one partition.
// Each message starts its own trace, carried in both headers and body.
func (p *Producer) PublishTransactions(ctx context.Context, wallet string, txs []domain.NormalizedTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	wallet = strings.ToLower(wallet)
	tracer := otel.Tracer("walletops/kafka")
	topic := p.Topic()
	messages := make([]kafka.Message, 0, len(txs))
	spans := make([]trace.Span, 0, len(txs))
	for _, tx := range txs {
		traceCtx, traceIDHex := telemetry.ContextWithNewTrace(ctx)
		traceCtx, span := tracer.Start(traceCtx, "history.publish_transaction", trace.WithSpanKind(trace.SpanKindProducer))
		span.SetAttributes(
			attribute.String("chain", p.chain),
			attribute.String("wallet.address", wallet),
			attribute.String("tx.hash", tx.TxHash),
			attribute.String("tx.type", string(tx.Type)),
		)

		payload, err := streaming.Encode(streaming.Message{
			Type:        streaming.MessageTypeTransaction,
			Chain:       p.chain,
			Wallet:      wallet,
			TraceID:     traceIDHex,
			Transaction: tx,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			endSpans(spans, err)
			return err
		}

		key := tx.TxHash
		if key == "" {
			key = wallet
		}
		messages = append(messages, kafka.Message{
			Topic:   topic,
			Key:     []byte(key),
			Value:   payload,
			Headers: telemetry.InjectKafkaHeaders(traceCtx, make([]kafka.Header, 0, 2)),
		})
		spans = append(spans, span)
	}

	err := p.writer.WriteMessages(ctx, messages...)
	endSpans(spans, err)
	return err
}

func endSpans(spans []trace.Span, err error) {
	for _, span := range spans {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
