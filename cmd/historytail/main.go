package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"walletops/internal/config"
	"walletops/internal/domain"
	"walletops/internal/infrastructure/kafka"
	"walletops/internal/infrastructure/logging"
	"walletops/internal/infrastructure/telemetry"
	"walletops/internal/normalize"
	"walletops/internal/streaming"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	if err := run(); err != nil {
		slog.Error("historytail exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	group := flag.String("group", "", "consumer group id; empty reads the topic from the start without committing")
	typeFilter := flag.String("type", "", "only print transactions of this operation type")
	pair := flag.String("pair", "", "only print swaps of this pair, as IN-OUT")
	flag.Parse()

	logger, logCloser, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logCloser.Close()

	if !cfg.KafkaEnabled() {
		return errors.New("KAFKA_BROKERS is required")
	}

	keep, err := buildMatcher(*typeFilter, *pair)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracer(ctx, "walletops-historytail", "", cfg.OtelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	topic := kafka.TopicFor(cfg.KafkaTopicPrefix, cfg.Chain)
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  *group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info("tailing normalized history", "topic", topic, "group", *group)
	return consume(ctx, reader, *group != "", keep, os.Stdout, logger)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

func consume(ctx context.Context, reader messageReader, commit bool, keep func(domain.NormalizedTransaction) bool, out io.Writer, logger *slog.Logger) error {
	tracer := otel.Tracer("walletops/historytail")
	encoder := json.NewEncoder(out)
	var seen, printed uint64

	for {
		message, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				logger.Info("stream closed", "messages", seen, "printed", printed)
				return nil
			}
			logger.Warn("kafka fetch error", "err", err)
			continue
		}
		seen++

		decoded, err := streaming.Decode(message.Value)
		if err != nil {
			logger.Warn("message decode error", "offset", message.Offset, "err", err)
		} else {
			messageCtx := telemetry.ExtractKafkaHeaders(ctx, message.Headers)
			if !trace.SpanContextFromContext(messageCtx).IsValid() && decoded.TraceID != "" {
				if withTrace, ok := telemetry.ContextWithTraceID(messageCtx, decoded.TraceID); ok {
					messageCtx = withTrace
				}
			}
			_, span := tracer.Start(messageCtx, "historytail.message", trace.WithSpanKind(trace.SpanKindConsumer))
			span.SetAttributes(
				attribute.String("tx.hash", decoded.Transaction.TxHash),
				attribute.String("tx.type", string(decoded.Transaction.Type)),
			)
			if keep(decoded.Transaction) {
				if err := encoder.Encode(decoded); err != nil {
					span.End()
					return err
				}
				printed++
			}
			span.End()
		}

		if commit {
			if err := reader.CommitMessages(ctx, message); err != nil {
				logger.Warn("kafka commit error", "err", err)
			}
		}
	}
}

func buildMatcher(txType, pair string) (func(domain.NormalizedTransaction) bool, error) {
	var want *domain.OperationType
	if txType != "" {
		parsed, ok := domain.ParseOperationType(txType)
		if !ok {
			return nil, fmt.Errorf("invalid -type %q", txType)
		}
		want = &parsed
	}
	var filter *normalize.PairFilter
	if pair != "" {
		in, out, ok := strings.Cut(pair, "-")
		if !ok || in == "" || out == "" {
			return nil, fmt.Errorf("invalid -pair %q, want IN-OUT", pair)
		}
		filter = normalize.NewPairFilter(normalize.DefaultAliases(), in, out)
	}
	return func(tx domain.NormalizedTransaction) bool {
		if want != nil && tx.Type != *want {
			return false
		}
		return filter == nil || filter.Match(tx)
	}, nil
}
