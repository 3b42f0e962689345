package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walletops/internal/application"
	"walletops/internal/config"
	"walletops/internal/infrastructure/kafka"
	"walletops/internal/infrastructure/logging"
	"walletops/internal/infrastructure/memory"
	"walletops/internal/infrastructure/moralis"
	"walletops/internal/infrastructure/rediscache"
	"walletops/internal/infrastructure/telemetry"
	"walletops/internal/interfaces/httpapi"
	"walletops/internal/normalize"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracer(ctx, "walletops-api", version, cfg.OtelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown error", "err", err)
		}
	}()

	aliases, err := loadAliases(cfg.TokenAliasesFile)
	if err != nil {
		return err
	}

	cache, closeCache := buildCache(ctx, cfg, logger)
	defer closeCache()

	metrics := httpapi.NewMetrics()
	deps := application.HistoryDeps{
		Cache:      cache,
		Observer:   metrics,
		Normalizer: normalize.New(normalize.WithLogger(logger)),
		Logger:     logger,
	}

	if cfg.ProviderConfigured() {
		client, err := moralis.NewClient(moralis.Config{
			BaseURL: cfg.MoralisBaseURL,
			APIKey:  cfg.MoralisAPIKey,
			Chain:   cfg.Chain,
			Timeout: cfg.UpstreamTimeout,
		})
		if err != nil {
			return fmt.Errorf("moralis client: %w", err)
		}
		deps.Provider = client
	} else {
		logger.Warn("MORALIS_API_KEY is not set; /history will return 500")
	}

	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Chain:       cfg.Chain,
		})
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		deps.Publisher = producer
		logger.Info("publishing normalized history", "topic", producer.Topic())
	}

	service, err := application.NewHistoryService(deps)
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(service, aliases, metrics, logger, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		return err
	}

	logger.Info("http server listening", "addr", cfg.HTTPAddr, "chain", cfg.Chain)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

// buildCache prefers Redis and falls back to the in-process cache when Redis
// is not configured or unreachable.
func buildCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.HistoryCache, func()) {
	if cfg.RedisAddr != "" {
		cache, err := rediscache.NewCache(rediscache.Config{Addr: cfg.RedisAddr, TTL: cfg.CacheTTL})
		if err == nil {
			logger.Info("history cache", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
			return cache, func() { _ = cache.Close() }
		}
		logger.Warn("redis cache disabled", "err", err)
	}
	cache := memory.NewCache(cfg.CacheTTL)
	go cache.Run(ctx, cfg.CacheTTL)
	logger.Info("history cache", "backend", "memory", "ttl", cfg.CacheTTL)
	return cache, func() {}
}

func loadAliases(path string) (normalize.AliasTable, error) {
	aliases := normalize.DefaultAliases()
	if path == "" {
		return aliases, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token aliases: %w", err)
	}
	custom, err := normalize.ParseAliasTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return aliases.Merge(custom), nil
}
