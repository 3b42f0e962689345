package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"walletops/internal/domain"
	"walletops/internal/normalize"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type HistoryProvider interface {
	FetchHistory(ctx context.Context, address, cursor string) (domain.RawHistoryPage, error)
}

// HistoryCache stores unfiltered pages. A miss is reported as ok == false
// with a nil error.
type HistoryCache interface {
	Get(ctx context.Context, key string) (domain.HistoryPage, bool, error)
	Set(ctx context.Context, key string, page domain.HistoryPage) error
	Ping(ctx context.Context) error
}

type HistoryPublisher interface {
	PublishTransactions(ctx context.Context, address string, txs []domain.NormalizedTransaction) error
}

type HistoryObserver interface {
	ObserveCache(hit bool)
	ObserveUpstreamError(statusCode int)
	ObserveNormalized(txs []domain.NormalizedTransaction)
	ObservePublishError()
}

type HistoryQuery struct {
	Address string
	Cursor  string
	Filter  HistoryFilter
}

type HistoryDeps struct {
	// Provider may be nil when no API key is configured; every query then
	// fails with ErrProviderNotConfigured.
	Provider   HistoryProvider
	Cache      HistoryCache
	Publisher  HistoryPublisher
	Observer   HistoryObserver
	Normalizer *normalize.Normalizer
	Logger     *slog.Logger
}

type HistoryService struct {
	provider   HistoryProvider
	cache      HistoryCache
	publisher  HistoryPublisher
	observer   HistoryObserver
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

func NewHistoryService(deps HistoryDeps) (*HistoryService, error) {
	if deps.Cache == nil {
		return nil, errors.New("history service dependencies must not be nil")
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	return &HistoryService{
		provider:   deps.Provider,
		cache:      deps.Cache,
		publisher:  deps.Publisher,
		observer:   deps.Observer,
		normalizer: deps.Normalizer,
		logger:     deps.Logger,
	}, nil
}

// CacheKey is the cache key for one page of an address history.
func CacheKey(address, cursor string) string {
	if cursor == "" {
		cursor = "start"
	}
	return strings.ToLower(address) + ":" + cursor
}

// History returns a normalized page for the query, serving repeated queries
// from the cache. The filter is applied after caching so every view of a
// page shares one cache entry.
func (s *HistoryService) History(ctx context.Context, query HistoryQuery) (domain.HistoryPage, error) {
	address, err := ValidateAddress(query.Address)
	if err != nil {
		return domain.HistoryPage{}, err
	}
	if s.provider == nil {
		return domain.HistoryPage{}, ErrProviderNotConfigured
	}

	ctx, span := otel.Tracer("walletops/history").Start(ctx, "history.page")
	defer span.End()
	span.SetAttributes(
		attribute.String("wallet.address", strings.ToLower(address)),
		attribute.String("page.cursor", query.Cursor),
	)

	key := CacheKey(address, query.Cursor)
	page, hit := s.cached(ctx, key)
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if !hit {
		page, err = s.fetch(ctx, address, query.Cursor)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return domain.HistoryPage{}, err
		}
		if err := s.cache.Set(ctx, key, page); err != nil {
			s.logger.Warn("history cache store failed", "key", key, "err", err)
		}
		s.publish(ctx, address, page.Items)
	}

	page.Items = query.Filter.Apply(page.Items)
	return page, nil
}

// Ready reports whether the cache backend is reachable.
func (s *HistoryService) Ready(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

func (s *HistoryService) cached(ctx context.Context, key string) (domain.HistoryPage, bool) {
	page, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("history cache lookup failed", "key", key, "err", err)
		ok = false
	}
	s.observer.ObserveCache(ok)
	return page, ok
}

func (s *HistoryService) fetch(ctx context.Context, address, cursor string) (domain.HistoryPage, error) {
	raw, err := s.provider.FetchHistory(ctx, address, cursor)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			s.observer.ObserveUpstreamError(upstream.StatusCode)
		} else {
			s.observer.ObserveUpstreamError(0)
		}
		s.logger.Error("history fetch failed", "address", address, "cursor", cursor, "err", err)
		return domain.HistoryPage{}, err
	}

	items := s.normalizer.NormalizeTransactions(raw.Transactions)
	s.observer.ObserveNormalized(items)

	total := int64(len(raw.Transactions))
	if raw.Total != nil {
		total = *raw.Total
	}
	return domain.HistoryPage{Cursor: raw.Cursor, Total: total, Items: items}, nil
}

func (s *HistoryService) publish(ctx context.Context, address string, txs []domain.NormalizedTransaction) {
	if s.publisher == nil || len(txs) == 0 {
		return
	}
	if err := s.publisher.PublishTransactions(ctx, address, txs); err != nil {
		s.observer.ObservePublishError()
		s.logger.Warn("history publish failed", "address", address, "count", len(txs), "err", err)
	}
}

type noopObserver struct{}

func (noopObserver) ObserveCache(bool)                                {}
func (noopObserver) ObserveUpstreamError(int)                         {}
func (noopObserver) ObserveNormalized([]domain.NormalizedTransaction) {}
func (noopObserver) ObservePublishError()                             {}
