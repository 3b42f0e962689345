// Package normalize maps loosely-typed wallet-history records onto
// domain.NormalizedTransaction. Every function is pure apart from reading the
// clock for records that carry no timestamp.
package normalize

import (
	"io"
	"log/slog"
	"time"

	"walletops/internal/domain"
)

type Normalizer struct {
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Normalizer)

// WithClock replaces time.Now as the fallback timestamp source.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithLogger sets the logger that receives rejected timestamp warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// NormalizeTransactions normalizes raws with the wall clock and no logging.
func NormalizeTransactions(raws []domain.RawTransaction) []domain.NormalizedTransaction {
	return defaultNormalizer.NormalizeTransactions(raws)
}

// NormalizeTransactions maps each raw record to one normalized record,
// preserving order.
func (n *Normalizer) NormalizeTransactions(raws []domain.RawTransaction) []domain.NormalizedTransaction {
	out := make([]domain.NormalizedTransaction, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw))
	}
	return out
}

func (n *Normalizer) Normalize(raw domain.RawTransaction) domain.NormalizedTransaction {
	txType := DetectOperationType(raw)
	guessed := guessFromDirection(raw)
	hash := extractHash(raw)

	tx := domain.NormalizedTransaction{
		Type:      txType,
		TokenIn:   pick(raw, guessed.tokenIn, symbolField("token_in"), symbolField("token_symbol")),
		TokenOut:  pick(raw, guessed.tokenOut, symbolField("token_out")),
		AmountIn:  pick(raw, guessed.amountIn, amountField("amount_in")),
		AmountOut: pick(raw, guessed.amountOut, amountField("amount_out")),
		TxHash:    hash,
	}

	// An amount only makes sense next to the token it measures.
	if tx.TokenIn == nil {
		tx.AmountIn = nil
	}
	if tx.TokenOut == nil {
		tx.AmountOut = nil
	}

	if usd, ok := extractUSDValue(raw); ok {
		tx.ValueUSD = &usd
	}
	if protocol, ok := extractProtocol(raw); ok {
		tx.Protocol = &protocol
	}

	tx.TimestampISO = extractTimestamp(raw, n.now, func(field, value string, err error) {
		n.logger.Warn("unparseable timestamp skipped",
			"field", field,
			"value", value,
			"tx_hash", hash,
			"err", err,
		)
	})
	return tx
}

// pick returns the first explicit value, or fallback when none is present.
func pick(raw domain.RawTransaction, fallback *string, explicit ...accessor[string]) *string {
	if value, ok := firstOf(raw, explicit...); ok {
		return &value
	}
	if fallback == nil {
		return nil
	}
	value := *fallback
	return &value
}
