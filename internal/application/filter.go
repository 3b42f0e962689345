package application

import (
	"fmt"
	"strings"
	"time"

	"walletops/internal/domain"
	"walletops/internal/normalize"
)

// HistoryFilter narrows a page of normalized transactions for display. The
// zero value keeps everything.
type HistoryFilter struct {
	Type  *domain.OperationType
	Token string
	From  *time.Time
	// To is inclusive through the end of its day.
	To   *time.Time
	Pair *normalize.PairFilter
}

const dateLayout = "2006-01-02"

// ParseHistoryFilter builds a filter from query-string style values. Empty
// values, and a type of "all", leave the corresponding criterion unset.
func ParseHistoryFilter(txType, token, from, to, pair string, aliases normalize.AliasTable) (HistoryFilter, error) {
	var filter HistoryFilter

	if raw := strings.TrimSpace(txType); raw != "" && !strings.EqualFold(raw, "all") {
		parsed, ok := domain.ParseOperationType(raw)
		if !ok {
			return HistoryFilter{}, fmt.Errorf("invalid type %q", raw)
		}
		filter.Type = &parsed
	}

	filter.Token = strings.TrimSpace(token)

	if raw := strings.TrimSpace(from); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return HistoryFilter{}, fmt.Errorf("invalid from date: %w", err)
		}
		filter.From = &parsed
	}
	if raw := strings.TrimSpace(to); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return HistoryFilter{}, fmt.Errorf("invalid to date: %w", err)
		}
		filter.To = &parsed
	}

	if raw := strings.TrimSpace(pair); raw != "" {
		in, out, ok := strings.Cut(raw, "-")
		if !ok || strings.TrimSpace(in) == "" || strings.TrimSpace(out) == "" {
			return HistoryFilter{}, fmt.Errorf("invalid pair %q, want IN-OUT", raw)
		}
		if aliases == nil {
			aliases = normalize.DefaultAliases()
		}
		filter.Pair = normalize.NewPairFilter(aliases, in, out)
	}

	return filter, nil
}

// IsZero reports whether the filter keeps every transaction.
func (f HistoryFilter) IsZero() bool {
	return f.Type == nil && f.Token == "" && f.From == nil && f.To == nil && f.Pair == nil
}

func (f HistoryFilter) Match(tx domain.NormalizedTransaction) bool {
	if f.Type != nil && tx.Type != *f.Type {
		return false
	}
	if f.Token != "" && !tokenContains(tx, f.Token) {
		return false
	}
	if f.From != nil || f.To != nil {
		ts, err := time.Parse(normalize.TimestampLayout, tx.TimestampISO)
		if err != nil {
			return false
		}
		if f.From != nil && ts.Before(*f.From) {
			return false
		}
		if f.To != nil && !ts.Before(f.To.AddDate(0, 0, 1)) {
			return false
		}
	}
	if f.Pair != nil && !f.Pair.Match(tx) {
		return false
	}
	return true
}

// Apply returns the matching transactions in their original order.
func (f HistoryFilter) Apply(txs []domain.NormalizedTransaction) []domain.NormalizedTransaction {
	if f.IsZero() {
		return txs
	}
	out := make([]domain.NormalizedTransaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func tokenContains(tx domain.NormalizedTransaction, needle string) bool {
	needle = strings.ToLower(needle)
	for _, token := range []*string{tx.TokenIn, tx.TokenOut} {
		if token != nil && strings.Contains(strings.ToLower(*token), needle) {
			return true
		}
	}
	return false
}
