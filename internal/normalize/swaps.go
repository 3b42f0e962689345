package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"walletops/internal/domain"

	"gopkg.in/yaml.v3"
)

// AliasTable maps a canonical symbol to the lower-case aliases that also
// identify it. Tables are treated as immutable values; Merge returns a copy.
type AliasTable map[string][]string

// DefaultAliases returns a fresh copy of the built-in alias table.
func DefaultAliases() AliasTable {
	return AliasTable{
		"USDC": {"usdc", "usd-coin"},
		"WBTC": {"wbtc", "wrapped-btc", "wrapped-bitcoin"},
	}
}

// ParseAliasTable reads a YAML mapping of canonical symbol to alias list.
func ParseAliasTable(data []byte) (AliasTable, error) {
	var decoded map[string][]string
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode alias table: %w", err)
	}
	table := make(AliasTable, len(decoded))
	for canonical, aliases := range decoded {
		symbol, ok := CanonicalSymbol(canonical)
		if !ok {
			return nil, errors.New("alias table: empty canonical symbol")
		}
		table[symbol] = append(table[symbol], aliases...)
	}
	return table.Merge(nil), nil
}

// Merge returns a new table holding the aliases of both tables, with
// aliases lower-cased and de-duplicated.
func (t AliasTable) Merge(other AliasTable) AliasTable {
	merged := make(AliasTable, len(t)+len(other))
	add := func(src AliasTable) {
		for canonical, aliases := range src {
			symbol, ok := CanonicalSymbol(canonical)
			if !ok {
				continue
			}
			merged[symbol] = appendAliases(merged[symbol], aliases)
		}
	}
	add(t)
	add(other)
	return merged
}

func appendAliases(dst, aliases []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(aliases))
	for _, alias := range dst {
		seen[alias] = struct{}{}
	}
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		if _, ok := seen[alias]; ok {
			continue
		}
		seen[alias] = struct{}{}
		dst = append(dst, alias)
	}
	return dst
}

// Symbols lists the canonical symbols in the table, sorted.
func (t AliasTable) Symbols() []string {
	symbols := make([]string, 0, len(t))
	for symbol := range t {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Matches reports whether token resolves to canonical, either directly or
// through one of its aliases.
func (t AliasTable) Matches(token *string, canonical string) bool {
	if token == nil {
		return false
	}
	symbol, ok := CanonicalSymbol(*token)
	if !ok {
		return false
	}
	want, ok := CanonicalSymbol(canonical)
	if !ok {
		return false
	}
	if symbol == want {
		return true
	}
	lower := strings.ToLower(symbol)
	for _, alias := range t[want] {
		if lower == alias {
			return true
		}
	}
	return false
}

// PairFilter keeps swaps from one canonical token into another.
type PairFilter struct {
	aliases  AliasTable
	tokenIn  string
	tokenOut string
}

func NewPairFilter(aliases AliasTable, tokenIn, tokenOut string) *PairFilter {
	in, _ := CanonicalSymbol(tokenIn)
	out, _ := CanonicalSymbol(tokenOut)
	return &PairFilter{aliases: aliases.Merge(nil), tokenIn: in, tokenOut: out}
}

func (f *PairFilter) Match(tx domain.NormalizedTransaction) bool {
	return tx.Type == domain.OperationSwap &&
		f.aliases.Matches(tx.TokenIn, f.tokenIn) &&
		f.aliases.Matches(tx.TokenOut, f.tokenOut)
}

// Apply returns the matching transactions in their original order.
func (f *PairFilter) Apply(txs []domain.NormalizedTransaction) []domain.NormalizedTransaction {
	out := make([]domain.NormalizedTransaction, 0)
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (f *PairFilter) String() string {
	return f.tokenIn + "->" + f.tokenOut
}

var usdcToWBTC = NewPairFilter(DefaultAliases(), "USDC", "WBTC")

// ExtractUsdcToWbtcSwaps keeps USDC to WBTC swaps using the default aliases.
func ExtractUsdcToWbtcSwaps(txs []domain.NormalizedTransaction) []domain.NormalizedTransaction {
	return usdcToWBTC.Apply(txs)
}
