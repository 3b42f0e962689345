package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"walletops/internal/domain"

	"github.com/shopspring/decimal"
)

// accessor reads one logical value from a raw record. The bool reports
// whether the record carried a usable value.
type accessor[T any] func(raw domain.RawTransaction) (T, bool)

// firstOf evaluates accessors in order and returns the first usable value.
func firstOf[T any](raw domain.RawTransaction, accessors ...accessor[T]) (T, bool) {
	for _, get := range accessors {
		if value, ok := get(raw); ok {
			return value, true
		}
	}
	var zero T
	return zero, false
}

// stringField yields the value under key when it is a non-empty string.
func stringField(key string) accessor[string] {
	return func(raw domain.RawTransaction) (string, bool) {
		value, ok := raw[key].(string)
		if !ok || value == "" {
			return "", false
		}
		return value, true
	}
}

// numberField yields the value under key when it is numeric.
func numberField(key string) accessor[float64] {
	return func(raw domain.RawTransaction) (float64, bool) {
		return asNumber(raw[key])
	}
}

// amountField yields the value under key as a decimal string, keeping the
// source text for strings and json.Number.
func amountField(key string) accessor[string] {
	return func(raw domain.RawTransaction) (string, bool) {
		value, ok := raw[key]
		if !ok {
			return "", false
		}
		return formatAmount(value)
	}
}

// symbolField yields the canonical symbol of the value under key.
func symbolField(key string) accessor[string] {
	return func(raw domain.RawTransaction) (string, bool) {
		value, ok := raw[key].(string)
		if !ok {
			return "", false
		}
		return CanonicalSymbol(value)
	}
}

// CanonicalSymbol trims and upper-cases a token symbol. Blank input has no
// canonical form.
func CanonicalSymbol(symbol string) (string, bool) {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return "", false
	}
	return strings.ToUpper(trimmed), true
}

func asNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatAmount(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	default:
		return "", false
	}
}

// formatFloat renders the shortest decimal form of f without an exponent.
func formatFloat(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return decimal.NewFromFloat(f).String(), true
}

// truthy reports whether a raw value counts as set: non-empty strings,
// non-zero numbers, true, and any non-nil composite value.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	default:
		if f, ok := asNumber(v); ok {
			return f != 0
		}
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			return false
		}
		return true
	}
}
