package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"walletops/internal/domain"
)

// TimestampLayout is the ISO-8601 form every normalized timestamp uses.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	hashFields = []accessor[string]{
		stringField("hash"),
		stringField("tx_hash"),
		stringField("transaction_hash"),
	}

	timestampKeys = []string{"block_timestamp", "block_time", "timestamp"}

	usdFields = []accessor[float64]{
		numberField("usd_value"),
		numberField("value_usd"),
	}
	assetFields = []accessor[string]{
		symbolField("asset"),
		symbolField("token_symbol"),
	}
)

// timestampLayouts are tried in order; layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func extractHash(raw domain.RawTransaction) string {
	hash, _ := firstOf(raw, hashFields...)
	return hash
}

func extractUSDValue(raw domain.RawTransaction) (float64, bool) {
	return firstOf(raw, usdFields...)
}

func extractProtocol(raw domain.RawTransaction) (string, bool) {
	return stringField("protocol_name")(raw)
}

// extractTimestamp walks the timestamp fields and returns the first one that
// parses, falling back to now. Candidates that do not parse are reported
// through reject and skipped.
func extractTimestamp(raw domain.RawTransaction, now func() time.Time, reject func(field, value string, err error)) string {
	for _, key := range timestampKeys {
		candidate, ok := stringField(key)(raw)
		if !ok {
			continue
		}
		parsed, err := parseTimestamp(candidate)
		if err != nil {
			if reject != nil {
				reject(key, candidate, err)
			}
			continue
		}
		return formatTimestamp(parsed)
	}
	return formatTimestamp(now())
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if t, ok := parseEpoch(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

// parseEpoch accepts unix seconds (10 digits) or milliseconds (13 digits).
func parseEpoch(s string) (time.Time, bool) {
	if len(s) != 10 && len(s) != 13 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	if len(s) == 13 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

// sides holds the token and amount guessed for each side of a record.
type sides struct {
	tokenIn, amountIn   *string
	tokenOut, amountOut *string
}

// guessFromDirection places asset/amount on one side based on direction.
// Funds leaving the wallet are the wallet's input, so send/out is the in side.
func guessFromDirection(raw domain.RawTransaction) sides {
	var token, amount *string
	if symbol, ok := firstOf(raw, assetFields...); ok {
		token = &symbol
	}
	if value, ok := amountField("amount")(raw); ok {
		amount = &value
	}

	direction, _ := raw["direction"].(string)
	switch strings.ToLower(direction) {
	case "receive", "in":
		return sides{tokenOut: token, amountOut: amount}
	default:
		return sides{tokenIn: token, amountIn: amount}
	}
}
