package domain

import "strings"

// OperationType is the coarse category of an on-chain action.
type OperationType string

const (
	OperationSwap      OperationType = "swap"
	OperationTransfer  OperationType = "transfer"
	OperationApprove   OperationType = "approve"
	OperationBorrow    OperationType = "borrow"
	OperationRepay     OperationType = "repay"
	OperationLiquidity OperationType = "liquidity"
	OperationUnknown   OperationType = "unknown"
)

var operationTypes = []OperationType{
	OperationSwap,
	OperationTransfer,
	OperationApprove,
	OperationBorrow,
	OperationRepay,
	OperationLiquidity,
	OperationUnknown,
}

// OperationTypes lists every operation type in classification order.
func OperationTypes() []OperationType {
	out := make([]OperationType, len(operationTypes))
	copy(out, operationTypes)
	return out
}

func ParseOperationType(raw string) (OperationType, bool) {
	value := OperationType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range operationTypes {
		if value == known {
			return known, true
		}
	}
	return "", false
}

// RawTransaction is an untrusted record from the wallet-history provider.
// Values may be strings, json.Number, float64, Go integers, or anything else
// a decoder produced.
type RawTransaction map[string]any

// NormalizedTransaction is the canonical transaction shape. Optional fields
// are nil when absent.
type NormalizedTransaction struct {
	TimestampISO string        `json:"timestampISO"`
	Type         OperationType `json:"type"`
	TokenIn      *string       `json:"tokenIn,omitempty"`
	AmountIn     *string       `json:"amountIn,omitempty"`
	TokenOut     *string       `json:"tokenOut,omitempty"`
	AmountOut    *string       `json:"amountOut,omitempty"`
	ValueUSD     *float64      `json:"valueUSD,omitempty"`
	Protocol     *string       `json:"protocol,omitempty"`
	TxHash       string        `json:"txHash"`
}

// HistoryPage is one cursor page of a wallet's normalized history.
type HistoryPage struct {
	Cursor *string                 `json:"cursor"`
	Total  int64                   `json:"total"`
	Items  []NormalizedTransaction `json:"items"`
}

// RawHistoryPage is one cursor page as returned by the provider.
type RawHistoryPage struct {
	Cursor       *string
	Total        *int64
	Transactions []RawTransaction
}
