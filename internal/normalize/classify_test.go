package normalize

import (
	"testing"

	"walletops/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawTransaction
		want domain.OperationType
	}{
		{name: "swap", raw: domain.RawTransaction{"category": "token swap"}, want: domain.OperationSwap},
		{name: "dex", raw: domain.RawTransaction{"category": "DEX trade"}, want: domain.OperationSwap},
		{name: "swap beats transfer", raw: domain.RawTransaction{"category": "swap transfer"}, want: domain.OperationSwap},
		{name: "transfer", raw: domain.RawTransaction{"category": "Token Transfer"}, want: domain.OperationTransfer},
		{name: "approve", raw: domain.RawTransaction{"category": "approve"}, want: domain.OperationApprove},
		{name: "approval", raw: domain.RawTransaction{"category": "token_approval"}, want: domain.OperationApprove},
		{name: "borrow", raw: domain.RawTransaction{"category": "Borrow"}, want: domain.OperationBorrow},
		{name: "repay", raw: domain.RawTransaction{"category": "loan repay"}, want: domain.OperationRepay},
		{name: "liquidity", raw: domain.RawTransaction{"category": "add liquidity"}, want: domain.OperationLiquidity},
		{name: "lp", raw: domain.RawTransaction{"category": "lp_token_mint"}, want: domain.OperationLiquidity},
		{name: "direction fallback", raw: domain.RawTransaction{"category": "nft mint", "direction": "send"}, want: domain.OperationTransfer},
		{name: "direction only", raw: domain.RawTransaction{"direction": "receive"}, want: domain.OperationTransfer},
		{name: "numeric direction", raw: domain.RawTransaction{"direction": 1}, want: domain.OperationTransfer},
		{name: "empty direction", raw: domain.RawTransaction{"direction": ""}, want: domain.OperationUnknown},
		{name: "zero direction", raw: domain.RawTransaction{"direction": 0}, want: domain.OperationUnknown},
		{name: "non-string category", raw: domain.RawTransaction{"category": 12}, want: domain.OperationUnknown},
		{name: "nothing", raw: domain.RawTransaction{}, want: domain.OperationUnknown},
		{name: "nil record", raw: nil, want: domain.OperationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOperationType(tt.raw))
		})
	}
}

func TestDetectOperationType_SwapWinsRegardlessOfOtherFields(t *testing.T) {
	raw := domain.RawTransaction{
		"category":  "Swap",
		"direction": "send",
		"token_in":  "usdc",
		"amount":    "1",
		"asset":     "eth",
	}
	assert.Equal(t, domain.OperationSwap, DetectOperationType(raw))
}

func TestDetectOperationType_Idempotent(t *testing.T) {
	raw := domain.RawTransaction{"category": "borrow", "direction": "in"}
	first := DetectOperationType(raw)
	second := DetectOperationType(raw)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.RawTransaction{"category": "borrow", "direction": "in"}, raw)
}
