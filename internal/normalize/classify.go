package normalize

import (
	"strings"

	"walletops/internal/domain"
)

type categoryRule struct {
	typ     domain.OperationType
	needles []string
}

// categoryRules are evaluated in order; the first rule with a matching
// substring wins, so a "swap transfer" category is a swap.
var categoryRules = []categoryRule{
	{typ: domain.OperationSwap, needles: []string{"swap", "dex"}},
	{typ: domain.OperationTransfer, needles: []string{"transfer"}},
	{typ: domain.OperationApprove, needles: []string{"approve", "approval"}},
	{typ: domain.OperationBorrow, needles: []string{"borrow"}},
	{typ: domain.OperationRepay, needles: []string{"repay"}},
	{typ: domain.OperationLiquidity, needles: []string{"liquidity", "lp"}},
}

// DetectOperationType classifies a raw record from its category text, then
// its direction.
func DetectOperationType(raw domain.RawTransaction) domain.OperationType {
	category, _ := raw["category"].(string)
	category = strings.ToLower(category)
	if category != "" {
		for _, rule := range categoryRules {
			for _, needle := range rule.needles {
				if strings.Contains(category, needle) {
					return rule.typ
				}
			}
		}
	}
	if truthy(raw["direction"]) {
		return domain.OperationTransfer
	}
	return domain.OperationUnknown
}
