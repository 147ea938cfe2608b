package enums

import "fmt"

// RefundOutcome records where the customer's money actually went. A gateway
// refund is attempted first for online payments; on failure the amount is
// credited to the user's internal wallet instead. The outcome is persisted,
// never discarded.
type RefundOutcome string

const (
	RefundOutcomeGatewayRefunded RefundOutcome = "gateway_refunded"
	RefundOutcomeWalletCredited  RefundOutcome = "wallet_credited"
	RefundOutcomePending         RefundOutcome = "pending"
)

var validRefundOutcomes = []RefundOutcome{
	RefundOutcomeGatewayRefunded,
	RefundOutcomeWalletCredited,
	RefundOutcomePending,
}

// IsValid reports whether the value is a known RefundOutcome.
func (r RefundOutcome) IsValid() bool {
	for _, candidate := range validRefundOutcomes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundOutcome converts raw input into a RefundOutcome.
func ParseRefundOutcome(value string) (RefundOutcome, error) {
	for _, candidate := range validRefundOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund outcome %q", value)
}
