package enums

import "fmt"

// RefundInitiator identifies who triggered a refund or cancellation.
type RefundInitiator string

const (
	RefundInitiatorUser   RefundInitiator = "user"
	RefundInitiatorVendor RefundInitiator = "vendor"
	RefundInitiatorAdmin  RefundInitiator = "admin"
)

var validRefundInitiators = []RefundInitiator{
	RefundInitiatorUser,
	RefundInitiatorVendor,
	RefundInitiatorAdmin,
}

// IsValid reports whether the value is a known RefundInitiator.
func (r RefundInitiator) IsValid() bool {
	for _, candidate := range validRefundInitiators {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundInitiator converts raw input into a RefundInitiator.
func ParseRefundInitiator(value string) (RefundInitiator, error) {
	for _, candidate := range validRefundInitiators {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund initiator %q", value)
}
