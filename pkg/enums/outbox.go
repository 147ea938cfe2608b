package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateVendorOrder OutboxAggregateType = "vendor_order"
	AggregateVendor      OutboxAggregateType = "vendor"
	AggregateRefundLog   OutboxAggregateType = "refund_log"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateVendorOrder,
	AggregateVendor,
	AggregateRefundLog,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventVendorOrderCreated    OutboxEventType = "vendor_order_created"
	EventOrderPaid             OutboxEventType = "order_paid"
	EventOrderStatusUpdated    OutboxEventType = "order_status_updated"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderRefunded         OutboxEventType = "order_refunded"
	EventVendorReturnRequested OutboxEventType = "vendor_return_requested"
	EventVendorOrderSettled    OutboxEventType = "vendor_order_settled"
	EventWalletAdjusted        OutboxEventType = "wallet_adjusted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventVendorOrderCreated,
	EventOrderPaid,
	EventOrderStatusUpdated,
	EventOrderCancelled,
	EventOrderRefunded,
	EventVendorReturnRequested,
	EventVendorOrderSettled,
	EventWalletAdjusted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
