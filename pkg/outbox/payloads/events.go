package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// OrderCreatedEvent signals a new checkout split across vendors.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    int64           `json:"order_number"`
	UserID         uuid.UUID       `json:"user_id"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	VendorOrderIDs []uuid.UUID     `json:"vendor_order_ids"`
}

// VendorOrderCreatedEvent is emitted once per vendor sub-order created by the fan-out.
type VendorOrderCreatedEvent struct {
	VendorOrderID uuid.UUID       `json:"vendor_order_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Commission    decimal.Decimal `json:"commission"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

// OrderPaidEvent is emitted when an online payment is verified.
type OrderPaidEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	PaymentID string    `json:"payment_id"`
	PaidAt    time.Time `json:"paid_at"`
}

// OrderStatusUpdatedEvent records a customer-order status transition and the
// vendor sub-orders it cascaded to.
type OrderStatusUpdatedEvent struct {
	OrderID        uuid.UUID               `json:"order_id"`
	From           enums.OrderStatus       `json:"from"`
	To             enums.OrderStatus       `json:"to"`
	VendorStatus   enums.VendorOrderStatus `json:"vendor_status"`
	VendorOrderIDs []uuid.UUID             `json:"vendor_order_ids"`
}

// OrderCancelledEvent is emitted whenever an order is cancelled, by the buyer
// or by an admin.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID             `json:"order_id"`
	UserID      uuid.UUID             `json:"user_id"`
	Initiator   enums.RefundInitiator `json:"initiator"`
	CancelledAt time.Time             `json:"cancelled_at"`
	Reason      string                `json:"reason,omitempty"`
}

// OrderRefundedEvent carries the refund decision for an order.
type OrderRefundedEvent struct {
	OrderID   uuid.UUID             `json:"order_id"`
	UserID    uuid.UUID             `json:"user_id"`
	Amount    decimal.Decimal       `json:"amount"`
	Initiator enums.RefundInitiator `json:"initiator"`
	Outcome   enums.RefundOutcome   `json:"outcome"`
}

// VendorReturnRequestedEvent tells a vendor a buyer wants to return their sub-order.
type VendorReturnRequestedEvent struct {
	VendorOrderID uuid.UUID `json:"vendor_order_id"`
	OrderID       uuid.UUID `json:"order_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	RequestedAt   time.Time `json:"requested_at"`
	Reason        string    `json:"reason,omitempty"`
}

// VendorOrderSettledEvent is emitted on first delivery when pending earnings
// move to the available balance.
type VendorOrderSettledEvent struct {
	VendorOrderID uuid.UUID       `json:"vendor_order_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	SettledAt     time.Time       `json:"settled_at"`
}

// WalletAdjustedEvent reports a reconciliation correction applied to a vendor wallet.
type WalletAdjustedEvent struct {
	VendorID      uuid.UUID       `json:"vendor_id"`
	Delta         decimal.Decimal `json:"delta"`
	PendingDelta  decimal.Decimal `json:"pending_delta"`
	Reason        string          `json:"reason"`
	CorrectedAt   time.Time       `json:"corrected_at"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	StoredBalance decimal.Decimal `json:"stored_balance"`
}
