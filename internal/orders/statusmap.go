package orders

import (
	"fmt"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
)

// vendorStatusFor is the exhaustive customer-status to vendor-status map.
// Propagation applies the mapped status to every sub-order, skipping any
// whose status already matches, so re-applying the same target is a no-op.
// No customer status maps to the vendor "processing" state: the customer
// side has no status between Processing and Shipped, so confirmed covers
// that whole window and "processing" exists only for vendor-facing reads.
var vendorStatusFor = map[enums.OrderStatus]enums.VendorOrderStatus{
	enums.OrderStatusPending:        enums.VendorOrderStatusPending,
	enums.OrderStatusProcessing:     enums.VendorOrderStatusConfirmed,
	enums.OrderStatusShipped:        enums.VendorOrderStatusShipped,
	enums.OrderStatusOutForDelivery: enums.VendorOrderStatusShipped,
	enums.OrderStatusDelivered:      enums.VendorOrderStatusDelivered,
	enums.OrderStatusCancelled:      enums.VendorOrderStatusCancelled,
	enums.OrderStatusReturned:       enums.VendorOrderStatusReturned,
}

// MapToVendorStatus resolves the sub-order status a customer-order status
// cascades to.
func MapToVendorStatus(status enums.OrderStatus) (enums.VendorOrderStatus, error) {
	mapped, ok := vendorStatusFor[status]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	return mapped, nil
}

var forwardRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:        0,
	enums.OrderStatusProcessing:     1,
	enums.OrderStatusShipped:        2,
	enums.OrderStatusOutForDelivery: 3,
	enums.OrderStatusDelivered:      4,
}

// CanTransition reports whether an order may move from one status to
// another. Forward moves follow the Pending through Delivered progression,
// Cancelled is reachable only before Shipped, and Delivered may move to
// Returned exactly once. Terminal statuses are never revisited.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return false
	}
	switch to {
	case enums.OrderStatusCancelled:
		return from == enums.OrderStatusPending || from == enums.OrderStatusProcessing
	case enums.OrderStatusReturned:
		return from == enums.OrderStatusDelivered
	}
	fromRank, fromOK := forwardRank[from]
	toRank, toOK := forwardRank[to]
	if !fromOK || !toOK {
		return false
	}
	return toRank > fromRank
}
