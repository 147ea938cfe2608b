package enums

import "fmt"

// VendorOrderStatus tracks the lifecycle of a vendor sub-order.
type VendorOrderStatus string

const (
	VendorOrderStatusPending    VendorOrderStatus = "pending"
	VendorOrderStatusConfirmed  VendorOrderStatus = "confirmed"
	VendorOrderStatusProcessing VendorOrderStatus = "processing"
	VendorOrderStatusShipped    VendorOrderStatus = "shipped"
	VendorOrderStatusDelivered  VendorOrderStatus = "delivered"
	VendorOrderStatusCancelled  VendorOrderStatus = "cancelled"
	VendorOrderStatusReturned   VendorOrderStatus = "returned"
)

var validVendorOrderStatuses = []VendorOrderStatus{
	VendorOrderStatusPending,
	VendorOrderStatusConfirmed,
	VendorOrderStatusProcessing,
	VendorOrderStatusShipped,
	VendorOrderStatusDelivered,
	VendorOrderStatusCancelled,
	VendorOrderStatusReturned,
}

// String implements fmt.Stringer.
func (v VendorOrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorOrderStatus.
func (v VendorOrderStatus) IsValid() bool {
	for _, candidate := range validVendorOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the sub-order lifecycle.
func (v VendorOrderStatus) IsTerminal() bool {
	switch v {
	case VendorOrderStatusDelivered, VendorOrderStatusCancelled, VendorOrderStatusReturned:
		return true
	default:
		return false
	}
}

// ParseVendorOrderStatus converts raw input into a VendorOrderStatus.
func ParseVendorOrderStatus(value string) (VendorOrderStatus, error) {
	for _, candidate := range validVendorOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor order status %q", value)
}
