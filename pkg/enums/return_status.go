package enums

import "fmt"

// ReturnStatus tracks the refund/return progression on orders and sub-orders.
type ReturnStatus string

const (
	ReturnStatusNone      ReturnStatus = "None"
	ReturnStatusRequested ReturnStatus = "Requested"
	ReturnStatusApproved  ReturnStatus = "Approved"
	ReturnStatusCompleted ReturnStatus = "Completed"
	ReturnStatusRejected  ReturnStatus = "Rejected"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusNone,
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusCompleted,
	ReturnStatusRejected,
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
