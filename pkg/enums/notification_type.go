package enums

import "fmt"

// NotificationType classifies vendor-facing notifications.
type NotificationType string

const (
	NotificationTypeNewOrder         NotificationType = "new_order"
	NotificationTypeReturnRequest    NotificationType = "return_request"
	NotificationTypeSettlement       NotificationType = "settlement"
	NotificationTypeWalletAdjustment NotificationType = "wallet_adjustment"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewOrder,
	NotificationTypeReturnRequest,
	NotificationTypeSettlement,
	NotificationTypeWalletAdjustment,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
