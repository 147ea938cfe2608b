package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// VendorNotification is an in-app message produced by the event worker.
type VendorNotification struct {
	ID       uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	Type     enums.NotificationType `gorm:"column:type;type:notification_type_enum;not null"`
	Title    string                 `gorm:"column:title;not null"`
	Message  string                 `gorm:"column:message;not null"`
	Link     *string                `gorm:"column:link"`

	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
