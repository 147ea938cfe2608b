package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// RefundLog records every refund decision, whatever its delivery path.
// ExpiresAt drives the retention sweep; rows past it are purged by cron.
type RefundLog struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	// Amount is what goes back to the customer; DeliveryCharge is the
	// shipping portion the policy withholds, kept for the audit trail.
	Amount         decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	DeliveryCharge decimal.Decimal       `gorm:"column:delivery_charge;type:numeric(12,2);not null;default:0"`
	Initiator      enums.RefundInitiator `gorm:"column:initiator;type:refund_initiator;not null"`
	Outcome   enums.RefundOutcome   `gorm:"column:outcome;type:refund_outcome;not null;default:'pending'"`

	GatewayRefundID *string `gorm:"column:gateway_refund_id"`
	Reason          *string `gorm:"column:reason"`
	FailureMessage  *string `gorm:"column:failure_message"`

	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
