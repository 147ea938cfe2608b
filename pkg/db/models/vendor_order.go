package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	"github.com/adityaverma/bazaarkart-backend/pkg/types"
)

// VendorOrder is the per-vendor decomposition of one customer order.
// NetAmount is always Subtotal minus Commission; Tax is the vendor's
// proportional share of the order-level tax, stored for audit.
type VendorOrder struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`

	Items []VendorOrderItem `gorm:"foreignKey:VendorOrderID;constraint:OnDelete:CASCADE"`

	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax        decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Commission decimal.Decimal `gorm:"column:commission;type:numeric(12,2);not null"`
	NetAmount  decimal.Decimal `gorm:"column:net_amount;type:numeric(12,2);not null"`

	Status       enums.VendorOrderStatus `gorm:"column:status;type:vendor_order_status;not null;default:'pending'"`
	ReturnStatus enums.ReturnStatus      `gorm:"column:return_status;type:return_status;not null;default:'None'"`
	PayoutStatus enums.PayoutStatus      `gorm:"column:payout_status;type:payout_status;not null;default:'pending'"`

	ShippingAddress types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	ShippedAt   *time.Time `gorm:"column:shipped_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// VendorOrderItem snapshots the subset of order items belonging to a vendor
// sub-order.
type VendorOrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorOrderID uuid.UUID       `gorm:"column:vendor_order_id;type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name          string          `gorm:"column:name;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Qty           int             `gorm:"column:qty;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
