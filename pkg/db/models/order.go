package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	"github.com/adityaverma/bazaarkart-backend/pkg/types"
)

// Order is the customer-level aggregate created at checkout. Prices and the
// GST fields are snapshots taken at creation time; later settings changes
// never alter a historical order.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber int64     `gorm:"column:order_number;not null;uniqueIndex"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	ItemsPrice    decimal.Decimal `gorm:"column:items_price;type:numeric(12,2);not null"`
	TaxPrice      decimal.Decimal `gorm:"column:tax_price;type:numeric(12,2);not null"`
	ShippingPrice decimal.Decimal `gorm:"column:shipping_price;type:numeric(12,2);not null"`
	Discount      decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CouponCode    *string         `gorm:"column:coupon_code"`

	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'cod'"`
	PaymentOrderID   *string             `gorm:"column:payment_order_id"`
	PaymentID        *string             `gorm:"column:payment_id"`
	PaymentSignature *string             `gorm:"column:payment_signature"`

	Status       enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'Pending'"`
	ReturnStatus enums.ReturnStatus `gorm:"column:return_status;type:return_status;not null;default:'None'"`

	IsPaid      bool       `gorm:"column:is_paid;not null;default:false"`
	PaidAt      *time.Time `gorm:"column:paid_at"`
	IsDelivered bool       `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`

	Refunded      bool                 `gorm:"column:refunded;not null;default:false"`
	RefundOutcome *enums.RefundOutcome `gorm:"column:refund_outcome;type:refund_outcome"`

	// GST snapshot, captured once at creation.
	GSTClaimed  bool            `gorm:"column:gst_claimed;not null;default:false"`
	BuyerGSTIN  *string         `gorm:"column:buyer_gstin"`
	SellerGSTIN *string         `gorm:"column:seller_gstin"`
	GSTRate     decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2);not null;default:0"`

	ShippingAddress types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
