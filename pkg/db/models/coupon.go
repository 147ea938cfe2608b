package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Coupon is a flat or percentage discount applied at checkout. UsedCount is
// incremented atomically inside the checkout transaction. An empty
// AssignedUserIDs list means the coupon is open to everyone.
type Coupon struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code string    `gorm:"column:code;not null;uniqueIndex"`

	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	MaxDiscount     decimal.Decimal `gorm:"column:max_discount;type:numeric(12,2);not null;default:0"`
	MinOrderValue   decimal.Decimal `gorm:"column:min_order_value;type:numeric(12,2);not null;default:0"`

	UsageLimit int  `gorm:"column:usage_limit;not null;default:0"`
	UsedCount  int  `gorm:"column:used_count;not null;default:0"`
	Active     bool `gorm:"column:active;not null;default:true"`

	AssignedUserIDs pq.StringArray `gorm:"column:assigned_user_ids;type:text[]"`

	ExpiresAt *time.Time `gorm:"column:expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
