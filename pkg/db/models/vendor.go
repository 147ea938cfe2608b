package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// Vendor is the seller tenant. Wallet columns are only ever mutated through
// the wallet repository, which locks the row and appends a matching ledger
// entry; nothing else writes them.
type Vendor struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null;index"`

	StoreName  string         `gorm:"column:store_name;not null"`
	GSTIN      *string        `gorm:"column:gstin"`
	Categories pq.StringArray `gorm:"column:categories;type:text[]"`

	SubscriptionPlan enums.SubscriptionPlan `gorm:"column:subscription_plan;type:subscription_plan;not null;default:'starter'"`

	TotalOrders     int             `gorm:"column:total_orders;not null;default:0"`
	PendingOrders   int             `gorm:"column:pending_orders;not null;default:0"`
	CompletedOrders int             `gorm:"column:completed_orders;not null;default:0"`
	TotalRevenue    decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null;default:0"`

	WalletBalance        decimal.Decimal `gorm:"column:wallet_balance;type:numeric(14,2);not null;default:0"`
	WalletPendingBalance decimal.Decimal `gorm:"column:wallet_pending_balance;type:numeric(14,2);not null;default:0"`
	TotalEarnings        decimal.Decimal `gorm:"column:total_earnings;type:numeric(14,2);not null;default:0"`
	TotalCommissionPaid  decimal.Decimal `gorm:"column:total_commission_paid;type:numeric(14,2);not null;default:0"`
	TotalPayouts         decimal.Decimal `gorm:"column:total_payouts;type:numeric(14,2);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
