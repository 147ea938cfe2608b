package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// WalletTransaction is an append-only ledger entry for a vendor wallet.
// BalanceAfter snapshots the balance the entry applies to (pending balance
// for pending_* types, available balance otherwise) immediately after the
// entry took effect. Rows are never updated or deleted.
type WalletTransaction struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID     uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	Type         enums.WalletTxnType `gorm:"column:type;type:wallet_txn_type;not null"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	OrderID      *uuid.UUID          `gorm:"column:order_id;type:uuid;index"`
	Status       string              `gorm:"column:status;not null;default:'completed'"`
	BalanceAfter decimal.Decimal     `gorm:"column:balance_after;type:numeric(14,2);not null"`
	Note         *string             `gorm:"column:note"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}
