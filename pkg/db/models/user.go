package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is the customer account. WalletBalance holds store credit from
// refunds that could not be pushed back through the payment gateway.
type User struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name  string    `gorm:"column:name;not null"`
	Email string    `gorm:"column:email;not null;uniqueIndex"`
	Role  string    `gorm:"column:role;not null;default:'user'"`

	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
