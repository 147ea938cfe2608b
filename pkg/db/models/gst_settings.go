package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GSTSettings is the single active tax configuration row. Orders snapshot
// its values at creation and never read it again.
type GSTSettings struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Enabled     bool            `gorm:"column:enabled;not null;default:false"`
	Rate        decimal.Decimal `gorm:"column:rate;type:numeric(5,2);not null;default:0"`
	SellerGSTIN *string         `gorm:"column:seller_gstin"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
