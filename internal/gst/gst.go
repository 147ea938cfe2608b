package gst

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
)

// Repository reads the active GST configuration row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Current(ctx context.Context) (*models.GSTSettings, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a GST settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Current(ctx context.Context) (*models.GSTSettings, error) {
	var settings models.GSTSettings
	if err := r.db.WithContext(ctx).Order("updated_at DESC").First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// Snapshot is the immutable tax state stamped onto an order at creation.
// Later settings changes never alter a historical order.
type Snapshot struct {
	Claimed     bool
	Rate        decimal.Decimal
	BuyerGSTIN  *string
	SellerGSTIN *string
}

// Service produces GST snapshots for new orders.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Snapshot(ctx context.Context, claimed bool, buyerGSTIN *string) (Snapshot, error)
}

type service struct {
	repo Repository
}

// NewService wires a GST service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("gst repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Snapshot captures the current settings. The seller GSTIN is always carried
// when configured; the buyer GSTIN only when GST is enabled and the buyer
// claimed it at checkout.
func (s *service) Snapshot(ctx context.Context, claimed bool, buyerGSTIN *string) (Snapshot, error) {
	settings, err := s.repo.Current(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Snapshot{}, nil
		}
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gst settings")
	}

	snapshot := Snapshot{SellerGSTIN: settings.SellerGSTIN}
	if settings.Enabled {
		snapshot.Rate = settings.Rate
		if claimed && buyerGSTIN != nil && *buyerGSTIN != "" {
			snapshot.Claimed = true
			snapshot.BuyerGSTIN = buyerGSTIN
		}
	}
	return snapshot, nil
}
