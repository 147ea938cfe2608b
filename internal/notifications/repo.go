package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
)

// Repository manages persistence for vendor notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.VendorNotification) error
	ListForVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorNotification, error)
	MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *models.VendorNotification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) ListForVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []models.VendorNotification
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

// MarkRead stamps read_at, keeping the original timestamp on repeat calls.
// The returned count is zero only when the row does not belong to the vendor.
func (r *repository) MarkRead(ctx context.Context, vendorID, notificationID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VendorNotification{}).
		Where("id = ? AND vendor_id = ?", notificationID, vendorID).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", time.Now().UTC()))
	return res.RowsAffected, res.Error
}
