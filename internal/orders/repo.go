package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
)

// Repository manages persistence for orders and their vendor sub-orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	VendorOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorOrder, error)
	VendorOrdersByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorOrder, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateVendorOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ApplyDeliveryMetrics(ctx context.Context, vendorID uuid.UUID, subtotal decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func supportsRowLocks(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	return db.Dialector.Name() != "sqlite"
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate locks the order row so concurrent status updates and
// refunds on the same order serialize.
func (r *repository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	q := r.db.WithContext(ctx)
	if supportsRowLocks(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := q.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) VendorOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorOrder, error) {
	var vendorOrders []models.VendorOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&vendorOrders).Error; err != nil {
		return nil, err
	}
	return vendorOrders, nil
}

func (r *repository) VendorOrdersByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var vendorOrders []models.VendorOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&vendorOrders).Error; err != nil {
		return nil, err
	}
	return vendorOrders, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateVendorOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ApplyDeliveryMetrics bumps the vendor's completion counters with atomic
// column expressions so it never races other metric writers.
func (r *repository) ApplyDeliveryMetrics(ctx context.Context, vendorID uuid.UUID, subtotal decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		UpdateColumns(map[string]any{
			"completed_orders": gorm.Expr("completed_orders + 1"),
			"pending_orders":   gorm.Expr("CASE WHEN pending_orders > 0 THEN pending_orders - 1 ELSE 0 END"),
			"total_revenue":    gorm.Expr("total_revenue + ?", subtotal),
		}).Error
}
