package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// MissingFanOut is an order/vendor pair whose sub-order was never created.
type MissingFanOut struct {
	OrderID  uuid.UUID `gorm:"column:order_id"`
	VendorID uuid.UUID `gorm:"column:vendor_id"`
}

// Repository provides the read and repair queries for reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListVendorIDs(ctx context.Context) ([]uuid.UUID, error)
	ExpectedPending(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	CompletedReturns(ctx context.Context) ([]models.VendorOrder, error)
	UpdateVendorOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	MissingFanOuts(ctx context.Context) ([]MissingFanOut, error)
	VendorOrderExists(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CreateVendorOrder(ctx context.Context, vendorOrder *models.VendorOrder) error
	ApplyNewOrderMetrics(ctx context.Context, vendorID uuid.UUID) error
	DeleteExpiredRefundLogs(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconcile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListVendorIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ExpectedPending derives what the vendor's pending balance should be from
// the sub-orders alone: everything not yet delivered, cancelled, or returned
// whose payout has not completed.
func (r *repository) ExpectedPending(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&models.VendorOrder{}).
		Select("COALESCE(SUM(net_amount), 0)").
		Where("vendor_id = ?", vendorID).
		Where("status NOT IN ?", []enums.VendorOrderStatus{
			enums.VendorOrderStatusDelivered,
			enums.VendorOrderStatusCancelled,
			enums.VendorOrderStatusReturned,
		}).
		Where("payout_status <> ?", enums.PayoutStatusCompleted).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) CompletedReturns(ctx context.Context) ([]models.VendorOrder, error) {
	var vendorOrders []models.VendorOrder
	if err := r.db.WithContext(ctx).
		Where("return_status = ?", enums.ReturnStatusCompleted).
		Order("created_at ASC").
		Find(&vendorOrders).Error; err != nil {
		return nil, err
	}
	return vendorOrders, nil
}

func (r *repository) UpdateVendorOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MissingFanOuts finds order/vendor pairs where an order item names a vendor
// but no sub-order for that vendor exists. Closed orders are skipped; their
// missing sub-orders would only be reversed again.
func (r *repository) MissingFanOuts(ctx context.Context) ([]MissingFanOut, error) {
	var missing []MissingFanOut
	if err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT oi.order_id AS order_id, oi.vendor_id AS vendor_id
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN vendor_orders vo
			ON vo.order_id = oi.order_id AND vo.vendor_id = oi.vendor_id
		WHERE oi.vendor_id IS NOT NULL
			AND vo.id IS NULL
			AND o.status NOT IN ?`,
		[]enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusReturned},
	).Scan(&missing).Error; err != nil {
		return nil, err
	}
	return missing, nil
}

func (r *repository) VendorOrderExists(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.VendorOrder{}).
		Where("order_id = ? AND vendor_id = ?", orderID, vendorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
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

func (r *repository) CreateVendorOrder(ctx context.Context, vendorOrder *models.VendorOrder) error {
	if vendorOrder.ID == uuid.Nil {
		vendorOrder.ID = uuid.New()
	}
	for i := range vendorOrder.Items {
		if vendorOrder.Items[i].ID == uuid.Nil {
			vendorOrder.Items[i].ID = uuid.New()
		}
		vendorOrder.Items[i].VendorOrderID = vendorOrder.ID
	}
	return r.db.WithContext(ctx).Create(vendorOrder).Error
}

func (r *repository) ApplyNewOrderMetrics(ctx context.Context, vendorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		UpdateColumns(map[string]any{
			"total_orders":   gorm.Expr("total_orders + 1"),
			"pending_orders": gorm.Expr("pending_orders + 1"),
		}).Error
}

func (r *repository) DeleteExpiredRefundLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.RefundLog{})
	return result.RowsAffected, result.Error
}
