package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
)

// Repository manages persistence for the checkout fan-out.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextOrderNumber(ctx context.Context) (int64, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateVendorOrder(ctx context.Context, vendorOrder *models.VendorOrder) error
	StorePaymentOrderID(ctx context.Context, orderID uuid.UUID, paymentOrderID string) error
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	ApplyNewOrderMetrics(ctx context.Context, vendorID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a checkout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextOrderNumber pulls the next customer-facing order number. Postgres owns
// the sequence; the sqlite test driver falls back to max+1, which is safe
// because those tests are single-writer.
func (r *repository) NextOrderNumber(ctx context.Context) (int64, error) {
	if r.db.Dialector != nil && r.db.Dialector.Name() == "sqlite" {
		var max int64
		if err := r.db.WithContext(ctx).
			Model(&models.Order{}).
			Select("COALESCE(MAX(order_number), 99999)").
			Scan(&max).Error; err != nil {
			return 0, err
		}
		return max + 1, nil
	}
	var next int64
	if err := r.db.WithContext(ctx).
		Raw("SELECT nextval('order_number_seq')").
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
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

func (r *repository) StorePaymentOrderID(ctx context.Context, orderID uuid.UUID, paymentOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("payment_order_id", paymentOrderID).Error
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// ApplyNewOrderMetrics bumps the vendor's order counters with atomic column
// expressions.
func (r *repository) ApplyNewOrderMetrics(ctx context.Context, vendorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		UpdateColumns(map[string]any{
			"total_orders":   gorm.Expr("total_orders + 1"),
			"pending_orders": gorm.Expr("pending_orders + 1"),
		}).Error
}
