package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
)

// Repository manages persistence for vendor wallets and their ledger.
// Every balance mutation goes through GetVendorForUpdate + UpdateWallet so
// concurrent writers on the same vendor serialize on the row lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	GetVendorForUpdate(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	UpdateWallet(ctx context.Context, vendorID uuid.UUID, columns map[string]any) error
	Append(ctx context.Context, txn *models.WalletTransaction) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
	HasEntryForOrder(ctx context.Context, vendorID, orderID uuid.UUID, types []enums.WalletTxnType) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// supportsRowLocks reports whether the dialect honors FOR UPDATE. The sqlite
// driver used in tests serializes writers itself and rejects the clause.
func supportsRowLocks(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	return db.Dialector.Name() != "sqlite"
}

func (r *repository) GetVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) GetVendorForUpdate(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	q := r.db.WithContext(ctx)
	if supportsRowLocks(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var vendor models.Vendor
	if err := q.First(&vendor, "id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// UpdateWallet writes only the provided wallet columns. Callers compute the
// new values under the row lock taken by GetVendorForUpdate.
func (r *repository) UpdateWallet(ctx context.Context, vendorID uuid.UUID, columns map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		UpdateColumns(columns).Error
}

func (r *repository) Append(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var txns []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) HasEntryForOrder(ctx context.Context, vendorID, orderID uuid.UUID, types []enums.WalletTxnType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("vendor_id = ? AND order_id = ? AND type IN ?", vendorID, orderID, types).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
