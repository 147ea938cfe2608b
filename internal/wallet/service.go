package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	"github.com/adityaverma/bazaarkart-backend/pkg/metrics"
)

// Service defines the vendor wallet ledger operations. Every mutation locks
// the vendor row, writes the wallet columns, and appends exactly one ledger
// entry per moved balance; no other code path touches wallet columns.
//
// Methods assume they run inside the caller's database transaction; callers
// compose them through WithTx so the lock, the column update, and the ledger
// append commit or roll back together.
type Service interface {
	WithTx(tx *gorm.DB) Service
	CreditPending(ctx context.Context, input CreditPendingInput) (*models.WalletTransaction, error)
	Settle(ctx context.Context, input SettleInput) error
	ReversePending(ctx context.Context, input ReversePendingInput) (*models.WalletTransaction, error)
	ReverseSettled(ctx context.Context, input ReverseSettledInput) (*models.WalletTransaction, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.WalletTransaction, error)
	Summary(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	Transactions(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
	HasEntryForOrder(ctx context.Context, vendorID, orderID uuid.UUID, types []enums.WalletTxnType) (bool, error)
}

type service struct {
	repo    Repository
	metrics *metrics.WalletMetrics
}

// CreditPendingInput stages undelivered earnings on the pending balance.
type CreditPendingInput struct {
	VendorID uuid.UUID
	OrderID  uuid.UUID
	Amount   decimal.Decimal
}

// SettleInput releases a delivered sub-order's net amount into the available
// balance and books the platform commission.
type SettleInput struct {
	VendorID   uuid.UUID
	OrderID    uuid.UUID
	Net        decimal.Decimal
	Commission decimal.Decimal
}

// ReversePendingInput unwinds staged earnings for an undelivered sub-order.
type ReversePendingInput struct {
	VendorID uuid.UUID
	OrderID  uuid.UUID
	Net      decimal.Decimal
	Type     enums.WalletTxnType
}

// ReverseSettledInput claws back already-settled earnings after an admin
// refund. The available balance may go negative; earnings and commission
// totals clamp at zero.
type ReverseSettledInput struct {
	VendorID   uuid.UUID
	OrderID    uuid.UUID
	Net        decimal.Decimal
	Commission decimal.Decimal
}

// AdjustInput applies a raw signed delta with an explicit ledger type. Used
// by reconciliation corrections and payouts; never clamps. Pending forces the
// delta onto the pending balance for types that normally target the available
// balance, e.g. an audit_fix correcting pending drift.
type AdjustInput struct {
	VendorID uuid.UUID
	OrderID  *uuid.UUID
	Amount   decimal.Decimal
	Type     enums.WalletTxnType
	Pending  bool
	Note     string
}

// NewService wires a wallet service with the provided repository. Metrics
// may be nil.
func NewService(repo Repository, walletMetrics *metrics.WalletMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo, metrics: walletMetrics}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), metrics: s.metrics}
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (s *service) CreditPending(ctx context.Context, input CreditPendingInput) (*models.WalletTransaction, error) {
	if input.VendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("pending credit amount must be positive")
	}

	vendor, err := s.repo.GetVendorForUpdate(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}

	newPending := vendor.WalletPendingBalance.Add(input.Amount)
	if err := s.repo.UpdateWallet(ctx, vendor.ID, map[string]any{
		"wallet_pending_balance": newPending,
	}); err != nil {
		return nil, err
	}

	txn, err := s.append(ctx, vendor.ID, enums.WalletTxnPendingCredit, input.Amount, &input.OrderID, newPending, "")
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Settle moves net from pending to available and books the commission. The
// commission entry annotates TotalCommissionPaid only; the available balance
// it snapshots is the one the earning entry produced.
func (s *service) Settle(ctx context.Context, input SettleInput) error {
	if input.VendorID == uuid.Nil {
		return fmt.Errorf("vendor id is required")
	}
	if input.OrderID == uuid.Nil {
		return fmt.Errorf("order id is required")
	}
	if input.Net.IsNegative() || input.Commission.IsNegative() {
		return fmt.Errorf("settlement amounts must not be negative")
	}

	vendor, err := s.repo.GetVendorForUpdate(ctx, input.VendorID)
	if err != nil {
		return err
	}

	newBalance := vendor.WalletBalance.Add(input.Net)
	newPending := maxZero(vendor.WalletPendingBalance.Sub(input.Net))
	if err := s.repo.UpdateWallet(ctx, vendor.ID, map[string]any{
		"wallet_balance":         newBalance,
		"wallet_pending_balance": newPending,
		"total_earnings":         vendor.TotalEarnings.Add(input.Net),
		"total_commission_paid":  vendor.TotalCommissionPaid.Add(input.Commission),
	}); err != nil {
		return err
	}

	if _, err := s.append(ctx, vendor.ID, enums.WalletTxnOrderEarning, input.Net, &input.OrderID, newBalance, ""); err != nil {
		return err
	}
	if _, err := s.append(ctx, vendor.ID, enums.WalletTxnCommission, input.Commission, &input.OrderID, newBalance, ""); err != nil {
		return err
	}
	return nil
}

func (s *service) ReversePending(ctx context.Context, input ReversePendingInput) (*models.WalletTransaction, error) {
	if input.VendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.Net.IsPositive() {
		return nil, fmt.Errorf("reversal amount must be positive")
	}
	txnType := input.Type
	if txnType == "" {
		txnType = enums.WalletTxnPendingCancelled
	}
	if txnType != enums.WalletTxnPendingCancelled && txnType != enums.WalletTxnRefundDebit {
		return nil, fmt.Errorf("invalid pending reversal type %q", txnType)
	}

	vendor, err := s.repo.GetVendorForUpdate(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}

	// Clamp rather than fail: drift can leave pending below the sub-order's
	// net and the reversal still has to land.
	newPending := maxZero(vendor.WalletPendingBalance.Sub(input.Net))
	if err := s.repo.UpdateWallet(ctx, vendor.ID, map[string]any{
		"wallet_pending_balance": newPending,
	}); err != nil {
		return nil, err
	}

	return s.append(ctx, vendor.ID, txnType, input.Net.Neg(), &input.OrderID, newPending, "")
}

func (s *service) ReverseSettled(ctx context.Context, input ReverseSettledInput) (*models.WalletTransaction, error) {
	if input.VendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.Net.IsPositive() {
		return nil, fmt.Errorf("reversal amount must be positive")
	}
	if input.Commission.IsNegative() {
		return nil, fmt.Errorf("commission must not be negative")
	}

	vendor, err := s.repo.GetVendorForUpdate(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}

	// The available balance may go negative here; the debt carries into the
	// next payout cycle. Totals clamp at zero.
	newBalance := vendor.WalletBalance.Sub(input.Net)
	if err := s.repo.UpdateWallet(ctx, vendor.ID, map[string]any{
		"wallet_balance":        newBalance,
		"total_earnings":        maxZero(vendor.TotalEarnings.Sub(input.Net)),
		"total_commission_paid": maxZero(vendor.TotalCommissionPaid.Sub(input.Commission)),
	}); err != nil {
		return nil, err
	}

	return s.append(ctx, vendor.ID, enums.WalletTxnAdminRefundDebit, input.Net.Neg(), &input.OrderID, newBalance, "")
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.WalletTransaction, error) {
	if input.VendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid wallet transaction type %q", input.Type)
	}
	if input.Amount.IsZero() {
		return nil, fmt.Errorf("adjustment amount must not be zero")
	}

	vendor, err := s.repo.GetVendorForUpdate(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}

	var balanceAfter decimal.Decimal
	columns := map[string]any{}
	if input.Type.AffectsPendingBalance() || input.Pending {
		balanceAfter = vendor.WalletPendingBalance.Add(input.Amount)
		columns["wallet_pending_balance"] = balanceAfter
	} else {
		balanceAfter = vendor.WalletBalance.Add(input.Amount)
		columns["wallet_balance"] = balanceAfter
		if input.Type == enums.WalletTxnPayout {
			columns["total_payouts"] = vendor.TotalPayouts.Add(input.Amount.Abs())
		}
	}
	if err := s.repo.UpdateWallet(ctx, vendor.ID, columns); err != nil {
		return nil, err
	}

	return s.append(ctx, vendor.ID, input.Type, input.Amount, input.OrderID, balanceAfter, input.Note)
}

func (s *service) Summary(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	if vendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required")
	}
	return s.repo.GetVendor(ctx, vendorID)
}

func (s *service) Transactions(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if vendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required")
	}
	return s.repo.ListByVendor(ctx, vendorID, limit, offset)
}

func (s *service) HasEntryForOrder(ctx context.Context, vendorID, orderID uuid.UUID, types []enums.WalletTxnType) (bool, error) {
	if vendorID == uuid.Nil || orderID == uuid.Nil {
		return false, fmt.Errorf("vendor id and order id are required")
	}
	return s.repo.HasEntryForOrder(ctx, vendorID, orderID, types)
}

func (s *service) append(ctx context.Context, vendorID uuid.UUID, txnType enums.WalletTxnType, amount decimal.Decimal, orderID *uuid.UUID, balanceAfter decimal.Decimal, note string) (*models.WalletTransaction, error) {
	txn := &models.WalletTransaction{
		VendorID:     vendorID,
		Type:         txnType,
		Amount:       amount,
		OrderID:      orderID,
		Status:       "completed",
		BalanceAfter: balanceAfter,
	}
	if note != "" {
		txn.Note = &note
	}
	if err := s.repo.Append(ctx, txn); err != nil {
		return nil, err
	}
	s.metrics.IncMutation(string(txnType))
	return txn, nil
}
