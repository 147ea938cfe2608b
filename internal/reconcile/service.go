package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/internal/commission"
	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/metrics"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox/payloads"
)

const defaultEpsilon = "0.01"

// refundDebitTypes are the ledger entry classes that prove a sub-order's
// earnings were already reversed.
var refundDebitTypes = []enums.WalletTxnType{
	enums.WalletTxnPendingCancelled,
	enums.WalletTxnRefundDebit,
	enums.WalletTxnAdminRefundDebit,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the reconciliation engine. It runs out-of-band against live
// production writes, so every repair is guarded by an idempotent existence
// check rather than a lock: re-running a job after a fix finds nothing left
// to do. Per-item failures are collected and reported together; one broken
// vendor never stops the sweep.
type Service interface {
	// ReconcilePendingBalances compares each vendor's stored pending
	// balance to the sum derivable from open sub-orders and applies an
	// audit-fix delta where they diverge beyond epsilon.
	ReconcilePendingBalances(ctx context.Context) error

	// BackfillMissingRefunds finds completed returns that never produced a
	// refund-debit ledger entry and applies the missing reversal.
	BackfillMissingRefunds(ctx context.Context) error

	// RepairFanOuts recreates vendor sub-orders that checkout failed to
	// create, including the pending earnings credit.
	RepairFanOuts(ctx context.Context) error

	// PurgeExpiredRefundLogs deletes refund audit rows past their
	// retention window.
	PurgeExpiredRefundLogs(ctx context.Context) error
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	wallet  wallet.Service
	epsilon decimal.Decimal
	metrics *metrics.WalletMetrics
	logg    *logger.Logger
}

// NewService builds the reconciliation engine. Epsilon is the tolerated
// pending-balance drift; empty or malformed values fall back to 0.01.
func NewService(repo Repository, tx txRunner, outboxSvc outboxEmitter, walletSvc wallet.Service, epsilon string, walletMetrics *metrics.WalletMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconcile repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	eps, err := decimal.NewFromString(epsilon)
	if err != nil || eps.IsNegative() {
		eps = decimal.RequireFromString(defaultEpsilon)
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		wallet:  walletSvc,
		epsilon: eps,
		metrics: walletMetrics,
		logg:    logg,
	}, nil
}

func (s *service) ReconcilePendingBalances(ctx context.Context) error {
	vendorIDs, err := s.repo.ListVendorIDs(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}

	var errs error
	for _, vendorID := range vendorIDs {
		if err := s.reconcileVendor(ctx, vendorID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("vendor %s: %w", vendorID, err))
		}
	}
	return errs
}

func (s *service) reconcileVendor(ctx context.Context, vendorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		expected, err := repo.ExpectedPending(ctx, vendorID)
		if err != nil {
			return err
		}
		vendor, err := repo.FindVendor(ctx, vendorID)
		if err != nil {
			return err
		}

		delta := expected.Sub(vendor.WalletPendingBalance)
		if delta.Abs().LessThanOrEqual(s.epsilon) {
			return nil
		}

		// Drift is an integrity defect: corrected, counted, and reported,
		// never silently dropped.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithVendorID(ctx, vendorID.String()),
				fmt.Sprintf("pending balance drift: stored %s, ledger-derived %s", vendor.WalletPendingBalance, expected))
		}
		if _, err := s.wallet.WithTx(tx).Adjust(ctx, wallet.AdjustInput{
			VendorID: vendorID,
			Amount:   delta,
			Type:     enums.WalletTxnAuditFix,
			Pending:  true,
			Note:     "pending balance drift correction",
		}); err != nil {
			return err
		}
		s.metrics.IncCorrection("pending_drift")

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletAdjusted,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendorID,
			Version:       1,
			Data: payloads.WalletAdjustedEvent{
				VendorID:      vendorID,
				PendingDelta:  delta,
				Reason:        "pending_drift",
				CorrectedAt:   time.Now().UTC(),
				LedgerBalance: expected,
				StoredBalance: vendor.WalletPendingBalance,
			},
		})
	})
}

func (s *service) BackfillMissingRefunds(ctx context.Context) error {
	returns, err := s.repo.CompletedReturns(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed returns")
	}

	var errs error
	for i := range returns {
		if err := s.backfillRefund(ctx, &returns[i]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("vendor order %s: %w", returns[i].ID, err))
		}
	}
	return errs
}

func (s *service) backfillRefund(ctx context.Context, vo *models.VendorOrder) error {
	if !vo.NetAmount.IsPositive() {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		walletTx := s.wallet.WithTx(tx)

		// The existence check is the idempotence guard: a reversal entry for
		// this order means a previous run, or the refund engine itself,
		// already landed the debit.
		reversed, err := walletTx.HasEntryForOrder(ctx, vo.VendorID, vo.OrderID, refundDebitTypes)
		if err != nil {
			return err
		}
		if reversed {
			return nil
		}

		if s.logg != nil {
			s.logg.Warn(s.logg.WithVendorID(s.logg.WithOrderID(ctx, vo.OrderID.String()), vo.VendorID.String()),
				"completed return missing its refund debit")
		}

		repo := s.repo.WithTx(tx)
		switch vo.PayoutStatus {
		case enums.PayoutStatusRefunded, enums.PayoutStatusCompleted:
			// The earnings had settled before the return.
			if _, err := walletTx.ReverseSettled(ctx, wallet.ReverseSettledInput{
				VendorID:   vo.VendorID,
				OrderID:    vo.OrderID,
				Net:        vo.NetAmount,
				Commission: vo.Commission,
			}); err != nil {
				return err
			}
			if vo.PayoutStatus != enums.PayoutStatusRefunded {
				if err := repo.UpdateVendorOrder(ctx, vo.ID, map[string]any{
					"payout_status": enums.PayoutStatusRefunded,
				}); err != nil {
					return err
				}
			}
		default:
			if _, err := walletTx.ReversePending(ctx, wallet.ReversePendingInput{
				VendorID: vo.VendorID,
				OrderID:  vo.OrderID,
				Net:      vo.NetAmount,
				Type:     enums.WalletTxnRefundDebit,
			}); err != nil {
				return err
			}
			if vo.PayoutStatus != enums.PayoutStatusCancelled {
				if err := repo.UpdateVendorOrder(ctx, vo.ID, map[string]any{
					"payout_status": enums.PayoutStatusCancelled,
				}); err != nil {
					return err
				}
			}
		}
		s.metrics.IncCorrection("missing_refund_debit")
		return nil
	})
}

func (s *service) RepairFanOuts(ctx context.Context) error {
	missing, err := s.repo.MissingFanOuts(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find missing fan-outs")
	}

	var errs error
	for _, gap := range missing {
		if err := s.repairFanOut(ctx, gap); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s vendor %s: %w", gap.OrderID, gap.VendorID, err))
		}
	}
	return errs
}

// repairFanOut rebuilds one vendor sub-order the way checkout would have,
// re-checking existence inside the transaction so a concurrent repair or a
// late checkout write cannot double-create it.
func (s *service) repairFanOut(ctx context.Context, gap MissingFanOut) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.VendorOrderExists(ctx, gap.OrderID, gap.VendorID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		order, err := repo.FindOrder(ctx, gap.OrderID)
		if err != nil {
			return err
		}
		vendor, err := repo.FindVendor(ctx, gap.VendorID)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		items := make([]models.VendorOrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			if item.VendorID == nil || *item.VendorID != gap.VendorID {
				continue
			}
			subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
			items = append(items, models.VendorOrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Price:     item.Price,
				Qty:       item.Qty,
			})
		}
		if len(items) == 0 {
			return nil
		}

		commissionAmount, net := commission.Split(subtotal, vendor.SubscriptionPlan)
		tax := decimal.Zero
		if order.ItemsPrice.IsPositive() {
			tax = subtotal.Div(order.ItemsPrice).Mul(order.TaxPrice).Round(2)
		}

		vo := &models.VendorOrder{
			OrderID:         order.ID,
			VendorID:        gap.VendorID,
			Items:           items,
			Subtotal:        subtotal,
			Tax:             tax,
			Commission:      commissionAmount,
			NetAmount:       net,
			Status:          enums.VendorOrderStatusPending,
			ReturnStatus:    enums.ReturnStatusNone,
			PayoutStatus:    enums.PayoutStatusPending,
			ShippingAddress: order.ShippingAddress,
		}
		if err := repo.CreateVendorOrder(ctx, vo); err != nil {
			return err
		}
		if err := repo.ApplyNewOrderMetrics(ctx, gap.VendorID); err != nil {
			return err
		}
		if net.IsPositive() {
			if _, err := s.wallet.WithTx(tx).CreditPending(ctx, wallet.CreditPendingInput{
				VendorID: gap.VendorID,
				OrderID:  order.ID,
				Amount:   net,
			}); err != nil {
				return err
			}
		}
		s.metrics.IncCorrection("missing_fan_out")
		if s.logg != nil {
			s.logg.Warn(s.logg.WithVendorID(s.logg.WithOrderID(ctx, order.ID.String()), gap.VendorID.String()),
				"recreated missing vendor sub-order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorOrderCreated,
			AggregateType: enums.AggregateVendorOrder,
			AggregateID:   vo.ID,
			Version:       1,
			Data: payloads.VendorOrderCreatedEvent{
				VendorOrderID: vo.ID,
				OrderID:       order.ID,
				VendorID:      gap.VendorID,
				Subtotal:      subtotal,
				Commission:    commissionAmount,
				NetAmount:     net,
			},
		})
	})
}

func (s *service) PurgeExpiredRefundLogs(ctx context.Context) error {
	deleted, err := s.repo.DeleteExpiredRefundLogs(ctx, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge refund logs")
	}
	if deleted > 0 && s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("purged %d expired refund logs", deleted))
	}
	return nil
}
