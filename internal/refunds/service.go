package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/db"
	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/gateway"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/metrics"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox/payloads"
)

const defaultLogRetention = 45 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gatewayRefunder interface {
	Refund(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error)
}

type shipmentCanceller interface {
	CancelShipment(ctx context.Context, orderID string) error
}

// Service is the refund and cancellation engine. Both entry points share one
// core: write the audit record, reverse the vendor earnings, flip the order
// and sub-order statuses in a single transaction, then deliver the customer's
// money post-commit.
//
// The refund never includes shipping: the amount returned is items price plus
// tax, with the withheld delivery charge recorded on the audit row. A gateway
// refund is attempted first for online payments; on failure the amount lands
// on the user's internal wallet balance instead, and whichever path succeeded
// is persisted as the outcome.
type Service interface {
	// Cancel is the buyer's self-service cancellation, allowed only while
	// the order has not shipped.
	Cancel(ctx context.Context, input CancelInput) (*Result, error)

	// ForceRefund is the admin override, allowed at any point including
	// after delivery. Delivered orders become returns with settled earnings
	// clawed back.
	ForceRefund(ctx context.Context, input ForceRefundInput) (*Result, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxEmitter
	wallet    wallet.Service
	gateway   gatewayRefunder
	shipping  shipmentCanceller
	retention time.Duration
	metrics   *metrics.WalletMetrics
	logg      *logger.Logger
}

// CancelInput identifies the order and the buyer cancelling it.
type CancelInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Reason  *string
}

// ForceRefundInput identifies the order and the admin forcing the refund.
type ForceRefundInput struct {
	OrderID uuid.UUID
	AdminID uuid.UUID
	Reason  *string
}

// Result reports the refund decision. Outcome is pending when nothing was
// owed, e.g. cancelling an unpaid COD order.
type Result struct {
	Order     *models.Order
	RefundLog *models.RefundLog
	Amount    decimal.Decimal
	Outcome   enums.RefundOutcome
}

// NewService builds the refund engine. The gateway and shipping adapters may
// be nil; without a gateway every paid refund falls back to wallet credit.
func NewService(repo Repository, tx txRunner, outboxSvc outboxEmitter, walletSvc wallet.Service, paymentGateway gatewayRefunder, shippingClient shipmentCanceller, logRetention time.Duration, walletMetrics *metrics.WalletMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
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
	if logRetention <= 0 {
		logRetention = defaultLogRetention
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		wallet:    walletSvc,
		gateway:   paymentGateway,
		shipping:  shippingClient,
		retention: logRetention,
		metrics:   walletMetrics,
		logg:      logg,
	}, nil
}

type refundRequest struct {
	orderID   uuid.UUID
	actorID   uuid.UUID
	initiator enums.RefundInitiator
	reason    *string
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*Result, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.execute(ctx, refundRequest{
		orderID:   input.OrderID,
		actorID:   input.UserID,
		initiator: enums.RefundInitiatorUser,
		reason:    input.Reason,
	})
}

func (s *service) ForceRefund(ctx context.Context, input ForceRefundInput) (*Result, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	return s.execute(ctx, refundRequest{
		orderID:   input.OrderID,
		actorID:   input.AdminID,
		initiator: enums.RefundInitiatorAdmin,
		reason:    input.Reason,
	})
}

// execute runs the transactional core and then delivers the money. Ordering
// inside the transaction is fixed: audit record, vendor-side reversal, then
// status flips. The whole block commits or rolls back together; the payment
// gateway is only contacted after commit.
func (s *service) execute(ctx context.Context, req refundRequest) (*Result, error) {
	var (
		order     *models.Order
		refundLog *models.RefundLog
		isReturn  bool
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.FindOrderForUpdate(ctx, req.orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := s.guard(locked, req); err != nil {
			return err
		}
		isReturn = locked.Status == enums.OrderStatusDelivered

		amount := decimal.Zero
		if locked.IsPaid {
			amount = locked.ItemsPrice.Add(locked.TaxPrice)
		}

		refundLog = &models.RefundLog{
			OrderID:        locked.ID,
			UserID:         locked.UserID,
			Amount:         amount,
			DeliveryCharge: locked.ShippingPrice,
			Initiator:      req.initiator,
			Outcome:        enums.RefundOutcomePending,
			Reason:         req.reason,
			ExpiresAt:      time.Now().UTC().Add(s.retention),
		}
		if err := repo.CreateRefundLog(ctx, refundLog); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order has already been refunded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund log")
		}

		vendorOrders, err := repo.VendorOrdersByOrder(ctx, locked.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor orders")
		}
		for i := range vendorOrders {
			if err := s.reverseVendorOrder(ctx, tx, repo, locked, &vendorOrders[i], req, isReturn); err != nil {
				return err
			}
		}

		targetStatus := enums.OrderStatusCancelled
		if isReturn {
			targetStatus = enums.OrderStatusReturned
		}
		if err := repo.UpdateOrder(ctx, locked.ID, map[string]any{
			"status":        targetStatus,
			"return_status": enums.ReturnStatusCompleted,
			"refunded":      true,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		locked.Status = targetStatus
		locked.ReturnStatus = enums.ReturnStatusCompleted
		locked.Refunded = true
		order = locked

		if !isReturn {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   locked.ID,
				Version:       1,
				Actor:         s.actor(req, locked),
				Data: payloads.OrderCancelledEvent{
					OrderID:     locked.ID,
					UserID:      locked.UserID,
					Initiator:   req.initiator,
					CancelledAt: time.Now().UTC(),
					Reason:      derefString(req.reason),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Order:     order,
		RefundLog: refundLog,
		Amount:    refundLog.Amount,
		Outcome:   enums.RefundOutcomePending,
	}
	if refundLog.Amount.IsPositive() {
		result.Outcome = s.deliverRefund(ctx, order, refundLog, req)
	}
	s.metrics.IncRefund(string(result.Outcome))

	// Stop fulfillment for anything not yet delivered. Advisory only.
	if !isReturn && s.shipping != nil {
		if err := s.shipping.CancelShipment(ctx, order.ID.String()); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "shipment cancel failed: "+err.Error())
		}
	}

	return result, nil
}

func (s *service) guard(order *models.Order, req refundRequest) error {
	if order.Refunded {
		return pkgerrors.New(pkgerrors.CodeConflict, "order has already been refunded")
	}
	switch req.initiator {
	case enums.RefundInitiatorUser:
		if order.UserID != req.actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %q can no longer be cancelled", order.Status))
		}
	case enums.RefundInitiatorAdmin:
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusReturned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %q is already closed", order.Status))
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported refund initiator %q", req.initiator))
	}
	return nil
}

// reverseVendorOrder unwinds one sub-order's earnings. Settled sub-orders are
// clawed back from the available balance; unsettled ones come off pending.
func (s *service) reverseVendorOrder(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, vo *models.VendorOrder, req refundRequest, isReturn bool) error {
	if vo.Status == enums.VendorOrderStatusCancelled || vo.Status == enums.VendorOrderStatusReturned {
		return nil
	}

	walletTx := s.wallet.WithTx(tx)
	updates := map[string]any{
		"return_status": enums.ReturnStatusCompleted,
	}

	if vo.PayoutStatus == enums.PayoutStatusCompleted {
		if vo.NetAmount.IsPositive() {
			if _, err := walletTx.ReverseSettled(ctx, wallet.ReverseSettledInput{
				VendorID:   vo.VendorID,
				OrderID:    order.ID,
				Net:        vo.NetAmount,
				Commission: vo.Commission,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse settled earnings")
			}
		}
		updates["payout_status"] = enums.PayoutStatusRefunded
	} else {
		if vo.NetAmount.IsPositive() {
			reversalType := enums.WalletTxnPendingCancelled
			if req.initiator == enums.RefundInitiatorAdmin {
				reversalType = enums.WalletTxnRefundDebit
			}
			if _, err := walletTx.ReversePending(ctx, wallet.ReversePendingInput{
				VendorID: vo.VendorID,
				OrderID:  order.ID,
				Net:      vo.NetAmount,
				Type:     reversalType,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse pending earnings")
			}
		}
		updates["payout_status"] = enums.PayoutStatusCancelled
	}

	now := time.Now().UTC()
	if isReturn {
		updates["status"] = enums.VendorOrderStatusReturned
	} else {
		updates["status"] = enums.VendorOrderStatusCancelled
		updates["cancelled_at"] = now
	}
	if err := repo.UpdateVendorOrder(ctx, vo.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor order")
	}

	if isReturn {
		vendorID := vo.VendorID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorReturnRequested,
			AggregateType: enums.AggregateVendorOrder,
			AggregateID:   vo.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: req.actorID, VendorID: &vendorID, Role: string(req.initiator)},
			Data: payloads.VendorReturnRequestedEvent{
				VendorOrderID: vo.ID,
				OrderID:       order.ID,
				VendorID:      vo.VendorID,
				RequestedAt:   now,
				Reason:        derefString(req.reason),
			},
		})
	}
	return nil
}

// deliverRefund pushes the money back to the customer after the reversal has
// committed. Gateway first for online payments, wallet credit as fallback;
// whichever lands is recorded on the refund log and the order.
func (s *service) deliverRefund(ctx context.Context, order *models.Order, refundLog *models.RefundLog, req refundRequest) enums.RefundOutcome {
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithOrderID(ctx, order.ID.String())
	}

	var gatewayErr error
	if order.PaymentMethod == enums.PaymentMethodOnline && order.PaymentID != nil && s.gateway != nil {
		result, err := s.gateway.Refund(ctx, gateway.RefundParams{
			PaymentID:      *order.PaymentID,
			Amount:         refundLog.Amount,
			Reason:         derefString(req.reason),
			IdempotencyKey: refundLog.ID.String(),
		})
		if err == nil {
			if recordErr := s.recordOutcome(ctx, order, refundLog, enums.RefundOutcomeGatewayRefunded, map[string]any{
				"outcome":           enums.RefundOutcomeGatewayRefunded,
				"gateway_refund_id": result.RefundID,
			}); recordErr != nil && s.logg != nil {
				s.logg.Error(logCtx, "record gateway refund outcome", recordErr)
			}
			return enums.RefundOutcomeGatewayRefunded
		}
		gatewayErr = err
		if s.logg != nil {
			s.logg.Error(logCtx, "gateway refund failed, falling back to wallet credit", err)
		}
	}

	updates := map[string]any{"outcome": enums.RefundOutcomeWalletCredited}
	if gatewayErr != nil {
		updates["failure_message"] = gatewayErr.Error()
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreditUserWallet(ctx, order.UserID, refundLog.Amount)
	}); err != nil {
		if s.logg != nil {
			s.logg.Error(logCtx, "wallet credit fallback failed", err)
		}
		return enums.RefundOutcomePending
	}
	if err := s.recordOutcome(ctx, order, refundLog, enums.RefundOutcomeWalletCredited, updates); err != nil && s.logg != nil {
		s.logg.Error(logCtx, "record wallet credit outcome", err)
	}
	return enums.RefundOutcomeWalletCredited
}

// recordOutcome persists where the money went and emits the refunded event.
func (s *service) recordOutcome(ctx context.Context, order *models.Order, refundLog *models.RefundLog, outcome enums.RefundOutcome, logUpdates map[string]any) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateRefundLog(ctx, refundLog.ID, logUpdates); err != nil {
			return err
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"refund_outcome": outcome,
		}); err != nil {
			return err
		}
		refundLog.Outcome = outcome
		order.RefundOutcome = &outcome
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderRefundedEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				Amount:    refundLog.Amount,
				Initiator: refundLog.Initiator,
				Outcome:   outcome,
			},
		})
	})
}

func (s *service) actor(req refundRequest, order *models.Order) *outbox.ActorRef {
	switch req.initiator {
	case enums.RefundInitiatorAdmin:
		return &outbox.ActorRef{UserID: req.actorID, Role: "admin"}
	default:
		return &outbox.ActorRef{UserID: order.UserID, Role: "user"}
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
