package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type signatureVerifier interface {
	VerifySignature(orderID, paymentID, signature string) bool
}

// Service drives the customer-order lifecycle: status propagation to vendor
// sub-orders, delivery settlement, and online payment verification.
// Cancellation and returns go through the refund engine, which owns the
// wallet reversals those transitions require.
type Service interface {
	Get(ctx context.Context, input GetInput) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorOrder, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Pay(ctx context.Context, input PayInput) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	wallet  wallet.Service
	gateway signatureVerifier
	logg    *logger.Logger
}

// GetInput identifies an order and the caller asking for it.
type GetInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	IsAdmin bool
}

// UpdateStatusInput carries an admin-driven status transition.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   string
}

// PayInput carries the gateway callback fields for online payment capture.
type PayInput struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	PaymentID string
	Signature string
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxEmitter, walletSvc wallet.Service, gateway signatureVerifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
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
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		wallet:  walletSvc,
		gateway: gateway,
		logg:    logg,
	}, nil
}

func (s *service) Get(ctx context.Context, input GetInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !input.IsAdmin && order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorOrder, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	vendorOrders, err := s.repo.VendorOrdersByVendor(ctx, vendorID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return vendorOrders, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Target))
	}
	if input.Target == enums.OrderStatusCancelled || input.Target == enums.OrderStatusReturned {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellations and returns go through the refund flow")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	vendorStatus, err := MapToVendorStatus(input.Target)
	if err != nil {
		return nil, err
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		walletSvc := s.wallet.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Target {
			updated = order
			return nil
		}
		if !CanTransition(order.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot move from %s to %s", order.Status, input.Target))
		}

		vendorOrders, err := repo.VendorOrdersByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor orders")
		}

		now := time.Now()
		firstDelivery := input.Target == enums.OrderStatusDelivered && !order.IsDelivered

		orderUpdates := map[string]any{"status": input.Target}
		if firstDelivery {
			orderUpdates["is_delivered"] = true
			orderUpdates["delivered_at"] = now
			// COD orders collect on the doorstep, so delivery implies paid.
			if !order.IsPaid {
				orderUpdates["is_paid"] = true
				orderUpdates["paid_at"] = now
			}
		}
		if err := repo.UpdateOrder(ctx, order.ID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		cascaded := make([]uuid.UUID, 0, len(vendorOrders))
		for i := range vendorOrders {
			vo := &vendorOrders[i]
			if vo.Status.IsTerminal() && !(firstDelivery && vo.Status == enums.VendorOrderStatusDelivered) {
				continue
			}
			if vo.Status != vendorStatus {
				voUpdates := map[string]any{"status": vendorStatus}
				if vendorStatus == enums.VendorOrderStatusShipped && vo.ShippedAt == nil {
					voUpdates["shipped_at"] = now
				}
				if vendorStatus == enums.VendorOrderStatusDelivered {
					voUpdates["delivered_at"] = now
				}
				if err := repo.UpdateVendorOrder(ctx, vo.ID, voUpdates); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor order status")
				}
				cascaded = append(cascaded, vo.ID)
			}

			if firstDelivery && vo.PayoutStatus == enums.PayoutStatusPending {
				if err := s.settleVendorOrder(ctx, tx, repo, walletSvc, vo, input, now); err != nil {
					return err
				}
			}
		}

		from := order.Status
		order.Status = input.Target
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: payloads.OrderStatusUpdatedEvent{
				OrderID:        order.ID,
				From:           from,
				To:             input.Target,
				VendorStatus:   vendorStatus,
				VendorOrderIDs: cascaded,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// settleVendorOrder releases a sub-order's pending earnings on first
// delivery: wallet settle, payout completion, vendor delivery metrics, and
// the settlement event, all inside the caller's transaction.
func (s *service) settleVendorOrder(ctx context.Context, tx *gorm.DB, repo Repository, walletSvc wallet.Service, vo *models.VendorOrder, input UpdateStatusInput, now time.Time) error {
	if err := walletSvc.Settle(ctx, wallet.SettleInput{
		VendorID:   vo.VendorID,
		OrderID:    vo.OrderID,
		Net:        vo.NetAmount,
		Commission: vo.Commission,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle vendor wallet")
	}
	if err := repo.UpdateVendorOrder(ctx, vo.ID, map[string]any{
		"payout_status": enums.PayoutStatusCompleted,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete vendor payout")
	}
	if err := repo.ApplyDeliveryMetrics(ctx, vo.VendorID, vo.Subtotal); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor metrics")
	}

	vendorID := vo.VendorID
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventVendorOrderSettled,
		AggregateType: enums.AggregateVendorOrder,
		AggregateID:   vo.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: input.ActorUserID, VendorID: &vendorID, Role: input.ActorRole},
		Data: payloads.VendorOrderSettledEvent{
			VendorOrderID: vo.ID,
			OrderID:       vo.OrderID,
			VendorID:      vo.VendorID,
			NetAmount:     vo.NetAmount,
			SettledAt:     now,
		},
	})
}

func (s *service) Pay(ctx context.Context, input PayInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id and signature required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.PaymentMethod != enums.PaymentMethodOnline {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not an online payment")
		}
		if order.IsPaid {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
		}
		if order.PaymentOrderID == nil || *order.PaymentOrderID == "" {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no gateway reference")
		}
		if !s.gateway.VerifySignature(*order.PaymentOrderID, input.PaymentID, input.Signature) {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment signature mismatch")
		}

		now := time.Now()
		updates := map[string]any{
			"is_paid":           true,
			"paid_at":           now,
			"payment_id":        input.PaymentID,
			"payment_signature": input.Signature,
		}
		if order.Status == enums.OrderStatusPending {
			updates["status"] = enums.OrderStatusProcessing
			order.Status = enums.OrderStatusProcessing
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}

		order.IsPaid = true
		order.PaidAt = &now
		order.PaymentID = &input.PaymentID
		order.PaymentSignature = &input.Signature
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: "user"},
			Data: payloads.OrderPaidEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				PaymentID: input.PaymentID,
				PaidAt:    now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
