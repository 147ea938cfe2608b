package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/internal/commission"
	"github.com/adityaverma/bazaarkart-backend/internal/coupons"
	"github.com/adityaverma/bazaarkart-backend/internal/gst"
	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/gateway"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox/payloads"
	"github.com/adityaverma/bazaarkart-backend/pkg/types"
)

const idempotencyTTL = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type paymentOrderCreator interface {
	CreateOrder(ctx context.Context, params gateway.OrderCreateParams) (string, error)
}

// Service is the order fan-out engine: it turns one validated checkout into
// a customer order plus one sub-order per vendor, stages pending earnings,
// and emits the creation events.
//
// The order commits in its own transaction and each vendor sub-order in its
// own. A failure creating one vendor's sub-order never rolls back the order
// or the other vendors; the gap is logged, reported on the result, and
// repaired by reconciliation.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	wallet  wallet.Service
	coupons coupons.Service
	gst     gst.Service
	gateway paymentOrderCreator
	idem    idempotencyStore
	logg    *logger.Logger
}

// ItemInput is one purchased product line. VendorID nil marks a
// platform-owned item, which is excluded from fan-out.
type ItemInput struct {
	ProductID uuid.UUID
	VendorID  *uuid.UUID
	Name      string
	Price     decimal.Decimal
	Qty       int
	Image     *string
}

// Input is the validated checkout payload.
type Input struct {
	UserID          uuid.UUID
	Items           []ItemInput
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	ShippingPrice   decimal.Decimal
	CouponCode      *string
	ClaimGST        bool
	BuyerGSTIN      *string
	IdempotencyKey  string
}

// Result reports the created order, its sub-orders, and any vendors whose
// sub-order could not be created.
type Result struct {
	Order         *models.Order
	VendorOrders  []models.VendorOrder
	FailedVendors []uuid.UUID
}

// NewService builds the fan-out engine with the required collaborators. The
// idempotency store and payment gateway may be nil for COD-only test setups.
func NewService(repo Repository, tx txRunner, outboxSvc outboxEmitter, walletSvc wallet.Service, couponSvc coupons.Service, gstSvc gst.Service, paymentGateway paymentOrderCreator, idem idempotencyStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
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
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if gstSvc == nil {
		return nil, fmt.Errorf("gst service required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		wallet:  walletSvc,
		coupons: couponSvc,
		gst:     gstSvc,
		gateway: paymentGateway,
		idem:    idem,
		logg:    logg,
	}, nil
}

var hundred = decimal.NewFromInt(100)

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		key := s.idem.IdempotencyKey("checkout", input.UserID.String()+":"+input.IdempotencyKey)
		fresh, err := s.idem.SetNX(ctx, key, "1", idempotencyTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout idempotency check")
		}
		if !fresh {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already submitted with this idempotency key")
		}
	}

	itemsPrice := decimal.Zero
	for _, item := range input.Items {
		itemsPrice = itemsPrice.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}

	order, err := s.createOrder(ctx, input, itemsPrice)
	if err != nil {
		return nil, err
	}

	if input.PaymentMethod == enums.PaymentMethodOnline && s.gateway != nil {
		s.attachPaymentOrder(ctx, order)
	}

	result := &Result{Order: order}
	s.fanOut(ctx, input, order, itemsPrice, result)

	createdIDs := make([]uuid.UUID, 0, len(result.VendorOrders))
	for _, vo := range result.VendorOrders {
		createdIDs = append(createdIDs, vo.ID)
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: "user"},
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				TotalPrice:     order.TotalPrice,
				VendorOrderIDs: createdIDs,
			},
		})
	}); err != nil {
		// The order and sub-orders are committed; a lost creation event is
		// not worth failing the checkout over.
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "emit order created event", err)
		}
	}

	return result, nil
}

func validateInput(input Input) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative")
		}
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.ShippingPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping price must not be negative")
	}
	return nil
}

// createOrder runs the order-level transaction: coupon consumption, GST
// snapshot, price totals, and the order row with its item snapshots.
func (s *service) createOrder(ctx context.Context, input Input, itemsPrice decimal.Decimal) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		discount := decimal.Zero
		if input.CouponCode != nil && *input.CouponCode != "" {
			applied, err := s.coupons.WithTx(tx).Apply(ctx, coupons.ApplyInput{
				Code:       *input.CouponCode,
				UserID:     input.UserID,
				ItemsPrice: itemsPrice,
			})
			if err != nil {
				return err
			}
			discount = applied.Discount
		}

		snapshot, err := s.gst.WithTx(tx).Snapshot(ctx, input.ClaimGST, input.BuyerGSTIN)
		if err != nil {
			return err
		}

		taxable := itemsPrice.Sub(discount)
		if taxable.IsNegative() {
			taxable = decimal.Zero
		}
		taxPrice := taxable.Mul(snapshot.Rate).Div(hundred).Round(2)
		totalPrice := taxable.Add(taxPrice).Add(input.ShippingPrice)

		orderNumber, err := repo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}

		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			items = append(items, models.OrderItem{
				ProductID: item.ProductID,
				VendorID:  item.VendorID,
				Name:      item.Name,
				Price:     item.Price,
				Qty:       item.Qty,
				Image:     item.Image,
			})
		}

		order = &models.Order{
			UserID:          input.UserID,
			OrderNumber:     orderNumber,
			Items:           items,
			ItemsPrice:      itemsPrice,
			TaxPrice:        taxPrice,
			ShippingPrice:   input.ShippingPrice,
			Discount:        discount,
			TotalPrice:      totalPrice,
			CouponCode:      input.CouponCode,
			PaymentMethod:   input.PaymentMethod,
			Status:          enums.OrderStatusPending,
			ReturnStatus:    enums.ReturnStatusNone,
			GSTClaimed:      snapshot.Claimed,
			BuyerGSTIN:      snapshot.BuyerGSTIN,
			SellerGSTIN:     snapshot.SellerGSTIN,
			GSTRate:         snapshot.Rate,
			ShippingAddress: input.ShippingAddress,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// attachPaymentOrder registers the payment intent with the gateway after the
// order commit. Failure leaves the order pending and payable later; it never
// unwinds the checkout.
func (s *service) attachPaymentOrder(ctx context.Context, order *models.Order) {
	paymentOrderID, err := s.gateway.CreateOrder(ctx, gateway.OrderCreateParams{
		Amount:         order.TotalPrice,
		ReceiptID:      fmt.Sprintf("order-%d", order.OrderNumber),
		IdempotencyKey: order.ID.String(),
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "create gateway order", err)
		}
		return
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).StorePaymentOrderID(ctx, order.ID, paymentOrderID)
	}); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "store gateway order id", err)
		}
		return
	}
	order.PaymentOrderID = &paymentOrderID
}

// fanOut creates one sub-order per vendor, each in its own transaction.
func (s *service) fanOut(ctx context.Context, input Input, order *models.Order, itemsPrice decimal.Decimal, result *Result) {
	groups := groupByVendor(order.Items)

	vendorIDs := make([]uuid.UUID, 0, len(groups))
	for vendorID := range groups {
		vendorIDs = append(vendorIDs, vendorID)
	}
	sort.Slice(vendorIDs, func(i, j int) bool {
		return vendorIDs[i].String() < vendorIDs[j].String()
	})

	for _, vendorID := range vendorIDs {
		vo, err := s.createVendorOrder(ctx, input, order, itemsPrice, vendorID, groups[vendorID])
		if err != nil {
			result.FailedVendors = append(result.FailedVendors, vendorID)
			if s.logg != nil {
				logCtx := s.logg.WithVendorID(s.logg.WithOrderID(ctx, order.ID.String()), vendorID.String())
				s.logg.Error(logCtx, "vendor fan-out failed", err)
			}
			continue
		}
		result.VendorOrders = append(result.VendorOrders, *vo)
	}
}

func (s *service) createVendorOrder(ctx context.Context, input Input, order *models.Order, itemsPrice decimal.Decimal, vendorID uuid.UUID, items []models.OrderItem) (*models.VendorOrder, error) {
	var created *models.VendorOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		vendor, err := repo.FindVendor(ctx, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}

		subtotal := decimal.Zero
		voItems := make([]models.VendorOrderItem, 0, len(items))
		for _, item := range items {
			subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
			voItems = append(voItems, models.VendorOrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Price:     item.Price,
				Qty:       item.Qty,
			})
		}

		commissionAmount, net := commission.Split(subtotal, vendor.SubscriptionPlan)
		taxShare := proportionalTax(subtotal, itemsPrice, order.TaxPrice)

		vo := &models.VendorOrder{
			OrderID:         order.ID,
			VendorID:        vendorID,
			Items:           voItems,
			Subtotal:        subtotal,
			Tax:             taxShare,
			Commission:      commissionAmount,
			NetAmount:       net,
			Status:          enums.VendorOrderStatusPending,
			ReturnStatus:    enums.ReturnStatusNone,
			PayoutStatus:    enums.PayoutStatusPending,
			ShippingAddress: order.ShippingAddress,
		}
		if err := repo.CreateVendorOrder(ctx, vo); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor order")
		}
		if err := repo.ApplyNewOrderMetrics(ctx, vendorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor metrics")
		}
		if _, err := s.wallet.WithTx(tx).CreditPending(ctx, wallet.CreditPendingInput{
			VendorID: vendorID,
			OrderID:  order.ID,
			Amount:   net,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit pending earnings")
		}

		created = vo
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorOrderCreated,
			AggregateType: enums.AggregateVendorOrder,
			AggregateID:   vo.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: "user"},
			Data: payloads.VendorOrderCreatedEvent{
				VendorOrderID: vo.ID,
				OrderID:       order.ID,
				VendorID:      vendorID,
				Subtotal:      subtotal,
				Commission:    commissionAmount,
				NetAmount:     net,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// groupByVendor buckets order items by owning vendor, dropping platform
// items.
func groupByVendor(items []models.OrderItem) map[uuid.UUID][]models.OrderItem {
	groups := make(map[uuid.UUID][]models.OrderItem)
	for _, item := range items {
		if item.VendorID == nil {
			continue
		}
		groups[*item.VendorID] = append(groups[*item.VendorID], item)
	}
	return groups
}

// proportionalTax splits the order-level tax by the vendor's share of the
// items price. A zero items price yields zero rather than dividing by it.
func proportionalTax(subtotal, itemsPrice, taxPrice decimal.Decimal) decimal.Decimal {
	if itemsPrice.IsZero() {
		return decimal.Zero
	}
	return subtotal.Div(itemsPrice).Mul(taxPrice).Round(2)
}
