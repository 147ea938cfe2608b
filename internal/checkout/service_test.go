package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/internal/coupons"
	"github.com/adityaverma/bazaarkart-backend/internal/gst"
	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/gateway"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
)

type fakeRepository struct {
	nextNumberFn   func(ctx context.Context) (int64, error)
	createOrderFn  func(ctx context.Context, order *models.Order) error
	createVendorFn func(ctx context.Context, vo *models.VendorOrder) error
	findVendorFn   func(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	metricsFn      func(ctx context.Context, vendorID uuid.UUID) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	if f.nextNumberFn != nil {
		return f.nextNumberFn(ctx)
	}
	return 100001, nil
}

func (f *fakeRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if f.createOrderFn != nil {
		return f.createOrderFn(ctx, order)
	}
	return nil
}

func (f *fakeRepository) CreateVendorOrder(ctx context.Context, vo *models.VendorOrder) error {
	if vo.ID == uuid.Nil {
		vo.ID = uuid.New()
	}
	if f.createVendorFn != nil {
		return f.createVendorFn(ctx, vo)
	}
	return nil
}

func (f *fakeRepository) StorePaymentOrderID(ctx context.Context, orderID uuid.UUID, paymentOrderID string) error {
	return nil
}

func (f *fakeRepository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	if f.findVendorFn != nil {
		return f.findVendorFn(ctx, vendorID)
	}
	return &models.Vendor{ID: vendorID, SubscriptionPlan: enums.PlanStarter}, nil
}

func (f *fakeRepository) ApplyNewOrderMetrics(ctx context.Context, vendorID uuid.UUID) error {
	if f.metricsFn != nil {
		return f.metricsFn(ctx, vendorID)
	}
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeWallet struct {
	credits []wallet.CreditPendingInput
}

func (f *fakeWallet) WithTx(tx *gorm.DB) wallet.Service { return f }

func (f *fakeWallet) CreditPending(ctx context.Context, input wallet.CreditPendingInput) (*models.WalletTransaction, error) {
	f.credits = append(f.credits, input)
	return &models.WalletTransaction{}, nil
}

func (f *fakeWallet) Settle(ctx context.Context, input wallet.SettleInput) error { return nil }

func (f *fakeWallet) ReversePending(ctx context.Context, input wallet.ReversePendingInput) (*models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeWallet) ReverseSettled(ctx context.Context, input wallet.ReverseSettledInput) (*models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeWallet) Adjust(ctx context.Context, input wallet.AdjustInput) (*models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeWallet) Summary(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	return nil, nil
}

func (f *fakeWallet) Transactions(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeWallet) HasEntryForOrder(ctx context.Context, vendorID, orderID uuid.UUID, types []enums.WalletTxnType) (bool, error) {
	return false, nil
}

type fakeCoupons struct {
	applyFn func(ctx context.Context, input coupons.ApplyInput) (*coupons.Applied, error)
}

func (f *fakeCoupons) WithTx(tx *gorm.DB) coupons.Service { return f }

func (f *fakeCoupons) Apply(ctx context.Context, input coupons.ApplyInput) (*coupons.Applied, error) {
	if f.applyFn != nil {
		return f.applyFn(ctx, input)
	}
	return &coupons.Applied{Discount: decimal.Zero}, nil
}

type fakeGST struct {
	snapshot gst.Snapshot
}

func (f *fakeGST) WithTx(tx *gorm.DB) gst.Service { return f }

func (f *fakeGST) Snapshot(ctx context.Context, claimed bool, buyerGSTIN *string) (gst.Snapshot, error) {
	return f.snapshot, nil
}

type fakeGateway struct {
	id  string
	err error
}

func (f *fakeGateway) CreateOrder(ctx context.Context, params gateway.OrderCreateParams) (string, error) {
	return f.id, f.err
}

type fakeIdem struct {
	fresh bool
	key   string
}

func (f *fakeIdem) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.key = key
	return f.fresh, nil
}

func (f *fakeIdem) IdempotencyKey(scope, id string) string {
	return "bk:idempotency:" + scope + ":" + id
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T, repo *fakeRepository, ob *fakeOutbox, w *fakeWallet, c *fakeCoupons, g *fakeGST, pg paymentOrderCreator, idem idempotencyStore) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, ob, w, c, g, pg, idem, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestCheckout_FansOutPerVendorAndSkipsPlatformItems(t *testing.T) {
	vendorA := uuid.New()
	repo := &fakeRepository{}
	ob := &fakeOutbox{}
	w := &fakeWallet{}
	svc := newTestService(t, repo, ob, w, &fakeCoupons{}, &fakeGST{snapshot: gst.Snapshot{Rate: dec("18")}}, nil, nil)

	result, err := svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodCOD,
		ShippingPrice: dec("499"),
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Masala Jar", Price: dec("250"), Qty: 2},
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Copper Bottle", Price: dec("500"), Qty: 1},
			{ProductID: uuid.New(), Name: "Gift Wrap", Price: dec("50"), Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	order := result.Order
	if !order.ItemsPrice.Equal(dec("1050")) {
		t.Fatalf("items price = %s, want 1050", order.ItemsPrice)
	}
	if !order.TaxPrice.Equal(dec("189")) {
		t.Fatalf("tax price = %s, want 189", order.TaxPrice)
	}
	if !order.TotalPrice.Equal(dec("1738")) {
		t.Fatalf("total = %s, want 1738", order.TotalPrice)
	}

	// Platform item stays on the order but produces no sub-order.
	if len(result.VendorOrders) != 1 {
		t.Fatalf("expected 1 vendor order, got %d", len(result.VendorOrders))
	}
	vo := result.VendorOrders[0]
	if vo.VendorID != vendorA || !vo.Subtotal.Equal(dec("1000")) {
		t.Fatalf("unexpected vendor order: %+v", vo)
	}
	if !vo.Commission.Equal(dec("150")) || !vo.NetAmount.Equal(dec("850")) {
		t.Fatalf("commission/net = %s/%s, want 150/850", vo.Commission, vo.NetAmount)
	}
	if !vo.NetAmount.Equal(vo.Subtotal.Sub(vo.Commission)) {
		t.Fatal("net must equal subtotal minus commission")
	}
	// Vendor's proportional share of the tax: 1000/1050 of 189.
	if !vo.Tax.Equal(dec("180")) {
		t.Fatalf("tax share = %s, want 180", vo.Tax)
	}
	if vo.Status != enums.VendorOrderStatusPending || vo.PayoutStatus != enums.PayoutStatusPending {
		t.Fatalf("unexpected initial statuses: %+v", vo)
	}

	if len(w.credits) != 1 || !w.credits[0].Amount.Equal(dec("850")) || w.credits[0].VendorID != vendorA {
		t.Fatalf("unexpected pending credits: %+v", w.credits)
	}

	var sawVendorCreated, sawOrderCreated bool
	for _, event := range ob.events {
		switch event.EventType {
		case enums.EventVendorOrderCreated:
			sawVendorCreated = true
		case enums.EventOrderCreated:
			sawOrderCreated = true
		}
	}
	if !sawVendorCreated || !sawOrderCreated {
		t.Fatalf("missing creation events: %+v", ob.events)
	}
}

func TestCheckout_PartialFanOutIsTolerated(t *testing.T) {
	vendorA, vendorB := uuid.New(), uuid.New()
	repo := &fakeRepository{
		findVendorFn: func(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
			if vendorID == vendorB {
				return nil, errors.New("vendor lookup failed")
			}
			return &models.Vendor{ID: vendorID, SubscriptionPlan: enums.PlanProfessional}, nil
		},
	}
	w := &fakeWallet{}
	svc := newTestService(t, repo, &fakeOutbox{}, w, &fakeCoupons{}, &fakeGST{}, nil, nil)

	result, err := svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodCOD,
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Desk Lamp", Price: dec("2000"), Qty: 1},
			{ProductID: uuid.New(), VendorID: &vendorB, Name: "Wall Clock", Price: dec("900"), Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	if len(result.VendorOrders) != 1 || result.VendorOrders[0].VendorID != vendorA {
		t.Fatalf("expected vendor A order to survive, got %+v", result.VendorOrders)
	}
	if len(result.FailedVendors) != 1 || result.FailedVendors[0] != vendorB {
		t.Fatalf("expected vendor B flagged failed, got %+v", result.FailedVendors)
	}
	// Professional tier: 10% of 2000.
	if !result.VendorOrders[0].Commission.Equal(dec("200")) {
		t.Fatalf("commission = %s, want 200", result.VendorOrders[0].Commission)
	}
	if len(w.credits) != 1 || w.credits[0].VendorID != vendorA {
		t.Fatalf("failed vendor must not receive pending credit: %+v", w.credits)
	}
}

func TestCheckout_IdempotencyKeyRejectsReplay(t *testing.T) {
	vendorA := uuid.New()
	svc := newTestService(t, &fakeRepository{}, &fakeOutbox{}, &fakeWallet{}, &fakeCoupons{}, &fakeGST{}, nil, &fakeIdem{fresh: false})

	_, err := svc.Checkout(context.Background(), Input{
		UserID:         uuid.New(),
		PaymentMethod:  enums.PaymentMethodCOD,
		IdempotencyKey: "req-1",
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Notebook", Price: dec("120"), Qty: 1},
		},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on replay, got %v", err)
	}
}

func TestCheckout_CouponDiscountFlowsIntoTotals(t *testing.T) {
	vendorA := uuid.New()
	code := "FESTIVE10"
	c := &fakeCoupons{
		applyFn: func(ctx context.Context, input coupons.ApplyInput) (*coupons.Applied, error) {
			return &coupons.Applied{Discount: dec("100")}, nil
		},
	}
	svc := newTestService(t, &fakeRepository{}, &fakeOutbox{}, &fakeWallet{}, c, &fakeGST{snapshot: gst.Snapshot{Rate: dec("18")}}, nil, nil)

	result, err := svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodCOD,
		CouponCode:    &code,
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Spice Box", Price: dec("1000"), Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	order := result.Order
	if !order.Discount.Equal(dec("100")) {
		t.Fatalf("discount = %s, want 100", order.Discount)
	}
	// Tax applies to the discounted base: 18% of 900.
	if !order.TaxPrice.Equal(dec("162")) {
		t.Fatalf("tax = %s, want 162", order.TaxPrice)
	}
	if !order.TotalPrice.Equal(dec("1062")) {
		t.Fatalf("total = %s, want 1062", order.TotalPrice)
	}
}

func TestCheckout_CouponFailureAbortsOrder(t *testing.T) {
	vendorA := uuid.New()
	code := "DEAD"
	c := &fakeCoupons{
		applyFn: func(ctx context.Context, input coupons.ApplyInput) (*coupons.Applied, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
		},
	}
	created := false
	repo := &fakeRepository{
		createOrderFn: func(ctx context.Context, order *models.Order) error {
			created = true
			return nil
		},
	}
	svc := newTestService(t, repo, &fakeOutbox{}, &fakeWallet{}, c, &fakeGST{}, nil, nil)

	_, err := svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodCOD,
		CouponCode:    &code,
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Spice Box", Price: dec("1000"), Qty: 1},
		},
	})
	if err == nil {
		t.Fatal("expected coupon failure to abort checkout")
	}
	if created {
		t.Fatal("order must not be created when the coupon is rejected")
	}
}

func TestCheckout_OnlinePaymentAttachesGatewayOrder(t *testing.T) {
	vendorA := uuid.New()
	pg := &fakeGateway{id: "pg_order_9"}
	svc := newTestService(t, &fakeRepository{}, &fakeOutbox{}, &fakeWallet{}, &fakeCoupons{}, &fakeGST{}, pg, nil)

	result, err := svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodOnline,
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Desk Lamp", Price: dec("2000"), Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if result.Order.PaymentOrderID == nil || *result.Order.PaymentOrderID != "pg_order_9" {
		t.Fatalf("gateway order not attached: %+v", result.Order.PaymentOrderID)
	}
}

func TestCheckout_GatewayFailureDoesNotFailCheckout(t *testing.T) {
	vendorA := uuid.New()
	pg := &fakeGateway{err: errors.New("gateway down")}
	svc := newTestService(t, &fakeRepository{}, &fakeOutbox{}, &fakeWallet{}, &fakeCoupons{}, &fakeGST{}, pg, nil)

	result, err := svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodOnline,
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Desk Lamp", Price: dec("2000"), Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if result.Order.PaymentOrderID != nil {
		t.Fatal("gateway order id must stay empty on failure")
	}
	if len(result.VendorOrders) != 1 {
		t.Fatalf("fan-out must still run, got %d vendor orders", len(result.VendorOrders))
	}
}

func TestProportionalTax(t *testing.T) {
	if got := proportionalTax(dec("1000"), dec("0"), dec("180")); !got.Equal(decimal.Zero) {
		t.Fatalf("zero items price must yield zero tax, got %s", got)
	}
	if got := proportionalTax(dec("500"), dec("1000"), dec("180")); !got.Equal(dec("90")) {
		t.Fatalf("tax share = %s, want 90", got)
	}
}

func TestValidateInput(t *testing.T) {
	vendorA := uuid.New()
	valid := Input{
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodCOD,
		Items: []ItemInput{
			{ProductID: uuid.New(), VendorID: &vendorA, Name: "Notebook", Price: dec("120"), Qty: 1},
		},
	}

	tests := []struct {
		name   string
		mutate func(in Input) Input
	}{
		{"missing user", func(in Input) Input { in.UserID = uuid.Nil; return in }},
		{"no items", func(in Input) Input { in.Items = nil; return in }},
		{"zero qty", func(in Input) Input { in.Items[0].Qty = 0; return in }},
		{"negative price", func(in Input) Input { in.Items[0].Price = dec("-1"); return in }},
		{"bad payment method", func(in Input) Input { in.PaymentMethod = "upi_wallet"; return in }},
		{"negative shipping", func(in Input) Input { in.ShippingPrice = dec("-5"); return in }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			in.Items = append([]ItemInput(nil), valid.Items...)
			if err := validateInput(tc.mutate(in)); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
	if err := validateInput(valid); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}
