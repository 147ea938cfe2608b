package refunds

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/gateway"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
)

type fakeRepository struct {
	order        *models.Order
	vendorOrders []models.VendorOrder

	refundLogs         []*models.RefundLog
	refundLogErr       error
	orderUpdates       []map[string]any
	vendorOrderUpdates map[uuid.UUID]map[string]any
	userCredits        []decimal.Decimal
	creditErr          error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.order
	return &copied, nil
}

func (f *fakeRepository) VendorOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.VendorOrder, error) {
	return f.vendorOrders, nil
}

func (f *fakeRepository) CreateRefundLog(ctx context.Context, log *models.RefundLog) error {
	if f.refundLogErr != nil {
		return f.refundLogErr
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	f.refundLogs = append(f.refundLogs, log)
	return nil
}

func (f *fakeRepository) UpdateRefundLog(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (f *fakeRepository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.orderUpdates = append(f.orderUpdates, updates)
	return nil
}

func (f *fakeRepository) UpdateVendorOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if f.vendorOrderUpdates == nil {
		f.vendorOrderUpdates = make(map[uuid.UUID]map[string]any)
	}
	f.vendorOrderUpdates[id] = updates
	return nil
}

func (f *fakeRepository) CreditUserWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if f.creditErr != nil {
		return f.creditErr
	}
	f.userCredits = append(f.userCredits, amount)
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
	pendingReversals []wallet.ReversePendingInput
	settledReversals []wallet.ReverseSettledInput
}

func (f *fakeWallet) WithTx(tx *gorm.DB) wallet.Service { return f }

func (f *fakeWallet) CreditPending(ctx context.Context, input wallet.CreditPendingInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

func (f *fakeWallet) Settle(ctx context.Context, input wallet.SettleInput) error { return nil }

func (f *fakeWallet) ReversePending(ctx context.Context, input wallet.ReversePendingInput) (*models.WalletTransaction, error) {
	f.pendingReversals = append(f.pendingReversals, input)
	return &models.WalletTransaction{}, nil
}

func (f *fakeWallet) ReverseSettled(ctx context.Context, input wallet.ReverseSettledInput) (*models.WalletTransaction, error) {
	f.settledReversals = append(f.settledReversals, input)
	return &models.WalletTransaction{}, nil
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

type fakeGateway struct {
	result *gateway.RefundResult
	err    error
	calls  int
}

func (f *fakeGateway) Refund(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeShipping struct {
	cancelled []string
	err       error
}

func (f *fakeShipping) CancelShipment(ctx context.Context, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return f.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func paidOrder(userID uuid.UUID, status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		ItemsPrice:    dec("1000"),
		TaxPrice:      dec("180"),
		ShippingPrice: dec("499"),
		TotalPrice:    dec("1679"),
		PaymentMethod: enums.PaymentMethodCOD,
		Status:        status,
		IsPaid:        true,
	}
}

func pendingVendorOrder(orderID uuid.UUID) models.VendorOrder {
	return models.VendorOrder{
		ID:           uuid.New(),
		OrderID:      orderID,
		VendorID:     uuid.New(),
		Subtotal:     dec("1000"),
		Commission:   dec("150"),
		NetAmount:    dec("850"),
		Status:       enums.VendorOrderStatusProcessing,
		PayoutStatus: enums.PayoutStatusPending,
	}
}

func newTestService(t *testing.T, repo *fakeRepository, ob *fakeOutbox, w *fakeWallet, pg gatewayRefunder, sc shipmentCanceller) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, ob, w, pg, sc, 0, nil, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestCancel_ExcludesShippingAndReversesPending(t *testing.T) {
	userID := uuid.New()
	order := paidOrder(userID, enums.OrderStatusProcessing)
	vo := pendingVendorOrder(order.ID)
	repo := &fakeRepository{order: order, vendorOrders: []models.VendorOrder{vo}}
	ob := &fakeOutbox{}
	w := &fakeWallet{}
	sc := &fakeShipping{}
	svc := newTestService(t, repo, ob, w, nil, sc)

	result, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: userID})
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	// Shipping is never refunded: 1000 + 180, not 1679.
	if !result.Amount.Equal(dec("1180")) {
		t.Fatalf("refund amount = %s, want 1180", result.Amount)
	}
	if result.RefundLog == nil || !result.RefundLog.DeliveryCharge.Equal(dec("499")) {
		t.Fatalf("withheld delivery charge not recorded: %+v", result.RefundLog)
	}
	if result.RefundLog.Initiator != enums.RefundInitiatorUser {
		t.Fatalf("initiator = %s, want user", result.RefundLog.Initiator)
	}

	if len(w.pendingReversals) != 1 {
		t.Fatalf("expected 1 pending reversal, got %d", len(w.pendingReversals))
	}
	rev := w.pendingReversals[0]
	if rev.VendorID != vo.VendorID || !rev.Net.Equal(dec("850")) || rev.Type != enums.WalletTxnPendingCancelled {
		t.Fatalf("unexpected reversal: %+v", rev)
	}
	if len(w.settledReversals) != 0 {
		t.Fatal("pre-shipment cancel must not touch the settled balance")
	}

	if result.Order.Status != enums.OrderStatusCancelled || !result.Order.Refunded {
		t.Fatalf("order not closed out: %+v", result.Order)
	}
	voUpdates := repo.vendorOrderUpdates[vo.ID]
	if voUpdates["status"] != enums.VendorOrderStatusCancelled || voUpdates["payout_status"] != enums.PayoutStatusCancelled {
		t.Fatalf("unexpected vendor order updates: %+v", voUpdates)
	}

	// COD with no gateway: the money lands on the user's wallet.
	if result.Outcome != enums.RefundOutcomeWalletCredited {
		t.Fatalf("outcome = %s, want wallet_credited", result.Outcome)
	}
	if len(repo.userCredits) != 1 || !repo.userCredits[0].Equal(dec("1180")) {
		t.Fatalf("unexpected user credits: %+v", repo.userCredits)
	}

	if len(sc.cancelled) != 1 || sc.cancelled[0] != order.ID.String() {
		t.Fatalf("shipment cancel not requested: %+v", sc.cancelled)
	}

	var sawCancelled, sawRefunded bool
	for _, event := range ob.events {
		switch event.EventType {
		case enums.EventOrderCancelled:
			sawCancelled = true
		case enums.EventOrderRefunded:
			sawRefunded = true
		}
	}
	if !sawCancelled || !sawRefunded {
		t.Fatalf("missing events: %+v", ob.events)
	}
}

func TestForceRefund_DeliveredOrderClawsBackSettledEarnings(t *testing.T) {
	userID := uuid.New()
	order := paidOrder(userID, enums.OrderStatusDelivered)
	order.IsDelivered = true
	vo := pendingVendorOrder(order.ID)
	vo.Status = enums.VendorOrderStatusDelivered
	vo.PayoutStatus = enums.PayoutStatusCompleted
	repo := &fakeRepository{order: order, vendorOrders: []models.VendorOrder{vo}}
	ob := &fakeOutbox{}
	w := &fakeWallet{}
	sc := &fakeShipping{}
	svc := newTestService(t, repo, ob, w, nil, sc)

	result, err := svc.ForceRefund(context.Background(), ForceRefundInput{OrderID: order.ID, AdminID: uuid.New()})
	if err != nil {
		t.Fatalf("ForceRefund error: %v", err)
	}

	if len(w.settledReversals) != 1 {
		t.Fatalf("expected 1 settled reversal, got %d", len(w.settledReversals))
	}
	rev := w.settledReversals[0]
	if !rev.Net.Equal(dec("850")) || !rev.Commission.Equal(dec("150")) {
		t.Fatalf("unexpected settled reversal: %+v", rev)
	}
	if len(w.pendingReversals) != 0 {
		t.Fatal("delivered sub-order must not reverse the pending balance")
	}

	if result.Order.Status != enums.OrderStatusReturned {
		t.Fatalf("order status = %s, want Returned", result.Order.Status)
	}
	voUpdates := repo.vendorOrderUpdates[vo.ID]
	if voUpdates["status"] != enums.VendorOrderStatusReturned || voUpdates["payout_status"] != enums.PayoutStatusRefunded {
		t.Fatalf("unexpected vendor order updates: %+v", voUpdates)
	}
	if voUpdates["return_status"] != enums.ReturnStatusCompleted {
		t.Fatalf("return status not completed: %+v", voUpdates)
	}

	// No shipment to cancel on a delivered order.
	if len(sc.cancelled) != 0 {
		t.Fatalf("unexpected shipment cancel: %+v", sc.cancelled)
	}

	var sawReturnRequested bool
	for _, event := range ob.events {
		if event.EventType == enums.EventVendorReturnRequested {
			sawReturnRequested = true
		}
	}
	if !sawReturnRequested {
		t.Fatalf("missing vendor return event: %+v", ob.events)
	}
}

func TestForceRefund_MixedSettlementStates(t *testing.T) {
	userID := uuid.New()
	order := paidOrder(userID, enums.OrderStatusShipped)
	settled := pendingVendorOrder(order.ID)
	settled.PayoutStatus = enums.PayoutStatusCompleted
	pending := pendingVendorOrder(order.ID)
	pending.NetAmount = dec("400")
	pending.Commission = dec("100")
	repo := &fakeRepository{order: order, vendorOrders: []models.VendorOrder{settled, pending}}
	w := &fakeWallet{}
	svc := newTestService(t, repo, &fakeOutbox{}, w, nil, nil)

	if _, err := svc.ForceRefund(context.Background(), ForceRefundInput{OrderID: order.ID, AdminID: uuid.New()}); err != nil {
		t.Fatalf("ForceRefund error: %v", err)
	}

	if len(w.settledReversals) != 1 || !w.settledReversals[0].Net.Equal(dec("850")) {
		t.Fatalf("unexpected settled reversals: %+v", w.settledReversals)
	}
	if len(w.pendingReversals) != 1 || !w.pendingReversals[0].Net.Equal(dec("400")) {
		t.Fatalf("unexpected pending reversals: %+v", w.pendingReversals)
	}
	if w.pendingReversals[0].Type != enums.WalletTxnRefundDebit {
		t.Fatalf("admin pending reversal type = %s, want refund_debit", w.pendingReversals[0].Type)
	}
}

func TestCancel_Guards(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name     string
		order    func() *models.Order
		userID   uuid.UUID
		wantCode pkgerrors.Code
	}{
		{
			name:     "other user's order",
			order:    func() *models.Order { return paidOrder(owner, enums.OrderStatusPending) },
			userID:   uuid.New(),
			wantCode: pkgerrors.CodeForbidden,
		},
		{
			name:     "already shipped",
			order:    func() *models.Order { return paidOrder(owner, enums.OrderStatusShipped) },
			userID:   owner,
			wantCode: pkgerrors.CodeStateConflict,
		},
		{
			name:     "already delivered",
			order:    func() *models.Order { return paidOrder(owner, enums.OrderStatusDelivered) },
			userID:   owner,
			wantCode: pkgerrors.CodeStateConflict,
		},
		{
			name: "already refunded",
			order: func() *models.Order {
				o := paidOrder(owner, enums.OrderStatusProcessing)
				o.Refunded = true
				return o
			},
			userID:   owner,
			wantCode: pkgerrors.CodeConflict,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order := tc.order()
			repo := &fakeRepository{order: order}
			w := &fakeWallet{}
			svc := newTestService(t, repo, &fakeOutbox{}, w, nil, nil)

			_, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: tc.userID})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.wantCode {
				t.Fatalf("expected %s, got %v", tc.wantCode, err)
			}
			if len(repo.refundLogs) != 0 || len(w.pendingReversals) != 0 {
				t.Fatal("rejected cancel must not mutate anything")
			}
		})
	}
}

func TestForceRefund_ClosedOrderRejected(t *testing.T) {
	order := paidOrder(uuid.New(), enums.OrderStatusCancelled)
	svc := newTestService(t, &fakeRepository{order: order}, &fakeOutbox{}, &fakeWallet{}, nil, nil)

	_, err := svc.ForceRefund(context.Background(), ForceRefundInput{OrderID: order.ID, AdminID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancel_DuplicateRefundLogMapsToConflict(t *testing.T) {
	userID := uuid.New()
	order := paidOrder(userID, enums.OrderStatusProcessing)
	repo := &fakeRepository{
		order:        order,
		refundLogErr: errors.New(`duplicate key value violates unique constraint "refund_logs_order_id_key"`),
	}
	w := &fakeWallet{}
	svc := newTestService(t, repo, &fakeOutbox{}, w, nil, nil)

	_, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: userID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(w.pendingReversals) != 0 {
		t.Fatal("duplicate refund must not reverse wallet balances again")
	}
}

func TestCancel_UnpaidOrderMovesNoMoney(t *testing.T) {
	userID := uuid.New()
	order := paidOrder(userID, enums.OrderStatusPending)
	order.IsPaid = false
	vo := pendingVendorOrder(order.ID)
	repo := &fakeRepository{order: order, vendorOrders: []models.VendorOrder{vo}}
	w := &fakeWallet{}
	svc := newTestService(t, repo, &fakeOutbox{}, w, nil, nil)

	result, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: userID})
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if !result.Amount.IsZero() {
		t.Fatalf("refund amount = %s, want 0", result.Amount)
	}
	if len(repo.userCredits) != 0 {
		t.Fatalf("unpaid cancel must not credit the user: %+v", repo.userCredits)
	}
	// The vendor's staged earnings still unwind.
	if len(w.pendingReversals) != 1 {
		t.Fatalf("expected 1 pending reversal, got %d", len(w.pendingReversals))
	}
	if result.Outcome != enums.RefundOutcomePending {
		t.Fatalf("outcome = %s, want pending", result.Outcome)
	}
}

func TestCancel_GatewayRefundPreferredForOnlinePayments(t *testing.T) {
	userID := uuid.New()
	paymentID := "pay_123"
	order := paidOrder(userID, enums.OrderStatusProcessing)
	order.PaymentMethod = enums.PaymentMethodOnline
	order.PaymentID = &paymentID
	repo := &fakeRepository{order: order, vendorOrders: []models.VendorOrder{pendingVendorOrder(order.ID)}}
	pg := &fakeGateway{result: &gateway.RefundResult{RefundID: "rfnd_9", Status: "COMPLETED"}}
	svc := newTestService(t, repo, &fakeOutbox{}, &fakeWallet{}, pg, nil)

	result, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: userID})
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if result.Outcome != enums.RefundOutcomeGatewayRefunded {
		t.Fatalf("outcome = %s, want gateway_refunded", result.Outcome)
	}
	if pg.calls != 1 {
		t.Fatalf("gateway calls = %d, want 1", pg.calls)
	}
	if len(repo.userCredits) != 0 {
		t.Fatal("gateway success must not also credit the wallet")
	}
}

func TestCancel_GatewayFailureFallsBackToWalletCredit(t *testing.T) {
	userID := uuid.New()
	paymentID := "pay_123"
	order := paidOrder(userID, enums.OrderStatusProcessing)
	order.PaymentMethod = enums.PaymentMethodOnline
	order.PaymentID = &paymentID
	repo := &fakeRepository{order: order, vendorOrders: []models.VendorOrder{pendingVendorOrder(order.ID)}}
	pg := &fakeGateway{err: errors.New("gateway unavailable")}
	svc := newTestService(t, repo, &fakeOutbox{}, &fakeWallet{}, pg, nil)

	result, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: userID})
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if result.Outcome != enums.RefundOutcomeWalletCredited {
		t.Fatalf("outcome = %s, want wallet_credited", result.Outcome)
	}
	if len(repo.userCredits) != 1 || !repo.userCredits[0].Equal(dec("1180")) {
		t.Fatalf("wallet fallback did not credit the user: %+v", repo.userCredits)
	}
}

func TestCancel_SkipsAlreadyClosedVendorOrders(t *testing.T) {
	userID := uuid.New()
	order := paidOrder(userID, enums.OrderStatusProcessing)
	open := pendingVendorOrder(order.ID)
	closed := pendingVendorOrder(order.ID)
	closed.Status = enums.VendorOrderStatusCancelled
	repo := &fakeRepository{order: order, vendorOrders: []models.VendorOrder{open, closed}}
	w := &fakeWallet{}
	svc := newTestService(t, repo, &fakeOutbox{}, w, nil, nil)

	if _, err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: userID}); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if len(w.pendingReversals) != 1 || w.pendingReversals[0].VendorID != open.VendorID {
		t.Fatalf("closed vendor order must not be reversed again: %+v", w.pendingReversals)
	}
}
