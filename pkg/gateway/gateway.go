package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway abstracts the payment provider used for online checkout and
// refunds. Amounts cross this boundary in rupees; implementations convert to
// the provider's minor units.
type Gateway interface {
	// CreateOrder registers a payment intent with the provider and returns
	// the provider's order id for the client-side payment flow.
	CreateOrder(ctx context.Context, params OrderCreateParams) (string, error)

	// VerifySignature checks the signature returned by the client-side
	// payment flow against the provider secret.
	VerifySignature(orderID, paymentID, signature string) bool

	// Refund pushes money back to the original payment instrument.
	Refund(ctx context.Context, params RefundParams) (*RefundResult, error)
}

// OrderCreateParams describes the payment intent for one checkout.
type OrderCreateParams struct {
	Amount         decimal.Decimal
	Currency       string
	ReceiptID      string
	IdempotencyKey string
}

// RefundParams describes one refund against a captured payment.
type RefundParams struct {
	PaymentID      string
	Amount         decimal.Decimal
	Currency       string
	Reason         string
	IdempotencyKey string
}

// RefundResult reports the provider-side refund reference.
type RefundResult struct {
	RefundID string
	Status   string
}

// toMinorUnits converts a decimal rupee amount to integer paise.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
