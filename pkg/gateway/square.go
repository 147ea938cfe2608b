package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/adityaverma/bazaarkart-backend/pkg/config"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	defaultCurrency = "INR"
)

var (
	errAccessTokenRequired   = errors.New("gateway access token is required")
	errWebhookSecretRequired = errors.New("gateway webhook secret is required")
	errLocationIDRequired    = errors.New("gateway location id is required")
	errInvalidGatewayEnv     = fmt.Errorf("gateway environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired        = errors.New("gateway logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// SquareGateway exposes Square primitives with centralized auth, logging,
// idempotency, and error mapping.
type SquareGateway struct {
	sdk           *sqclient.Client
	accessToken   string
	environment   string
	locationID    string
	webhookSecret string
	baseURL       string
	logger        *logger.Logger
}

var _ Gateway = (*SquareGateway)(nil)

// NewSquareGateway initializes the Square wrapper and validates the credentials.
func NewSquareGateway(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*SquareGateway, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationIDRequired
	}

	baseURL := baseURLs[env]
	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	g := &SquareGateway{
		sdk:           sdk,
		accessToken:   accessToken,
		environment:   env,
		locationID:    locationID,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		logger:        logg,
	}

	logg.Info(ctx, "payment gateway initialized")
	return g, nil
}

// Environment reports the normalized gateway environment.
func (g *SquareGateway) Environment() string {
	if g == nil {
		return ""
	}
	return g.environment
}

// NewIdempotencyKey returns a unique key for gateway operations.
func (g *SquareGateway) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "bk"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// CreateOrder registers the checkout amount with Square and returns the
// provider order id the client pays against.
func (g *SquareGateway) CreateOrder(ctx context.Context, params OrderCreateParams) (string, error) {
	key := g.ensureIdempotencyKey("order.create", params.IdempotencyKey)
	g.log(ctx, "request", "create_order", map[string]any{
		"receipt_id": params.ReceiptID,
		"amount":     params.Amount.String(),
	})

	order := &sq.Order{
		LocationID: g.locationID,
	}
	if trimmed := strings.TrimSpace(params.ReceiptID); trimmed != "" {
		order.ReferenceID = ptrString(trimmed)
	}
	order.LineItems = []*sq.OrderLineItem{
		{
			Name:           ptrString("order total"),
			Quantity:       "1",
			BasePriceMoney: moneyPtr(toMinorUnits(params.Amount), params.Currency),
			ItemType:       orderLineItemTypePtr(sq.OrderLineItemItemTypeCustomAmount),
		},
	}

	resp, err := g.sdk.Orders.Create(ctx, &sq.CreateOrderRequest{
		IdempotencyKey: ptrString(key),
		Order:          order,
	})
	if err != nil {
		g.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return "", g.mapSquareError(err, "create order")
	}

	created := resp.GetOrder()
	orderID := stringValue(created.GetID())
	g.log(ctx, "response", "create_order", map[string]any{"order_id": orderID})
	return orderID, nil
}

// VerifySignature checks the HMAC the client echoes back after paying.
// The signature covers "<orderID>|<paymentID>" with the webhook secret.
func (g *SquareGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if g == nil || g.webhookSecret == "" {
		return false
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// Refund pushes money back to the captured payment.
func (g *SquareGateway) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	key := g.ensureIdempotencyKey("refund.create", params.IdempotencyKey)
	g.log(ctx, "request", "refund_payment", map[string]any{
		"payment_id": params.PaymentID,
		"amount":     params.Amount.String(),
	})

	req := &sq.RefundPaymentRequest{
		IdempotencyKey: key,
		AmountMoney:    moneyPtr(toMinorUnits(params.Amount), params.Currency),
		PaymentID:      ptrString(params.PaymentID),
	}
	if trimmed := strings.TrimSpace(params.Reason); trimmed != "" {
		req.Reason = ptrString(trimmed)
	}

	resp, err := g.sdk.Refunds.RefundPayment(ctx, req)
	if err != nil {
		g.log(ctx, "error", "refund_payment", map[string]any{"error": err.Error()})
		return nil, g.mapSquareError(err, "refund payment")
	}

	result := refundResultFrom(resp.GetRefund())
	g.log(ctx, "response", "refund_payment", map[string]any{
		"refund_id": result.RefundID,
		"status":    result.Status,
	})
	return result, nil
}

// refundResultFrom maps the provider refund onto the gateway result. The
// SDK returns the refund id as a plain string and the status as a pointer.
func refundResultFrom(refund *sq.PaymentRefund) *RefundResult {
	return &RefundResult{
		RefundID: refund.GetID(),
		Status:   stringValue(refund.GetStatus()),
	}
}

func (g *SquareGateway) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return g.NewIdempotencyKey(prefix)
}

func (g *SquareGateway) log(ctx context.Context, phase, op string, fields map[string]any) {
	if g == nil || g.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = g.redact(k, v)
	}
	ctx = g.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		g.logger.Error(ctx, fmt.Sprintf("gateway %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		g.logger.Info(ctx, fmt.Sprintf("gateway %s", phase))
	}
}

func (g *SquareGateway) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone", "signature"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (g *SquareGateway) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		code := domainCodeForStatus(apiErr.StatusCode)
		for _, sqErr := range g.extractSquareErrors(apiErr) {
			if sqErr == nil {
				continue
			}
			if sqErr.Code == sq.ErrorCodeIdempotencyKeyReused {
				code = pkgerrors.CodeConflict
				break
			}
			if sqErr.Category == sq.ErrorCategoryAuthenticationError {
				code = pkgerrors.CodeUnauthorized
				break
			}
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("gateway %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("gateway %s failed", op))
}

func (g *SquareGateway) extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = defaultCurrency
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}

func orderLineItemTypePtr(t sq.OrderLineItemItemType) *sq.OrderLineItemItemType {
	return &t
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	}
	return "", errInvalidGatewayEnv
}
