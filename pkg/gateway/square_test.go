package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
)

func TestRefundResultFrom(t *testing.T) {
	result := refundResultFrom(&sq.PaymentRefund{
		ID:     "ref_123",
		Status: ptrString("COMPLETED"),
	})
	if result.RefundID != "ref_123" {
		t.Fatalf("refund id = %q, want ref_123", result.RefundID)
	}
	if result.Status != "COMPLETED" {
		t.Fatalf("status = %q, want COMPLETED", result.Status)
	}

	// Status may be absent on a provider response.
	bare := refundResultFrom(&sq.PaymentRefund{ID: "ref_456"})
	if bare.RefundID != "ref_456" || bare.Status != "" {
		t.Fatalf("unexpected result for bare refund: %+v", bare)
	}
}

func TestEnsureIdempotencyKey(t *testing.T) {
	g := &SquareGateway{}
	// Provided key should be used verbatim.
	if got := g.ensureIdempotencyKey("pref", "custom-key"); got != "custom-key" {
		t.Fatalf("expected provided key, got %q", got)
	}
	// Empty key should be generated and include prefix.
	if got := g.ensureIdempotencyKey("prefix", ""); !strings.HasPrefix(got, "prefix-") {
		t.Fatalf("generated idempotency key %q missing prefix", got)
	}
}

func TestRedact(t *testing.T) {
	g := &SquareGateway{}
	out := g.redact("payment_token", "abc123")
	if out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	if out := g.redact("payment_signature", "abc123"); out != "[REDACTED]" {
		t.Fatalf("expected signature redacted, got %v", out)
	}
	// Non-sensitive keys should be preserved.
	if v := g.redact("status", "ok"); v != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeStateConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeValidation},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestMapSquareError(t *testing.T) {
	g := &SquareGateway{}
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			payload:  `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			wantCode: pkgerrors.CodeUnauthorized,
		},
		{
			name:     "idempotency key reused",
			status:   http.StatusConflict,
			payload:  `{"errors":[{"category":"API_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`,
			wantCode: pkgerrors.CodeConflict,
		},
	}
	for _, tt := range table {
		err := sqcore.NewAPIError(tt.status, errors.New(tt.payload))
		mapped := g.mapSquareError(err, "operation")
		if mapped == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		typed := pkgerrors.As(mapped)
		if typed == nil {
			t.Fatalf("%s: result is not pkgerror", tt.name)
		}
		if typed.Code() != tt.wantCode {
			t.Fatalf("%s: expected code %s, got %s", tt.name, tt.wantCode, typed.Code())
		}
	}
}

func TestExtractSquareErrors(t *testing.T) {
	g := &SquareGateway{}
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	apiErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload))
	got := g.extractSquareErrors(apiErr)
	if len(got) != 1 {
		t.Fatalf("expected 1 error, got %d", len(got))
	}
	if got[0].GetCode() != sq.ErrorCodeBadRequest {
		t.Fatalf("unexpected error code %s", got[0].GetCode())
	}
}

func TestVerifySignature(t *testing.T) {
	g := &SquareGateway{webhookSecret: "topsecret"}

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte("order-1|pay-1"))
	valid := hex.EncodeToString(mac.Sum(nil))

	if !g.VerifySignature("order-1", "pay-1", valid) {
		t.Fatal("expected valid signature to verify")
	}
	if g.VerifySignature("order-1", "pay-1", "deadbeef") {
		t.Fatal("expected forged signature to fail")
	}
	if g.VerifySignature("order-2", "pay-1", valid) {
		t.Fatal("expected signature for other order to fail")
	}
	if g.VerifySignature("", "pay-1", valid) {
		t.Fatal("expected empty order id to fail")
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"1", 100},
		{"499.99", 49999},
		{"0.005", 1},
	}
	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := toMinorUnits(amount); got != tc.want {
			t.Fatalf("toMinorUnits(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
