package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityaverma/bazaarkart-backend/api/responses"
	"github.com/adityaverma/bazaarkart-backend/api/validators"
	checkoutsvc "github.com/adityaverma/bazaarkart-backend/internal/checkout"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/types"
)

const idempotencyKeyHeader = "Idempotency-Key"

// Checkout handles order submission and per-vendor fan-out.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").WithDetails(map[string]any{"payment_method": payload.PaymentMethod}))
			return
		}

		items := make([]checkoutsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.ItemInput{
				ProductID: item.ProductID,
				VendorID:  item.VendorID,
				Name:      item.Name,
				Price:     item.Price,
				Qty:       item.Qty,
				Image:     item.Image,
			})
		}

		result, err := svc.Checkout(r.Context(), checkoutsvc.Input{
			UserID:          userID,
			Items:           items,
			ShippingAddress: payload.ShippingAddress,
			PaymentMethod:   method,
			ShippingPrice:   payload.ShippingPrice,
			CouponCode:      payload.CouponCode,
			ClaimGST:        payload.ClaimGST,
			BuyerGSTIN:      payload.BuyerGSTIN,
			IdempotencyKey:  r.Header.Get(idempotencyKeyHeader),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address         `json:"shipping_address" validate:"required"`
	PaymentMethod   string                `json:"payment_method" validate:"required"`
	ShippingPrice   decimal.Decimal       `json:"shipping_price"`
	CouponCode      *string               `json:"coupon_code,omitempty"`
	ClaimGST        bool                  `json:"claim_gst"`
	BuyerGSTIN      *string               `json:"buyer_gstin,omitempty"`
}

type checkoutItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	VendorID  *uuid.UUID      `json:"vendor_id,omitempty"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"required"`
	Qty       int             `json:"qty" validate:"required,min=1"`
	Image     *string         `json:"image,omitempty"`
}

type checkoutResponse struct {
	Order         orderResponse         `json:"order"`
	VendorOrders  []vendorOrderResponse `json:"vendor_orders"`
	FailedVendors []uuid.UUID           `json:"failed_vendors,omitempty"`
}

func newCheckoutResponse(result *checkoutsvc.Result) checkoutResponse {
	if result == nil {
		return checkoutResponse{}
	}
	vendorOrders := make([]vendorOrderResponse, 0, len(result.VendorOrders))
	for _, vo := range result.VendorOrders {
		vendorOrders = append(vendorOrders, newVendorOrderResponse(vo))
	}
	return checkoutResponse{
		Order:         newOrderResponse(result.Order),
		VendorOrders:  vendorOrders,
		FailedVendors: result.FailedVendors,
	}
}
