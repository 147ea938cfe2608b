package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adityaverma/bazaarkart-backend/api/middleware"
	"github.com/adityaverma/bazaarkart-backend/api/responses"
	"github.com/adityaverma/bazaarkart-backend/api/validators"
	ordersvc "github.com/adityaverma/bazaarkart-backend/internal/orders"
	refundsvc "github.com/adityaverma/bazaarkart-backend/internal/refunds"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	pkgerrors "github.com/adityaverma/bazaarkart-backend/pkg/errors"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
)

// AdminUpdateOrderStatus advances an order along the fulfilment state
// machine. Cancellation and returns go through the refund endpoints instead.
func AdminUpdateOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": payload.Status}))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), ordersvc.UpdateStatusInput{
			OrderID:     orderID,
			Target:      target,
			ActorUserID: actorID,
			ActorRole:   middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminForceRefund refunds an order regardless of its fulfilment state.
// Delivered orders are converted to returns with settled earnings clawed
// back from vendor wallets.
func AdminForceRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}
		adminID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload forceRefundRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.ForceRefund(r.Context(), refundsvc.ForceRefundInput{
			OrderID: orderID,
			AdminID: adminID,
			Reason:  payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(result))
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type forceRefundRequest struct {
	Reason *string `json:"reason,omitempty"`
}
