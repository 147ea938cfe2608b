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

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OrderList returns the caller's orders, newest first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, offset, err := pagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListForUser(r.Context(), userID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": out, "limit": limit, "offset": offset})
	}
}

// OrderDetail returns a single order. Admins can read any order; users only
// their own.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), ordersvc.GetInput{
			OrderID: orderID,
			UserID:  userID,
			IsAdmin: middleware.RoleFromContext(r.Context()) == string(enums.ActorRoleAdmin),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderPay records the gateway payment callback for an online order.
func OrderPay(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload payOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Pay(r.Context(), ordersvc.PayInput{
			OrderID:   orderID,
			UserID:    userID,
			PaymentID: payload.PaymentID,
			Signature: payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// CancelOrder is the buyer's self-service cancellation, refund included.
func CancelOrder(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Cancel(r.Context(), refundsvc.CancelInput{
			OrderID: orderID,
			UserID:  userID,
			Reason:  payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(result))
	}
}

type payOrderRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type cancelOrderRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type refundResponse struct {
	Order        orderResponse `json:"order"`
	RefundAmount string        `json:"refund_amount"`
	Outcome      string        `json:"outcome"`
}

func newRefundResponse(result *refundsvc.Result) refundResponse {
	if result == nil {
		return refundResponse{}
	}
	return refundResponse{
		Order:        newOrderResponse(result.Order),
		RefundAmount: result.Amount.StringFixed(2),
		Outcome:      string(result.Outcome),
	}
}

func pagination(r *http.Request) (limit, offset int, err error) {
	limit, err = validators.ParseQueryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		return 0, 0, err
	}
	offset, err = validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
