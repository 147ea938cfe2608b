package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adityaverma/bazaarkart-backend/api/responses"
	ordersvc "github.com/adityaverma/bazaarkart-backend/internal/orders"
	walletsvc "github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/db/models"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
)

// VendorOrderList returns the vendor's sub-orders, newest first.
func VendorOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, offset, err := pagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendorOrders, err := svc.ListForVendor(r.Context(), vendorID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]vendorOrderResponse, 0, len(vendorOrders))
		for _, vo := range vendorOrders {
			out = append(out, newVendorOrderResponse(vo))
		}
		responses.WriteSuccess(w, map[string]any{"vendor_orders": out, "limit": limit, "offset": offset})
	}
}

// VendorWalletSummary returns the vendor's balances and lifetime totals.
func VendorWalletSummary(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Summary(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletSummaryResponse(vendor))
	}
}

// VendorWalletTransactions returns a page of the vendor's ledger entries,
// newest first.
func VendorWalletTransactions(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, offset, err := pagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.Transactions(r.Context(), vendorID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]walletTxnResponse, 0, len(txns))
		for _, txn := range txns {
			out = append(out, newWalletTxnResponse(txn))
		}
		responses.WriteSuccess(w, map[string]any{"transactions": out, "limit": limit, "offset": offset})
	}
}

type walletSummaryResponse struct {
	VendorID  uuid.UUID `json:"vendor_id"`
	StoreName string    `json:"store_name"`
	Plan      string    `json:"subscription_plan"`

	WalletBalance        string `json:"wallet_balance"`
	WalletPendingBalance string `json:"wallet_pending_balance"`
	TotalEarnings        string `json:"total_earnings"`
	TotalCommissionPaid  string `json:"total_commission_paid"`
	TotalPayouts         string `json:"total_payouts"`

	TotalOrders     int `json:"total_orders"`
	PendingOrders   int `json:"pending_orders"`
	CompletedOrders int `json:"completed_orders"`
}

type walletTxnResponse struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Amount       string     `json:"amount"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	BalanceAfter string     `json:"balance_after"`
	Note         *string    `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func newWalletSummaryResponse(vendor *models.Vendor) walletSummaryResponse {
	if vendor == nil {
		return walletSummaryResponse{}
	}
	return walletSummaryResponse{
		VendorID:             vendor.ID,
		StoreName:            vendor.StoreName,
		Plan:                 string(vendor.SubscriptionPlan),
		WalletBalance:        vendor.WalletBalance.StringFixed(2),
		WalletPendingBalance: vendor.WalletPendingBalance.StringFixed(2),
		TotalEarnings:        vendor.TotalEarnings.StringFixed(2),
		TotalCommissionPaid:  vendor.TotalCommissionPaid.StringFixed(2),
		TotalPayouts:         vendor.TotalPayouts.StringFixed(2),
		TotalOrders:          vendor.TotalOrders,
		PendingOrders:        vendor.PendingOrders,
		CompletedOrders:      vendor.CompletedOrders,
	}
}

func newWalletTxnResponse(txn models.WalletTransaction) walletTxnResponse {
	return walletTxnResponse{
		ID:           txn.ID,
		Type:         string(txn.Type),
		Amount:       txn.Amount.StringFixed(2),
		OrderID:      txn.OrderID,
		BalanceAfter: txn.BalanceAfter.StringFixed(2),
		Note:         txn.Note,
		CreatedAt:    txn.CreatedAt,
	}
}
