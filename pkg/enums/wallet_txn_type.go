package enums

import "fmt"

// WalletTxnType classifies entries in a vendor's append-only wallet ledger.
//
// Entries fall into two buckets: pending_credit and pending_cancelled move
// the pending balance; every other type moves (or annotates) the available
// balance. Commission entries never mutate the available balance, they only
// track the platform cut booked at settlement.
type WalletTxnType string

const (
	WalletTxnPendingCredit    WalletTxnType = "pending_credit"
	WalletTxnPendingCancelled WalletTxnType = "pending_cancelled"
	WalletTxnOrderEarning     WalletTxnType = "order_earning"
	WalletTxnCommission       WalletTxnType = "commission"
	WalletTxnRefundDebit      WalletTxnType = "refund_debit"
	WalletTxnAdminRefundDebit WalletTxnType = "admin_refund_debit"
	WalletTxnAuditFix         WalletTxnType = "audit_fix"
	WalletTxnPayout           WalletTxnType = "payout"
)

var validWalletTxnTypes = []WalletTxnType{
	WalletTxnPendingCredit,
	WalletTxnPendingCancelled,
	WalletTxnOrderEarning,
	WalletTxnCommission,
	WalletTxnRefundDebit,
	WalletTxnAdminRefundDebit,
	WalletTxnAuditFix,
	WalletTxnPayout,
}

// IsValid reports whether the value is a known WalletTxnType.
func (w WalletTxnType) IsValid() bool {
	for _, candidate := range validWalletTxnTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// AffectsPendingBalance reports whether entries of this type move the
// vendor's pending balance rather than the available balance.
func (w WalletTxnType) AffectsPendingBalance() bool {
	return w == WalletTxnPendingCredit || w == WalletTxnPendingCancelled
}

// IsRefundDebit reports whether the type records a reversal of vendor
// earnings caused by a refund.
func (w WalletTxnType) IsRefundDebit() bool {
	return w == WalletTxnRefundDebit || w == WalletTxnAdminRefundDebit || w == WalletTxnPendingCancelled
}

// ParseWalletTxnType converts raw input into a WalletTxnType.
func ParseWalletTxnType(value string) (WalletTxnType, error) {
	for _, candidate := range validWalletTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
