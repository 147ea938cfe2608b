package metrics

import "github.com/prometheus/client_golang/prometheus"

// WalletMetrics counts ledger mutations and drift corrections per vendor
// wallet operation type.
type WalletMetrics struct {
	mutations   *prometheus.CounterVec
	corrections *prometheus.CounterVec
	refunds     *prometheus.CounterVec
}

// NewWalletMetrics registers the wallet metrics on the provided registerer.
func NewWalletMetrics(reg prometheus.Registerer) *WalletMetrics {
	if reg == nil {
		return &WalletMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_mutations_total",
		Help: "Vendor wallet mutations by transaction type.",
	}, []string{"type"})
	corrections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_audit_corrections_total",
		Help: "Reconciliation corrections applied to vendor wallets.",
	}, []string{"reason"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Refund executions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(mutations, corrections, refunds)
	return &WalletMetrics{
		mutations:   mutations,
		corrections: corrections,
		refunds:     refunds,
	}
}

// IncMutation counts one wallet mutation of the given transaction type.
func (w *WalletMetrics) IncMutation(txnType string) {
	if w == nil || w.mutations == nil {
		return
	}
	w.mutations.WithLabelValues(normalizeLabel(txnType)).Inc()
}

// IncCorrection counts one reconciliation correction.
func (w *WalletMetrics) IncCorrection(reason string) {
	if w == nil || w.corrections == nil {
		return
	}
	w.corrections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncRefund counts one refund by its delivery outcome.
func (w *WalletMetrics) IncRefund(outcome string) {
	if w == nil || w.refunds == nil {
		return
	}
	w.refunds.WithLabelValues(normalizeLabel(outcome)).Inc()
}
