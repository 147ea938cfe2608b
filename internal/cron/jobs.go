package cron

import (
	"context"
	"fmt"

	"github.com/adityaverma/bazaarkart-backend/internal/reconcile"
)

// PendingBalanceJob reconciles stored vendor pending balances against the
// sums derivable from open sub-orders.
type PendingBalanceJob struct {
	reconciler reconcile.Service
}

// NewPendingBalanceJob wires the pending-balance reconciliation job.
func NewPendingBalanceJob(reconciler reconcile.Service) (*PendingBalanceJob, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	return &PendingBalanceJob{reconciler: reconciler}, nil
}

func (j *PendingBalanceJob) Name() string { return "wallet-pending-reconcile" }

func (j *PendingBalanceJob) Run(ctx context.Context) error {
	return j.reconciler.ReconcilePendingBalances(ctx)
}

// RefundBackfillJob applies wallet reversals that completed returns are
// missing.
type RefundBackfillJob struct {
	reconciler reconcile.Service
}

// NewRefundBackfillJob wires the refund backfill job.
func NewRefundBackfillJob(reconciler reconcile.Service) (*RefundBackfillJob, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	return &RefundBackfillJob{reconciler: reconciler}, nil
}

func (j *RefundBackfillJob) Name() string { return "refund-debit-backfill" }

func (j *RefundBackfillJob) Run(ctx context.Context) error {
	return j.reconciler.BackfillMissingRefunds(ctx)
}

// FanOutRepairJob recreates vendor sub-orders that checkout failed to write.
type FanOutRepairJob struct {
	reconciler reconcile.Service
}

// NewFanOutRepairJob wires the fan-out repair job.
func NewFanOutRepairJob(reconciler reconcile.Service) (*FanOutRepairJob, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	return &FanOutRepairJob{reconciler: reconciler}, nil
}

func (j *FanOutRepairJob) Name() string { return "fan-out-repair" }

func (j *FanOutRepairJob) Run(ctx context.Context) error {
	return j.reconciler.RepairFanOuts(ctx)
}

// RefundLogRetentionJob purges refund audit rows past their retention window.
type RefundLogRetentionJob struct {
	reconciler reconcile.Service
}

// NewRefundLogRetentionJob wires the refund-log retention job.
func NewRefundLogRetentionJob(reconciler reconcile.Service) (*RefundLogRetentionJob, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	return &RefundLogRetentionJob{reconciler: reconciler}, nil
}

func (j *RefundLogRetentionJob) Name() string { return "refund-log-retention" }

func (j *RefundLogRetentionJob) Run(ctx context.Context) error {
	return j.reconciler.PurgeExpiredRefundLogs(ctx)
}
