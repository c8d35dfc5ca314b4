package jobs

import (
	"context"
	"fmt"

	"rentledger-backend/internal/timeutil"
)

// SweepOverduePayments flips pending payments past their due date to overdue
// and applies the configured late fee to those past the grace period
func (jr *JobRunner) SweepOverduePayments() {
	jr.runWithRecovery("overdue_sweep", func(ctx context.Context) error {
		if _, err := jr.payments.UpdateOverduePayments(ctx); err != nil {
			return fmt.Errorf("overdue sweep: %w", err)
		}

		lateFee := jr.cfg.Scheduler.LateFee
		if _, err := jr.payments.ApplyLateFees(ctx, lateFee.FlatAmount, lateFee.GraceDays); err != nil {
			return fmt.Errorf("late fees: %w", err)
		}
		return nil
	})
}

// GenerateMonthlyPayments creates the current month's rent obligations for
// every active tenant. Runs on the 1st; safe to rerun by hand.
func (jr *JobRunner) GenerateMonthlyPayments() {
	jr.runWithRecovery("monthly_generation", func(ctx context.Context) error {
		now := timeutil.Now()
		_, err := jr.payments.GenerateMonthlyRentPayments(ctx, now.Month(), now.Year())
		return err
	})
}

// ReconcileOnlinePayments settles rent payments whose checkout succeeded but
// whose webhook or verify callback never landed
func (jr *JobRunner) ReconcileOnlinePayments() {
	jr.runWithRecovery("reconcile_payments", func(ctx context.Context) error {
		_, err := jr.razorpay.ReconcilePayments(ctx)
		return err
	})
}
