package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

// preprocess provisions every payment in the batch exactly once, in insertion
// order. A payment's failure marks that payment failed and moves on; only a
// record-store failure aborts the pass. When the loop finishes, the batch's
// aggregates are computed from the payments that provisioned successfully and
// the batch flips to pending.
func (w *Worker) preprocess(ctx context.Context, batch *domain.Batch) error {
	payments, err := w.payments.ListByBatch(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("list payments for batch %s: %w", batch.ID, err)
	}

	count := 0
	var total int64
	for i := range payments {
		p := &payments[i]
		if err := w.provision(ctx, p); err != nil {
			if isStoreErr(err) {
				return err
			}
			slog.Warn("Payment provisioning failed", "batch_id", batch.ID, "payment_id", p.ID, "error", err)
			if err := w.payments.MarkFailed(ctx, p.ID, err.Error()); err != nil {
				return fmt.Errorf("mark payment %s failed: %w", p.ID, err)
			}
			continue
		}
		if err := w.payments.MarkProvisioned(ctx, p); err != nil {
			return fmt.Errorf("mark payment %s provisioned: %w", p.ID, err)
		}
		count++
		total += p.Amount
	}

	if err := w.batches.FinishPreprocessing(ctx, batch.ID, count, total); err != nil {
		return fmt.Errorf("finish preprocessing batch %s: %w", batch.ID, err)
	}
	slog.Info("✅ Batch preprocessed", "batch_id", batch.ID, "payments_count", count, "payments_total", total)

	// Approval may have landed while this pass ran. Re-trigger so the
	// transfer phase doesn't wait out the next tick.
	fresh, err := w.batches.Get(ctx, batch.ID)
	if err != nil {
		return err
	}
	if fresh != nil && fresh.Approved {
		slog.Info("Batch approved during preprocessing, re-triggering worker", "batch_id", batch.ID)
		w.Trigger()
	}
	return nil
}

// provision runs the five resolution steps for one payment and writes the
// resolved Method ids onto it.
func (w *Worker) provision(ctx context.Context, p *domain.Payment) error {
	employee, err := w.resolver.EmployeeEntity(ctx, p.Employee)
	if err != nil {
		return err
	}

	payor, err := w.resolver.PayorEntity(ctx, p.Payor)
	if err != nil {
		return err
	}

	payorAccount, err := w.resolver.PayorACHAccount(ctx, payor, p.Payor)
	if err != nil {
		return err
	}

	merchantID, err := w.provider.FindMerchant(ctx, p.Payee.PlaidID)
	if err != nil {
		return err
	}

	payeeAccount, err := w.resolver.PayeeLiabilityAccount(ctx, employee, merchantID, p.Payee)
	if err != nil {
		return err
	}

	p.PayorEntityID = payor.MethodEntityID
	p.PayorAccountID = payorAccount.MethodAccountID
	p.PayeeEntityID = employee.MethodEntityID
	p.PayeeAccountID = payeeAccount.MethodAccountID
	return nil
}
