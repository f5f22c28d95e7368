package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
	"github.com/ibrahimkeyboad/payrun/internal/core/method"
)

const transferDescription = "Loan Pmt"

// process submits a transfer for every payment still pending in the batch.
// Payments already complete are never selected, so they are never resubmitted.
// When the loop finishes the batch flips to complete regardless of how many
// individual payments failed.
func (w *Worker) process(ctx context.Context, batch *domain.Batch) error {
	payments, err := w.payments.ListPendingByBatch(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("list pending payments for batch %s: %w", batch.ID, err)
	}

	for i := range payments {
		p := &payments[i]
		methodPaymentID, err := w.provider.CreatePayment(ctx, method.PaymentRequest{
			Amount:      p.Amount,
			Source:      p.PayorAccountID,
			Destination: p.PayeeAccountID,
			Description: transferDescription,
		})
		if err != nil {
			slog.Warn("Payment transfer failed", "batch_id", batch.ID, "payment_id", p.ID, "error", err)
			if err := w.payments.MarkFailed(ctx, p.ID, err.Error()); err != nil {
				return fmt.Errorf("mark payment %s failed: %w", p.ID, err)
			}
			continue
		}
		if err := w.payments.MarkComplete(ctx, p.ID, methodPaymentID); err != nil {
			return fmt.Errorf("mark payment %s complete: %w", p.ID, err)
		}
		slog.Info("Payment created", "payment_id", p.ID, "method_payment_id", methodPaymentID)
	}

	if err := w.batches.SetStatus(ctx, batch.ID, domain.BatchStatusComplete); err != nil {
		return fmt.Errorf("complete batch %s: %w", batch.ID, err)
	}
	slog.Info("✅ Batch processed", "batch_id", batch.ID)
	w.notifyComplete(batch)
	return nil
}
