package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
	"github.com/ibrahimkeyboad/payrun/internal/core/method"
	"github.com/ibrahimkeyboad/payrun/internal/core/notifications"
)

// Provider is the outbound surface of the payments provider. The concrete
// implementation is method.Client; tests swap in a fake.
type Provider interface {
	CreateEntity(ctx context.Context, req method.EntityRequest) (string, error)
	CreateAccount(ctx context.Context, req method.AccountRequest) (string, error)
	VerifyAccount(ctx context.Context, accountID string) error
	FindMerchant(ctx context.Context, plaidID string) (string, error)
	CreatePayment(ctx context.Context, req method.PaymentRequest) (string, error)
}

// Store interfaces are defined here, on the consumer side. Lookups return
// (nil, nil) when no record matches.

type BatchStore interface {
	// NextUploaded returns the earliest-created batch awaiting preprocessing,
	// including one reclaimed from an aborted pass.
	NextUploaded(ctx context.Context) (*domain.Batch, error)
	// NextApproved returns the earliest-created approved batch awaiting
	// transfer, including one reclaimed from an aborted pass.
	NextApproved(ctx context.Context) (*domain.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.BatchStatus) error
	// FinishPreprocessing stores the aggregates and flips the batch to pending
	// in one write.
	FinishPreprocessing(ctx context.Context, id uuid.UUID, count int, total int64) error
}

type PaymentStore interface {
	// ListByBatch returns the batch's payments in insertion order.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Payment, error)
	// ListPendingByBatch returns only payments still in status pending.
	ListPendingByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Payment, error)
	// MarkProvisioned writes the resolved Method ids and sets status pending.
	MarkProvisioned(ctx context.Context, p *domain.Payment) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkComplete(ctx context.Context, id uuid.UUID, methodPaymentID string) error
}

type EntityStore interface {
	FindByDunkinID(ctx context.Context, dunkinID string) (*domain.Entity, error)
	// Upsert inserts the entity if its DunkinID is unseen and returns the
	// surviving row either way.
	Upsert(ctx context.Context, e domain.Entity) (*domain.Entity, error)
}

type AccountStore interface {
	FindACH(ctx context.Context, holderID uuid.UUID, routing, number string) (*domain.Account, error)
	FindLiability(ctx context.Context, holderID uuid.UUID, accountNumber string) (*domain.Account, error)
	// Upsert inserts the account if its identifying fields are unseen under
	// the holder and returns the surviving row either way.
	Upsert(ctx context.Context, a domain.Account) (*domain.Account, error)
}

// Worker drives batches through the state machine. One pass advances at most
// one batch; passes never overlap.
type Worker struct {
	batches  BatchStore
	payments PaymentStore
	provider Provider
	resolver *Resolver

	// Interval is the fallback sweep period. Defaults to 60s.
	Interval time.Duration
	// WebhookURL receives a batch.completed event when set. WebhookSecret
	// signs the payload when set.
	WebhookURL    string
	WebhookSecret string

	mu   sync.Mutex // serializes passes
	kick chan struct{}
}

func New(provider Provider, batches BatchStore, payments PaymentStore, entities EntityStore, accounts AccountStore) *Worker {
	return &Worker{
		batches:  batches,
		payments: payments,
		provider: provider,
		resolver: NewResolver(provider, entities, accounts),
		Interval: 60 * time.Second,
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the scheduler loop: one pass per interval tick or per
// Trigger, whichever comes first. The loop exits when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		slog.Info("👷 Payout worker started", "interval", w.Interval)
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("Payout worker stopped")
				return
			case <-ticker.C:
			case <-w.kick:
			}
			if err := w.RunOnce(ctx); err != nil {
				slog.Error("Worker pass failed", "error", err)
			}
		}
	}()
}

// Trigger requests a pass without waiting for the next tick. The signal slot
// holds one pending request; extra triggers while a pass runs coalesce.
func (w *Worker) Trigger() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// RunOnce selects at most one batch and advances it one state. Uploaded
// batches take precedence over approved pending ones. Safe to call from
// multiple goroutines; overlapping calls serialize.
func (w *Worker) RunOnce(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch, err := w.batches.NextUploaded(ctx)
	if err != nil {
		return err
	}
	if batch != nil {
		if err := w.batches.SetStatus(ctx, batch.ID, domain.BatchStatusPreprocessing); err != nil {
			return err
		}
		return w.preprocess(ctx, batch)
	}

	batch, err = w.batches.NextApproved(ctx)
	if err != nil {
		return err
	}
	if batch != nil {
		if err := w.batches.SetStatus(ctx, batch.ID, domain.BatchStatusProcessing); err != nil {
			return err
		}
		return w.process(ctx, batch)
	}

	slog.Debug("No batches to process")
	return nil
}

func (w *Worker) notifyComplete(batch *domain.Batch) {
	if w.WebhookURL == "" {
		return
	}
	payload := map[string]any{
		"event": "batch.completed",
		"data": map[string]any{
			"batch_id":       batch.ID,
			"name":           batch.Name,
			"payments_count": batch.PaymentsCount,
			"payments_total": batch.PaymentsTotal,
			"timestamp":      time.Now(),
		},
	}
	go func() {
		if err := notifications.SendWebhook(w.WebhookURL, payload, w.WebhookSecret); err != nil {
			slog.Error("❌ Batch webhook failed", "batch_id", batch.ID, "error", err)
		}
	}()
}
