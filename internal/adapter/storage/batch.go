package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

// ErrInvalidState is returned when a status change is requested from a state
// that does not allow it (e.g. rejecting a batch already processing).
var ErrInvalidState = errors.New("batch is not in a state that allows this action")

type BatchRepository struct {
	db *pgxpool.Pool
}

func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `id, name, status, approved, payments_count, payments_total, created_at, updated_at`

func scanBatch(row pgx.Row) (*domain.Batch, error) {
	var b domain.Batch
	err := row.Scan(&b.ID, &b.Name, &b.Status, &b.Approved, &b.PaymentsCount, &b.PaymentsTotal, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new batch in status uploaded together with its payments,
// in one transaction. A failed payment insert rolls the batch back too, so
// the worker never sees an empty batch.
func (r *BatchRepository) Create(ctx context.Context, name string, payments []domain.Payment) (*domain.Batch, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO batches (name)
		VALUES ($1)
		RETURNING ` + batchColumns
	b, err := scanBatch(tx.QueryRow(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	if err := insertPayments(ctx, tx, b.ID, payments); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BatchRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	b, err := scanBatch(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// List returns all batches, newest first.
func (r *BatchRepository) List(ctx context.Context) ([]domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

// NextUploaded returns the earliest-created batch awaiting preprocessing, or
// nil when there is none. Batches claimed into preprocessing by a pass that
// aborted or crashed match too, so the next sweep resumes them; the resolver's
// lookup-before-create makes the re-run safe.
func (r *BatchRepository) NextUploaded(ctx context.Context) (*domain.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM batches
		WHERE status IN ('uploaded', 'preprocessing')
		ORDER BY created_at ASC
		LIMIT 1`
	b, err := scanBatch(r.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NextApproved returns the earliest-created approved batch awaiting transfer,
// or nil when there is none. Batches stranded in processing by a crashed pass
// match too; the pending-only transfer filter keeps completed payments from
// being resubmitted on the re-run.
func (r *BatchRepository) NextApproved(ctx context.Context) (*domain.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM batches
		WHERE approved = TRUE AND status IN ('pending', 'processing')
		ORDER BY created_at ASC
		LIMIT 1`
	b, err := scanBatch(r.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BatchRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.BatchStatus) error {
	query := `UPDATE batches SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, string(status)); err != nil {
		return fmt.Errorf("failed to set batch status: %w", err)
	}
	return nil
}

// FinishPreprocessing stores the aggregates and flips the batch to pending in
// a single write, so a crash can never leave the aggregates half-applied.
func (r *BatchRepository) FinishPreprocessing(ctx context.Context, id uuid.UUID, count int, total int64) error {
	query := `
		UPDATE batches
		SET status = 'pending', payments_count = $2, payments_total = $3, updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, count, total); err != nil {
		return fmt.Errorf("failed to finish preprocessing: %w", err)
	}
	return nil
}

// Approve flags the batch for processing. Allowed any time before the batch
// is discarded or done; the worker picks it up once it reaches pending.
func (r *BatchRepository) Approve(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE batches SET approved = TRUE, updated_at = NOW()
		WHERE id = $1 AND status IN ('uploaded', 'preprocessing', 'pending')`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to approve batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// Reject discards the batch. Only batches not yet claimed for their next
// phase can be rejected; a discarded batch is never selected again.
func (r *BatchRepository) Reject(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE batches SET status = 'discarded', updated_at = NOW()
		WHERE id = $1 AND status IN ('uploaded', 'pending')`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reject batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}
