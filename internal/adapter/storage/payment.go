package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, batch_id,
	employee_dunkin_id, employee_branch, employee_first_name, employee_last_name, employee_dob, employee_phone,
	payor_dunkin_id, payor_aba_routing, payor_account_number, payor_name, payor_dba, payor_ein,
	payor_address_line1, payor_address_city, payor_address_state, payor_address_zip,
	payee_plaid_id, payee_loan_account_number,
	amount, status, error,
	payor_entity_id, payor_account_id, payee_entity_id, payee_account_id, method_payment_id,
	created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.BatchID,
		&p.Employee.DunkinID, &p.Employee.Branch, &p.Employee.FirstName, &p.Employee.LastName, &p.Employee.DOB, &p.Employee.Phone,
		&p.Payor.DunkinID, &p.Payor.ABARouting, &p.Payor.AccountNumber, &p.Payor.Name, &p.Payor.DBA, &p.Payor.EIN,
		&p.Payor.Address.Line1, &p.Payor.Address.City, &p.Payor.Address.State, &p.Payor.Address.Zip,
		&p.Payee.PlaidID, &p.Payee.LoanAccountNumber,
		&p.Amount, &p.Status, &p.Error,
		&p.PayorEntityID, &p.PayorAccountID, &p.PayeeEntityID, &p.PayeeAccountID, &p.MethodPaymentID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// insertPayments writes a batch's payments in file order inside the caller's
// transaction. The seq column preserves insertion order for the worker's
// loops.
func insertPayments(ctx context.Context, tx pgx.Tx, batchID uuid.UUID, payments []domain.Payment) error {
	query := `
		INSERT INTO payments (
			batch_id,
			employee_dunkin_id, employee_branch, employee_first_name, employee_last_name, employee_dob, employee_phone,
			payor_dunkin_id, payor_aba_routing, payor_account_number, payor_name, payor_dba, payor_ein,
			payor_address_line1, payor_address_city, payor_address_state, payor_address_zip,
			payee_plaid_id, payee_loan_account_number,
			amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	for _, p := range payments {
		_, err := tx.Exec(ctx, query,
			batchID,
			p.Employee.DunkinID, p.Employee.Branch, p.Employee.FirstName, p.Employee.LastName, p.Employee.DOB, p.Employee.Phone,
			p.Payor.DunkinID, p.Payor.ABARouting, p.Payor.AccountNumber, p.Payor.Name, p.Payor.DBA, p.Payor.EIN,
			p.Payor.Address.Line1, p.Payor.Address.City, p.Payor.Address.State, p.Payor.Address.Zip,
			p.Payee.PlaidID, p.Payee.LoanAccountNumber,
			p.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}
	return nil
}

func (r *PaymentRepository) listByBatch(ctx context.Context, batchID uuid.UUID, onlyPending bool) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE batch_id = $1`
	if onlyPending {
		query += ` AND status = 'pending'`
	}
	query += ` ORDER BY seq ASC`

	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// ListByBatch returns the batch's payments in insertion order.
func (r *PaymentRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Payment, error) {
	return r.listByBatch(ctx, batchID, false)
}

// ListPendingByBatch returns payments still awaiting transfer. Completed and
// failed payments are excluded, so they are never resubmitted.
func (r *PaymentRepository) ListPendingByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Payment, error) {
	return r.listByBatch(ctx, batchID, true)
}

// MarkProvisioned writes the resolved Method ids and marks the payment ready
// for transfer.
func (r *PaymentRepository) MarkProvisioned(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET payor_entity_id = $2, payor_account_id = $3,
		    payee_entity_id = $4, payee_account_id = $5,
		    status = 'pending', error = '', updated_at = NOW()
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query, p.ID, p.PayorEntityID, p.PayorAccountID, p.PayeeEntityID, p.PayeeAccountID)
	if err != nil {
		return fmt.Errorf("failed to mark payment provisioned: %w", err)
	}
	return nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE payments SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, reason); err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

func (r *PaymentRepository) MarkComplete(ctx context.Context, id uuid.UUID, methodPaymentID string) error {
	query := `
		UPDATE payments
		SET status = 'complete', method_payment_id = $2, error = '', updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, methodPaymentID); err != nil {
		return fmt.Errorf("failed to mark payment complete: %w", err)
	}
	return nil
}
