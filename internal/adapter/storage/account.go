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

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, holder_id, kind, routing, number, subtype, merchant_id, account_number, method_account_id`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.HolderID, &a.Kind,
		&a.Routing, &a.Number, &a.Subtype,
		&a.MerchantID, &a.AccountNumber,
		&a.MethodAccountID,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindACH returns the holder's bank account with the given routing and
// account number, or nil when none exists yet.
func (r *AccountRepository) FindACH(ctx context.Context, holderID uuid.UUID, routing, number string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE holder_id = $1 AND kind = 'ach' AND routing = $2 AND number = $3`
	a, err := scanAccount(r.db.QueryRow(ctx, query, holderID, routing, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindLiability returns the holder's loan account with the given account
// number, or nil when none exists yet.
func (r *AccountRepository) FindLiability(ctx context.Context, holderID uuid.UUID, accountNumber string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE holder_id = $1 AND kind = 'liability' AND account_number = $2`
	a, err := scanAccount(r.db.QueryRow(ctx, query, holderID, accountNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Upsert inserts the account unless its identifying fields already exist
// under the holder, and returns the surviving row.
func (r *AccountRepository) Upsert(ctx context.Context, a domain.Account) (*domain.Account, error) {
	var conflict string
	switch a.Kind {
	case domain.AccountKindACH:
		conflict = `ON CONFLICT (holder_id, routing, number) WHERE kind = 'ach' DO UPDATE SET holder_id = EXCLUDED.holder_id`
	case domain.AccountKindLiability:
		conflict = `ON CONFLICT (holder_id, account_number) WHERE kind = 'liability' DO UPDATE SET holder_id = EXCLUDED.holder_id`
	default:
		return nil, fmt.Errorf("unknown account kind %q", a.Kind)
	}

	query := `
		INSERT INTO accounts (holder_id, kind, routing, number, subtype, merchant_id, account_number, method_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		` + conflict + `
		RETURNING ` + accountColumns
	saved, err := scanAccount(r.db.QueryRow(ctx, query,
		a.HolderID, string(a.Kind),
		a.Routing, a.Number, a.Subtype,
		a.MerchantID, a.AccountNumber,
		a.MethodAccountID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}
	return saved, nil
}
