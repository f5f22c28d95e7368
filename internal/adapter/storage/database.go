package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectDB initializes the Postgres connection pool.
func ConnectDB(databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return pool, nil
}

// Migrate creates the schema if it does not exist. The unique indexes carry
// the dedup invariants: one entity per dunkin id, one account per identifying
// fields under a holder, one record per Method id.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'uploaded',
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			payments_count INT NOT NULL DEFAULT 0,
			payments_total BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			seq BIGSERIAL,
			batch_id UUID NOT NULL REFERENCES batches(id),
			employee_dunkin_id TEXT NOT NULL,
			employee_branch TEXT NOT NULL DEFAULT '',
			employee_first_name TEXT NOT NULL DEFAULT '',
			employee_last_name TEXT NOT NULL DEFAULT '',
			employee_dob TEXT NOT NULL DEFAULT '',
			employee_phone TEXT NOT NULL DEFAULT '',
			payor_dunkin_id TEXT NOT NULL,
			payor_aba_routing TEXT NOT NULL DEFAULT '',
			payor_account_number TEXT NOT NULL DEFAULT '',
			payor_name TEXT NOT NULL DEFAULT '',
			payor_dba TEXT NOT NULL DEFAULT '',
			payor_ein TEXT NOT NULL DEFAULT '',
			payor_address_line1 TEXT NOT NULL DEFAULT '',
			payor_address_city TEXT NOT NULL DEFAULT '',
			payor_address_state TEXT NOT NULL DEFAULT '',
			payor_address_zip TEXT NOT NULL DEFAULT '',
			payee_plaid_id TEXT NOT NULL DEFAULT '',
			payee_loan_account_number TEXT NOT NULL DEFAULT '',
			amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT NOT NULL DEFAULT '',
			payor_entity_id TEXT NOT NULL DEFAULT '',
			payor_account_id TEXT NOT NULL DEFAULT '',
			payee_entity_id TEXT NOT NULL DEFAULT '',
			payee_account_id TEXT NOT NULL DEFAULT '',
			method_payment_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS payments_batch_idx ON payments (batch_id, seq)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			dunkin_id TEXT NOT NULL,
			branch TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			dob TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			corp_name TEXT NOT NULL DEFAULT '',
			dba TEXT NOT NULL DEFAULT '',
			ein TEXT NOT NULL DEFAULT '',
			address_line1 TEXT NOT NULL DEFAULT '',
			address_city TEXT NOT NULL DEFAULT '',
			address_state TEXT NOT NULL DEFAULT '',
			address_zip TEXT NOT NULL DEFAULT '',
			method_entity_id TEXT NOT NULL DEFAULT '',
			CONSTRAINT entities_dunkin_id_key UNIQUE (dunkin_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS entities_method_id_key ON entities (method_entity_id) WHERE method_entity_id <> ''`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			holder_id UUID NOT NULL REFERENCES entities(id),
			kind TEXT NOT NULL,
			routing TEXT NOT NULL DEFAULT '',
			number TEXT NOT NULL DEFAULT '',
			subtype TEXT NOT NULL DEFAULT '',
			merchant_id TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			method_account_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_ach_key ON accounts (holder_id, routing, number) WHERE kind = 'ach'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_liability_key ON accounts (holder_id, account_number) WHERE kind = 'liability'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_method_id_key ON accounts (method_account_id) WHERE method_account_id <> ''`,
		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			key_id TEXT PRIMARY KEY,
			response_status INT NOT NULL,
			response_body BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
