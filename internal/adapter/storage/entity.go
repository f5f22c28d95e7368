package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

type EntityRepository struct {
	db *pgxpool.Pool
}

func NewEntityRepository(db *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{db: db}
}

const entityColumns = `
	id, dunkin_id, branch, kind,
	first_name, last_name, dob, phone,
	corp_name, dba, ein,
	address_line1, address_city, address_state, address_zip,
	method_entity_id`

func scanEntity(row pgx.Row) (*domain.Entity, error) {
	var e domain.Entity
	err := row.Scan(
		&e.ID, &e.DunkinID, &e.Branch, &e.Kind,
		&e.FirstName, &e.LastName, &e.DOB, &e.Phone,
		&e.CorpName, &e.DBA, &e.EIN,
		&e.Address.Line1, &e.Address.City, &e.Address.State, &e.Address.Zip,
		&e.MethodEntityID,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindByDunkinID returns the entity for a natural key, or nil when none
// exists yet.
func (r *EntityRepository) FindByDunkinID(ctx context.Context, dunkinID string) (*domain.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE dunkin_id = $1`
	e, err := scanEntity(r.db.QueryRow(ctx, query, dunkinID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Upsert inserts the entity unless its dunkin_id already exists, and returns
// the surviving row. Two passes racing on the same natural key both get the
// row that won the insert; the loser's Method entity simply goes unreferenced.
func (r *EntityRepository) Upsert(ctx context.Context, e domain.Entity) (*domain.Entity, error) {
	query := `
		INSERT INTO entities (
			dunkin_id, branch, kind,
			first_name, last_name, dob, phone,
			corp_name, dba, ein,
			address_line1, address_city, address_state, address_zip,
			method_entity_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (dunkin_id) DO UPDATE SET dunkin_id = EXCLUDED.dunkin_id
		RETURNING ` + entityColumns
	saved, err := scanEntity(r.db.QueryRow(ctx, query,
		e.DunkinID, e.Branch, string(e.Kind),
		e.FirstName, e.LastName, e.DOB, e.Phone,
		e.CorpName, e.DBA, e.EIN,
		e.Address.Line1, e.Address.City, e.Address.State, e.Address.Zip,
		e.MethodEntityID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert entity: %w", err)
	}
	return saved, nil
}
