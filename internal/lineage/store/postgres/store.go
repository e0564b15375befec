// Package postgres stores lineage overrides in PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/lineage/models"
	"labelforge/pkg/platform/sentinel"
	"labelforge/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS lineage_overrides (
	strain     TEXT PRIMARY KEY,
	lineage    TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	sovereign  BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL
)`

const conflictClause = `
ON CONFLICT (strain) DO UPDATE SET
	lineage = EXCLUDED.lineage,
	confidence = EXCLUDED.confidence,
	sovereign = EXCLUDED.sovereign,
	updated_at = EXCLUDED.updated_at
WHERE EXCLUDED.sovereign OR NOT lineage_overrides.sovereign`

const upsert = `
INSERT INTO lineage_overrides (strain, lineage, confidence, sovereign, updated_at)
VALUES ($1, $2, $3, $4, $5)` + conflictClause

const batchUpsert = `
INSERT INTO lineage_overrides (strain, lineage, confidence, sovereign, updated_at)
SELECT * FROM unnest($1::text[], $2::text[], $3::float8[], $4::bool[], $5::timestamptz[])` + conflictClause

const selectColumns = `SELECT strain, lineage, confidence, sovereign, updated_at FROM lineage_overrides`

// Store persists overrides in one table.
type Store struct {
	db *sql.DB
}

// New ensures the schema exists.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create lineage schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, strain string) (models.Override, error) {
	o, err := scan(tx.Q(ctx, s.db).QueryRowContext(ctx, selectColumns+` WHERE strain = $1`, strain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Override{}, sentinel.ErrNotFound
		}
		return models.Override{}, fmt.Errorf("get lineage override: %w", err)
	}
	return o, nil
}

func (s *Store) GetMany(ctx context.Context, strains []string) (map[string]models.Override, error) {
	out := make(map[string]models.Override, len(strains))
	if len(strains) == 0 {
		return out, nil
	}
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, selectColumns+` WHERE strain = ANY($1)`, strains)
	if err != nil {
		return nil, fmt.Errorf("get lineage overrides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lineage override: %w", err)
		}
		out[o.Strain] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get lineage overrides: %w", err)
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, o models.Override) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, upsert, o.Strain, string(o.Lineage), o.Confidence, o.Sovereign, o.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put lineage override: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put lineage override: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// BatchPut upserts every override in a single statement. Duplicate strains
// are collapsed first since one INSERT cannot touch a row twice.
func (s *Store) BatchPut(ctx context.Context, overrides []models.Override) (int, error) {
	overrides = models.Collapse(overrides)
	if len(overrides) == 0 {
		return 0, nil
	}
	var (
		strains     = make([]string, len(overrides))
		lineages    = make([]string, len(overrides))
		confidences = make([]float64, len(overrides))
		sovereign   = make([]bool, len(overrides))
		updatedAt   = make([]time.Time, len(overrides))
	)
	for i, o := range overrides {
		strains[i] = o.Strain
		lineages[i] = string(o.Lineage)
		confidences[i] = o.Confidence
		sovereign[i] = o.Sovereign
		updatedAt[i] = o.UpdatedAt.UTC()
	}
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, batchUpsert, strains, lineages, confidences, sovereign, updatedAt)
	if err != nil {
		return 0, fmt.Errorf("batch put lineage overrides: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("batch put lineage overrides: %w", err)
	}
	return int(n), nil
}

func (s *Store) List(ctx context.Context) ([]models.Override, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, selectColumns+` ORDER BY strain`)
	if err != nil {
		return nil, fmt.Errorf("list lineage overrides: %w", err)
	}
	defer rows.Close()
	var out []models.Override
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lineage override: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lineage overrides: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, strain string) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM lineage_overrides WHERE strain = $1`, strain)
	if err != nil {
		return fmt.Errorf("delete lineage override: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lineage override: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (models.Override, error) {
	var (
		o       models.Override
		lineage string
	)
	if err := row.Scan(&o.Strain, &lineage, &o.Confidence, &o.Sovereign, &o.UpdatedAt); err != nil {
		return models.Override{}, err
	}
	o.Lineage = catalog.Lineage(lineage)
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}
