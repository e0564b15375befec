// Package sqlite stores lineage overrides in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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
	confidence REAL NOT NULL,
	sovereign  INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
)`

// A learned row never overwrites a sovereign one.
const upsert = `
INSERT INTO lineage_overrides (strain, lineage, confidence, sovereign, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (strain) DO UPDATE SET
	lineage = excluded.lineage,
	confidence = excluded.confidence,
	sovereign = excluded.sovereign,
	updated_at = excluded.updated_at
WHERE excluded.sovereign = 1 OR lineage_overrides.sovereign = 0`

const selectColumns = `SELECT strain, lineage, confidence, sovereign, updated_at FROM lineage_overrides`

// maxParams stays well under SQLite's host parameter limit.
const maxParams = 500

// Store persists overrides through database/sql.
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
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, selectColumns+` WHERE strain = ?`, strain)
	o, err := scan(row)
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
	for start := 0; start < len(strains); start += maxParams {
		batch := strains[start:min(start+maxParams, len(strains))]
		args := make([]any, len(batch))
		for i, strain := range batch {
			args[i] = strain
		}
		query := selectColumns + ` WHERE strain IN (?` + strings.Repeat(",?", len(batch)-1) + `)`
		if err := s.query(ctx, query, args, func(o models.Override) { out[o.Strain] = o }); err != nil {
			return nil, fmt.Errorf("get lineage overrides: %w", err)
		}
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, o models.Override) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, upsert, args(o)...)
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

// BatchPut writes all overrides in one transaction, joining the caller's
// transaction when ctx carries one.
func (s *Store) BatchPut(ctx context.Context, overrides []models.Override) (int, error) {
	overrides = models.Collapse(overrides)
	if len(overrides) == 0 {
		return 0, nil
	}
	written := 0
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		stmt, err := tx.Q(ctx, s.db).PrepareContext(ctx, upsert)
		if err != nil {
			return fmt.Errorf("prepare lineage batch: %w", err)
		}
		defer stmt.Close()

		for _, o := range overrides {
			res, err := stmt.ExecContext(ctx, args(o)...)
			if err != nil {
				return fmt.Errorf("batch put lineage override %q: %w", o.Strain, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("batch put lineage override %q: %w", o.Strain, err)
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (s *Store) List(ctx context.Context) ([]models.Override, error) {
	var out []models.Override
	err := s.query(ctx, selectColumns+` ORDER BY strain`, nil, func(o models.Override) { out = append(out, o) })
	if err != nil {
		return nil, fmt.Errorf("list lineage overrides: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, strain string) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `DELETE FROM lineage_overrides WHERE strain = ?`, strain)
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

func (s *Store) query(ctx context.Context, query string, args []any, fn func(models.Override)) error {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return err
		}
		fn(o)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (models.Override, error) {
	var (
		o         models.Override
		lineage   string
		sovereign int
		updatedAt string
	)
	if err := row.Scan(&o.Strain, &lineage, &o.Confidence, &sovereign, &updatedAt); err != nil {
		return models.Override{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return models.Override{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	o.Lineage = catalog.Lineage(lineage)
	o.Sovereign = sovereign == 1
	o.UpdatedAt = t
	return o, nil
}

func args(o models.Override) []any {
	sovereign := 0
	if o.Sovereign {
		sovereign = 1
	}
	return []any{o.Strain, string(o.Lineage), o.Confidence, sovereign, o.UpdatedAt.UTC().Format(time.RFC3339Nano)}
}
