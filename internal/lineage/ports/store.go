// Package ports declares what the lineage adapter needs from a backing
// store.
package ports

import (
	"context"

	"labelforge/internal/lineage/models"
)

// Store persists strain lineage overrides keyed by normalized strain.
//
// Get and Delete return sentinel.ErrNotFound for unknown strains. Put returns
// sentinel.ErrConflict when a learned override would replace a sovereign
// one; BatchPut skips such entries and reports how many it wrote. Backend
// failures are returned wrapped.
type Store interface {
	Get(ctx context.Context, strain string) (models.Override, error)
	GetMany(ctx context.Context, strains []string) (map[string]models.Override, error)
	Put(ctx context.Context, o models.Override) error
	BatchPut(ctx context.Context, overrides []models.Override) (int, error)
	List(ctx context.Context) ([]models.Override, error)
	Delete(ctx context.Context, strain string) error
}
