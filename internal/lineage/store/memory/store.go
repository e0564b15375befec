// Package memory is an in-process lineage store for tests and one-shot runs.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"labelforge/internal/lineage/models"
	"labelforge/pkg/platform/sentinel"
)

// Store keeps overrides in a map guarded by an RWMutex.
type Store struct {
	mu        sync.RWMutex
	overrides map[string]models.Override
}

func New() *Store {
	return &Store{overrides: make(map[string]models.Override)}
}

func (s *Store) Get(_ context.Context, strain string) (models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[strain]
	if !ok {
		return models.Override{}, sentinel.ErrNotFound
	}
	return o, nil
}

func (s *Store) GetMany(_ context.Context, strains []string) (map[string]models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Override, len(strains))
	for _, strain := range strains {
		if o, ok := s.overrides[strain]; ok {
			out[strain] = o
		}
	}
	return out, nil
}

func (s *Store) Put(_ context.Context, o models.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.putLocked(o) {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Store) BatchPut(_ context.Context, overrides []models.Override) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range overrides {
		if s.putLocked(o) {
			n++
		}
	}
	return n, nil
}

func (s *Store) putLocked(o models.Override) bool {
	if existing, ok := s.overrides[o.Strain]; ok && !o.Replaces(existing) {
		return false
	}
	s.overrides[o.Strain] = o
	return true
}

func (s *Store) List(_ context.Context) ([]models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Collect(maps.Values(s.overrides))
	slices.SortFunc(out, func(a, b models.Override) int {
		return cmp.Compare(a.Strain, b.Strain)
	})
	return out, nil
}

func (s *Store) Delete(_ context.Context, strain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overrides[strain]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.overrides, strain)
	return nil
}
