// Package storetest holds the behaviour every lineage store must share.
package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/lineage/models"
	"labelforge/internal/lineage/ports"
	"labelforge/pkg/platform/sentinel"
)

// ContractSuite exercises a ports.Store. Embed it and set NewStore, which
// must return an empty store.
type ContractSuite struct {
	suite.Suite
	NewStore func() ports.Store
	store    ports.Store
	ctx      context.Context
	now      time.Time
}

func (s *ContractSuite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore must be set")
	s.store = s.NewStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ContractSuite) override(strain string, l catalog.Lineage, confidence float64, sovereign bool) models.Override {
	o, err := models.NewOverride(strain, l, confidence, sovereign, s.now)
	s.Require().NoError(err)
	return o
}

func (s *ContractSuite) assertOverride(want, got models.Override) {
	s.Equal(want.Strain, got.Strain)
	s.Equal(want.Lineage, got.Lineage)
	s.InDelta(want.Confidence, got.Confidence, 1e-9)
	s.Equal(want.Sovereign, got.Sovereign)
	s.True(want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v != %v", want.UpdatedAt, got.UpdatedAt)
}

func (s *ContractSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "blue dream")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ContractSuite) TestPutGet() {
	want := s.override("blue dream", catalog.LineageHybridSativa, 0.75, false)
	s.Require().NoError(s.store.Put(s.ctx, want))

	got, err := s.store.Get(s.ctx, "blue dream")
	s.Require().NoError(err)
	s.assertOverride(want, got)
}

func (s *ContractSuite) TestSovereignProtection() {
	sovereign := s.override("og kush", catalog.LineageIndica, 1, true)
	learned := s.override("og kush", catalog.LineageSativa, 0.9, false)

	s.Run("learned replaces learned", func() {
		s.Require().NoError(s.store.Put(s.ctx, learned))
		s.Require().NoError(s.store.Put(s.ctx, s.override("og kush", catalog.LineageHybrid, 0.6, false)))
	})
	s.Run("sovereign replaces learned", func() {
		s.Require().NoError(s.store.Put(s.ctx, sovereign))
	})
	s.Run("learned cannot replace sovereign", func() {
		err := s.store.Put(s.ctx, learned)
		s.ErrorIs(err, sentinel.ErrConflict)
		got, err := s.store.Get(s.ctx, "og kush")
		s.Require().NoError(err)
		s.assertOverride(sovereign, got)
	})
	s.Run("sovereign replaces sovereign", func() {
		again := s.override("og kush", catalog.LineageHybridIndica, 1, true)
		s.Require().NoError(s.store.Put(s.ctx, again))
		got, err := s.store.Get(s.ctx, "og kush")
		s.Require().NoError(err)
		s.Equal(catalog.LineageHybridIndica, got.Lineage)
	})
}

func (s *ContractSuite) TestBatchPut() {
	s.Require().NoError(s.store.Put(s.ctx, s.override("gelato", catalog.LineageHybrid, 1, true)))

	n, err := s.store.BatchPut(s.ctx, []models.Override{
		s.override("gelato", catalog.LineageSativa, 0.8, false),
		s.override("jack herer", catalog.LineageSativa, 0.8, false),
		s.override("northern lights", catalog.LineageIndica, 0.55, false),
	})
	s.Require().NoError(err)
	s.Equal(2, n)

	got, err := s.store.GetMany(s.ctx, []string{"gelato", "jack herer", "northern lights", "missing"})
	s.Require().NoError(err)
	s.Len(got, 3)
	s.Equal(catalog.LineageHybrid, got["gelato"].Lineage)
	s.True(got["gelato"].Sovereign)
	s.Equal(catalog.LineageSativa, got["jack herer"].Lineage)
	s.NotContains(got, "missing")
}

func (s *ContractSuite) TestBatchPutEmpty() {
	n, err := s.store.BatchPut(s.ctx, nil)
	s.Require().NoError(err)
	s.Zero(n)

	got, err := s.store.GetMany(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ContractSuite) TestListSorted() {
	for _, strain := range []string{"zkittlez", "acapulco gold", "maui wowie"} {
		s.Require().NoError(s.store.Put(s.ctx, s.override(strain, catalog.LineageSativa, 0.6, false)))
	}
	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("acapulco gold", list[0].Strain)
	s.Equal("maui wowie", list[1].Strain)
	s.Equal("zkittlez", list[2].Strain)
}

func (s *ContractSuite) TestDelete() {
	s.Require().NoError(s.store.Put(s.ctx, s.override("sour diesel", catalog.LineageSativa, 1, true)))
	s.Require().NoError(s.store.Delete(s.ctx, "sour diesel"))

	_, err := s.store.Get(s.ctx, "sour diesel")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, "sour diesel"), sentinel.ErrNotFound)
}
