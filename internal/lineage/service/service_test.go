package service

//go:generate mockgen -source=../ports/store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/lineage/metrics"
	"labelforge/internal/lineage/models"
	"labelforge/internal/lineage/service/mocks"
	"labelforge/internal/platform/postgres"
	dErrors "labelforge/pkg/domain-errors"
	"labelforge/pkg/platform/circuit"
	"labelforge/pkg/platform/sentinel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type LineageServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	metrics *metrics.Metrics
	service *Service
	now     time.Time
}

func TestLineageServiceSuite(t *testing.T) {
	suite.Run(t, new(LineageServiceSuite))
}

func (s *LineageServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.service = s.newService()
}

func (s *LineageServiceSuite) newService(opts ...Option) *Service {
	opts = append([]Option{
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
	}, opts...)
	svc, err := New(s.store, opts...)
	s.Require().NoError(err)
	return svc
}

func (s *LineageServiceSuite) TearDownTest() {
	s.Require().NoError(s.service.Close(context.Background()))
	s.ctrl.Finish()
}

func (s *LineageServiceSuite) learned(strain string, l catalog.Lineage) models.Override {
	o, err := models.NewOverride(strain, l, 0.8, false, s.now)
	s.Require().NoError(err)
	return o
}

func (s *LineageServiceSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *LineageServiceSuite) TestLookup() {
	ctx := context.Background()
	s.Run("returns found overrides", func() {
		want := map[string]models.Override{"blue dream": s.learned("blue dream", catalog.LineageSativa)}
		s.store.EXPECT().GetMany(gomock.Any(), []string{"blue dream", "gelato"}).Return(want, nil)
		s.Equal(want, s.service.Lookup(ctx, []string{"blue dream", "gelato"}))
	})
	s.Run("no strains skips the store", func() {
		s.Nil(s.service.Lookup(ctx, nil))
	})
}

func (s *LineageServiceSuite) TestLookupFailuresOpenBreaker() {
	ctx := context.Background()
	s.store.EXPECT().GetMany(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused")).Times(2)

	s.Nil(s.service.Lookup(ctx, []string{"a"}))
	s.Nil(s.service.Lookup(ctx, []string{"a"}))
	// breaker is open: no third store call
	s.Nil(s.service.Lookup(ctx, []string{"a"}))

	s.Equal(2.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("error")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues(dropBreakerOpen)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BreakerOpen))
}

func (s *LineageServiceSuite) TestOutageClassifierLimitsBreaker() {
	s.Require().NoError(s.service.Close(context.Background()))
	s.service = s.newService(WithOutageClassifier(postgres.IsConnectionError))
	ctx := context.Background()

	s.Run("query errors do not trip", func() {
		undefinedTable := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
		s.store.EXPECT().GetMany(gomock.Any(), gomock.Any()).Return(nil, undefinedTable).Times(3)
		for range 3 {
			s.Nil(s.service.Lookup(ctx, []string{"a"}))
		}
		s.Equal(0.0, testutil.ToFloat64(s.metrics.BreakerOpen))
	})

	s.Run("connection loss trips", func() {
		dropped := &pgconn.PgError{Code: "08006", Message: "connection failure"}
		s.store.EXPECT().GetMany(gomock.Any(), gomock.Any()).Return(nil, dropped).Times(2)
		s.Nil(s.service.Lookup(ctx, []string{"a"}))
		s.Nil(s.service.Lookup(ctx, []string{"a"}))
		s.Nil(s.service.Lookup(ctx, []string{"a"}), "open breaker skips the store")
		s.Equal(1.0, testutil.ToFloat64(s.metrics.BreakerOpen))
	})
}

func (s *LineageServiceSuite) TestLearnWritesThroughWriter() {
	ctx := context.Background()
	batch := []models.Override{s.learned("gelato", catalog.LineageHybrid)}
	s.store.EXPECT().BatchPut(gomock.Any(), batch).Return(1, nil)

	s.service.Learn(ctx, batch)
	s.Require().NoError(s.service.Flush(ctx))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WritesApplied))
}

func (s *LineageServiceSuite) TestLearnSurvivesCanceledCaller() {
	batch := []models.Override{s.learned("gelato", catalog.LineageHybrid)}
	s.store.EXPECT().BatchPut(gomock.Any(), batch).DoAndReturn(func(ctx context.Context, _ []models.Override) (int, error) {
		return 1, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.service.Learn(ctx, batch)
	cancel()
	s.Require().NoError(s.service.Flush(context.Background()))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WritesApplied))
}

func (s *LineageServiceSuite) TestLearnDropsWhenQueueFull() {
	s.Require().NoError(s.service.Close(context.Background()))
	s.service = s.newService(WithQueueSize(1))

	ctx := context.Background()
	started, release := make(chan struct{}), make(chan struct{})
	first := []models.Override{s.learned("a", catalog.LineageSativa)}
	second := []models.Override{s.learned("b", catalog.LineageIndica)}
	third := []models.Override{s.learned("c", catalog.LineageHybrid)}

	s.store.EXPECT().BatchPut(gomock.Any(), first).DoAndReturn(func(context.Context, []models.Override) (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	s.store.EXPECT().BatchPut(gomock.Any(), second).Return(1, nil)

	s.service.Learn(ctx, first)
	<-started
	s.service.Learn(ctx, second)
	s.service.Learn(ctx, third)
	close(release)

	s.Require().NoError(s.service.Flush(ctx))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WritesDropped.WithLabelValues(dropQueueFull)))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.WritesApplied))
}

func (s *LineageServiceSuite) TestLearnSkippedWhileBreakerOpen() {
	ctx := context.Background()
	s.store.EXPECT().GetMany(gomock.Any(), gomock.Any()).Return(nil, errors.New("down")).Times(2)
	s.service.Lookup(ctx, []string{"a"})
	s.service.Lookup(ctx, []string{"a"})

	s.service.Learn(ctx, []models.Override{s.learned("a", catalog.LineageSativa)})
	s.Require().NoError(s.service.Flush(ctx))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WritesDropped.WithLabelValues(dropBreakerOpen)))
}

func (s *LineageServiceSuite) TestConfirm() {
	ctx := context.Background()
	s.Run("writes a sovereign override under the normalized key", func() {
		s.store.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, o models.Override) error {
			s.Equal("blue dream", o.Strain)
			s.True(o.Sovereign)
			s.Equal(1.0, o.Confidence)
			s.Equal(s.now, o.UpdatedAt)
			return nil
		})
		o, err := s.service.Confirm(ctx, "  Blue   DREAM ", catalog.LineageHybridSativa)
		s.Require().NoError(err)
		s.Equal(catalog.LineageHybridSativa, o.Lineage)
	})
	s.Run("invalid lineage never reaches the store", func() {
		_, err := s.service.Confirm(ctx, "gelato", catalog.Lineage("PURPLE"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("blank strain is rejected", func() {
		_, err := s.service.Confirm(ctx, "   ", catalog.LineageIndica)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("store failure is unavailable", func() {
		s.store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
		_, err := s.service.Confirm(ctx, "gelato", catalog.LineageIndica)
		s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	})
}

func (s *LineageServiceSuite) TestGet() {
	ctx := context.Background()
	s.Run("found", func() {
		want := s.learned("gelato", catalog.LineageHybrid)
		s.store.EXPECT().Get(gomock.Any(), "gelato").Return(want, nil)
		got, err := s.service.Get(ctx, "Gelato")
		s.Require().NoError(err)
		s.Equal(want, got)
	})
	s.Run("missing is not found and does not trip the breaker", func() {
		s.store.EXPECT().Get(gomock.Any(), "nope").Return(models.Override{}, sentinel.ErrNotFound).Times(3)
		for range 3 {
			_, err := s.service.Get(ctx, "nope")
			s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
		}
		s.Zero(testutil.ToFloat64(s.metrics.BreakerOpen))
	})
}

func (s *LineageServiceSuite) TestDelete() {
	ctx := context.Background()
	s.store.EXPECT().Delete(gomock.Any(), "gelato").Return(nil)
	s.Require().NoError(s.service.Delete(ctx, "GELATO"))

	s.store.EXPECT().Delete(gomock.Any(), "gone").Return(sentinel.ErrNotFound)
	err := s.service.Delete(ctx, "gone")
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *LineageServiceSuite) TestList() {
	ctx := context.Background()
	want := []models.Override{s.learned("a", catalog.LineageCBD)}
	s.store.EXPECT().List(gomock.Any()).Return(want, nil)
	got, err := s.service.List(ctx)
	s.Require().NoError(err)
	s.Equal(want, got)

	s.store.EXPECT().List(gomock.Any()).Return(nil, errors.New("timeout"))
	_, err = s.service.List(ctx)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func (s *LineageServiceSuite) TestClosed() {
	ctx := context.Background()
	s.Require().NoError(s.service.Close(ctx))
	s.Require().NoError(s.service.Close(ctx), "close is idempotent")

	s.service.Learn(ctx, []models.Override{s.learned("a", catalog.LineageSativa)})
	s.Equal(1.0, testutil.ToFloat64(s.metrics.WritesDropped.WithLabelValues(dropClosed)))

	_, err := s.service.Confirm(ctx, "a", catalog.LineageSativa)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	s.ErrorIs(s.service.Flush(ctx), errClosed)
}
