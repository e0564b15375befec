package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/lineage/models"
	"labelforge/internal/lineage/service"
	"labelforge/internal/lineage/store/memory"
	"labelforge/pkg/testutil"
)

const adminToken = "s3cret"

// HandlerSuite runs the lineage API against the real service and the
// in-memory store.
type HandlerSuite struct {
	suite.Suite
	store   *memory.Store
	service *service.Service
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = memory.New()
	svc, err := service.New(s.store)
	s.Require().NoError(err)
	s.service = svc

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("labelforge_up 1\n"))
	})
	s.router = NewRouter(New(svc, logger), adminToken, metricsHandler, logger)
}

func (s *HandlerSuite) TearDownTest() {
	s.Require().NoError(s.service.Close(context.Background()))
}

func (s *HandlerSuite) admin(method, path string, body any) *http.Request {
	return testutil.AdminRequest(s.T(), adminToken, method, path, body)
}

func (s *HandlerSuite) seed(strain string, l catalog.Lineage, sovereign bool) {
	o, err := models.NewOverride(strain, l, 0.75, sovereign, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(context.Background(), o))
}

func (s *HandlerSuite) TestAdminTokenRequired() {
	t := s.T()
	testutil.Given(t, "a request without the admin token", func(t *testing.T) {
		rr := testutil.Serve(s.router, testutil.JSONRequest(t, http.MethodGet, "/lineage", nil))

		testutil.Then(t, "it is rejected", func(t *testing.T) {
			testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized")
		})
	})
	testutil.Given(t, "a request with the wrong token", func(t *testing.T) {
		rr := testutil.Serve(s.router, testutil.AdminRequest(t, "guess", http.MethodDelete, "/lineage/gelato", nil))

		testutil.Then(t, "it is rejected", func(t *testing.T) {
			testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized")
		})
	})
	testutil.Given(t, "the open endpoints", func(t *testing.T) {
		testutil.When(t, "calling /healthz and /metrics", func(t *testing.T) {
			health := testutil.Serve(s.router, testutil.JSONRequest(t, http.MethodGet, "/healthz", nil))
			metrics := testutil.Serve(s.router, testutil.JSONRequest(t, http.MethodGet, "/metrics", nil))

			testutil.Then(t, "no token is needed", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, health.Code)
				assert.Equal(t, http.StatusOK, metrics.Code)
			})
			testutil.And(t, "the metrics handler is served", func(t *testing.T) {
				assert.Contains(t, metrics.Body.String(), "labelforge_up")
			})
		})
	})
}

func (s *HandlerSuite) TestList() {
	s.Run("empty store lists nothing", func() {
		rr := testutil.Serve(s.router, s.admin(http.MethodGet, "/lineage", nil))
		s.Equal(http.StatusOK, rr.Code)
		body := testutil.Decode[ListResponse](s.T(), rr)
		s.Equal(0, body.Count)
		s.NotNil(body.Overrides)
	})
	s.Run("overrides come back sorted", func() {
		s.seed("gelato", catalog.LineageHybrid, false)
		s.seed("blue dream", catalog.LineageSativa, true)
		rr := testutil.Serve(s.router, s.admin(http.MethodGet, "/lineage", nil))
		body := testutil.Decode[ListResponse](s.T(), rr)
		s.Require().Equal(2, body.Count)
		s.Equal("blue dream", body.Overrides[0].Strain)
		s.Equal("gelato", body.Overrides[1].Strain)
	})
}

func (s *HandlerSuite) TestGet() {
	s.seed("blue dream", catalog.LineageSativa, false)

	rr := testutil.Serve(s.router, s.admin(http.MethodGet, "/lineage/Blue%20Dream", nil))
	s.Equal(http.StatusOK, rr.Code)
	got := testutil.Decode[models.Override](s.T(), rr)
	s.Equal(catalog.LineageSativa, got.Lineage)

	rr = testutil.Serve(s.router, s.admin(http.MethodGet, "/lineage/unknown", nil))
	testutil.AssertError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestConfirm() {
	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{name: "synonym lineage", body: ConfirmRequest{Lineage: "hybrid/indica"}, status: http.StatusOK},
		{name: "unknown lineage", body: `{"lineage":"purple"}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "missing lineage", body: `{}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "unknown field", body: `{"lineage":"CBD","extra":1}`, status: http.StatusBadRequest, code: "bad_request"},
		{name: "malformed body", body: `not json`, status: http.StatusBadRequest, code: "bad_request"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rr := testutil.Serve(s.router, s.admin(http.MethodPut, "/lineage/gelato", tt.body))
			if tt.code != "" {
				testutil.AssertError(s.T(), rr, tt.status, tt.code)
				return
			}
			s.Equal(tt.status, rr.Code)
		})
	}

	stored, err := s.store.Get(context.Background(), "gelato")
	s.Require().NoError(err)
	s.Equal(catalog.LineageHybridIndica, stored.Lineage)
	s.True(stored.Sovereign)
}

func (s *HandlerSuite) TestConfirmReplacesLearned() {
	s.seed("gelato", catalog.LineageHybrid, false)

	rr := testutil.Serve(s.router, s.admin(http.MethodPut, "/lineage/gelato", ConfirmRequest{Lineage: "INDICA"}))
	s.Equal(http.StatusOK, rr.Code)

	stored, err := s.store.Get(context.Background(), "gelato")
	s.Require().NoError(err)
	s.Equal(catalog.LineageIndica, stored.Lineage)
	s.True(stored.Sovereign)
}

func (s *HandlerSuite) TestDelete() {
	s.seed("gelato", catalog.LineageHybrid, true)

	rr := testutil.Serve(s.router, s.admin(http.MethodDelete, "/lineage/gelato", nil))
	s.Equal(http.StatusNoContent, rr.Code)

	rr = testutil.Serve(s.router, s.admin(http.MethodDelete, "/lineage/gelato", nil))
	testutil.AssertError(s.T(), rr, http.StatusNotFound, "not_found")
}

func TestConfirmRequestValidate(t *testing.T) {
	req := ConfirmRequest{Lineage: "  sativa "}
	require.NoError(t, req.Validate())
	assert.Equal(t, catalog.LineageSativa, req.lineage)

	req = ConfirmRequest{Lineage: "   "}
	assert.Error(t, req.Validate())
}
