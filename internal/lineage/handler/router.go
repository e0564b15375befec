package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"labelforge/pkg/platform/httputil"
	"labelforge/pkg/platform/middleware/admin"
	"labelforge/pkg/platform/middleware/requestlog"
)

// NewRouter builds the admin API: /healthz and /metrics are open, the
// lineage endpoints require the admin token. A nil metrics handler leaves
// /metrics unmounted.
func NewRouter(h *Handler, adminToken string, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestlog.Recovery(logger))
	r.Use(requestlog.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(adminToken, logger))
		h.Register(r)
	})
	return r
}
