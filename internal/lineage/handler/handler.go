// Package handler exposes lineage overrides to operators over HTTP. User
// corrections entered here become sovereign overrides.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/lineage/models"
	dErrors "labelforge/pkg/domain-errors"
	"labelforge/pkg/platform/httputil"
)

// Service is the slice of the lineage adapter the API needs.
type Service interface {
	List(ctx context.Context) ([]models.Override, error)
	Get(ctx context.Context, strain string) (models.Override, error)
	Confirm(ctx context.Context, strain string, lineage catalog.Lineage) (models.Override, error)
	Delete(ctx context.Context, strain string) error
}

// Handler wires lineage endpoints to the lineage service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a lineage handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the lineage endpoints under /lineage.
func (h *Handler) Register(r chi.Router) {
	r.Route("/lineage", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{strain}", h.HandleGet)
		r.Put("/{strain}", h.HandleConfirm)
		r.Delete("/{strain}", h.HandleDelete)
	})
}

// HandleList handles GET /lineage.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overrides, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list lineage overrides failed",
			"request_id", middleware.GetReqID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(overrides))
}

// HandleGet handles GET /lineage/{strain}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	strain, ok := strainParam(w, r)
	if !ok {
		return
	}
	o, err := h.service.Get(r.Context(), strain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

// HandleConfirm handles PUT /lineage/{strain}.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	strain, ok := strainParam(w, r)
	if !ok {
		return
	}
	var req ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	o, err := h.service.Confirm(ctx, strain, req.lineage)
	if err != nil {
		h.logger.WarnContext(ctx, "confirm lineage override failed",
			"request_id", middleware.GetReqID(ctx),
			"strain", strain,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "lineage override set by operator",
		"request_id", middleware.GetReqID(ctx),
		"strain", o.Strain,
		"lineage", o.Lineage,
	)
	httputil.WriteJSON(w, http.StatusOK, o)
}

// HandleDelete handles DELETE /lineage/{strain}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	strain, ok := strainParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), strain); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func strainParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	strain, err := url.PathUnescape(chi.URLParam(r, "strain"))
	if err != nil || strain == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "strain path parameter is invalid"))
		return "", false
	}
	return strain, true
}
