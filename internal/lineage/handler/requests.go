package handler

import (
	"strings"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/lineage/models"
	dErrors "labelforge/pkg/domain-errors"
)

// ConfirmRequest is the body of PUT /lineage/{strain}.
type ConfirmRequest struct {
	Lineage string `json:"lineage"`

	lineage catalog.Lineage
}

// Validate parses the lineage, accepting the same synonyms as source data.
func (r *ConfirmRequest) Validate() error {
	r.Lineage = strings.TrimSpace(r.Lineage)
	if r.Lineage == "" {
		return dErrors.New(dErrors.CodeValidation, "lineage is required")
	}
	l, ok := catalog.ParseLineage(r.Lineage)
	if !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown lineage %q", r.Lineage)
	}
	r.lineage = l
	return nil
}

// ListResponse is the body of GET /lineage.
type ListResponse struct {
	Overrides []models.Override `json:"overrides"`
	Count     int               `json:"count"`
}

func newListResponse(overrides []models.Override) ListResponse {
	if overrides == nil {
		overrides = []models.Override{}
	}
	return ListResponse{Overrides: overrides, Count: len(overrides)}
}
