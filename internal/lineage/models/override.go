package models

import (
	"strings"
	"time"

	catalog "labelforge/internal/catalog/models"
	dErrors "labelforge/pkg/domain-errors"
)

// Override is a persisted strain -> lineage decision. Sovereign overrides
// are user-confirmed corrections; the rest are learned from source data and
// carry a confidence in [0,1].
type Override struct {
	Strain     string          `json:"strain"`
	Lineage    catalog.Lineage `json:"lineage"`
	Confidence float64         `json:"confidence"`
	Sovereign  bool            `json:"sovereign"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewOverride validates and builds an Override. strain must already be a
// normalized strain key. Sovereign overrides always carry confidence 1.
func NewOverride(strain string, lineage catalog.Lineage, confidence float64, sovereign bool, now time.Time) (Override, error) {
	if strings.TrimSpace(strain) == "" {
		return Override{}, dErrors.New(dErrors.CodeInvariantViolation, "strain is required")
	}
	if !lineage.Valid() {
		return Override{}, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown lineage %q", lineage)
	}
	if confidence < 0 || confidence > 1 {
		return Override{}, dErrors.Newf(dErrors.CodeInvariantViolation, "confidence %v outside [0,1]", confidence)
	}
	if sovereign {
		confidence = 1
	}
	return Override{
		Strain:     strain,
		Lineage:    lineage,
		Confidence: confidence,
		Sovereign:  sovereign,
		UpdatedAt:  now.UTC(),
	}, nil
}

// Replaces reports whether o may overwrite existing. A learned override
// never replaces a sovereign one.
func (o Override) Replaces(existing Override) bool {
	return o.Sovereign || !existing.Sovereign
}

// Collapse keeps one override per strain, in first-seen order. Later entries
// win when they may replace earlier ones.
func Collapse(overrides []Override) []Override {
	index := make(map[string]int, len(overrides))
	out := make([]Override, 0, len(overrides))
	for _, o := range overrides {
		i, ok := index[o.Strain]
		if !ok {
			index[o.Strain] = len(out)
			out = append(out, o)
			continue
		}
		if o.Replaces(out[i]) {
			out[i] = o
		}
	}
	return out
}
