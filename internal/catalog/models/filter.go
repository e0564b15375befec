package models

import (
	"strings"

	pstrings "labelforge/pkg/platform/strings"
)

// FilterConfig is an immutable record selection. Empty sets do not filter.
// Build it with NewFilterConfig; the zero value selects everything.
type FilterConfig struct {
	productTypes     map[string]struct{}
	lineages         map[Lineage]struct{}
	brands           map[string]struct{}
	vendors          map[string]struct{}
	query            string
	excludeZeroPrice bool
}

// FilterSpec is the mutable input used to build a FilterConfig.
type FilterSpec struct {
	ProductTypes     []string
	Lineages         []Lineage
	Brands           []string
	Vendors          []string
	Query            string
	ExcludeZeroPrice bool
}

// NewFilterConfig copies spec into an immutable FilterConfig. Text keys are
// compared case-insensitively.
func NewFilterConfig(spec FilterSpec) FilterConfig {
	return FilterConfig{
		productTypes:     pstrings.FoldSet(spec.ProductTypes),
		lineages:         lineageSet(spec.Lineages),
		brands:           pstrings.FoldSet(spec.Brands),
		vendors:          pstrings.FoldSet(spec.Vendors),
		query:            strings.ToLower(strings.TrimSpace(spec.Query)),
		excludeZeroPrice: spec.ExcludeZeroPrice,
	}
}

// Matches reports whether r passes every configured predicate.
func (f FilterConfig) Matches(r NormalizedRecord) bool {
	if !inFold(f.productTypes, r.ProductType.Name) {
		return false
	}
	if len(f.lineages) > 0 {
		if _, ok := f.lineages[r.Lineage]; !ok {
			return false
		}
	}
	if !inFold(f.brands, r.Brand) || !inFold(f.vendors, r.Vendor) {
		return false
	}
	if f.query != "" && !strings.Contains(strings.ToLower(r.Description), f.query) &&
		!strings.Contains(strings.ToLower(r.ProductStrain), f.query) {
		return false
	}
	if f.excludeZeroPrice && (r.PriceDisplay == "" || r.PriceDisplay == "$0") {
		return false
	}
	return true
}

// Empty reports whether the config selects every record.
func (f FilterConfig) Empty() bool {
	return len(f.productTypes) == 0 && len(f.lineages) == 0 && len(f.brands) == 0 &&
		len(f.vendors) == 0 && f.query == "" && !f.excludeZeroPrice
}

func lineageSet(values []Lineage) map[Lineage]struct{} {
	if len(values) == 0 {
		return nil
	}
	m := make(map[Lineage]struct{}, len(values))
	for _, l := range values {
		m[l] = struct{}{}
	}
	return m
}

func inFold(set map[string]struct{}, v string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[strings.ToLower(strings.TrimSpace(v))]
	return ok
}
