package models

import "strings"

// Lineage is the closed set of genetic/category classifications a label
// can carry. It drives both display text and colour coding.
type Lineage string

const (
	LineageSativa        Lineage = "SATIVA"
	LineageIndica        Lineage = "INDICA"
	LineageHybrid        Lineage = "HYBRID"
	LineageHybridSativa  Lineage = "HYBRID_SATIVA"
	LineageHybridIndica  Lineage = "HYBRID_INDICA"
	LineageCBD           Lineage = "CBD"
	LineageMixed         Lineage = "MIXED"
	LineageParaphernalia Lineage = "PARAPHERNALIA"
)

// Lineages lists every lineage in display ordering.
var Lineages = []Lineage{
	LineageSativa,
	LineageHybridSativa,
	LineageHybrid,
	LineageHybridIndica,
	LineageIndica,
	LineageCBD,
	LineageMixed,
	LineageParaphernalia,
}

var lineageSynonyms = map[string]Lineage{
	"SATIVA":          LineageSativa,
	"S":               LineageSativa,
	"INDICA":          LineageIndica,
	"I":               LineageIndica,
	"HYBRID":          LineageHybrid,
	"HYB":             LineageHybrid,
	"H":               LineageHybrid,
	"HYBRID_SATIVA":   LineageHybridSativa,
	"SATIVA_HYBRID":   LineageHybridSativa,
	"SATIVA_DOMINANT": LineageHybridSativa,
	"HS":              LineageHybridSativa,
	"HYBRID_INDICA":   LineageHybridIndica,
	"INDICA_HYBRID":   LineageHybridIndica,
	"INDICA_DOMINANT": LineageHybridIndica,
	"HI":              LineageHybridIndica,
	"CBD":             LineageCBD,
	"CBD_BLEND":       LineageCBD,
	"MIXED":           LineageMixed,
	"MIX":             LineageMixed,
	"PARAPHERNALIA":   LineageParaphernalia,
	"PARA":            LineageParaphernalia,
}

// ParseLineage folds case, separators and known synonyms into a Lineage.
// The boolean is false for blank or unrecognised input.
func ParseLineage(s string) (Lineage, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return "", false
	}
	key = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '/', '.':
			return '_'
		}
		return r
	}, key)
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	key = strings.Trim(key, "_")
	l, ok := lineageSynonyms[key]
	return l, ok
}

// Valid reports whether l is one of the enum values.
func (l Lineage) Valid() bool {
	_, ok := lineageRank[l]
	return ok
}

// Genetic reports whether l is a plant-genetics classification, which only
// classic product types may carry without a sovereign override.
func (l Lineage) Genetic() bool {
	switch l {
	case LineageSativa, LineageIndica, LineageHybrid, LineageHybridSativa, LineageHybridIndica:
		return true
	}
	return false
}

// Display is the text printed on a label.
func (l Lineage) Display() string {
	switch l {
	case LineageHybridSativa:
		return "HYBRID/SATIVA"
	case LineageHybridIndica:
		return "HYBRID/INDICA"
	}
	return string(l)
}

var lineageRank = func() map[Lineage]int {
	m := make(map[Lineage]int, len(Lineages))
	for i, l := range Lineages {
		m[l] = i
	}
	return m
}()

// Rank orders lineages for sorting; unknown values sort last.
func (l Lineage) Rank() int {
	if r, ok := lineageRank[l]; ok {
		return r
	}
	return len(Lineages)
}
