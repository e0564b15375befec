package normalize

import (
	"strings"

	"labelforge/internal/catalog/models"
)

// CBDBlendStrain and MixedStrain are the synthesized product strains.
const (
	CBDBlendStrain = "CBD Blend"
	MixedStrain    = "Mixed"
)

// Origin records which rule produced a lineage.
type Origin int

const (
	OriginDefault Origin = iota
	OriginParaphernalia
	OriginSovereign
	OriginSource
	OriginLearned
	OriginCannabinoid
)

func (o Origin) String() string {
	switch o {
	case OriginParaphernalia:
		return "paraphernalia"
	case OriginSovereign:
		return "sovereign"
	case OriginSource:
		return "source"
	case OriginLearned:
		return "learned"
	case OriginCannabinoid:
		return "cannabinoid"
	default:
		return "default"
	}
}

// LineageInput gathers what lineage inference reads. Text is MatchText of
// the description and product name, SourceStrain the assigned product strain. Sovereign and
// Learned come from the lineage store and are nil when absent.
type LineageInput struct {
	Type         models.ProductType
	Source       string
	Text         string
	SourceStrain string
	Sovereign    *models.Lineage
	Learned      *models.Lineage
}

// LineageDecision is the inferred lineage and the rule that chose it.
type LineageDecision struct {
	Lineage models.Lineage
	Origin  Origin
}

// InferLineage applies the precedence: paraphernalia, sovereign override,
// then the classic or non-classic rules. Classic types never end up MIXED.
func InferLineage(in LineageInput) LineageDecision {
	if in.Type.Kind == models.KindParaphernalia {
		return LineageDecision{models.LineageParaphernalia, OriginParaphernalia}
	}

	classic := in.Type.Classic()
	if in.Sovereign != nil && in.Sovereign.Valid() {
		l := *in.Sovereign
		if classic && l == models.LineageMixed {
			l = models.LineageHybrid
		}
		return LineageDecision{l, OriginSovereign}
	}

	if classic {
		if l, ok := models.ParseLineage(in.Source); ok && classicAllowed(l) {
			return LineageDecision{l, OriginSource}
		}
		if in.Learned != nil && classicAllowed(*in.Learned) {
			return LineageDecision{*in.Learned, OriginLearned}
		}
		return LineageDecision{models.LineageHybrid, OriginDefault}
	}

	if HasCannabinoid(in.Text) || strings.EqualFold(strings.TrimSpace(in.SourceStrain), CBDBlendStrain) {
		return LineageDecision{models.LineageCBD, OriginCannabinoid}
	}
	if l, ok := models.ParseLineage(in.Source); ok && l == models.LineageCBD {
		return LineageDecision{models.LineageCBD, OriginSource}
	}
	return LineageDecision{models.LineageMixed, OriginDefault}
}

func classicAllowed(l models.Lineage) bool {
	return l.Valid() && l != models.LineageMixed && l != models.LineageParaphernalia
}

// AssignStrain picks the product strain: "CBD Blend" when text names a
// cannabinoid or a ratio or the source already says so, "Mixed" for other
// edibles, else the source. Text is MatchText of the description and name.
func AssignStrain(pt models.ProductType, text, sourceStrain string) string {
	if HasCannabinoid(text) || HasRatio(text) ||
		strings.EqualFold(strings.TrimSpace(sourceStrain), CBDBlendStrain) {
		return CBDBlendStrain
	}
	if pt.Edible() {
		return MixedStrain
	}
	return CleanText(sourceStrain)
}
