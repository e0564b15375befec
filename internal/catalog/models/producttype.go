package models

// ProductKind is the product-type variant resolved once per record. Every
// normalization rule switches over it exhaustively.
type ProductKind int

const (
	KindOther ProductKind = iota
	// classic
	KindFlower
	KindPreRoll
	KindInfusedPreRoll
	KindConcentrate
	KindSolventlessConcentrate
	KindVapeCartridge
	KindRSOTanker
	// non-classic
	KindEdibleSolid
	KindEdibleLiquid
	KindTincture
	KindTopical
	KindCapsule
	KindParaphernalia
)

var kindNames = map[ProductKind]string{
	KindFlower:                 "flower",
	KindPreRoll:                "pre-roll",
	KindInfusedPreRoll:         "infused pre-roll",
	KindConcentrate:            "concentrate",
	KindSolventlessConcentrate: "solventless concentrate",
	KindVapeCartridge:          "vape cartridge",
	KindRSOTanker:              "rso/co2 tanker",
	KindEdibleSolid:            "edible (solid)",
	KindEdibleLiquid:           "edible (liquid)",
	KindTincture:               "tincture",
	KindTopical:                "topical",
	KindCapsule:                "capsule",
	KindParaphernalia:          "paraphernalia",
}

// CanonicalName returns the display name of a known kind, or "" for KindOther.
func (k ProductKind) CanonicalName() string {
	return kindNames[k]
}

// ProductType is a classified product type. Name is the canonical name for
// known kinds and the cleaned source text for KindOther.
type ProductType struct {
	Kind ProductKind
	Name string
}

// NewProductType builds a ProductType for a known kind.
func NewProductType(k ProductKind) ProductType {
	return ProductType{Kind: k, Name: k.CanonicalName()}
}

// Classic reports membership of the classic set: flower, pre-rolls,
// concentrates, vape cartridges and RSO/CO2 tankers.
func (p ProductType) Classic() bool {
	switch p.Kind {
	case KindFlower, KindPreRoll, KindInfusedPreRoll, KindConcentrate,
		KindSolventlessConcentrate, KindVapeCartridge, KindRSOTanker:
		return true
	case KindOther, KindEdibleSolid, KindEdibleLiquid, KindTincture,
		KindTopical, KindCapsule, KindParaphernalia:
		return false
	}
	return false
}

// PreRoll reports whether joint-ratio rules apply.
func (p ProductType) PreRoll() bool {
	return p.Kind == KindPreRoll || p.Kind == KindInfusedPreRoll
}

// Edible reports whether the type is a solid or liquid edible.
func (p ProductType) Edible() bool {
	return p.Kind == KindEdibleSolid || p.Kind == KindEdibleLiquid
}

// ConvertsToOunces reports whether gram weights display in ounces.
func (p ProductType) ConvertsToOunces() bool {
	switch p.Kind {
	case KindEdibleSolid, KindEdibleLiquid, KindTincture, KindTopical, KindCapsule:
		return true
	case KindOther, KindFlower, KindPreRoll, KindInfusedPreRoll, KindConcentrate,
		KindSolventlessConcentrate, KindVapeCartridge, KindRSOTanker, KindParaphernalia:
		return false
	}
	return false
}

// Rank orders product types for sorting: classic kinds first in catalog order.
func (p ProductType) Rank() int {
	if p.Kind == KindOther {
		return int(KindParaphernalia) + 1
	}
	return int(p.Kind)
}

func (p ProductType) String() string { return p.Name }
