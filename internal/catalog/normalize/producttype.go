package normalize

import (
	"strings"

	"labelforge/internal/catalog/models"
)

// productTypeOverrides maps folded source strings to kinds. Canonical names
// map to themselves so normalized output classifies identically.
var productTypeOverrides = map[string]models.ProductKind{
	"flower":                  models.KindFlower,
	"bud":                     models.KindFlower,
	"pre-roll":                models.KindPreRoll,
	"pre roll":                models.KindPreRoll,
	"preroll":                 models.KindPreRoll,
	"pre-rolls":               models.KindPreRoll,
	"joint":                   models.KindPreRoll,
	"infused pre-roll":        models.KindInfusedPreRoll,
	"infused pre roll":        models.KindInfusedPreRoll,
	"infused preroll":         models.KindInfusedPreRoll,
	"concentrate":             models.KindConcentrate,
	"concentrates":            models.KindConcentrate,
	"rosin":                   models.KindConcentrate,
	"wax":                     models.KindConcentrate,
	"shatter":                 models.KindConcentrate,
	"solventless concentrate": models.KindSolventlessConcentrate,
	"live rosin":              models.KindSolventlessConcentrate,
	"hash":                    models.KindSolventlessConcentrate,
	"vape cartridge":          models.KindVapeCartridge,
	"vape cart":               models.KindVapeCartridge,
	"cartridge":               models.KindVapeCartridge,
	"all-in-one":              models.KindVapeCartridge,
	"all in one":              models.KindVapeCartridge,
	"aio":                     models.KindVapeCartridge,
	"disposable vape":         models.KindVapeCartridge,
	"rso/co2 tanker":          models.KindRSOTanker,
	"rso/co2 tankers":         models.KindRSOTanker,
	"rso":                     models.KindRSOTanker,
	"co2 tanker":              models.KindRSOTanker,
	"edible (solid)":          models.KindEdibleSolid,
	"edible":                  models.KindEdibleSolid,
	"edibles":                 models.KindEdibleSolid,
	"gummies":                 models.KindEdibleSolid,
	"edible (liquid)":         models.KindEdibleLiquid,
	"beverage":                models.KindEdibleLiquid,
	"drink":                   models.KindEdibleLiquid,
	"tincture":                models.KindTincture,
	"tinctures":               models.KindTincture,
	"topical":                 models.KindTopical,
	"topicals":                models.KindTopical,
	"capsule":                 models.KindCapsule,
	"capsules":                models.KindCapsule,
	"paraphernalia":           models.KindParaphernalia,
	"accessory":               models.KindParaphernalia,
	"accessories":             models.KindParaphernalia,
	"gear":                    models.KindParaphernalia,
}

// UnknownProductType names records whose type column is blank.
const UnknownProductType = "unknown"

// ClassifyProductType resolves the source product type once. Unlisted
// strings fall back to keyword heuristics and then to KindOther, keeping the
// cleaned text as the name.
func ClassifyProductType(raw string) models.ProductType {
	key := strings.ToLower(CleanText(raw))
	key = strings.Join(strings.Fields(key), " ")
	if key == "" {
		return models.ProductType{Kind: models.KindOther, Name: UnknownProductType}
	}
	if k, ok := productTypeOverrides[key]; ok {
		return models.NewProductType(k)
	}

	switch {
	case strings.Contains(key, "paraphernalia"):
		return models.NewProductType(models.KindParaphernalia)
	case strings.Contains(key, "infused") && (strings.Contains(key, "pre-roll") || strings.Contains(key, "preroll")):
		return models.NewProductType(models.KindInfusedPreRoll)
	case strings.Contains(key, "pre-roll") || strings.Contains(key, "preroll"):
		return models.NewProductType(models.KindPreRoll)
	case strings.Contains(key, "edible"):
		if strings.Contains(key, "liquid") {
			return models.NewProductType(models.KindEdibleLiquid)
		}
		return models.NewProductType(models.KindEdibleSolid)
	case strings.Contains(key, "tincture"):
		return models.NewProductType(models.KindTincture)
	case strings.Contains(key, "topical"):
		return models.NewProductType(models.KindTopical)
	case strings.Contains(key, "capsule"):
		return models.NewProductType(models.KindCapsule)
	case strings.Contains(key, "cartridge") || strings.Contains(key, "vape"):
		return models.NewProductType(models.KindVapeCartridge)
	case strings.Contains(key, "tanker"):
		return models.NewProductType(models.KindRSOTanker)
	}
	return models.ProductType{Kind: models.KindOther, Name: key}
}
