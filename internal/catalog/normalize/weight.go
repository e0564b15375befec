package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"labelforge/internal/catalog/models"
)

// GramsToOunces converts grams to avoirdupois ounces.
const GramsToOunces = 0.03527396195

// Weight is a parsed quantity. OK is false when no number was found.
type Weight struct {
	Value float64
	Unit  string
	OK    bool
}

var weightPattern = regexp.MustCompile(`^\s*(\d*\.?\d+)\s*([a-zA-Z]*)\s*$`)

var unitAliases = map[string]string{
	"g":       "g",
	"gm":      "g",
	"gms":     "g",
	"gr":      "g",
	"gram":    "g",
	"grams":   "g",
	"oz":      "oz",
	"ounce":   "oz",
	"ounces":  "oz",
	"mg":      "mg",
	"ml":      "ml",
	"l":       "l",
	"ea":      "ea",
	"each":    "ea",
	"unit":    "ea",
	"units":   "ea",
	"pack":    "pk",
	"pk":      "pk",
	"count":   "ct",
	"ct":      "ct",
	"capsule": "ct",
}

// FoldUnit maps unit spellings to a short canonical form; unknown units are
// lowercased and kept.
func FoldUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if canon, ok := unitAliases[u]; ok {
		return canon
	}
	return u
}

// ParseWeight reads a weight cell that may carry its own unit ("3.5g",
// "0.12 oz"). The units column applies when the cell has none; grams are the
// default.
func ParseWeight(weight, units string) Weight {
	m := weightPattern.FindStringSubmatch(CleanText(weight))
	if m == nil {
		return Weight{}
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Weight{}
	}
	unit := FoldUnit(m[2])
	if unit == "" {
		unit = FoldUnit(units)
	}
	if unit == "" {
		unit = "g"
	}
	return Weight{Value: v, Unit: unit, OK: true}
}

// FormatWeight combines value and unit for display. Edibles, tinctures,
// topicals and capsules show gram weights in ounces; classic types never
// convert.
func FormatWeight(w Weight, pt models.ProductType) string {
	if !w.OK {
		return ""
	}
	v, unit := w.Value, w.Unit
	if pt.ConvertsToOunces() && unit == "g" {
		v, unit = v*GramsToOunces, "oz"
	}
	return FormatNumber(v) + unit
}
