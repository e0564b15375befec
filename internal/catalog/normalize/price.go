package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Price is a formatted price. Numeric is false when the source could not be
// parsed; Display then holds the symbol-stripped source text.
type Price struct {
	Display string
	Value   float64
	Numeric bool
}

var priceStripper = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¢", "", "¥", "",
	`"`, "", "'", "", "`", "", "“", "", "”", "", "‘", "", "’", "",
)

// FormatPrice strips currency symbols and stray quotes, then renders
// integral prices without decimals and others with up to two decimals,
// trailing zeros trimmed: "$2.50" -> "$2.5", "100.00" -> "$100".
func FormatPrice(raw string) Price {
	stripped := strings.TrimSpace(priceStripper.Replace(CleanText(raw)))
	if stripped == "" {
		return Price{}
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(stripped, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Price{Display: stripped}
	}
	return Price{Display: "$" + FormatNumber(v), Value: v, Numeric: true}
}

// ParsePrice inverts FormatPrice for numeric displays.
func ParsePrice(display string) (float64, bool) {
	p := FormatPrice(display)
	return p.Value, p.Numeric
}

// SpreadsheetCell renders a price display for export. Non-numeric text gets
// a leading apostrophe so spreadsheet tools keep it as text.
func SpreadsheetCell(display string, numeric bool) string {
	if numeric || display == "" {
		return display
	}
	return "'" + display
}

// FormatNumber renders v without decimals when integral and otherwise
// rounded to two decimals with trailing zeros trimmed.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	r := math.Round(v*100) / 100
	if r == math.Trunc(r) {
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
	s := strconv.FormatFloat(r, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
