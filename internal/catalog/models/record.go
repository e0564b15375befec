package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// RawRecord is one source row: column header to cell value. Values are
// strings, numbers, booleans or nil. Absent columns read as blank.
type RawRecord map[string]any

// Field is a logical source column.
type Field string

const (
	FieldDescription Field = "description"
	FieldProductName Field = "productName"
	FieldProductType Field = "productType"
	FieldLineage     Field = "lineage"
	FieldStrain      Field = "strain"
	FieldStrainKey   Field = "strainKey"
	FieldBrand       Field = "brand"
	FieldVendor      Field = "vendor"
	FieldPrice       Field = "price"
	FieldWeight      Field = "weight"
	FieldUnits       Field = "units"
	FieldRatio       Field = "ratio"
	FieldJointRatio  Field = "jointRatio"
	FieldTHC         Field = "thc"
	FieldCBD         Field = "cbd"
	FieldDOH         Field = "doh"
)

// DefaultAliases lists the header names accepted for each logical field, in
// preference order. The first alias is the canonical export header.
var DefaultAliases = map[Field][]string{
	FieldDescription: {"Description", "Product Description"},
	FieldProductName: {"Product Name*", "Product Name", "Name"},
	FieldProductType: {"Product Type*", "Product Type", "Type", "Category"},
	FieldLineage:     {"Lineage", "Strain Type"},
	FieldStrain:      {"Product Strain", "Strain", "Strain Name"},
	FieldStrainKey:   {"Strain Key"},
	FieldBrand:       {"Product Brand", "Brand"},
	FieldVendor:      {"Vendor", "Vendor/Supplier*", "Supplier"},
	FieldPrice:       {"Price", "Price* (Tier Name for Bulk)", "Retail Price"},
	FieldWeight:      {"Weight*", "Weight", "Size"},
	FieldUnits:       {"Units", "Weight Unit* (grams/gm or ounces/oz)", "Unit"},
	FieldRatio:       {"Ratio", "Potency"},
	FieldJointRatio:  {"Joint Ratio", "JointRatio"},
	FieldTHC:         {"THC test result", "THC", "Total THC"},
	FieldCBD:         {"CBD test result", "CBD", "Total CBD"},
	FieldDOH:         {"DOH Compliant (Yes/No)", "DOH Compliant", "DOH"},
}

// Columns resolves logical fields against a record's headers without
// assuming column positions.
type Columns struct {
	aliases map[Field][]string
}

// NewColumns builds a resolver; overrides replace the alias list for a field.
func NewColumns(overrides map[Field][]string) Columns {
	aliases := make(map[Field][]string, len(DefaultAliases))
	for f, a := range DefaultAliases {
		aliases[f] = a
	}
	for f, a := range overrides {
		if len(a) > 0 {
			aliases[f] = a
		}
	}
	return Columns{aliases: aliases}
}

// Canonical returns the export header for f.
func (c Columns) Canonical(f Field) string {
	if a := c.aliases[f]; len(a) > 0 {
		return a[0]
	}
	return string(f)
}

// Get returns the first non-blank value for f, stringified. Exact header
// matches win over case-insensitive ones.
func (c Columns) Get(rec RawRecord, f Field) string {
	v, _ := c.Lookup(rec, f)
	return v
}

// Lookup is Get that also reports whether any header for f is present,
// blank or not. Case-insensitive matches are tried in sorted header order
// so a record carrying both "price" and "PRICE" resolves the same way on
// every call.
func (c Columns) Lookup(rec RawRecord, f Field) (string, bool) {
	present := false
	for _, alias := range c.aliases[f] {
		if v, ok := rec[alias]; ok {
			present = true
			if s := Stringify(v); s != "" {
				return s, true
			}
		}
	}
	var headers []string
	for _, alias := range c.aliases[f] {
		if headers == nil {
			headers = sortedHeaders(rec)
		}
		for _, header := range headers {
			if strings.EqualFold(strings.TrimSpace(header), alias) {
				present = true
				if s := Stringify(rec[header]); s != "" {
					return s, true
				}
			}
		}
	}
	return "", present
}

func sortedHeaders(rec RawRecord) []string {
	headers := make([]string, 0, len(rec))
	for h := range rec {
		headers = append(headers, h)
	}
	slices.Sort(headers)
	return headers
}

// Stringify renders a cell value as text. Floats use the shortest
// representation so 1.0 reads "1" and 2.5 reads "2.5".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// NormalizedRecord is a display-ready record. It is built once by the
// normalization pipeline and never mutated; corrections go through the
// lineage store and regenerate the record.
type NormalizedRecord struct {
	Row            int
	Description    string
	PriceDisplay   string
	PriceNumeric   bool
	WeightDisplay  string
	RatioOrPotency string
	Lineage        Lineage
	ProductStrain  string
	// StrainKey is the lineage store key read from the source strain,
	// kept because ProductStrain may be rewritten to "Mixed" or "CBD Blend".
	StrainKey    string
	ProductType  ProductType
	Brand        string
	Vendor       string
	DOHCompliant bool
}
