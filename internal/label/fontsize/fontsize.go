// Package fontsize computes label font sizes from content alone: word-count
// buckets, length-proportional scaling, or a fixed size, per field and
// orientation.
package fontsize

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Field is a label field token name.
type Field string

const (
	FieldDescription     Field = "DESC"
	FieldPrice           Field = "PRICE"
	FieldLineage         Field = "LINEAGE"
	FieldLineageCentered Field = "LINEAGE_CENTER"
	FieldBrand           Field = "PRODUCTBRAND"
	FieldBrandCentered   Field = "PRODUCTBRAND_CENTER"
	FieldRatio           Field = "RATIO"
	FieldWeight          Field = "WEIGHT"
	FieldProductStrain   Field = "PRODUCTSTRAIN"
	FieldVendor          Field = "VENDOR"
	FieldDOH             Field = "DOH"
)

// Fields lists every field a template may reference.
var Fields = []Field{
	FieldDescription, FieldPrice, FieldLineage, FieldLineageCentered,
	FieldBrand, FieldBrandCentered, FieldRatio, FieldWeight,
	FieldProductStrain, FieldVendor, FieldDOH,
}

// Centered reports the field variants rendered center aligned.
func (f Field) Centered() bool {
	return f == FieldLineageCentered || f == FieldBrandCentered
}

// IsLineage reports the fields coloured by lineage.
func (f Field) IsLineage() bool {
	return f == FieldLineage || f == FieldLineageCentered
}

// Known reports whether f is a label field.
func (f Field) Known() bool {
	for _, k := range Fields {
		if k == f {
			return true
		}
	}
	return false
}

// Orientation selects a grid family.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
	Mini       Orientation = "mini"
)

// Variant is the sizing strategy of a rule.
type Variant string

const (
	VariantWords  Variant = "words"
	VariantLength Variant = "length"
	VariantFixed  Variant = "fixed"
)

// Bucket maps texts of at most MaxWords words to Size. MaxWords 0 is
// unbounded and only valid on the last bucket.
type Bucket struct {
	MaxWords int     `yaml:"max_words"`
	Size     float64 `yaml:"size"`
}

// Rule is one field's sizing configuration for one orientation.
type Rule struct {
	Variant      Variant  `yaml:"variant"`
	BaseSize     float64  `yaml:"base"`
	MinSize      float64  `yaml:"min"`
	MaxThreshold int      `yaml:"max_threshold"`
	Buckets      []Bucket `yaml:"buckets"`
}

// Size returns the point size for text. Length rules scale continuously and
// never fall below MinSize; renderers round to what they can print.
func (r Rule) Size(text string) float64 {
	switch r.Variant {
	case VariantFixed:
		return r.BaseSize
	case VariantWords:
		n := len(strings.Fields(text))
		for _, b := range r.Buckets {
			if b.MaxWords == 0 || n <= b.MaxWords {
				return b.Size
			}
		}
		return r.Buckets[len(r.Buckets)-1].Size
	case VariantLength:
		n := utf8.RuneCountInString(strings.ReplaceAll(text, "\n", ""))
		if n <= r.MaxThreshold {
			return r.BaseSize
		}
		scaled := r.BaseSize * float64(r.MaxThreshold) / float64(n)
		return math.Max(r.MinSize, scaled)
	}
	return r.BaseSize
}

func (r Rule) validate() error {
	switch r.Variant {
	case VariantFixed:
		if r.BaseSize <= 0 {
			return fmt.Errorf("fixed size must be positive")
		}
	case VariantLength:
		if r.MinSize <= 0 || r.BaseSize < r.MinSize {
			return fmt.Errorf("need 0 < min (%v) <= base (%v)", r.MinSize, r.BaseSize)
		}
		if r.MaxThreshold <= 0 {
			return fmt.Errorf("max_threshold must be positive")
		}
	case VariantWords:
		if len(r.Buckets) == 0 {
			return fmt.Errorf("word-count rule has no buckets")
		}
		for i, b := range r.Buckets {
			if b.Size <= 0 {
				return fmt.Errorf("bucket %d size must be positive", i)
			}
			if b.MaxWords == 0 && i != len(r.Buckets)-1 {
				return fmt.Errorf("bucket %d is unbounded but not last", i)
			}
			if i > 0 {
				prev := r.Buckets[i-1]
				if b.MaxWords != 0 && b.MaxWords <= prev.MaxWords {
					return fmt.Errorf("bucket %d max_words must increase", i)
				}
				if b.Size > prev.Size {
					return fmt.Errorf("bucket %d size %v grows past %v", i, b.Size, prev.Size)
				}
			}
		}
	default:
		return fmt.Errorf("unknown variant %q", r.Variant)
	}
	return nil
}
