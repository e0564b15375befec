package fontsize

import (
	"fmt"
	"io"
	"maps"

	"gopkg.in/yaml.v3"

	dErrors "labelforge/pkg/domain-errors"
)

// Scheme holds the sizing rules for every field and orientation. It is read
// only once built and safe for concurrent use.
type Scheme struct {
	rules map[Orientation]map[Field]Rule
}

// Rule returns the rule for field in orientation.
func (s Scheme) Rule(field Field, o Orientation) (Rule, bool) {
	r, ok := s.rules[o][field]
	return r, ok
}

// Size computes the point size of text for field in orientation.
func (s Scheme) Size(text string, field Field, o Orientation) (float64, error) {
	r, ok := s.Rule(field, o)
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "no font rule for %s/%s", o, field)
	}
	return r.Size(text), nil
}

// Validate checks that every field in required has a sane rule for o.
func (s Scheme) Validate(o Orientation, required []Field) error {
	if len(s.rules[o]) == 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "font scheme has no %s rules", o)
	}
	for _, f := range required {
		r, ok := s.rules[o][f]
		if !ok {
			return dErrors.Newf(dErrors.CodeInvalidInput, "font scheme missing %s/%s", o, f)
		}
		if err := r.validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("font rule %s/%s", o, f))
		}
	}
	return nil
}

// With returns a copy of s with rule set for field in orientation.
func (s Scheme) With(o Orientation, field Field, rule Rule) Scheme {
	out := Scheme{rules: make(map[Orientation]map[Field]Rule, len(s.rules)+1)}
	for k, v := range s.rules {
		out.rules[k] = maps.Clone(v)
	}
	if out.rules[o] == nil {
		out.rules[o] = make(map[Field]Rule)
	}
	out.rules[o][field] = rule
	return out
}

// LoadScheme reads YAML rules keyed by orientation then field and merges
// them over DefaultScheme. Every rule in the file is validated.
//
//	vertical:
//	  PRICE: {variant: length, base: 38, min: 20, max_threshold: 4}
func LoadScheme(r io.Reader) (Scheme, error) {
	var doc map[Orientation]map[Field]Rule
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return Scheme{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse font scheme")
	}
	s := DefaultScheme()
	for o, fields := range doc {
		for f, rule := range fields {
			if !f.Known() {
				return Scheme{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown field %q in font scheme", f)
			}
			if err := rule.validate(); err != nil {
				return Scheme{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("font rule %s/%s", o, f))
			}
			s = s.With(o, f, rule)
		}
	}
	return s, nil
}

func words(buckets ...Bucket) Rule { return Rule{Variant: VariantWords, Buckets: buckets} }

func length(base, min float64, threshold int) Rule {
	return Rule{Variant: VariantLength, BaseSize: base, MinSize: min, MaxThreshold: threshold}
}

func fixed(size float64) Rule { return Rule{Variant: VariantFixed, BaseSize: size} }

// DefaultScheme returns the built-in rules for all three orientations.
func DefaultScheme() Scheme {
	vertical := map[Field]Rule{
		FieldDescription:     words(Bucket{3, 28}, Bucket{5, 24}, Bucket{8, 20}, Bucket{12, 16}, Bucket{0, 12}),
		FieldRatio:           words(Bucket{2, 12}, Bucket{4, 11}, Bucket{8, 10}, Bucket{0, 8}),
		FieldBrand:           words(Bucket{1, 16}, Bucket{2, 14}, Bucket{4, 12}, Bucket{0, 10}),
		FieldBrandCentered:   words(Bucket{1, 16}, Bucket{2, 14}, Bucket{4, 12}, Bucket{0, 10}),
		FieldPrice:           length(38, 20, 4),
		FieldLineage:         length(16, 10, 10),
		FieldLineageCentered: length(16, 10, 10),
		FieldWeight:          length(14, 9, 6),
		FieldVendor:          length(8, 6, 20),
		FieldDOH:             length(8, 6, 3),
		FieldProductStrain:   fixed(1),
	}
	horizontal := map[Field]Rule{
		FieldDescription:     words(Bucket{3, 24}, Bucket{5, 20}, Bucket{8, 16}, Bucket{12, 14}, Bucket{0, 10}),
		FieldRatio:           words(Bucket{2, 11}, Bucket{4, 10}, Bucket{8, 9}, Bucket{0, 7}),
		FieldBrand:           words(Bucket{1, 14}, Bucket{2, 12}, Bucket{4, 10}, Bucket{0, 9}),
		FieldBrandCentered:   words(Bucket{1, 14}, Bucket{2, 12}, Bucket{4, 10}, Bucket{0, 9}),
		FieldPrice:           length(32, 18, 4),
		FieldLineage:         length(14, 9, 10),
		FieldLineageCentered: length(14, 9, 10),
		FieldWeight:          length(12, 8, 6),
		FieldVendor:          length(7, 5, 20),
		FieldDOH:             length(7, 5, 3),
		FieldProductStrain:   fixed(1),
	}
	mini := map[Field]Rule{
		FieldDescription:     words(Bucket{3, 16}, Bucket{5, 13}, Bucket{8, 11}, Bucket{0, 9}),
		FieldRatio:           words(Bucket{2, 8}, Bucket{0, 7}),
		FieldBrand:           words(Bucket{1, 10}, Bucket{3, 8}, Bucket{0, 7}),
		FieldBrandCentered:   words(Bucket{1, 10}, Bucket{3, 8}, Bucket{0, 7}),
		FieldPrice:           length(22, 12, 4),
		FieldLineage:         length(10, 7, 10),
		FieldLineageCentered: length(10, 7, 10),
		FieldWeight:          length(9, 6, 6),
		FieldVendor:          length(6, 4, 20),
		FieldDOH:             length(6, 4, 3),
		FieldProductStrain:   fixed(1),
	}
	return Scheme{rules: map[Orientation]map[Field]Rule{
		Vertical:   vertical,
		Horizontal: horizontal,
		Mini:       mini,
	}}
}
