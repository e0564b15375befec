package fontsize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "labelforge/pkg/domain-errors"
)

func TestRuleSize_Length(t *testing.T) {
	r := length(38, 20, 4)
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"under threshold", "$5", 38},
		{"at threshold", "$100", 38},
		{"scaled", "$1000", 30.4},
		{"clamped to min", "$1,000,000.99", 20},
		{"newlines ignored", "$1\n00", 38},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Size(tt.text))
		})
	}
}

func TestRuleSize_Words(t *testing.T) {
	r := words(Bucket{2, 20}, Bucket{4, 16}, Bucket{0, 12})
	assert.Equal(t, 20.0, r.Size(""))
	assert.Equal(t, 20.0, r.Size("Blue Dream"))
	assert.Equal(t, 16.0, r.Size("Blue Dream Pre Roll"))
	assert.Equal(t, 12.0, r.Size("Blue Dream Infused Pre Roll Pack"))
}

func TestRuleSize_WordsBoundedLastBucket(t *testing.T) {
	r := words(Bucket{2, 20}, Bucket{4, 16})
	assert.Equal(t, 16.0, r.Size("one two three four five six"))
}

func TestRuleSize_Fixed(t *testing.T) {
	r := fixed(1)
	assert.Equal(t, 1.0, r.Size(""))
	assert.Equal(t, 1.0, r.Size(strings.Repeat("long ", 50)))
}

func TestDefaultScheme_Monotonic(t *testing.T) {
	s := DefaultScheme()
	for _, o := range []Orientation{Vertical, Horizontal, Mini} {
		require.NoError(t, s.Validate(o, Fields))
		for _, f := range Fields {
			prevLen, prevWords := 1e9, 1e9
			for n := 0; n <= 60; n++ {
				byLen, err := s.Size(strings.Repeat("x", n), f, o)
				require.NoError(t, err)
				assert.LessOrEqualf(t, byLen, prevLen, "%s/%s length %d", o, f, n)
				prevLen = byLen

				byWords, err := s.Size(strings.TrimSpace(strings.Repeat("w ", n)), f, o)
				require.NoError(t, err)
				assert.LessOrEqualf(t, byWords, prevWords, "%s/%s words %d", o, f, n)
				prevWords = byWords
			}
		}
	}
}

func TestScheme_SizeMissingRule(t *testing.T) {
	_, err := Scheme{}.Size("x", FieldPrice, Vertical)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestScheme_Validate(t *testing.T) {
	base := DefaultScheme()
	tests := []struct {
		name   string
		scheme Scheme
		orient Orientation
	}{
		{"empty scheme", Scheme{}, Vertical},
		{"unknown orientation", base, Orientation("diagonal")},
		{"increasing bucket", base.With(Vertical, FieldDescription, words(Bucket{2, 10}, Bucket{0, 12})), Vertical},
		{"unbounded bucket not last", base.With(Vertical, FieldDescription, words(Bucket{0, 12}, Bucket{4, 10})), Vertical},
		{"no buckets", base.With(Vertical, FieldRatio, Rule{Variant: VariantWords}), Vertical},
		{"min above base", base.With(Vertical, FieldPrice, length(10, 12, 4)), Vertical},
		{"zero threshold", base.With(Vertical, FieldPrice, length(10, 8, 0)), Vertical},
		{"zero fixed", base.With(Vertical, FieldProductStrain, fixed(0)), Vertical},
		{"unknown variant", base.With(Vertical, FieldVendor, Rule{Variant: "golden"}), Vertical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scheme.Validate(tt.orient, Fields)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestScheme_WithDoesNotMutate(t *testing.T) {
	base := DefaultScheme()
	_ = base.With(Vertical, FieldPrice, fixed(99))
	r, ok := base.Rule(FieldPrice, Vertical)
	require.True(t, ok)
	assert.Equal(t, VariantLength, r.Variant)
}

func TestLoadScheme_MergesOverDefaults(t *testing.T) {
	doc := `
vertical:
  PRICE: {variant: fixed, base: 30}
mini:
  DESC:
    variant: words
    buckets:
      - {max_words: 2, size: 14}
      - {max_words: 0, size: 10}
`
	s, err := LoadScheme(strings.NewReader(doc))
	require.NoError(t, err)

	size, err := s.Size("$1,000,000", FieldPrice, Vertical)
	require.NoError(t, err)
	assert.Equal(t, 30.0, size)

	size, err = s.Size("one two three", FieldDescription, Mini)
	require.NoError(t, err)
	assert.Equal(t, 10.0, size)

	// untouched rules keep their defaults
	size, err = s.Size("$5", FieldPrice, Horizontal)
	require.NoError(t, err)
	assert.Equal(t, 32.0, size)
}

func TestLoadScheme_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "vertical: [unterminated"},
		{"unknown field", "vertical:\n  COLOR: {variant: fixed, base: 3}\n"},
		{"invalid rule", "vertical:\n  PRICE: {variant: length, base: 3, min: 5, max_threshold: 2}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScheme(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestLoadScheme_EmptyFileIsDefaults(t *testing.T) {
	s, err := LoadScheme(strings.NewReader(""))
	require.NoError(t, err)
	assert.NoError(t, s.Validate(Vertical, Fields))
}
