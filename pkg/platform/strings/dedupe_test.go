package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistinct(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "keeps first-seen order", input: []string{"gelato", "blue dream", "gelato"}, want: []string{"gelato", "blue dream"}},
		{name: "drops blanks", input: []string{"", "og kush", ""}, want: []string{"og kush"}},
		{name: "case sensitive", input: []string{"OG", "og"}, want: []string{"OG", "og"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distinct(tt.input))
		})
	}
}

func TestFoldSet(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  map[string]struct{}
	}{
		{name: "nil input", input: nil, want: nil},
		{name: "only blanks", input: []string{" ", ""}, want: nil},
		{
			name:  "folds case and whitespace",
			input: []string{"  Flower ", "FLOWER", "Edible (Solid)"},
			want:  map[string]struct{}{"flower": {}, "edible (solid)": {}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldSet(tt.input))
		})
	}
}
