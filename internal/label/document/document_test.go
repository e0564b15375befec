package document

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "labelforge/pkg/domain-errors"
)

func TestBuiltin(t *testing.T) {
	tests := []struct {
		name  string
		slots int
	}{
		{"vertical", 9},
		{"horizontal", 12},
		{"mini", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := Builtin(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, tpl.Name)
			assert.Equal(t, tt.name, tpl.Orientation)
			assert.Equal(t, tt.slots, tpl.Slots())
			assert.Contains(t, tpl.Fields(), "DESC")
			assert.Contains(t, tpl.Fields(), "PRICE")
		})
	}
	assert.ElementsMatch(t, []string{"vertical", "horizontal", "mini"}, BuiltinNames())
}

func TestBuiltin_Unknown(t *testing.T) {
	_, err := Builtin("../go")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestLoadTemplate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "name: x\nrows: 1\ncols: 1\ncolour: red\nparagraphs: [{text: a}]\n"},
		{"no name", "rows: 1\ncols: 1\nparagraphs: [{text: a}]\n"},
		{"zero rows", "name: x\nrows: 0\ncols: 1\nparagraphs: [{text: a}]\n"},
		{"no paragraphs", "name: x\nrows: 1\ncols: 1\n"},
		{"bad align", "name: x\nrows: 1\ncols: 1\nparagraphs: [{text: a, align: justify}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTemplate(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func testTemplate() Template {
	return Template{
		Name:        "test",
		Orientation: "vertical",
		Rows:        1,
		Cols:        2,
		Paragraphs: []ParagraphSpec{
			{Text: "{{DESC}}", Align: AlignCenter},
			{Text: "{{WEIGHT}} / {{PRICE}}"},
		},
	}
}

func TestTemplate_Fields(t *testing.T) {
	assert.Equal(t, []string{"DESC", "WEIGHT", "PRICE"}, testTemplate().Fields())
}

func TestFragment_Substitute(t *testing.T) {
	f := testTemplate().NewFragment()
	require.NoError(t, f.Substitute(1, map[string]string{
		"DESC":   "Blue {{PRICE}} Dream",
		"WEIGHT": "1g",
		"PRICE":  "$5",
	}))

	want := []Paragraph{
		{Align: AlignCenter, Runs: []Run{{Text: "Blue {{PRICE}} Dream"}}},
		{Align: AlignLeft, Runs: []Run{{Text: "1g / $5"}}},
	}
	cell, err := f.Cell(1)
	require.NoError(t, err)
	if diff := cmp.Diff(want, cell.Paragraphs); diff != "" {
		t.Errorf("filled cell mismatch (-want +got):\n%s", diff)
	}

	empty, err := f.Cell(0)
	require.NoError(t, err)
	assert.Equal(t, "{{DESC}}", empty.Paragraphs[0].Text(), "other slots untouched")
}

func TestFragment_SubstituteMissingValuesBlank(t *testing.T) {
	f := testTemplate().NewFragment()
	require.NoError(t, f.Substitute(0, nil))
	cell, err := f.Cell(0)
	require.NoError(t, err)
	assert.Equal(t, "", cell.Paragraphs[0].Text())
	assert.Equal(t, " / ", cell.Paragraphs[1].Text())
}

func TestFragment_SlotOutOfRange(t *testing.T) {
	f := testTemplate().NewFragment()
	for _, slot := range []int{-1, 2} {
		err := f.Substitute(slot, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestNewFragment_Independent(t *testing.T) {
	tpl := testTemplate()
	a, b := tpl.NewFragment(), tpl.NewFragment()
	require.NoError(t, a.Substitute(0, map[string]string{"DESC": "changed"}))

	cell, err := b.Cell(0)
	require.NoError(t, err)
	assert.Equal(t, "{{DESC}}", cell.Paragraphs[0].Text())
	assert.Equal(t, "{{DESC}}", tpl.Paragraphs[0].Text)
}

func TestFragment_Walk(t *testing.T) {
	f := testTemplate().NewFragment()
	var slots []int
	f.Walk(func(c *Cell, p *Paragraph) {
		slots = append(slots, c.Slot)
		p.SetRuns(Run{Text: "x", Style: Style{Bold: true}})
	})
	assert.Equal(t, []int{0, 0, 1, 1}, slots)

	cell, err := f.Cell(1)
	require.NoError(t, err)
	assert.True(t, cell.Paragraphs[1].Runs[0].Style.Bold)
}

func TestDocument_AppendPreservesOrderAndCopies(t *testing.T) {
	tpl := testTemplate()
	first, second := tpl.NewFragment(), tpl.NewFragment()
	require.NoError(t, first.Substitute(0, map[string]string{"DESC": "first"}))
	require.NoError(t, second.Substitute(0, map[string]string{"DESC": "second"}))

	d := New("Labels", "run-1")
	d.Append(first)
	d.Append(nil)
	d.Append(second)
	require.Len(t, d.Pages, 2)
	assert.Equal(t, "first", d.Pages[0].Cells[0].Paragraphs[0].Text())
	assert.Equal(t, "second", d.Pages[1].Cells[0].Paragraphs[0].Text())

	first.Pages[0].Cells[0].Paragraphs[0].Runs[0].Text = "mutated"
	assert.Equal(t, "first", d.Pages[0].Cells[0].Paragraphs[0].Text())
	assert.Equal(t, 4, d.Labels())
}

func TestWriteHTML(t *testing.T) {
	f := testTemplate().NewFragment()
	require.NoError(t, f.Substitute(0, map[string]string{"DESC": "<script>alert(1)</script>", "WEIGHT": "THC:\nCBD:"}))
	cell, err := f.Cell(0)
	require.NoError(t, err)
	cell.Background = "#00FF00"
	cell.Paragraphs[0].Runs[0].Style = Style{SizePt: 12.5, Bold: true, Color: "#000000", Background: "red;}body{x:y"}

	d := New("Batch <1>", "run-42")
	d.Append(f)
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, d))
	out := buf.String()

	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "Batch &lt;1&gt;")
	assert.Contains(t, out, `content="run-42"`)
	assert.Contains(t, out, "font-size: 12.5pt;font-weight: bold;color: #000000;")
	assert.NotContains(t, out, "body{x:y")
	assert.Contains(t, out, "background-color: #00FF00;")
	assert.Contains(t, out, "THC:<br>CBD:")
	assert.Contains(t, out, "text-align: center;")
	assert.Equal(t, 1, strings.Count(out, `class="page"`))
}

func TestRunCSS_PrintsHalfPoints(t *testing.T) {
	tests := map[float64]string{
		30.4: "font-size: 30pt;",
		12.5: "font-size: 12.5pt;",
		12.9: "font-size: 12.5pt;",
		20:   "font-size: 20pt;",
	}
	for size, want := range tests {
		assert.Equal(t, want, string(runCSS(Style{SizePt: size})), "size %v", size)
	}
}
