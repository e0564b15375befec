package document

import (
	"embed"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	dErrors "labelforge/pkg/domain-errors"
)

//go:embed templates/*.yaml
var builtin embed.FS

// ParagraphSpec is one templated paragraph of a cell.
type ParagraphSpec struct {
	Text  string `yaml:"text"`
	Align Align  `yaml:"align"`
}

// Template describes a grid of identical cells. It is a read-only value;
// every fragment is built from a fresh copy.
type Template struct {
	Name         string          `yaml:"name"`
	Orientation  string          `yaml:"orientation"`
	Rows         int             `yaml:"rows"`
	Cols         int             `yaml:"cols"`
	CellWidthIn  float64         `yaml:"cell_width_in"`
	CellHeightIn float64         `yaml:"cell_height_in"`
	Paragraphs   []ParagraphSpec `yaml:"paragraphs"`
}

// Slots is the number of labels per page.
func (t Template) Slots() int {
	return t.Rows * t.Cols
}

// Fields lists the distinct tokens the template references, in order.
func (t Template) Fields() []string {
	var out []string
	for _, p := range t.Paragraphs {
		for _, m := range tokenPattern.FindAllStringSubmatch(p.Text, -1) {
			if !slices.Contains(out, m[1]) {
				out = append(out, m[1])
			}
		}
	}
	return out
}

// Validate checks the grid shape.
func (t Template) Validate() error {
	switch {
	case strings.TrimSpace(t.Name) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "template name is required")
	case t.Rows <= 0 || t.Cols <= 0:
		return dErrors.Newf(dErrors.CodeInvalidInput, "template %s: grid %dx%d must be positive", t.Name, t.Rows, t.Cols)
	case len(t.Paragraphs) == 0:
		return dErrors.Newf(dErrors.CodeInvalidInput, "template %s has no paragraphs", t.Name)
	}
	for _, p := range t.Paragraphs {
		switch p.Align {
		case "", AlignLeft, AlignCenter:
		default:
			return dErrors.Newf(dErrors.CodeInvalidInput, "template %s: unknown alignment %q", t.Name, p.Align)
		}
	}
	return nil
}

// NewFragment builds an unfilled one-page fragment. Fragments share no
// memory with each other or with the template.
func (t Template) NewFragment() *Fragment {
	page := Page{
		Rows:         t.Rows,
		Cols:         t.Cols,
		CellWidthIn:  t.CellWidthIn,
		CellHeightIn: t.CellHeightIn,
		Cells:        make([]Cell, t.Slots()),
	}
	for i := range page.Cells {
		paras := make([]Paragraph, len(t.Paragraphs))
		for j, spec := range t.Paragraphs {
			align := spec.Align
			if align == "" {
				align = AlignLeft
			}
			paras[j] = Paragraph{Align: align, Runs: []Run{{Text: spec.Text}}}
		}
		page.Cells[i] = Cell{Slot: i, Paragraphs: paras}
	}
	return &Fragment{Template: t.Name, Pages: []Page{page}}
}

// LoadTemplate decodes and validates a YAML template.
func LoadTemplate(r io.Reader) (Template, error) {
	var t Template
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Template{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse template")
	}
	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

// LoadTemplateFile reads a YAML template from disk.
func LoadTemplateFile(name string) (Template, error) {
	f, err := os.Open(name)
	if err != nil {
		return Template{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "open template")
	}
	defer f.Close()
	return LoadTemplate(f)
}

// Builtin returns one of the bundled templates by name.
func Builtin(name string) (Template, error) {
	f, err := builtin.Open(path.Join("templates", name+".yaml"))
	if err != nil {
		return Template{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown template %q", name)
	}
	defer f.Close()
	return LoadTemplate(f)
}

// BuiltinNames lists the bundled templates.
func BuiltinNames() []string {
	entries, _ := builtin.ReadDir("templates")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return out
}

// Resolve returns the named builtin, or loads name as a file path when it
// ends in .yaml or .yml.
func Resolve(name string) (Template, error) {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return LoadTemplateFile(name)
	}
	return Builtin(name)
}
