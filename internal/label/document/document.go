// Package document is the in-memory label document: grid templates with
// {{FIELD}} tokens, fragments filled from them, and the composed output.
package document

import (
	"fmt"
	"regexp"
	"strings"

	dErrors "labelforge/pkg/domain-errors"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
)

// Style is the formatting applied to a run. Zero values mean inherit.
type Style struct {
	SizePt     float64
	Bold       bool
	Color      string
	Background string
}

// Run is a span of uniformly styled text.
type Run struct {
	Text  string
	Style Style
}

// Paragraph is the text-bearing node the marker pass walks.
type Paragraph struct {
	Align Align
	Runs  []Run
}

// Text concatenates the paragraph's runs.
func (p *Paragraph) Text() string {
	if len(p.Runs) == 1 {
		return p.Runs[0].Text
	}
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// SetRuns replaces the paragraph content.
func (p *Paragraph) SetRuns(runs ...Run) {
	p.Runs = runs
}

// Cell is one label slot on a page.
type Cell struct {
	Slot       int
	Background string
	Paragraphs []Paragraph
}

// Page is one grid of cells in row-major order.
type Page struct {
	Rows         int
	Cols         int
	CellWidthIn  float64
	CellHeightIn float64
	Cells        []Cell
}

// Fragment is the output of rendering one chunk.
type Fragment struct {
	Template string
	Pages    []Page
}

var tokenPattern = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// Substitute replaces every {{FIELD}} token in the given slot with its value.
// Tokens absent from values become empty. Substituted text is not rescanned,
// so values containing braces are inserted literally.
func (f *Fragment) Substitute(slot int, values map[string]string) error {
	cell, err := f.cell(slot)
	if err != nil {
		return err
	}
	for pi := range cell.Paragraphs {
		p := &cell.Paragraphs[pi]
		for ri := range p.Runs {
			p.Runs[ri].Text = tokenPattern.ReplaceAllStringFunc(p.Runs[ri].Text, func(tok string) string {
				return values[tok[2:len(tok)-2]]
			})
		}
	}
	return nil
}

// Cell returns the cell at slot across all pages.
func (f *Fragment) Cell(slot int) (*Cell, error) {
	return f.cell(slot)
}

func (f *Fragment) cell(slot int) (*Cell, error) {
	if slot >= 0 {
		n := slot
		for pi := range f.Pages {
			page := &f.Pages[pi]
			if n < len(page.Cells) {
				return &page.Cells[n], nil
			}
			n -= len(page.Cells)
		}
	}
	return nil, dErrors.Newf(dErrors.CodeInvalidInput, "slot %d out of range", slot)
}

// Slots counts the cells in the fragment.
func (f *Fragment) Slots() int {
	n := 0
	for _, p := range f.Pages {
		n += len(p.Cells)
	}
	return n
}

// Walk calls fn for every paragraph in page, cell, paragraph order.
func (f *Fragment) Walk(fn func(*Cell, *Paragraph)) {
	for pi := range f.Pages {
		page := &f.Pages[pi]
		for ci := range page.Cells {
			cell := &page.Cells[ci]
			for i := range cell.Paragraphs {
				fn(cell, &cell.Paragraphs[i])
			}
		}
	}
}

// Clone deep-copies the fragment.
func (f *Fragment) Clone() *Fragment {
	out := &Fragment{Template: f.Template, Pages: make([]Page, len(f.Pages))}
	for pi, page := range f.Pages {
		cp := page
		cp.Cells = make([]Cell, len(page.Cells))
		for ci, cell := range page.Cells {
			cc := cell
			cc.Paragraphs = make([]Paragraph, len(cell.Paragraphs))
			for i, p := range cell.Paragraphs {
				cc.Paragraphs[i] = Paragraph{Align: p.Align, Runs: append([]Run(nil), p.Runs...)}
			}
			cp.Cells[ci] = cc
		}
		out.Pages[pi] = cp
	}
	return out
}

// Document is the composed output of a batch.
type Document struct {
	Title string
	RunID string
	Pages []Page
}

// New returns an empty document.
func New(title, runID string) *Document {
	return &Document{Title: title, RunID: runID}
}

// Append concatenates a fragment's pages without altering them.
func (d *Document) Append(f *Fragment) {
	if f == nil {
		return
	}
	d.Pages = append(d.Pages, f.Clone().Pages...)
}

// Labels counts cells with any text.
func (d *Document) Labels() int {
	n := 0
	for _, page := range d.Pages {
		for _, cell := range page.Cells {
			for i := range cell.Paragraphs {
				if cell.Paragraphs[i].Text() != "" {
					n++
					break
				}
			}
		}
	}
	return n
}

func (d *Document) String() string {
	return fmt.Sprintf("document %q: %d pages", d.Title, len(d.Pages))
}
