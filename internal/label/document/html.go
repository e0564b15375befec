package document

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var pageTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="labelforge-run" content="{{.RunID}}">
<title>{{.Title}}</title>
<style>
body { margin: 0; font-family: Arial, Helvetica, sans-serif; }
.page { display: grid; break-after: page; page-break-after: always; }
.label { box-sizing: border-box; overflow: hidden; padding: 0.08in; }
.label p { margin: 0; }
</style>
</head>
<body>
{{- range .Pages}}
<section class="page" style="{{.Style}}">
{{- range .Cells}}
<div class="label" style="{{.Style}}">
{{- range .Paragraphs}}<p style="{{.Style}}">{{range .Runs}}<span style="{{.Style}}">{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}</span>{{end}}</p>{{end -}}
</div>
{{- end}}
</section>
{{- end}}
</body>
</html>
`))

type htmlRun struct {
	Style template.CSS
	Lines []string
}

type htmlParagraph struct {
	Style template.CSS
	Runs  []htmlRun
}

type htmlCell struct {
	Style      template.CSS
	Paragraphs []htmlParagraph
}

type htmlPage struct {
	Style template.CSS
	Cells []htmlCell
}

type htmlDocument struct {
	Title string
	RunID string
	Pages []htmlPage
}

// WriteHTML renders the document as printable HTML, one page per grid.
func WriteHTML(w io.Writer, d *Document) error {
	view := htmlDocument{Title: d.Title, RunID: d.RunID, Pages: make([]htmlPage, len(d.Pages))}
	for pi, page := range d.Pages {
		hp := htmlPage{
			Style: template.CSS(fmt.Sprintf("grid-template-columns: repeat(%d, %s); grid-auto-rows: %s;",
				max(page.Cols, 1), inches(page.CellWidthIn), inches(page.CellHeightIn))),
			Cells: make([]htmlCell, len(page.Cells)),
		}
		for ci, cell := range page.Cells {
			hc := htmlCell{Style: colorCSS("background-color", cell.Background)}
			for _, p := range cell.Paragraphs {
				hpara := htmlParagraph{Style: template.CSS("text-align: " + alignCSS(p.Align) + ";")}
				for _, r := range p.Runs {
					hpara.Runs = append(hpara.Runs, htmlRun{Style: runCSS(r.Style), Lines: strings.Split(r.Text, "\n")})
				}
				hc.Paragraphs = append(hc.Paragraphs, hpara)
			}
			hp.Cells[ci] = hc
		}
		view.Pages[pi] = hp
	}
	if err := pageTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

func inches(v float64) string {
	if v <= 0 {
		return "auto"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "in"
}

func alignCSS(a Align) string {
	if a == AlignCenter {
		return "center"
	}
	return "left"
}

// colorCSS only emits validated hex colours, so the value is safe to mark
// as CSS.
func colorCSS(prop, color string) template.CSS {
	if !hexColor.MatchString(color) {
		return ""
	}
	return template.CSS(prop + ": " + color + ";")
}

// halfPoints floors a size to the half-point steps labels are printed in.
func halfPoints(pt float64) float64 {
	return math.Floor(pt*2) / 2
}

func runCSS(s Style) template.CSS {
	var b strings.Builder
	if s.SizePt > 0 {
		b.WriteString("font-size: " + strconv.FormatFloat(halfPoints(s.SizePt), 'f', -1, 64) + "pt;")
	}
	if s.Bold {
		b.WriteString("font-weight: bold;")
	}
	b.WriteString(string(colorCSS("color", s.Color)))
	b.WriteString(string(colorCSS("background-color", s.Background)))
	return template.CSS(b.String())
}
