package marker

import (
	"context"
	"io"
	"log/slog"

	"labelforge/internal/label/document"
	"labelforge/internal/label/fontsize"
	dErrors "labelforge/pkg/domain-errors"
)

// Stats counts what one Resolve call did.
type Stats struct {
	Spans        int
	Unterminated int
}

// Resolver turns marker spans into styled runs.
type Resolver struct {
	scheme      fontsize.Scheme
	orientation fontsize.Orientation
	palette     Palette
	logger      *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithPalette(p Palette) Option {
	return func(r *Resolver) {
		if p != nil {
			r.palette = p
		}
	}
}

func NewResolver(scheme fontsize.Scheme, orientation fontsize.Orientation, opts ...Option) *Resolver {
	r := &Resolver{
		scheme:      scheme,
		orientation: orientation,
		palette:     DefaultPalette(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve rewrites every paragraph of frag that holds marker spans. Span text
// becomes a bold run sized by the font scheme; lineage spans take their
// palette colours and centred variants centre the paragraph. Paragraphs
// without markers, and paragraphs with an unterminated span, are untouched.
// A span naming a field with no sizing rule fails the whole fragment.
func (r *Resolver) Resolve(ctx context.Context, frag *document.Fragment) (Stats, error) {
	var (
		stats    Stats
		firstErr error
	)
	frag.Walk(func(cell *document.Cell, p *document.Paragraph) {
		if firstErr != nil {
			return
		}
		text := p.Text()
		if !Contains(text) {
			return
		}
		tokens, err := Tokenize(text)
		if err != nil {
			stats.Unterminated++
			r.logger.WarnContext(ctx, "marker span left unresolved",
				"template", frag.Template,
				"slot", cell.Slot,
				"error", err,
			)
			return
		}

		runs := make([]document.Run, 0, len(tokens))
		align := p.Align
		for _, tok := range tokens {
			if tok.Kind == KindText {
				runs = append(runs, document.Run{Text: tok.Text})
				continue
			}
			size, err := r.scheme.Size(tok.Text, tok.Field, r.orientation)
			if err != nil {
				firstErr = dErrors.Wrap(err, dErrors.CodeInvalidInput, "resolve marker")
				return
			}
			style := document.Style{SizePt: size, Bold: true}
			if tok.Field.IsLineage() {
				c := r.palette.Lookup(tok.Text)
				style.Color, style.Background = c.Foreground, c.Background
				cell.Background = c.Background
			}
			if tok.Field.Centered() {
				align = document.AlignCenter
			}
			runs = append(runs, document.Run{Text: tok.Text, Style: style})
			stats.Spans++
		}
		p.Align = align
		p.SetRuns(runs...)
	})
	return stats, firstErr
}
