// Package render fills one grid template per chunk and resolves its markers.
package render

import (
	"context"
	"io"
	"log/slog"

	"labelforge/internal/catalog/models"
	"labelforge/internal/label/chunk"
	"labelforge/internal/label/document"
	"labelforge/internal/label/fontsize"
	"labelforge/internal/label/marker"
	dErrors "labelforge/pkg/domain-errors"
)

// Renderer turns chunks into document fragments. It holds only read-only
// state and is safe for concurrent use; every call works on a fresh copy of
// the template.
type Renderer struct {
	template document.Template
	resolver *marker.Resolver
	logger   *slog.Logger
}

type Option func(*config)

type config struct {
	logger  *slog.Logger
	palette marker.Palette
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithPalette(p marker.Palette) Option {
	return func(c *config) {
		c.palette = p
	}
}

// New validates the template and checks that the scheme sizes every field
// the template references.
func New(tpl document.Template, scheme fontsize.Scheme, opts ...Option) (*Renderer, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	orientation := fontsize.Orientation(tpl.Orientation)
	names := tpl.Fields()
	fields := make([]fontsize.Field, 0, len(names))
	for _, name := range names {
		f := fontsize.Field(name)
		if !f.Known() {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "template %s references unknown field %s", tpl.Name, name)
		}
		fields = append(fields, f)
	}
	if err := scheme.Validate(orientation, fields); err != nil {
		return nil, err
	}
	return &Renderer{
		template: tpl,
		resolver: marker.NewResolver(scheme, orientation,
			marker.WithLogger(cfg.logger),
			marker.WithPalette(cfg.palette),
		),
		logger: cfg.logger,
	}, nil
}

// Template returns the template the renderer fills.
func (r *Renderer) Template() document.Template {
	return r.template
}

// Render writes every record of c into its slot as marker-wrapped values,
// blanks empty slots, then resolves the markers.
func (r *Renderer) Render(ctx context.Context, c chunk.Chunk) (*document.Fragment, marker.Stats, error) {
	if len(c.Slots) > r.template.Slots() {
		return nil, marker.Stats{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"chunk %d has %d slots, template %s holds %d", c.Index, len(c.Slots), r.template.Name, r.template.Slots())
	}
	frag := r.template.NewFragment()
	for slot := range frag.Slots() {
		var values map[string]string
		if slot < len(c.Slots) && !c.Slots[slot].Empty() {
			values = Wrapped(*c.Slots[slot].Record)
		}
		if err := frag.Substitute(slot, values); err != nil {
			return nil, marker.Stats{}, err
		}
	}
	stats, err := r.resolver.Resolve(ctx, frag)
	if err != nil {
		return nil, stats, err
	}
	return frag, stats, nil
}

// Values maps every label field to its display text.
func Values(rec models.NormalizedRecord) map[fontsize.Field]string {
	doh := ""
	if rec.DOHCompliant {
		doh = "DOH"
	}
	lineage := rec.Lineage.Display()
	return map[fontsize.Field]string{
		fontsize.FieldDescription:     rec.Description,
		fontsize.FieldPrice:           rec.PriceDisplay,
		fontsize.FieldLineage:         lineage,
		fontsize.FieldLineageCentered: lineage,
		fontsize.FieldBrand:           rec.Brand,
		fontsize.FieldBrandCentered:   rec.Brand,
		fontsize.FieldRatio:           rec.RatioOrPotency,
		fontsize.FieldWeight:          rec.WeightDisplay,
		fontsize.FieldProductStrain:   rec.ProductStrain,
		fontsize.FieldVendor:          rec.Vendor,
		fontsize.FieldDOH:             doh,
	}
}

// Wrapped returns Values with every value enclosed in its field markers,
// keyed by template token name.
func Wrapped(rec models.NormalizedRecord) map[string]string {
	values := Values(rec)
	out := make(map[string]string, len(values))
	for f, v := range values {
		out[string(f)] = marker.Wrap(f, v)
	}
	return out
}
