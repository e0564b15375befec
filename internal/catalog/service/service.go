// Package service runs the record normalization pipeline: every raw record
// becomes exactly one display-ready record, in input order, without errors.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"labelforge/internal/catalog/metrics"
	"labelforge/internal/catalog/models"
	"labelforge/internal/catalog/normalize"
	lineage "labelforge/internal/lineage/models"
	pstrings "labelforge/pkg/platform/strings"
)

// LineageSource is the best-effort view of the lineage store the pipeline
// needs. Lookup returns whatever it could read; Learn never blocks on I/O
// failures.
type LineageSource interface {
	Lookup(ctx context.Context, strains []string) map[string]lineage.Override
	Learn(ctx context.Context, overrides []lineage.Override)
}

// Service normalizes raw catalog records.
type Service struct {
	columns       models.Columns
	lineage       LineageSource
	minConfidence float64
	logger        *slog.Logger
	metrics       *metrics.Metrics
	clock         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLineageSource enables override lookups and learning.
func WithLineageSource(src LineageSource) Option {
	return func(s *Service) {
		s.lineage = src
	}
}

// WithColumns replaces the default header aliases.
func WithColumns(c models.Columns) Option {
	return func(s *Service) {
		s.columns = c
	}
}

// WithMinConfidence sets the confidence a learned override needs before it
// fills a blank classic lineage.
func WithMinConfidence(c float64) Option {
	return func(s *Service) {
		s.minConfidence = c
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a Service. Without a lineage source no overrides apply.
func New(opts ...Option) *Service {
	s := &Service{
		columns:       models.NewColumns(nil),
		minConfidence: 0.5,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// observation is what one record contributes to lineage learning.
type observation struct {
	key     string
	lineage models.Lineage
	learn   bool
}

// Normalize returns one record per input, in order. Lineage overrides are
// read in one batch before the loop and learned lineages written in one
// batch after it.
func (s *Service) Normalize(ctx context.Context, raws []models.RawRecord) []models.NormalizedRecord {
	start := time.Now()
	defer s.metrics.ObserveNormalize(start)

	keys := make([]string, len(raws))
	for i, raw := range raws {
		keys[i] = s.strainKey(raw)
	}
	overrides := s.lookup(ctx, keys)

	out := make([]models.NormalizedRecord, len(raws))
	obs := make([]observation, len(raws))
	for i, raw := range raws {
		out[i], obs[i] = s.normalizeRecord(ctx, i, raw, keys[i], overrides)
	}
	s.metrics.AddRecords(len(raws))

	if s.lineage != nil {
		if learned := s.learned(obs, overrides); len(learned) > 0 {
			s.lineage.Learn(ctx, learned)
		}
	}
	return out
}

// strainKey prefers an exported Strain Key column, even a blank one, so a
// reserialized record keeps the key its source strain produced.
func (s *Service) strainKey(raw models.RawRecord) string {
	if k, ok := s.columns.Lookup(raw, models.FieldStrainKey); ok {
		return normalize.NormalizeStrainKey(k)
	}
	return normalize.NormalizeStrainKey(s.columns.Get(raw, models.FieldStrain))
}

func (s *Service) lookup(ctx context.Context, keys []string) map[string]lineage.Override {
	if s.lineage == nil {
		return nil
	}
	distinct := pstrings.Distinct(keys)
	if len(distinct) == 0 {
		return nil
	}
	return s.lineage.Lookup(ctx, distinct)
}

// normalizeRecord never panics: a panic inside a normalizer degrades the
// record to safe defaults.
func (s *Service) normalizeRecord(ctx context.Context, i int, raw models.RawRecord, key string, overrides map[string]lineage.Override) (rec models.NormalizedRecord, obs observation) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncrementRecoveredPanic()
			s.logger.ErrorContext(ctx, "record normalization panicked",
				"row", i+1,
				"panic", fmt.Sprint(r),
			)
			rec = safeDefault(i)
			obs = observation{}
		}
	}()

	cols := s.columns
	get := func(f models.Field) string { return cols.Get(raw, f) }

	// product type
	rawType := get(models.FieldProductType)
	pt := normalize.ClassifyProductType(rawType)
	if rawType == "" {
		s.fallback(ctx, i, "productType", rawType)
	}

	// lineage, read against the product strain the record will carry
	description := normalize.Description(get(models.FieldDescription), get(models.FieldProductName))
	text := normalize.MatchText(description, get(models.FieldProductName))
	sourceLineage := get(models.FieldLineage)
	strain := normalize.AssignStrain(pt, text, get(models.FieldStrain))
	in := normalize.LineageInput{
		Type:         pt,
		Source:       sourceLineage,
		Text:         text,
		SourceStrain: strain,
	}
	if o, ok := overrides[key]; ok && key != "" {
		l := o.Lineage
		switch {
		case o.Sovereign:
			in.Sovereign = &l
		case o.Confidence >= s.minConfidence:
			in.Learned = &l
		}
	}
	decision := normalize.InferLineage(in)
	s.metrics.IncrementLineageOrigin(decision.Origin.String())
	if decision.Origin == normalize.OriginDefault && sourceLineage != "" {
		s.fallback(ctx, i, "lineage", sourceLineage)
	}

	// ratio and weight
	rawWeight := get(models.FieldWeight)
	weight := normalize.ParseWeight(rawWeight, get(models.FieldUnits))
	if !weight.OK && rawWeight != "" {
		s.fallback(ctx, i, "weight", rawWeight)
	}
	ratio := normalize.FormatRatio(normalize.RatioInput{
		Type:       pt,
		Explicit:   get(models.FieldRatio),
		JointRatio: get(models.FieldJointRatio),
		THC:        get(models.FieldTHC),
		CBD:        get(models.FieldCBD),
		Weight:     weight,
	})

	// price
	rawPrice := get(models.FieldPrice)
	price := normalize.FormatPrice(rawPrice)
	if !price.Numeric && rawPrice != "" {
		s.fallback(ctx, i, "price", rawPrice)
	}

	rec = models.NormalizedRecord{
		Row:            i + 1,
		Description:    description,
		PriceDisplay:   price.Display,
		PriceNumeric:   price.Numeric,
		WeightDisplay:  normalize.FormatWeight(weight, pt),
		RatioOrPotency: ratio,
		Lineage:        decision.Lineage,
		ProductStrain:  strain,
		StrainKey:      key,
		ProductType:    pt,
		Brand:          normalize.CleanText(get(models.FieldBrand)),
		Vendor:         normalize.CleanVendor(get(models.FieldVendor)),
		DOHCompliant:   normalize.ParseBool(get(models.FieldDOH)),
	}
	obs = observation{
		key:     key,
		lineage: decision.Lineage,
		learn:   key != "" && pt.Classic() && decision.Origin == normalize.OriginSource,
	}
	return rec, obs
}

func (s *Service) fallback(ctx context.Context, i int, field, raw string) {
	s.metrics.IncrementFallback(field)
	s.logger.DebugContext(ctx, "field degraded to default",
		"row", i+1,
		"field", field,
		"raw", raw,
	)
}

// learned turns source-backed classic lineages into learned overrides. The
// majority lineage per strain wins; confidence is its share of the rows.
// Strains with a sovereign override are never relearned.
func (s *Service) learned(obs []observation, existing map[string]lineage.Override) []lineage.Override {
	type tally struct {
		total  int
		counts map[models.Lineage]int
	}
	tallies := make(map[string]*tally)
	var order []string
	for _, o := range obs {
		if !o.learn {
			continue
		}
		if cur, ok := existing[o.key]; ok && cur.Sovereign {
			continue
		}
		t, ok := tallies[o.key]
		if !ok {
			t = &tally{counts: make(map[models.Lineage]int)}
			tallies[o.key] = t
			order = append(order, o.key)
		}
		t.total++
		t.counts[o.lineage]++
	}

	now := s.clock()
	out := make([]lineage.Override, 0, len(order))
	for _, key := range order {
		t := tallies[key]
		best, bestCount := models.Lineage(""), 0
		for _, l := range models.Lineages {
			if c := t.counts[l]; c > bestCount {
				best, bestCount = l, c
			}
		}
		o, err := lineage.NewOverride(key, best, float64(bestCount)/float64(t.total), false, now)
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

func safeDefault(i int) models.NormalizedRecord {
	return models.NormalizedRecord{
		Row:            i + 1,
		Lineage:        models.LineageMixed,
		ProductType:    models.ProductType{Kind: models.KindOther, Name: normalize.UnknownProductType},
		RatioOrPotency: normalize.DefaultRatio,
	}
}

// ToRaw reserializes a normalized record under canonical headers. Feeding
// the result back through Normalize yields the same record.
func ToRaw(n models.NormalizedRecord, cols models.Columns) models.RawRecord {
	doh := "No"
	if n.DOHCompliant {
		doh = "Yes"
	}
	raw := models.RawRecord{
		cols.Canonical(models.FieldDescription): n.Description,
		cols.Canonical(models.FieldProductName): n.Description,
		cols.Canonical(models.FieldProductType): n.ProductType.Name,
		cols.Canonical(models.FieldLineage):     string(n.Lineage),
		cols.Canonical(models.FieldStrain):      n.ProductStrain,
		cols.Canonical(models.FieldStrainKey):   n.StrainKey,
		cols.Canonical(models.FieldBrand):       n.Brand,
		cols.Canonical(models.FieldVendor):      n.Vendor,
		cols.Canonical(models.FieldPrice):       normalize.SpreadsheetCell(n.PriceDisplay, n.PriceNumeric),
		cols.Canonical(models.FieldWeight):      n.WeightDisplay,
		cols.Canonical(models.FieldRatio):       n.RatioOrPotency,
		cols.Canonical(models.FieldDOH):         doh,
	}
	if n.ProductType.PreRoll() && normalize.IsJointRatio(n.RatioOrPotency) {
		raw[cols.Canonical(models.FieldJointRatio)] = n.RatioOrPotency
	}
	return raw
}

// ExportHeaders lists the headers ToRaw writes, in export order.
func ExportHeaders(cols models.Columns) []string {
	fields := []models.Field{
		models.FieldDescription, models.FieldProductName, models.FieldProductType,
		models.FieldLineage, models.FieldStrain, models.FieldStrainKey, models.FieldBrand, models.FieldVendor,
		models.FieldPrice, models.FieldWeight, models.FieldRatio, models.FieldJointRatio,
		models.FieldDOH,
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = cols.Canonical(f)
	}
	return out
}
