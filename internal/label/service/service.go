// Package service runs a label batch end to end: normalize, filter, sort,
// chunk, render in parallel and compose.
package service

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"labelforge/internal/catalog/filter"
	"labelforge/internal/catalog/models"
	"labelforge/internal/label/chunk"
	"labelforge/internal/label/dispatch"
	"labelforge/internal/label/document"
	"labelforge/internal/label/fontsize"
	"labelforge/internal/label/marker"
	"labelforge/internal/label/metrics"
	"labelforge/internal/label/render"
)

// Normalizer turns raw rows into display records. It never fails.
type Normalizer interface {
	Normalize(ctx context.Context, raws []models.RawRecord) []models.NormalizedRecord
}

// Request selects what to print and how.
type Request struct {
	Template document.Template
	Filter   models.FilterConfig
	Order    filter.Order
	Title    string
}

// Report is the outcome of one batch. Partial batches are successes with
// Dropped* populated.
type Report struct {
	RunID          string
	Template       string
	Records        int
	Selected       int
	Chunks         int
	Rendered       int
	DroppedChunks  []int
	DroppedRows    []int
	Failures       []dispatch.ChunkFailure
	Partial        bool
	Document       *document.Document
	NormalizedRows []models.NormalizedRecord
	Duration       time.Duration
}

// Service generates label documents.
type Service struct {
	normalizer   Normalizer
	scheme       fontsize.Scheme
	palette      marker.Palette
	workers      int
	chunkTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.TracerProvider
	newRunID     func() string
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

// WithFontScheme replaces the default sizing rules.
func WithFontScheme(scheme fontsize.Scheme) Option {
	return func(s *Service) {
		s.scheme = scheme
	}
}

func WithPalette(p marker.Palette) Option {
	return func(s *Service) {
		s.palette = p
	}
}

func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

func WithChunkTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.chunkTimeout = timeout
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp
	}
}

// WithRunIDGenerator overrides uuid-based run IDs.
func WithRunIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newRunID = fn
		}
	}
}

func New(normalizer Normalizer, opts ...Option) *Service {
	s := &Service{
		normalizer: normalizer,
		scheme:     fontsize.DefaultScheme(),
		workers:    runtime.NumCPU(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		newRunID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate validates the configuration before touching any record, then
// runs the batch. Only invalid configuration returns an error; dropped
// chunks are reported.
func (s *Service) Generate(ctx context.Context, raws []models.RawRecord, req Request) (*Report, error) {
	start := time.Now()
	renderer, err := render.New(req.Template, s.scheme,
		render.WithLogger(s.logger),
		render.WithPalette(s.palette),
	)
	if err != nil {
		return nil, err
	}
	dispatcher, err := dispatch.New(renderer,
		dispatch.WithWorkers(s.workers),
		dispatch.WithChunkTimeout(s.chunkTimeout),
		dispatch.WithLogger(s.logger),
		dispatch.WithMetrics(s.metrics),
		dispatch.WithTracerProvider(s.tracer),
	)
	if err != nil {
		return nil, err
	}

	runID := s.newRunID()
	logger := s.logger.With("run_id", runID)

	normalized := s.normalizer.Normalize(ctx, raws)
	selected := filter.Sort(filter.Apply(normalized, req.Filter), req.Order)
	chunks, err := chunk.Split(selected, req.Template.Slots())
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = "Labels " + req.Template.Name
	}
	res := dispatcher.Process(ctx, chunks, dispatch.Meta{Title: title, RunID: runID})

	report := &Report{
		RunID:          runID,
		Template:       req.Template.Name,
		Records:        len(normalized),
		Selected:       len(selected),
		Chunks:         len(chunks),
		Rendered:       res.Rendered,
		DroppedRows:    res.DroppedRows(),
		Failures:       res.Failures,
		Partial:        res.Partial(),
		Document:       res.Document,
		NormalizedRows: normalized,
		Duration:       time.Since(start),
	}
	for _, f := range res.Failures {
		report.DroppedChunks = append(report.DroppedChunks, f.Index)
	}

	if report.Partial {
		logger.WarnContext(ctx, "label batch completed with dropped chunks",
			"dropped_chunks", report.DroppedChunks,
			"dropped_rows", report.DroppedRows,
		)
	} else {
		logger.InfoContext(ctx, "label batch completed",
			"records", report.Records,
			"selected", report.Selected,
			"chunks", report.Chunks,
			"duration", report.Duration,
		)
	}
	return report, nil
}
