// Package dispatch renders chunks across a bounded worker pool and composes
// the surviving fragments, in chunk order, into one document.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"labelforge/internal/label/chunk"
	"labelforge/internal/label/document"
	"labelforge/internal/label/marker"
	"labelforge/internal/label/metrics"
	dErrors "labelforge/pkg/domain-errors"
)

// ChunkRenderer renders one chunk. Implementations must be safe for
// concurrent use.
type ChunkRenderer interface {
	Render(ctx context.Context, c chunk.Chunk) (*document.Fragment, marker.Stats, error)
}

// Failure reasons reported for dropped chunks.
const (
	ReasonError    = "render_error"
	ReasonPanic    = "panic"
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
)

var errPanic = errors.New("renderer panicked")

// ChunkFailure describes one dropped chunk.
type ChunkFailure struct {
	Index  int
	Rows   []int
	Reason string
	Err    error
}

// Result is the composed document plus every chunk that was dropped.
type Result struct {
	Document *document.Document
	Rendered int
	Failures []ChunkFailure
}

// Partial reports whether any chunk was dropped.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

// DroppedRows lists the source rows of every dropped chunk.
func (r *Result) DroppedRows() []int {
	var out []int
	for _, f := range r.Failures {
		out = append(out, f.Rows...)
	}
	return out
}

// Dispatcher fans chunks out to a bounded pool.
type Dispatcher struct {
	renderer     ChunkRenderer
	workers      int
	chunkTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithWorkers bounds the number of chunks rendered at once.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

// WithChunkTimeout sets a per-chunk deadline. Zero disables it.
func WithChunkTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.chunkTimeout = timeout
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		if tp != nil {
			d.tracer = tp.Tracer("labelforge/dispatch")
		}
	}
}

// New builds a dispatcher. Worker count defaults to the number of CPUs.
func New(renderer ChunkRenderer, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		renderer: renderer,
		workers:  runtime.NumCPU(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer("labelforge/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if renderer == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "renderer is required")
	}
	if d.workers <= 0 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "worker count must be positive, got %d", d.workers)
	}
	if d.chunkTimeout < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "chunk timeout must not be negative")
	}
	return d, nil
}

// Meta labels the composed document.
type Meta struct {
	Title string
	RunID string
}

// Process renders every chunk and composes the fragments in chunk index
// order, whatever order they finish in. A chunk that errors, panics or
// times out is dropped and reported; it never fails the batch.
func (d *Dispatcher) Process(ctx context.Context, chunks []chunk.Chunk, meta Meta) *Result {
	ctx, span := d.tracer.Start(ctx, "dispatch.process", trace.WithAttributes(
		attribute.Int("chunks", len(chunks)),
		attribute.Int("workers", d.workers),
		attribute.String("run_id", meta.RunID),
	))
	defer span.End()

	fragments := make([]*document.Fragment, len(chunks))
	failures := make([]*ChunkFailure, len(chunks))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, c := range chunks {
		g.Go(func() error {
			fragments[i], failures[i] = d.renderChunk(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Document: Compose(meta, fragments)}
	for i, f := range failures {
		if f != nil {
			res.Failures = append(res.Failures, *f)
			continue
		}
		if fragments[i] != nil {
			res.Rendered++
		}
	}
	if res.Partial() {
		d.metrics.IncrementPartialBatch()
		span.SetStatus(codes.Error, fmt.Sprintf("%d chunks dropped", len(res.Failures)))
	}
	span.SetAttributes(attribute.Int("dropped", len(res.Failures)))
	return res
}

func (d *Dispatcher) renderChunk(ctx context.Context, c chunk.Chunk) (*document.Fragment, *ChunkFailure) {
	ctx, span := d.tracer.Start(ctx, "dispatch.render_chunk", trace.WithAttributes(
		attribute.Int("chunk.index", c.Index),
		attribute.Int("chunk.slots", len(c.Slots)),
	))
	defer span.End()

	d.metrics.ChunkStarted()
	defer d.metrics.ChunkFinished()
	start := time.Now()

	frag, stats, err := d.renderWithDeadline(ctx, c)
	if err == nil {
		d.metrics.ObserveChunk(start, stats.Spans, stats.Unterminated)
		return frag, nil
	}

	reason := classify(err)
	d.metrics.IncrementChunkFailure(reason)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	d.logger.WarnContext(ctx, "chunk dropped",
		"chunk_index", c.Index,
		"rows", c.Rows(),
		"reason", reason,
		"error", err,
	)
	return nil, &ChunkFailure{Index: c.Index, Rows: c.Rows(), Reason: reason, Err: err}
}

type rendered struct {
	frag  *document.Fragment
	stats marker.Stats
	err   error
}

func (d *Dispatcher) renderWithDeadline(ctx context.Context, c chunk.Chunk) (*document.Fragment, marker.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, marker.Stats{}, err
	}
	if d.chunkTimeout == 0 {
		r := d.safeRender(ctx, c)
		return r.frag, r.stats, r.err
	}

	ctx, cancel := context.WithTimeout(ctx, d.chunkTimeout)
	defer cancel()
	done := make(chan rendered, 1)
	go func() {
		done <- d.safeRender(ctx, c)
	}()
	select {
	case r := <-done:
		return r.frag, r.stats, r.err
	case <-ctx.Done():
		return nil, marker.Stats{}, ctx.Err()
	}
}

func (d *Dispatcher) safeRender(ctx context.Context, c chunk.Chunk) (out rendered) {
	defer func() {
		if r := recover(); r != nil {
			out = rendered{err: fmt.Errorf("%w: %v", errPanic, r)}
		}
	}()
	frag, stats, err := d.renderer.Render(ctx, c)
	if err == nil && frag == nil {
		err = errors.New("renderer returned no fragment")
	}
	return rendered{frag: frag, stats: stats, err: err}
}

func classify(err error) string {
	switch {
	case errors.Is(err, errPanic):
		return ReasonPanic
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	}
	return ReasonError
}

// Compose concatenates fragments in slice order, skipping dropped (nil)
// ones. Each fragment's pages are copied unchanged.
func Compose(meta Meta, fragments []*document.Fragment) *document.Document {
	doc := document.New(meta.Title, meta.RunID)
	for _, f := range fragments {
		doc.Append(f)
	}
	return doc
}
