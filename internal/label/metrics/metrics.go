package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for label rendering. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ChunksRendered      prometheus.Counter
	ChunkFailures       *prometheus.CounterVec
	ChunkDuration       prometheus.Histogram
	MarkerSpans         prometheus.Counter
	UnterminatedMarkers prometheus.Counter
	InFlightChunks      prometheus.Gauge
	BatchesPartial      prometheus.Counter
}

// New registers label metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChunksRendered: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_chunks_rendered_total",
			Help: "Chunks rendered into fragments",
		}),
		ChunkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labelforge_chunk_failures_total",
			Help: "Chunks dropped from a batch, by reason",
		}, []string{"reason"}),
		ChunkDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelforge_chunk_render_duration_seconds",
			Help:    "Time to render and resolve one chunk",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		MarkerSpans: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_marker_spans_resolved_total",
			Help: "Marker spans resolved into styled runs",
		}),
		UnterminatedMarkers: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_marker_spans_unterminated_total",
			Help: "Paragraphs left unresolved because a span had no end marker",
		}),
		InFlightChunks: f.NewGauge(prometheus.GaugeOpts{
			Name: "labelforge_chunks_in_flight",
			Help: "Chunks currently being rendered",
		}),
		BatchesPartial: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_batches_partial_total",
			Help: "Batches that completed with at least one dropped chunk",
		}),
	}
}

func (m *Metrics) ObserveChunk(start time.Time, spans, unterminated int) {
	if m == nil {
		return
	}
	m.ChunksRendered.Inc()
	m.ChunkDuration.Observe(time.Since(start).Seconds())
	m.MarkerSpans.Add(float64(spans))
	m.UnterminatedMarkers.Add(float64(unterminated))
}

func (m *Metrics) IncrementChunkFailure(reason string) {
	if m == nil {
		return
	}
	m.ChunkFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ChunkStarted() {
	if m == nil {
		return
	}
	m.InFlightChunks.Inc()
}

func (m *Metrics) ChunkFinished() {
	if m == nil {
		return
	}
	m.InFlightChunks.Dec()
}

func (m *Metrics) IncrementPartialBatch() {
	if m == nil {
		return
	}
	m.BatchesPartial.Inc()
}
