package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for record normalization. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RecordsNormalized prometheus.Counter
	FieldFallbacks    *prometheus.CounterVec
	LineageOrigins    *prometheus.CounterVec
	RecoveredPanics   prometheus.Counter
	NormalizeDuration prometheus.Histogram
}

// New registers catalog metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsNormalized: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_records_normalized_total",
			Help: "Total number of records passed through normalization",
		}),
		FieldFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labelforge_field_fallbacks_total",
			Help: "Fields that degraded to a default value, by field",
		}, []string{"field"}),
		LineageOrigins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labelforge_lineage_decisions_total",
			Help: "Lineage decisions by the rule that produced them",
		}, []string{"origin"}),
		RecoveredPanics: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_normalize_panics_total",
			Help: "Per-record panics recovered into safe defaults",
		}),
		NormalizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelforge_normalize_duration_seconds",
			Help:    "Duration of a normalization batch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsNormalized.Add(float64(n))
}

func (m *Metrics) IncrementFallback(field string) {
	if m == nil {
		return
	}
	m.FieldFallbacks.WithLabelValues(field).Inc()
}

func (m *Metrics) IncrementLineageOrigin(origin string) {
	if m == nil {
		return
	}
	m.LineageOrigins.WithLabelValues(origin).Inc()
}

func (m *Metrics) IncrementRecoveredPanic() {
	if m == nil {
		return
	}
	m.RecoveredPanics.Inc()
}

// ObserveNormalize records a batch duration. Call with time.Now() at the
// start of the batch.
func (m *Metrics) ObserveNormalize(start time.Time) {
	if m == nil {
		return
	}
	m.NormalizeDuration.Observe(time.Since(start).Seconds())
}
