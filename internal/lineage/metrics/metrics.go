package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lineage adapter. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Lookups        *prometheus.CounterVec
	OverridesFound prometheus.Counter
	BreakerOpen    prometheus.Gauge
	WritesApplied  prometheus.Counter
	WritesDropped  *prometheus.CounterVec
	WriteDuration  prometheus.Histogram
	QueueDepth     prometheus.Gauge
}

// New registers lineage metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labelforge_lineage_lookups_total",
			Help: "Batched override lookups by outcome (ok, error, breaker_open)",
		}, []string{"outcome"}),
		OverridesFound: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_lineage_overrides_found_total",
			Help: "Overrides returned by lookups",
		}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "labelforge_lineage_breaker_open",
			Help: "1 while the lineage store circuit breaker is open",
		}),
		WritesApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "labelforge_lineage_writes_applied_total",
			Help: "Overrides written to the store",
		}),
		WritesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "labelforge_lineage_writes_dropped_total",
			Help: "Learned override batches not written, by reason",
		}, []string{"reason"}),
		WriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelforge_lineage_write_duration_seconds",
			Help:    "Duration of one serialized store write",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "labelforge_lineage_write_queue_depth",
			Help: "Writes waiting for the single writer",
		}),
	}
}

func (m *Metrics) IncrementLookup(outcome string, found int) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
	m.OverridesFound.Add(float64(found))
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) ObserveWrite(start time.Time, applied int) {
	if m == nil {
		return
	}
	m.WriteDuration.Observe(time.Since(start).Seconds())
	m.WritesApplied.Add(float64(applied))
}

func (m *Metrics) IncrementDropped(reason string) {
	if m == nil {
		return
	}
	m.WritesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
