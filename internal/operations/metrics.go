package operations

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	apperrors "custodyetl/internal/errors"
)

// Metrics collects run-level counters on a private registry so repeated
// runs in one process never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	excludedRows  *prometheus.CounterVec
	eventRows     *prometheus.GaugeVec
	panelRows     prometheus.Gauge
}

// NewMetrics builds a metrics set backed by its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "custodyetl",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custodyetl",
			Name:      "stage_failures_total",
			Help:      "Stages that returned an error.",
		}, []string{"stage"}),
		excludedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custodyetl",
			Name:      "exclusions_total",
			Help:      "Detention events removed, by exclusion rule.",
		}, []string{"rule"}),
		eventRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "custodyetl",
			Name:      "event_rows",
			Help:      "Detention event counts at pipeline boundaries.",
		}, []string{"point"}),
		panelRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "custodyetl",
			Name:      "panel_rows",
			Help:      "Rows in the emitted person-day panel.",
		}),
	}
	m.registry.MustRegister(m.stageDuration, m.stageFailures, m.excludedRows, m.eventRows, m.panelRows)
	return m
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stageID string, elapsed time.Duration, ok bool) {
	m.stageDuration.WithLabelValues(stageID).Observe(elapsed.Seconds())
	if !ok {
		m.stageFailures.WithLabelValues(stageID).Inc()
	}
}

// RecordExclusions copies per-rule removal counts out of a finished clean run.
func (m *Metrics) RecordExclusions(results []RuleCount) {
	for _, r := range results {
		m.excludedRows.WithLabelValues(r.Rule).Add(float64(r.Removed))
	}
}

// RuleCount is one exclusion rule's removal total.
type RuleCount struct {
	Rule    string
	Removed int
}

// SetEventRows records an event count at a named pipeline boundary
// ("loaded", "cleaned").
func (m *Metrics) SetEventRows(point string, n int) {
	m.eventRows.WithLabelValues(point).Set(float64(n))
}

// SetPanelRows records the final panel size.
func (m *Metrics) SetPanelRows(n int) {
	m.panelRows.Set(float64(n))
}

// WriteTextfile dumps the registry in Prometheus text exposition format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "gather metrics")
	}

	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "create metrics file")
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, fam := range families {
		if err := enc.Encode(fam); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorageFailed, "encode metrics")
		}
	}
	return nil
}
