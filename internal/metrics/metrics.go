// Package metrics holds the Prometheus collectors for store transactions and
// persistence. A nil *Metrics is valid and records nothing.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

type Metrics struct {
	Registry *prometheus.Registry

	transactions  *prometheus.CounterVec
	saveDuration  prometheus.Histogram
	loads         *prometheus.CounterVec
	sequenceSkips *prometheus.CounterVec
	entities      *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Name:      "transactions_total",
			Help:      "Store transactions by operation and outcome.",
		}, []string{"op", "outcome"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "backoffice",
			Name:      "snapshot_save_seconds",
			Help:      "Time spent writing both snapshot slots.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Name:      "snapshot_loads_total",
			Help:      "Snapshot loads by the slot they were served from.",
		}, []string{"source"}),
		sequenceSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Name:      "sequence_skips_total",
			Help:      "Document numbers skipped because they were already taken.",
		}, []string{"family"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "backoffice",
			Name:      "entities",
			Help:      "Records per collection in the committed snapshot.",
		}, []string{"collection"}),
	}
	m.Registry.MustRegister(m.transactions, m.saveDuration, m.loads, m.sequenceSkips, m.entities)
	return m
}

func (m *Metrics) ObserveTransaction(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transactions.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveSave(d time.Duration) {
	if m == nil {
		return
	}
	m.saveDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveLoad(source string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(source).Inc()
}

func (m *Metrics) SequenceSkipped(family string) {
	if m == nil {
		return
	}
	m.sequenceSkips.WithLabelValues(family).Inc()
}

func (m *Metrics) SetEntityCounts(counts map[string]int) {
	if m == nil {
		return
	}
	for collection, n := range counts {
		m.entities.WithLabelValues(collection).Set(float64(n))
	}
}

// WriteText renders every registered family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
