// Package metrics содержит счетчики Prometheus для партий официосов.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics собирает все метрики генератора.
type Metrics struct {
	BatchesTotal       *prometheus.CounterVec
	DocumentsTotal     prometheus.Counter
	ConversionDuration prometheus.Histogram
	LedgerRowsTotal    prometheus.Counter
	BatchDuration      *prometheus.HistogramVec
}

// New создает метрики и регистрирует их в reg (при nil без регистрации).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oficios_batches_total",
				Help: "Total number of batch runs by outcome code",
			},
			[]string{"strategy", "code"},
		),
		DocumentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oficios_documents_generated_total",
			Help: "Total number of filled documents",
		}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oficios_conversion_duration_seconds",
			Help:    "Duration of docx to PDF conversions",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		LedgerRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oficios_ledger_rows_appended_total",
			Help: "Total number of rows appended to the history ledger",
		}),
		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oficios_batch_duration_seconds",
				Help:    "Duration of batch runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.BatchesTotal, m.DocumentsTotal, m.ConversionDuration, m.LedgerRowsTotal, m.BatchDuration)
	}
	return m
}

// ObserveBatch записывает итог партии.
func (m *Metrics) ObserveBatch(strategy, code string, took time.Duration) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(strategy, code).Inc()
	m.BatchDuration.WithLabelValues(strategy).Observe(took.Seconds())
}
