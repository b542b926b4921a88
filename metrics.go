package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the prometheus collectors for migrations. A nil *metrics
// records nothing.
type metrics struct {
	migrations *prometheus.CounterVec
	rows       prometheus.Counter
	duration   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tableferry",
			Name:      "migrations_total",
			Help:      "Table migrations by result and error kind.",
		}, []string{"result", "kind"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tableferry",
			Name:      "rows_copied_total",
			Help:      "Rows inserted into target tables.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tableferry",
			Name:      "migration_duration_seconds",
			Help:      "Wall time of table migrations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(m.migrations, m.rows, m.duration)
	return m
}

func (m *metrics) observe(res *MigrationResult, err error) {
	if m == nil {
		return
	}
	result, kind := "success", ""
	switch {
	case err != nil:
		result = "failure"
		if k, ok := errorKindOf(err); ok {
			kind = string(k)
		}
	case res.Empty:
		result = "empty"
	}
	m.migrations.WithLabelValues(result, kind).Inc()
	m.rows.Add(float64(res.Rows))
	m.duration.Observe(res.Duration.Seconds())
}
