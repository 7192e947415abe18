package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters/histograms for funnel sync runs.
type SyncMetrics struct {
	runsTotal    *prometheus.CounterVec
	recordsTotal *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signupsync",
			Subsystem: "funnel",
			Name:      "sync_runs_total",
			Help:      "Total sync runs by source and aggregate status",
		}, []string{"source", "status"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signupsync",
			Subsystem: "funnel",
			Name:      "sync_records_total",
			Help:      "Total reconciled records by source and outcome",
		}, []string{"source", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signupsync",
			Subsystem: "funnel",
			Name:      "sync_run_duration_seconds",
			Help:      "Duration of sync runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.runsTotal, m.recordsTotal, m.runDuration)
	return m
}

func (m *SyncMetrics) ObserveRun(source, status string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(source, status).Inc()
	m.runDuration.WithLabelValues(source).Observe(seconds)
}

func (m *SyncMetrics) ObserveOutcomes(source string, created, updated, skipped, failed int) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(source, "created").Add(float64(created))
	m.recordsTotal.WithLabelValues(source, "updated").Add(float64(updated))
	m.recordsTotal.WithLabelValues(source, "skipped").Add(float64(skipped))
	m.recordsTotal.WithLabelValues(source, "error").Add(float64(failed))
}
