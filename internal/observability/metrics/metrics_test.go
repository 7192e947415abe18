package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveRun("zoom", "success", 1.5)
	m.ObserveRun("zoom", "success", 0.5)
	m.ObserveOutcomes("zoom", 2, 1, 3, 0)

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("zoom", "success")); got != 2 {
		t.Fatalf("expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.recordsTotal.WithLabelValues("zoom", "created")); got != 2 {
		t.Fatalf("expected 2 created, got %v", got)
	}
	if got := testutil.ToFloat64(m.recordsTotal.WithLabelValues("zoom", "skipped")); got != 3 {
		t.Fatalf("expected 3 skipped, got %v", got)
	}
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var m *SyncMetrics
	m.ObserveRun("zoom", "success", 1)
	m.ObserveOutcomes("zoom", 1, 0, 0, 0)
}
