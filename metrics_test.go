package main

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	m.observe(&MigrationResult{State: StateDone, Rows: 5}, nil)
	m.observe(&MigrationResult{State: StateDone, Empty: true}, nil)
	m.observe(&MigrationResult{State: StateTableCreated, Rows: 2},
		newMigrationError(KindDataCopy, "T", "copy data", errors.New("boom")))
	m.observe(&MigrationResult{}, errors.New("unclassified"))

	tests := []struct {
		result, kind string
		want         float64
	}{
		{"success", "", 1},
		{"empty", "", 1},
		{"failure", string(KindDataCopy), 1},
		{"failure", "", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.migrations.WithLabelValues(tt.result, tt.kind)); got != tt.want {
			t.Errorf("migrations{result=%q,kind=%q} = %v, want %v", tt.result, tt.kind, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.rows); got != 7 {
		t.Errorf("rows = %v, want 7", got)
	}
}

func TestMetricsObserve_Nil(t *testing.T) {
	var m *metrics
	m.observe(&MigrationResult{}, nil)
}
