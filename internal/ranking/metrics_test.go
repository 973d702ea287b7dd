package ranking

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func collect(t *testing.T, c prometheus.Collector) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	if err := (<-ch).Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return &m
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return collect(t, c).GetCounter().GetValue()
}

func counterVecValue(t *testing.T, v *prometheus.CounterVec, label string) float64 {
	t.Helper()
	return collect(t, v.WithLabelValues(label)).GetCounter().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	return collect(t, h).GetHistogram().GetSampleCount()
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected error on duplicate registration")
	}

	m.incCollaboratorErrors(CollaboratorSentiment)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	expected := map[string]bool{
		MetricRankRequests:       false,
		MetricPlacesScored:       false,
		MetricCollaboratorErrors: false,
		MetricRankDuration:       false,
	}
	for _, f := range families {
		if _, ok := expected[f.GetName()]; ok {
			expected[f.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.incRankRequests()
	m.addPlacesScored(3)
	m.incCollaboratorErrors(CollaboratorPreference)
	m.observeRankDuration(0.1)
}
