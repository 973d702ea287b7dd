package preference

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricCacheHits   = "placerank_profile_cache_hits_total"
	MetricCacheMisses = "placerank_profile_cache_misses_total"
	MetricCacheErrors = "placerank_profile_cache_errors_total"
)

// Metrics contains Prometheus metrics for the profile cache.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
}

// NewMetrics creates a Metrics instance. Call Register to expose it.
func NewMetrics() *Metrics {
	return &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheHits,
			Help: "Total number of place profiles served from cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheMisses,
			Help: "Total number of place profiles computed on a cache miss",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheErrors,
			Help: "Total number of profile cache read or write failures",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.hits, m.misses, m.errors}
}

func (m *Metrics) incHits() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) incMisses() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) incErrors() {
	if m != nil {
		m.errors.Inc()
	}
}
