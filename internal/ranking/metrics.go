package ranking

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRankRequests       = "placerank_rank_requests_total"
	MetricPlacesScored       = "placerank_places_scored_total"
	MetricCollaboratorErrors = "placerank_collaborator_errors_total"
	MetricRankDuration       = "placerank_rank_duration_seconds"
)

// Collaborator label values.
const (
	CollaboratorSentiment  = "sentiment"
	CollaboratorPreference = "preference"
)

// Metrics contains Prometheus metrics for the ranker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rankRequests       prometheus.Counter
	placesScored       prometheus.Counter
	collaboratorErrors *prometheus.CounterVec
	rankDuration       prometheus.Histogram
}

// NewMetrics creates a Metrics instance. Call Register to expose it.
func NewMetrics() *Metrics {
	return &Metrics{
		rankRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankRequests,
			Help: "Total number of rank calls",
		}),
		placesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPlacesScored,
			Help: "Total number of places scored",
		}),
		collaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCollaboratorErrors,
			Help: "Total number of failed sentiment or preference calls",
		}, []string{"collaborator"}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDuration,
			Help:    "Histogram of rank call duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
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
	return []prometheus.Collector{
		m.rankRequests,
		m.placesScored,
		m.collaboratorErrors,
		m.rankDuration,
	}
}

func (m *Metrics) incRankRequests() {
	if m != nil {
		m.rankRequests.Inc()
	}
}

func (m *Metrics) addPlacesScored(n int) {
	if m != nil {
		m.placesScored.Add(float64(n))
	}
}

func (m *Metrics) incCollaboratorErrors(collaborator string) {
	if m != nil {
		m.collaboratorErrors.WithLabelValues(collaborator).Inc()
	}
}

func (m *Metrics) observeRankDuration(seconds float64) {
	if m != nil {
		m.rankDuration.Observe(seconds)
	}
}
