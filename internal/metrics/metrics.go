package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache outcomes recorded on StatsComputations
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheDisabled = "disabled"
	CacheError    = "error"
	// CacheBypass marks snapshots computed together with their trade list
	CacheBypass = "bypass"
)

// Metrics holds the journal's Prometheus collectors
type Metrics struct {
	// StatsComputations counts statistics requests by cache outcome
	StatsComputations *prometheus.CounterVec
	// StatsDuration observes time spent filtering and aggregating
	StatsDuration prometheus.Histogram
	// EventsConsumed counts inbound Kafka events by type and outcome
	EventsConsumed *prometheus.CounterVec
	// EventsPublished counts outbound journal events by type and outcome
	EventsPublished *prometheus.CounterVec
	// HTTPRequests counts API requests by route, method and status
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration observes API request latency by route
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StatsComputations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "journal",
				Subsystem: "stats",
				Name:      "computations_total",
				Help:      "Total number of statistics requests by cache outcome",
			},
			[]string{"cache"},
		),
		StatsDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "journal",
				Subsystem: "stats",
				Name:      "compute_duration_seconds",
				Help:      "Time to filter and aggregate a trade list",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		EventsConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "journal",
				Subsystem: "kafka",
				Name:      "events_consumed_total",
				Help:      "Total number of consumed events",
			},
			[]string{"event_type", "outcome"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "journal",
				Subsystem: "kafka",
				Name:      "events_published_total",
				Help:      "Total number of published journal events",
			},
			[]string{"event_type", "outcome"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "journal",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "journal",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}
