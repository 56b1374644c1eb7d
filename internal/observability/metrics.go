// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	OrdersFetched  prometheus.Counter
	FeedCallErrors *prometheus.CounterVec
	FeedLatency    *prometheus.HistogramVec

	// Conversion metrics
	OrdersConverted prometheus.Counter
	OrdersRejected  *prometheus.CounterVec
	CatalogMisses   *prometheus.CounterVec
	ConvertLatency  prometheus.Histogram

	// Comparison metrics
	ProviderQuotes     *prometheus.CounterVec
	ProviderLatency    *prometheus.HistogramVec
	NeutralComparisons prometheus.Counter

	// Publishing metrics
	OrdersSelected    prometheus.Counter
	OutcomesPublished *prometheus.CounterVec
	LastVolumeUSD     prometheus.Gauge

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	StreamClients       prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers metrics on reg. Tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "garden_volume_watch"
	}
	f := promauto.With(reg)

	return &Metrics{
		OrdersFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "orders_fetched_total",
			Help:      "Total number of matched orders fetched from the feed",
		}),
		FeedCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "call_errors_total",
			Help:      "Total number of failed feed calls by endpoint",
		}, []string{"endpoint"}),
		FeedLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "call_latency_seconds",
			Help:      "Feed call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		OrdersConverted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "orders_converted_total",
			Help:      "Total number of orders converted to outcomes",
		}),
		OrdersRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "orders_rejected_total",
			Help:      "Total number of orders rejected by reason",
		}, []string{"reason"}),
		CatalogMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "catalog_misses_total",
			Help:      "Total number of decimals lookups that fell back to the default",
		}, []string{"chain"}),
		ConvertLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversion",
			Name:      "convert_latency_seconds",
			Help:      "Per-order conversion latency in seconds, comparison included",
			Buckets:   prometheus.DefBuckets,
		}),

		ProviderQuotes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comparison",
			Name:      "provider_quotes_total",
			Help:      "Total number of competitor quotes by provider and status",
		}, []string{"provider", "status"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "comparison",
			Name:      "provider_latency_seconds",
			Help:      "Competitor quote latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		NeutralComparisons: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comparison",
			Name:      "neutral_total",
			Help:      "Total number of comparisons with no valid competitor quote",
		}),

		OrdersSelected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "orders_selected_total",
			Help:      "Total number of outcomes selected above the volume threshold",
		}),
		OutcomesPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "outcomes_total",
			Help:      "Total number of publish attempts by status",
		}, []string{"status"}),
		LastVolumeUSD: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "last_volume_usd",
			Help:      "USD volume of the last published outcome",
		}),

		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "cycles_total",
			Help:      "Total number of poll cycles by status",
		}, []string{"status"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "cycle_duration_seconds",
			Help:      "Poll cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulCycle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful poll cycle",
		}),
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected outcome stream clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOrdersFetched adds n to the fetched orders counter.
func RecordOrdersFetched(n int) {
	DefaultMetrics.OrdersFetched.Add(float64(n))
}

// RecordFeedCall records latency and failure of a feed call.
func RecordFeedCall(endpoint string, seconds float64, err error) {
	DefaultMetrics.FeedLatency.WithLabelValues(endpoint).Observe(seconds)
	if err != nil {
		DefaultMetrics.FeedCallErrors.WithLabelValues(endpoint).Inc()
	}
}

// RecordOrderConverted records a successful conversion.
func RecordOrderConverted(seconds float64) {
	DefaultMetrics.OrdersConverted.Inc()
	DefaultMetrics.ConvertLatency.Observe(seconds)
}

// RecordOrderRejected records an order that could not be converted.
func RecordOrderRejected(reason string) {
	DefaultMetrics.OrdersRejected.WithLabelValues(reason).Inc()
}

// RecordCatalogMiss records a decimals lookup that used the fallback.
func RecordCatalogMiss(chain string) {
	DefaultMetrics.CatalogMisses.WithLabelValues(chain).Inc()
}

// RecordProviderQuote records one competitor quote attempt.
func RecordProviderQuote(provider, status string, seconds float64) {
	DefaultMetrics.ProviderQuotes.WithLabelValues(provider, status).Inc()
	DefaultMetrics.ProviderLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordNeutralComparison records a comparison with no valid quote.
func RecordNeutralComparison() {
	DefaultMetrics.NeutralComparisons.Inc()
}

// RecordSelected adds n to the selected outcomes counter.
func RecordSelected(n int) {
	DefaultMetrics.OrdersSelected.Add(float64(n))
}

// RecordPublish records a publish attempt.
func RecordPublish(status string, volumeUSD float64) {
	DefaultMetrics.OutcomesPublished.WithLabelValues(status).Inc()
	if status == "ok" {
		DefaultMetrics.LastVolumeUSD.Set(volumeUSD)
	}
}

// RecordCycle records a poll cycle.
func RecordCycle(status string, durationSeconds float64, unixNow int64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
	if status == "ok" {
		DefaultMetrics.LastSuccessfulCycle.Set(float64(unixNow))
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetStreamClients updates the connected stream clients gauge.
func SetStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}
