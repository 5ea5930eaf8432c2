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
	// Ledger metrics
	SwapsStored       *prometheus.CounterVec
	SnapshotsAppended prometheus.Counter
	StaleRetries      prometheus.Counter

	// Provider metrics
	ProvidersUpserted *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec

	// Archive metrics
	BalancePointsArchived prometheus.Counter
	ArchiveErrors         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lp_token_tracker"
	}

	return &Metrics{
		SwapsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "swaps_stored_total",
			Help:      "Total number of swap transactions stored by direction",
		}, []string{"direction"}),
		SnapshotsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "snapshots_appended_total",
			Help:      "Total number of pool snapshots appended to the ledger",
		}),
		StaleRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "stale_retries_total",
			Help:      "Total number of conditional appends retried after losing to a concurrent writer",
		}),

		ProvidersUpserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "providers",
			Name:      "upserts_total",
			Help:      "Total number of provider submissions by outcome",
		}, []string{"outcome"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by path and status",
		}, []string{"path", "status"}),

		BalancePointsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "balance_points_total",
			Help:      "Total number of balance points written to the history archive",
		}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Total number of failed archive writes",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSwapStored increments the swaps stored counter.
func RecordSwapStored(direction string) {
	DefaultMetrics.SwapsStored.WithLabelValues(direction).Inc()
}

// RecordSnapshotAppended increments the snapshots appended counter.
func RecordSnapshotAppended() {
	DefaultMetrics.SnapshotsAppended.Inc()
}

// RecordStaleRetry increments the stale retry counter.
func RecordStaleRetry() {
	DefaultMetrics.StaleRetries.Inc()
}

// RecordProviderUpsert records a provider submission outcome
// ("created", "updated" or "rejected").
func RecordProviderUpsert(outcome string) {
	DefaultMetrics.ProvidersUpserted.WithLabelValues(outcome).Inc()
}

// RecordRequest records one handled HTTP request.
func RecordRequest(path, status string, seconds float64) {
	DefaultMetrics.RequestsTotal.WithLabelValues(path, status).Inc()
	DefaultMetrics.RequestDuration.WithLabelValues(path).Observe(seconds)
}

// RecordBalancePointArchived records an archive write.
func RecordBalancePointArchived(err error) {
	if err != nil {
		DefaultMetrics.ArchiveErrors.Inc()
		return
	}
	DefaultMetrics.BalancePointsArchived.Inc()
}
