// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gallery.
type Metrics struct {
	// Ledger call metrics
	LedgerCallsTotal   *prometheus.CounterVec
	LedgerCallDuration *prometheus.HistogramVec

	// Store metrics
	StoreRefreshesTotal *prometheus.CounterVec
	StoreTokens         *prometheus.GaugeVec

	// Mutation metrics
	MutationsTotal *prometheus.CounterVec

	// Session metrics
	LoginsTotal  prometheus.Counter
	LogoutsTotal prometheus.Counter

	// Gateway metrics
	WSClientsConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "nft_gallery"
	}

	return &Metrics{
		LedgerCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "calls_total",
			Help:      "Total number of ledger calls by method and status",
		}, []string{"method", "status"}),
		LedgerCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Ledger call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		StoreRefreshesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "refreshes_total",
			Help:      "Total number of token store refreshes by collection and status",
		}, []string{"collection", "status"}),
		StoreTokens: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "tokens",
			Help:      "Number of tokens currently held per collection",
		}, []string{"collection"}),

		MutationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mutations",
			Name:      "total",
			Help:      "Total number of mutation operations by operation and status",
		}, []string{"operation", "status"}),

		LoginsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Total number of logins",
		}),
		LogoutsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Total number of logouts",
		}),

		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "ws_clients_connected",
			Help:      "Number of connected websocket clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordLedgerCall records one ledger call's outcome and latency.
func RecordLedgerCall(method, status string, seconds float64) {
	DefaultMetrics.LedgerCallsTotal.WithLabelValues(method, status).Inc()
	DefaultMetrics.LedgerCallDuration.WithLabelValues(method).Observe(seconds)
}

// RecordStoreRefresh records one token store refresh.
func RecordStoreRefresh(collection, status string, size int) {
	DefaultMetrics.StoreRefreshesTotal.WithLabelValues(collection, status).Inc()
	if status == "ok" {
		DefaultMetrics.StoreTokens.WithLabelValues(collection).Set(float64(size))
	}
}

// RecordMutation records one mutation operation's outcome.
func RecordMutation(operation, status string) {
	DefaultMetrics.MutationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordLogin increments the login counter.
func RecordLogin() {
	DefaultMetrics.LoginsTotal.Inc()
}

// RecordLogout increments the logout counter.
func RecordLogout() {
	DefaultMetrics.LogoutsTotal.Inc()
}

// SetWSClients updates the connected websocket client gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClientsConnected.Set(float64(n))
}
