// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Proxy metrics
	ProxyRequests       *prometheus.CounterVec
	ProxyRequestLatency *prometheus.HistogramVec
	UpstreamErrors      *prometheus.CounterVec

	// Gateway metrics
	GatewayFetches      *prometheus.CounterVec
	GatewayFetchLatency *prometheus.HistogramVec

	// Simulation metrics
	AnalysesRun      prometheus.Counter
	BacktestsRun     prometheus.Counter
	RebalancesFired  *prometheus.CounterVec
	PositionsTracked prometheus.Gauge
	AnalysisDuration prometheus.Histogram
	BacktestDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Feed metrics
	FeedMessagesReceived prometheus.Counter
	FeedReconnects       prometheus.Counter
	FeedConnected        prometheus.Gauge

	// Health metrics
	LastSuccessfulFetch prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dlmm_position_lab"
	}

	return &Metrics{
		ProxyRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Total number of proxy requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		ProxyRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "request_duration_seconds",
			Help:      "Proxy request duration by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "upstream_errors_total",
			Help:      "Total number of upstream failures by endpoint",
		}, []string{"endpoint"}),

		GatewayFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "fetches_total",
			Help:      "Total number of gateway fetches by kind and outcome",
		}, []string{"kind", "outcome"}),
		GatewayFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "fetch_duration_seconds",
			Help:      "Gateway fetch duration by kind",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		AnalysesRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "analyses_total",
			Help:      "Total number of rebalance analyses run",
		}),
		BacktestsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "backtests_total",
			Help:      "Total number of backtests run",
		}),
		RebalancesFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "rebalances_total",
			Help:      "Total number of rebalances dispatched by trigger",
		}, []string{"trigger"}),
		PositionsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "positions_tracked",
			Help:      "Current number of positions under analysis",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "analysis_duration_seconds",
			Help:      "Rebalance analysis duration",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10},
		}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "backtest_duration_seconds",
			Help:      "Backtest duration",
			Buckets:   []float64{1, 2, 4, 6, 10, 20},
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by database and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		FeedMessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_received_total",
			Help:      "Total number of price feed messages received",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of price feed reconnects",
		}),
		FeedConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "Whether the price feed is currently connected",
		}),

		LastSuccessfulFetch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_fetch_timestamp",
			Help:      "Unix timestamp of the last successful upstream fetch",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordProxyRequest records a completed proxy request.
func (m *Metrics) RecordProxyRequest(endpoint, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProxyRequests.WithLabelValues(endpoint, status).Inc()
	m.ProxyRequestLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordGatewayFetch records an upstream fetch outcome.
func (m *Metrics) RecordGatewayFetch(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else {
		m.LastSuccessfulFetch.SetToCurrentTime()
	}
	m.GatewayFetches.WithLabelValues(kind, outcome).Inc()
	m.GatewayFetchLatency.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordDBQuery records a database query duration and outcome.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
