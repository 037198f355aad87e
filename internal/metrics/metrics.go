package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the dashboard service.
type Metrics struct {
	RefreshesTotal     prometheus.Counter
	RefreshErrorsTotal prometheus.Counter
	RefreshDuration    prometheus.Histogram
	OpenPositions      prometheus.Gauge
	ExpectedProfitUSD  prometheus.Gauge
	ExpectedLossUSD    prometheus.Gauge
	TargetHitsTotal    prometheus.Counter
	WSReconnectsTotal  prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RefreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hyperdash_refreshes_total",
			Help: "Number of dashboard refresh cycles.",
		}),
		RefreshErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hyperdash_refresh_errors_total",
			Help: "Number of refresh cycles that failed.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyperdash_refresh_duration_seconds",
			Help:    "Duration of a full refresh cycle (fetch + analysis + persistence).",
			Buckets: prometheus.DefBuckets,
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hyperdash_open_positions",
			Help: "Open positions in the latest snapshot.",
		}),
		ExpectedProfitUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hyperdash_expected_profit_usd",
			Help: "Total expected profit across configured take-profit orders.",
		}),
		ExpectedLossUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hyperdash_expected_loss_usd",
			Help: "Total expected loss across configured stop-loss orders.",
		}),
		TargetHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hyperdash_target_hits_total",
			Help: "Number of times the daily profit target was reached.",
		}),
		WSReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hyperdash_ws_reconnects_total",
			Help: "Websocket reconnect attempts for the mid-price stream.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hyperdash_http_requests_total",
			Help: "HTTP API requests by path and status code.",
		}, []string{"path", "code"}),
		registry: reg,
	}

	reg.MustRegister(
		m.RefreshesTotal, m.RefreshErrorsTotal, m.RefreshDuration,
		m.OpenPositions, m.ExpectedProfitUSD, m.ExpectedLossUSD,
		m.TargetHitsTotal, m.WSReconnectsTotal, m.HTTPRequestsTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
