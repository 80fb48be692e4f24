package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the front end.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	proxyDuration  *prometheus.HistogramVec
	proxyRequests  *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	gateRedirects  *prometheus.CounterVec
	pageDuration   *prometheus.HistogramVec
	splitOffers    prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		proxyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logistica_proxy_duration_seconds",
				Help:    "Duration of proxied upstream calls by resource.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		proxyRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logistica_proxy_requests_total",
				Help: "Proxied upstream calls by resource, method and upstream status.",
			},
			[]string{"resource", "method", "status"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logistica_upstream_errors_total",
				Help: "Transport failures and open-circuit rejections by upstream.",
			},
			[]string{"upstream"},
		),
		gateRedirects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logistica_gate_redirects_total",
				Help: "Page navigations redirected by the access gate.",
			},
			[]string{"reason"},
		),
		pageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logistica_page_duration_seconds",
				Help:    "Duration of backend loads behind page renders.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"page"},
		),
		splitOffers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "logistica_split_suggestions_total",
				Help: "Order rejections turned into split suggestions.",
			},
		),
	}
}

// ObserveProxy records one relayed upstream call.
func (m *Metrics) ObserveProxy(resource, method string, status int, d time.Duration) {
	m.proxyDuration.WithLabelValues(resource).Observe(d.Seconds())
	m.proxyRequests.WithLabelValues(resource, method, strconv.Itoa(status)).Inc()
}

// IncrUpstreamError increments the upstream failure counter.
func (m *Metrics) IncrUpstreamError(upstream string) {
	m.upstreamErrors.WithLabelValues(upstream).Inc()
}

// IncrGateRedirect increments the access gate redirect counter.
func (m *Metrics) IncrGateRedirect(reason string) {
	m.gateRedirects.WithLabelValues(reason).Inc()
}

// RecordPageDuration records how long a page spent loading backend data.
func (m *Metrics) RecordPageDuration(page string, d time.Duration) {
	m.pageDuration.WithLabelValues(page).Observe(d.Seconds())
}

// IncrSplitSuggestion counts a split suggestion offered to the user.
func (m *Metrics) IncrSplitSuggestion() {
	m.splitOffers.Inc()
}

// CounterValue reads the current value of a counter by metric name and label
// values, in label declaration order. Missing series read as zero.
func (m *Metrics) CounterValue(name string, labels ...string) float64 {
	var c prometheus.Counter
	var err error
	switch name {
	case "logistica_proxy_requests_total":
		c, err = m.proxyRequests.GetMetricWithLabelValues(labels...)
	case "logistica_upstream_errors_total":
		c, err = m.upstreamErrors.GetMetricWithLabelValues(labels...)
	case "logistica_gate_redirects_total":
		c, err = m.gateRedirects.GetMetricWithLabelValues(labels...)
	case "logistica_split_suggestions_total":
		c = m.splitOffers
	default:
		return 0
	}
	if err != nil {
		return 0
	}
	return counterValue(c)
}

func counterValue(c prometheus.Counter) float64 {
	out := &dto.Metric{}
	if err := c.Write(out); err != nil {
		return 0
	}
	if out.Counter != nil && out.Counter.Value != nil {
		return *out.Counter.Value
	}
	return 0
}
