// Package metrics provides Prometheus metrics collection for SmartBid.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

const namespace = "smartbid"

// Collector holds all Prometheus metrics for SmartBid.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Entitlement and usage metrics
	GateDecisions       *prometheus.CounterVec
	UsageIncrements     *prometheus.CounterVec
	LiveSubscriberCount prometheus.Gauge

	// Audit metrics
	Audits *prometheus.CounterVec

	// Upstream metrics (llm, billing)
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec

	// Billing webhook metrics
	WebhookEvents *prometheus.CounterVec

	// Throttled requests by route
	RateLimited *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_decisions_total",
				Help:      "Entitlement gate decisions by reason",
			},
			[]string{"reason"},
		),
		UsageIncrements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_increments_total",
				Help:      "Usage counter transactions by counter and outcome",
			},
			[]string{"counter", "outcome"},
		),
		LiveSubscriberCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_subscribers",
				Help:      "Open live usage feed subscriptions",
			},
		),
		Audits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audits_total",
				Help:      "Metered audits by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Upstream call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"service"},
		),
		UpstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream calls",
			},
			[]string{"service"},
		),
		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Billing webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests refused by the per-client rate limiter",
			},
			[]string{"route"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of failed config reloads",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of the last successful config reload",
			},
		),
	}
}

// GateDecision counts one entitlement gate evaluation.
func (c *Collector) GateDecision(reason string) {
	c.GateDecisions.WithLabelValues(reason).Inc()
}

// UsageIncrement counts one usage counter transaction.
func (c *Collector) UsageIncrement(counter, outcome string) {
	c.UsageIncrements.WithLabelValues(counter, outcome).Inc()
}

// Upstream observes one external call.
func (c *Collector) Upstream(service string, elapsed time.Duration, err error) {
	c.UpstreamDuration.WithLabelValues(service).Observe(elapsed.Seconds())
	if err != nil {
		c.UpstreamErrors.WithLabelValues(service).Inc()
	}
}

// WebhookEvent counts one billing webhook.
func (c *Collector) WebhookEvent(eventType, outcome string) {
	c.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// Audit counts one metered audit.
func (c *Collector) Audit(role, outcome string) {
	c.Audits.WithLabelValues(role, outcome).Inc()
}

// LiveSubscribers sets the open live feed subscription gauge.
func (c *Collector) LiveSubscribers(n int) {
	c.LiveSubscriberCount.Set(float64(n))
}

// Ensure interface compliance.
var _ ports.Metrics = (*Collector)(nil)

// NormalizePath bounds label cardinality for requests that matched no route.
func NormalizePath(path string) string {
	if path == "" {
		return "unmatched"
	}
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}
