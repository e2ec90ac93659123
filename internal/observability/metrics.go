package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All methods are safe on a nil receiver so
// components can be built without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	checkerRuns     *prometheus.CounterVec
	checkerLatency  *prometheus.HistogramVec
	checkOutcomes   *prometheus.CounterVec
	ruleLoads       *prometheus.CounterVec
	rulesActive     prometheus.Gauge
	sessionsActive  prometheus.Gauge
	apiRequests     *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	apiInflight     prometheus.Gauge
	rateLimitDenied prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		checkerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentsafety",
			Name:      "checker_runs_total",
			Help:      "Checker invocations by checker and outcome.",
		}, []string{"checker", "outcome"}),
		checkerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contentsafety",
			Name:      "checker_duration_seconds",
			Help:      "Checker latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"checker"}),
		checkOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentsafety",
			Name:      "checks_total",
			Help:      "Orchestrated checks by outcome (ok, partial, failed).",
		}, []string{"outcome"}),
		ruleLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentsafety",
			Name:      "rule_loads_total",
			Help:      "Banned-phrase rule source attempts by source kind and outcome.",
		}, []string{"source", "outcome"}),
		rulesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "contentsafety",
			Name:      "banned_phrase_rules_active",
			Help:      "Compiled banned-phrase rules in the current snapshot.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "contentsafety",
			Name:      "sessions_active",
			Help:      "Open check sessions.",
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentsafety",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contentsafety",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "contentsafety",
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
		rateLimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contentsafety",
			Name:      "rate_limit_denied_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.checkerRuns, m.checkerLatency, m.checkOutcomes,
		m.ruleLoads, m.rulesActive, m.sessionsActive,
		m.apiRequests, m.apiLatency, m.apiInflight, m.rateLimitDenied,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveChecker(checker, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.checkerRuns.WithLabelValues(checker, outcome).Inc()
	m.checkerLatency.WithLabelValues(checker).Observe(d.Seconds())
}

func (m *Metrics) IncCheck(outcome string) {
	if m == nil {
		return
	}
	m.checkOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRuleLoad(source, outcome string) {
	if m == nil {
		return
	}
	m.ruleLoads.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) SetRulesActive(n int) {
	if m == nil {
		return
	}
	m.rulesActive.Set(float64(n))
}

func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) IncRateLimitDenied() {
	if m != nil {
		m.rateLimitDenied.Inc()
	}
}
