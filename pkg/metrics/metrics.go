package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds quantlab collectors
// ⭐ SSOT: Prometheus 컬렉터는 여기서만 정의
type Registry struct {
	reg *prometheus.Registry

	ScenariosTotal   *prometheus.CounterVec
	ScenarioDuration prometheus.Histogram
	AlertsTotal      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	FetchTotal       *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
}

// New creates a registry with process and Go collectors attached
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		ScenariosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quantlab",
			Subsystem: "backtest",
			Name:      "scenarios_total",
			Help:      "Scenario backtests by outcome.",
		}, []string{"outcome"}),
		ScenarioDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quantlab",
			Subsystem: "backtest",
			Name:      "scenario_duration_seconds",
			Help:      "Wall time of a single scenario backtest.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quantlab",
			Subsystem: "monitor",
			Name:      "alerts_total",
			Help:      "Alerts fired by kind and level.",
		}, []string{"kind", "level"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quantlab",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quantlab",
			Subsystem: "external",
			Name:      "fetch_total",
			Help:      "External data fetches by source and result.",
		}, []string{"source", "result"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quantlab",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job wall time.",
		}, []string{"job"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ScenariosTotal,
		r.ScenarioDuration,
		r.AlertsTotal,
		r.HTTPRequests,
		r.FetchTotal,
		r.JobDuration,
	)
	return r
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying gatherer (tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveScenario records one finished scenario. A nil registry is a no-op.
func (r *Registry) ObserveScenario(d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.ScenariosTotal.WithLabelValues(outcome).Inc()
	r.ScenarioDuration.Observe(d.Seconds())
}

// ObserveAlert counts a fired alert
func (r *Registry) ObserveAlert(kind, level string) {
	if r == nil {
		return
	}
	r.AlertsTotal.WithLabelValues(kind, level).Inc()
}

// ObserveFetch counts an external fetch
func (r *Registry) ObserveFetch(source string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.FetchTotal.WithLabelValues(source, result).Inc()
}

// ObserveRequest counts an API request
func (r *Registry) ObserveRequest(route string, code int) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveJob records a scheduler job duration
func (r *Registry) ObserveJob(job string, d time.Duration) {
	if r == nil {
		return
	}
	r.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}
