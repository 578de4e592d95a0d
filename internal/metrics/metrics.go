package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the service exports on /metrics.
var Registry = prometheus.NewRegistry()

var (
	ReportPersists = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rics_report_persists_total",
		Help: "Report collection writes by result (ok, quota, error).",
	}, []string{"result"})

	Valuations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rics_valuations_computed_total",
		Help: "Valuation engine runs by outcome (computed, skipped, manual).",
	}, []string{"outcome"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rics_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rics_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

const (
	ResultOK    = "ok"
	ResultQuota = "quota"
	ResultError = "error"

	OutcomeComputed = "computed"
	OutcomeSkipped  = "skipped"
	OutcomeManual   = "manual"
)

func init() {
	Registry.MustRegister(
		ReportPersists,
		Valuations,
		HTTPRequests,
		HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
