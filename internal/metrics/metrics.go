package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics
var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewriter_requests_total",
			Help: "Total number of requests processed, by vhost",
		},
		[]string{"host"},
	)
	RewritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewriter_rewrites_total",
			Help: "Total number of requests whose path was rewritten",
		},
	)
	RedirectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewriter_redirects_total",
			Help: "Total number of redirect responses issued by rewrite rules",
		},
	)
	LoopFaultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewriter_loop_faults_total",
			Help: "Total number of evaluations aborted by the rewrite iteration cap",
		},
	)
	UnmatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewriter_unmatched_total",
			Help: "Total number of requests matching no vhost scope",
		},
	)
)

// Init registers Prometheus metrics
func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RewritesTotal)
	prometheus.MustRegister(RedirectsTotal)
	prometheus.MustRegister(LoopFaultsTotal)
	prometheus.MustRegister(UnmatchedTotal)
}

// Handler returns the HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
