package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the registered collectors over HTTP for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	// AttemptsTotal tracks dispatch attempts per service, provenance and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genrelay_attempts_total",
			Help: "Total number of dispatch attempts",
		},
		[]string{"service", "provenance", "server", "outcome"},
	)

	// AttemptLatency tracks per-attempt latency
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genrelay_attempt_latency_seconds",
			Help:    "Dispatch attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "server"},
	)

	// DispatchFailures tracks whole-dispatch failures by error class
	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genrelay_dispatch_failures_total",
			Help: "Total number of failed dispatches",
		},
		[]string{"service", "class"},
	)

	// AdmissionOutcomes tracks slot acquisition outcomes per server
	AdmissionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genrelay_admission_outcomes_total",
			Help: "Total number of admission outcomes",
		},
		[]string{"server", "outcome"},
	)
)
