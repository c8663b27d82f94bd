package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_runs_total",
			Help: "Background job runs by job and outcome (ok, error).",
		},
		[]string{"job", "outcome"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobs_run_duration_seconds",
			Help:    "Background job run latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	sweptTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_swept_items_total",
			Help: "Expired entries removed by maintenance jobs, per store.",
		},
		[]string{"store"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, sweptTotal)
}
