package mailbox

import "github.com/prometheus/client_golang/prometheus"

var (
	searchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbox_search_total",
			Help: "Mailbox search calls by outcome (ok, error, timeout).",
		},
		[]string{"outcome"},
	)

	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbox_fetch_total",
			Help: "Mailbox message detail fetches by outcome (ok, error, timeout).",
		},
		[]string{"outcome"},
	)

	cacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbox_cache_total",
			Help: "Per-contact result cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	connectedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailbox_connected",
			Help: "1 when the last connectivity probe succeeded.",
		},
	)
)

func init() {
	prometheus.MustRegister(searchTotal, fetchTotal, cacheTotal, connectedGauge)
}
