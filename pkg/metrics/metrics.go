package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gowiki", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gowiki", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	PageMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gowiki", Name: "page_mutations_total", Help: "Page mutations by operation and outcome."},
		[]string{"op", "outcome"},
	)
	PersistenceOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gowiki", Name: "persistence_ops_total", Help: "Record loads and saves by backend, operation and outcome."},
		[]string{"backend", "op", "outcome"},
	)
	PersistenceRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gowiki", Name: "persistence_retries_total", Help: "Retried record operations."},
		[]string{"op"},
	)
	Pages = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "gowiki", Name: "pages", Help: "Number of live pages."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(PageMutations)
	reg.MustRegister(PersistenceOps)
	reg.MustRegister(PersistenceRetries)
	reg.MustRegister(Pages)
}
