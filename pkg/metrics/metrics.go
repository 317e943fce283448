package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourcraft", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourcraft", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	EntityOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourcraft", Name: "entity_operations_total", Help: "Entity accessor calls by collection, operation and outcome."},
		[]string{"collection", "op", "outcome"},
	)
	DeletesRefused = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourcraft", Name: "deletes_refused_total", Help: "Deletes refused by the relation checker, by target and referencing collection."},
		[]string{"collection", "referenced_by"},
	)
	Searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourcraft", Name: "searches_total", Help: "Search executions by collection and outcome (applied, stale, error)."},
		[]string{"collection", "outcome"},
	)
	Relances = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tourcraft", Name: "relances_total", Help: "Relance workflow evaluations by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(EntityOperations)
	reg.MustRegister(DeletesRefused)
	reg.MustRegister(Searches)
	reg.MustRegister(Relances)
}
