// Package metrics collects and exposes Prometheus metrics for the auth flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts auth attempts by operation and outcome, and accepted
// identity assertions by trust level.
type Collector struct {
	attempts   *prometheus.CounterVec
	assertions *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fullfuel_auth_attempts_total",
			Help: "Auth operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		assertions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fullfuel_external_assertions_total",
			Help: "Accepted external identity assertions by trust level.",
		}, []string{"trust"}),
	}
	reg.MustRegister(c.attempts, c.assertions)
	return c
}

// RecordAuth counts one auth operation result.
func (c *Collector) RecordAuth(op, outcome string) {
	c.attempts.WithLabelValues(op, outcome).Inc()
}

// RecordAssertion counts one accepted assertion.
func (c *Collector) RecordAssertion(trust string) {
	c.assertions.WithLabelValues(trust).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
