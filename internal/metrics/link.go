// Package metrics defines the Prometheus metrics for the account-linking
// flow. Standalone package so HTTP and service layers can both record without
// import cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CallbackOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "link_callback_outcomes_total",
		Help: "Terminal outcomes of the account-link callback, by status and provider.",
	}, []string{"status", "provider"})

	ExchangeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "link_code_exchange_duration_seconds",
		Help:    "Duration of the authorization-code exchange against the auth backend.",
		Buckets: prometheus.DefBuckets,
	})

	ExchangeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "link_code_exchange_failures_total",
		Help: "Failed authorization-code exchanges.",
	})

	Unlinks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "link_unlinks_total",
		Help: "Successful unlink operations.",
	})
)

// Register registers the link metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		CallbackOutcomes, ExchangeDuration, ExchangeFailures, Unlinks,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
