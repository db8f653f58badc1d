// Package metrics exposes the venue's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tyr",
		Name:      "orders_added_total",
		Help:      "Commands that booked a resting remainder.",
	})
	OrdersExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tyr",
		Name:      "orders_executed_total",
		Help:      "Resting orders consumed, fully or partially, by a match.",
	})
	QuantityTraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tyr",
		Name:      "quantity_traded_total",
		Help:      "Total matched quantity across all instruments.",
	})
	CancelsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tyr",
		Name:      "cancels_accepted_total",
		Help:      "Cancel attempts that removed a resting order.",
	})
	CancelsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tyr",
		Name:      "cancels_rejected_total",
		Help:      "Cancel attempts that referenced an unknown or settled order.",
	})
	MatchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tyr",
		Name:      "match_retries_total",
		Help:      "Match passes recomputed after a concurrent book change.",
	})
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tyr",
		Name:      "active_sessions",
		Help:      "Connected client sessions.",
	})
)

// Handler serves the default registry, mounted by the server on the metrics
// address.
func Handler() http.Handler {
	return promhttp.Handler()
}
