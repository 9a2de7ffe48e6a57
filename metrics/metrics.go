// Package metrics holds the funnel counters shared by handlers and business
// flows. HTTP-level instrumentation lives in the middleware package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsCapturedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_captured_total",
			Help: "Total number of leads captured",
		},
	)
	paymentsConfirmedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Total number of confirmed payments by method",
		},
		[]string{"method"},
	)
)

// RecordLeadCaptured bumps the lead intake counter
func RecordLeadCaptured() {
	leadsCapturedTotal.Inc()
}

// RecordPaymentConfirmed bumps the confirmed payment counter for a method
func RecordPaymentConfirmed(method string) {
	paymentsConfirmedTotal.WithLabelValues(method).Inc()
}
