// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recipefeed_circuit_breaker_state",
		Help: "Circuit breaker state by name (closed=1, half-open=1, open=1; others 0)",
	}, []string{"name", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipefeed_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips (transitions to open state)",
	}, []string{"name", "reason"})
)

var circuitStates = []string{"closed", "half-open", "open"}

// SetCircuitBreakerState records the active circuit breaker state for a breaker.
func SetCircuitBreakerState(name, state string) {
	for _, s := range circuitStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(name, s).Set(value)
	}
}

// RecordCircuitBreakerTrip increments the trip counter when a breaker opens.
func RecordCircuitBreakerTrip(name, reason string) {
	circuitBreakerTrips.WithLabelValues(name, reason).Inc()
}
