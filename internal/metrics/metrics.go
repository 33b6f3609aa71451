// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package metrics exposes Prometheus instrumentation for the oracle token
// ledger, catalog/oracle circuit breakers, and run outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OracleTokensTotal counts tokens spent against the classification
	// oracle, split by direction (input/output) and rubric category.
	OracleTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kai_oracle_tokens_total",
			Help: "Total oracle tokens consumed",
		},
		[]string{"direction", "category"},
	)

	// OracleCostUSDTotal accumulates estimated oracle spend in US dollars.
	OracleCostUSDTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kai_oracle_cost_usd_total",
			Help: "Estimated oracle cost in USD",
		},
		[]string{"category"},
	)

	// OracleRequestsTotal counts oracle calls by outcome.
	OracleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kai_oracle_requests_total",
			Help: "Total oracle requests by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	// CircuitBreakerState reports the current state of a named circuit
	// breaker (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kai_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts state transitions of a named
	// circuit breaker.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kai_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// ReconcileChangesTotal counts label mutations applied to the catalog.
	ReconcileChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kai_reconcile_changes_total",
			Help: "Total label additions and removals applied to the catalog",
		},
		[]string{"category", "action"}, // action: "add", "remove"
	)

	// RunsTotal counts orchestrator runs by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kai_runs_total",
			Help: "Total classifier runs by outcome",
		},
		[]string{"outcome"}, // "success", "partial", "failed"
	)

	// RunDurationSeconds observes wall-clock run duration.
	RunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kai_run_duration_seconds",
			Help:    "Duration of a classifier run in seconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
)

// StateToFloat converts a gobreaker state name to the numeric value the
// CircuitBreakerState gauge expects.
func StateToFloat(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
