// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package oracle

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kai-classifier/internal/clock"
	"github.com/tomtom215/kai-classifier/internal/logging"
	"github.com/tomtom215/kai-classifier/internal/metrics"
	"github.com/tomtom215/kai-classifier/internal/retry"
)

const breakerName = "oracle-anthropic"

// ResilientClient wraps a Client with the oracle's retry policy (1s base,
// doubling, capped at 30s, 10 attempts) and a circuit breaker. Retries are
// invisible to the caller. Every attempt is counted in the request-outcome
// metric; token and cost metrics are recorded only for the attempt that
// succeeds.
type ResilientClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[any]
	clk   clock.Clock
}

// NewResilientClient wraps inner with the standard oracle resilience
// policy.
func NewResilientClient(inner Client, clk clock.Clock) *ResilientClient {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Ctx(context.Background()).Warn().
				Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.StateToFloat(to.String()))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &ResilientClient{inner: inner, cb: cb, clk: clk}
}

var oraclePolicy = retry.Policy{
	Base:        time.Second,
	Max:         30 * time.Second,
	MaxAttempts: 10,
}

// Classify retries transient failures per the oracle's backoff policy and
// gives up the whole batch (returning the last error) once the attempt
// budget is exhausted or a fatal error is seen.
func (r *ResilientClient) Classify(ctx context.Context, req Request) (Response, error) {
	var out Response
	err := retry.Do(ctx, r.clk, oraclePolicy, isRetryable, func(ctx context.Context) error {
		result, err := r.cb.Execute(func() (any, error) {
			resp, err := r.inner.Classify(ctx, req)
			return resp, err
		})
		if err != nil {
			recordOutcome(req.Category, "failure")
			return err
		}
		resp := result.(Response)
		out = resp
		recordOutcome(req.Category, "success")
		metrics.OracleTokensTotal.WithLabelValues("input", req.Category).Add(float64(resp.Usage.InputTokens))
		metrics.OracleTokensTotal.WithLabelValues("output", req.Category).Add(float64(resp.Usage.OutputTokens))
		metrics.OracleCostUSDTotal.WithLabelValues(req.Category).Add(resp.Usage.EstimatedCost)
		return nil
	})
	return out, err
}

func recordOutcome(category, outcome string) {
	metrics.OracleRequestsTotal.WithLabelValues(outcome).Inc()
}

func isRetryable(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	return true
}
