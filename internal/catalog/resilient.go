// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kai-classifier/internal/clock"
	"github.com/tomtom215/kai-classifier/internal/logging"
	"github.com/tomtom215/kai-classifier/internal/metrics"
	"github.com/tomtom215/kai-classifier/internal/retry"
)

const breakerName = "radarr-catalog"

// ResilientClient wraps a Client with a circuit breaker and exponential
// backoff so transient Radarr outages degrade the run instead of crashing
// it.
type ResilientClient struct {
	inner  Client
	cb     *gobreaker.CircuitBreaker[any]
	policy retry.Policy
	clk    clock.Clock
}

// NewResilientClient wraps inner with the standard catalog resilience
// policy: opens after 60% failures over 10+ requests in a 1-minute window,
// half-opens after 2 minutes, and retries individual calls up to 5 times
// with 1s-base doubling backoff capped at 30s.
func NewResilientClient(inner Client, clk clock.Clock) *ResilientClient {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
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

	return &ResilientClient{
		inner: inner,
		cb:    cb,
		clk:   clk,
		policy: retry.Policy{
			Base:        time.Second,
			Max:         30 * time.Second,
			MaxAttempts: 5,
		},
	}
}

func (r *ResilientClient) call(ctx context.Context, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, r.clk, r.policy, isRetryableErr, func(ctx context.Context) error {
		_, err := r.cb.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
			return fmt.Errorf("catalog circuit breaker: %w", err)
		}
		return err
	})
	return err
}

func isRetryableErr(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	// Network-level errors (timeouts, connection refused) and breaker
	// rejections are all worth a retry; only a well-formed 4xx is final.
	return true
}

// ListMovies delegates through the circuit breaker and retry policy.
func (r *ResilientClient) ListMovies(ctx context.Context) ([]Movie, error) {
	var out []Movie
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.inner.ListMovies(ctx)
		return err
	})
	return out, err
}

// ListLabels delegates through the circuit breaker and retry policy.
func (r *ResilientClient) ListLabels(ctx context.Context) ([]Label, error) {
	var out []Label
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.inner.ListLabels(ctx)
		return err
	})
	return out, err
}

// GetLabelByName delegates through the circuit breaker and retry policy.
func (r *ResilientClient) GetLabelByName(ctx context.Context, name string) (Label, bool, error) {
	var (
		out   Label
		found bool
	)
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		out, found, err = r.inner.GetLabelByName(ctx, name)
		return err
	})
	return out, found, err
}

// EnsureLabel delegates through the circuit breaker and retry policy.
func (r *ResilientClient) EnsureLabel(ctx context.Context, name string) (Label, error) {
	var out Label
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.inner.EnsureLabel(ctx, name)
		return err
	})
	return out, err
}

// SetMovieLabels delegates through the circuit breaker and retry policy.
func (r *ResilientClient) SetMovieLabels(ctx context.Context, movieID int, labelIDs []int) error {
	return r.call(ctx, func(ctx context.Context) error {
		return r.inner.SetMovieLabels(ctx, movieID, labelIDs)
	})
}
