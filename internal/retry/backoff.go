// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package retry provides the exponential-backoff loop shared by the
// catalog and oracle HTTP clients.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/kai-classifier/internal/clock"
)

// Policy configures an exponential backoff: delay doubles from Base after
// each failed attempt, capped at Max, for up to MaxAttempts tries total.
type Policy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Delay returns the backoff delay before attempt n (0-indexed).
func (p Policy) Delay(n int) time.Duration {
	multiplier := math.Pow(2, float64(n))
	d := time.Duration(float64(p.Base) * multiplier)
	if d <= 0 || d > p.Max {
		d = p.Max
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// policy's attempt budget is exhausted. isRetryable decides whether a
// failure should be retried at all; a nil isRetryable retries every error.
func Do(ctx context.Context, clk clock.Clock, p Policy, isRetryable func(error) bool, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(delay):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetryable != nil && !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("retry: exhausted %d attempts: %w", p.MaxAttempts, lastErr)
}
