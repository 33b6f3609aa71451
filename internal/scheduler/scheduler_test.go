// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock advances its own Now() by whatever duration After() is
// asked to wait, so a scheduler loop can be driven deterministically
// without sleeping real time.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *tickingClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *tickingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func TestSchedulerFiresAtComputedActivation(t *testing.T) {
	clk := &tickingClock{now: time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)}
	cfg := Config{Interval: Interval{N: 1, Unit: "d"}, Start: WallClock{Hour: 3}, Location: time.UTC}

	fired := make(chan struct{}, 4)
	s := New(cfg, clk, func(ctx context.Context) { fired <- struct{}{} })

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never fired")
	}

	s.Stop()
}

func TestSchedulerStartTwiceErrors(t *testing.T) {
	clk := &tickingClock{now: time.Now()}
	cfg := Config{Interval: Interval{N: 1, Unit: "h"}, Start: WallClock{Hour: 0}, Location: time.UTC}
	s := New(cfg, clk, func(context.Context) {})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	err := s.Start(context.Background())
	assert.Error(t, err)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	clk := &tickingClock{now: time.Now()}
	cfg := Config{Interval: Interval{N: 1, Unit: "h"}, Start: WallClock{Hour: 0}, Location: time.UTC}
	s := New(cfg, clk, func(context.Context) {})

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.NotPanics(t, func() { s.Stop() })
}
