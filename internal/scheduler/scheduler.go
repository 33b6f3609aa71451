// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/kai-classifier/internal/clock"
	"github.com/tomtom215/kai-classifier/internal/logging"
)

// maxSleepTranche bounds a single sleep so Stop() is always noticed within
// this long, even while waiting out a multi-day interval.
const maxSleepTranche = 60 * time.Second

// Config is the parsed form of a schedule interval plus wall-clock start
// time.
type Config struct {
	Interval  Interval
	Start     WallClock
	Location  *time.Location
}

// Scheduler wakes a callback at each computed activation time.
type Scheduler struct {
	cfg      Config
	clk      clock.Clock
	onFire   func(ctx context.Context)
	lastRun  time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Scheduler that invokes onFire at each computed activation.
func New(cfg Config, clk clock.Clock, onFire func(ctx context.Context)) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{cfg: cfg, clk: clk, onFire: onFire}
}

// Start begins the sleep-wake loop in the background. It returns
// immediately; Stop() blocks until the loop has exited.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to do so.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// NextActivation reports the next time the loop will fire, given what it
// knows right now.
func (s *Scheduler) NextActivation() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextActivation(s.cfg.Interval, s.cfg.Start, s.lastRun, s.clk.Now(), s.cfg.Location)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	for {
		next := s.NextActivation()
		logging.Ctx(ctx).Info().Time("next_activation", next).Msg("scheduler computed next activation")

		if !s.sleepUntil(ctx, next) {
			return
		}

		s.mu.Lock()
		s.lastRun = s.clk.Now()
		s.mu.Unlock()

		s.onFire(ctx)
	}
}

// sleepUntil waits in bounded tranches until target, ctx cancellation, or
// Stop(), returning false if the loop should exit.
func (s *Scheduler) sleepUntil(ctx context.Context, target time.Time) bool {
	for {
		remaining := target.Sub(s.clk.Now())
		if remaining <= 0 {
			return true
		}
		tranche := remaining
		if tranche > maxSleepTranche {
			tranche = maxSleepTranche
		}

		select {
		case <-s.clk.After(tranche):
		case <-ctx.Done():
			return false
		case <-s.stopCh:
			return false
		}
	}
}
