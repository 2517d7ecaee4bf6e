// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package condor is a roster and activity synchronization engine for a
// virtual air-traffic-control facility. It keeps a local controller
// registry consistent with the external roster source of truth and
// aggregates per-controller session activity into monthly totals.
package condor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/condor/activity"
	"github.com/blinklabs-io/condor/database"
	"github.com/blinklabs-io/condor/event"
	"github.com/blinklabs-io/condor/roster"
	"github.com/blinklabs-io/condor/vatsim"
	"github.com/blinklabs-io/condor/vatusa"
)

// Sync wires together the registry database, the external API clients,
// and the two periodic sync passes. Each pass runs in its own
// long-lived loop; within a pass, work is strictly sequential, and a
// loop never re-enters itself.
type Sync struct {
	config        Config
	db            *database.Database
	eventBus      *event.EventBus
	reconciler    *roster.Reconciler
	aggregator    *activity.Aggregator
	shutdownFuncs []func(context.Context) error
	cancel        context.CancelFunc
	loopWg        sync.WaitGroup
	done          chan struct{}
	shutdownOnce  sync.Once
}

// New creates a new Sync with the specified config
func New(cfg Config) (*Sync, error) {
	s := &Sync{
		config: cfg,
		done:   make(chan struct{}),
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// Database returns the registry database instance. This is only
// populated after Run has started.
func (s *Sync) Database() *database.Database {
	return s.db
}

// EventBus returns the event bus instance. This is only populated
// after Run has started.
func (s *Sync) EventBus() *event.EventBus {
	return s.eventBus
}

// bootstrap opens the database and builds the event bus and the two
// sync passes. It is safe to call at most once per Sync.
func (s *Sync) bootstrap() error {
	// Configure tracing
	if s.config.tracing {
		if err := s.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:      s.config.dataDir,
		Logger:       s.config.logger,
		PromRegistry: s.config.promRegistry,
		Tracing:      s.config.tracing,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	s.eventBus = event.NewEventBus(s.config.promRegistry)
	// Build sync passes
	s.reconciler = roster.NewReconciler(roster.ReconcilerConfig{
		Logger:       s.config.logger,
		Database:     s.db,
		Source:       vatusa.NewClient(s.config.vatusaURL),
		Facility:     s.config.facilityConfig,
		EventBus:     s.eventBus,
		PromRegistry: s.config.promRegistry,
	})
	s.aggregator = activity.NewAggregator(activity.AggregatorConfig{
		Logger:         s.config.logger,
		Database:       s.db,
		Source:         vatsim.NewClient(s.config.vatsimURL),
		Facility:       s.config.facilityConfig,
		EventBus:       s.eventBus,
		PromRegistry:   s.config.promRegistry,
		LookbackMonths: s.config.lookbackMonths,
		Throttle:       s.config.activityThrottle,
	})
	return nil
}

// RunRosterPass performs a single roster reconciliation pass and
// returns its report. It bootstraps the subsystems if Run has not
// been called; the caller remains responsible for Stop.
func (s *Sync) RunRosterPass(ctx context.Context) (roster.Report, error) {
	if s.reconciler == nil {
		if err := s.bootstrap(); err != nil {
			return roster.Report{}, err
		}
	}
	return s.reconciler.Run(ctx)
}

// RunActivityPass performs a single activity aggregation pass and
// returns its report. It bootstraps the subsystems if Run has not
// been called; the caller remains responsible for Stop.
func (s *Sync) RunActivityPass(ctx context.Context) (activity.Report, error) {
	if s.aggregator == nil {
		if err := s.bootstrap(); err != nil {
			return activity.Report{}, err
		}
	}
	return s.aggregator.Run(ctx)
}

// Run starts the sync loops and blocks until Stop is called. The
// roster and activity loops start after their configured delays so
// they don't collide at boot.
func (s *Sync) Run() error {
	if s.reconciler == nil {
		if err := s.bootstrap(); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopWg.Add(2)
	go s.passLoop(
		ctx,
		"roster",
		s.config.rosterStartDelay,
		s.config.rosterInterval,
		func(ctx context.Context) (any, error) {
			return s.reconciler.Run(ctx)
		},
	)
	go s.passLoop(
		ctx,
		"activity",
		s.config.activityStartDelay,
		s.config.activityInterval,
		func(ctx context.Context) (any, error) {
			return s.aggregator.Run(ctx)
		},
	)
	// Wait for shutdown signal
	<-s.done
	return nil
}

// passLoop runs a single sync pass on a fixed cadence. The next pass
// is never started before the previous one finishes, which is what
// makes overlapping passes impossible within a subsystem.
func (s *Sync) passLoop(
	ctx context.Context,
	name string,
	startDelay, interval time.Duration,
	pass func(context.Context) (any, error),
) {
	defer s.loopWg.Done()
	s.config.logger.Debug(
		"waiting before first pass",
		"component", name,
		"delay", startDelay.String(),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(startDelay):
	}
	for {
		s.config.logger.Info(
			"starting pass",
			"component", name,
		)
		report, err := pass(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			// Pass-level failures are retried on the next cycle
			s.config.logger.Error(
				"pass failed",
				"component", name,
				"error", err,
			)
		} else {
			s.config.logger.Info(
				"pass complete",
				"component", name,
				"report", fmt.Sprintf("%+v", report),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Stop shuts the sync loops down gracefully, allowing an in-flight
// per-controller transaction to complete before terminating.
func (s *Sync) Stop() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.shutdown()
	})
	return err
}

func (s *Sync) shutdown() error {
	shutdownTimeout := s.config.shutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	s.config.logger.Debug("starting graceful shutdown")

	// Stop the loops and wait for any in-flight pass to wind down
	if s.cancel != nil {
		s.cancel()
	}
	loopsDone := make(chan struct{})
	go func() {
		s.loopWg.Wait()
		close(loopsDone)
	}()
	select {
	case <-loopsDone:
	case <-ctx.Done():
		err = errors.Join(err, errors.New("timeout waiting for sync loops"))
	}

	if s.eventBus != nil {
		s.eventBus.Stop()
	}

	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Call registered shutdown functions
	for _, fn := range s.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	s.shutdownFuncs = nil

	s.config.logger.Debug("graceful shutdown complete")
	close(s.done)
	return err
}
