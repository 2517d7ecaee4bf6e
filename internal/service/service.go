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

package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/condor"
	"github.com/blinklabs-io/condor/facility"
	"github.com/blinklabs-io/condor/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Build assembles a condor.Sync from the process config
func Build(cfg *config.Config, logger *slog.Logger) (*condor.Sync, error) {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "service")
	facilityCfg, err := facility.NewConfigFromFile(cfg.FacilityConfig)
	if err != nil {
		return nil, fmt.Errorf("loading facility config: %w", err)
	}
	s, err := condor.New(
		condor.NewConfig(
			condor.WithLogger(logger),
			condor.WithFacilityConfig(facilityCfg),
			condor.WithDatabasePath(cfg.DatabasePath),
			condor.WithVatusaURL(cfg.VatusaURL),
			condor.WithVatsimURL(cfg.VatsimURL),
			condor.WithRosterInterval(
				config.Duration(cfg.RosterInterval, condor.DefaultRosterInterval),
			),
			condor.WithRosterStartDelay(
				config.Duration(cfg.RosterStartDelay, condor.DefaultRosterStartDelay),
			),
			condor.WithActivityInterval(
				config.Duration(cfg.ActivityInterval, condor.DefaultActivityInterval),
			),
			condor.WithActivityStartDelay(
				config.Duration(cfg.ActivityStartDelay, condor.DefaultActivityStartDelay),
			),
			condor.WithActivityThrottle(
				config.Duration(cfg.ActivityThrottle, 0),
			),
			condor.WithLookbackMonths(cfg.LookbackMonths),
			condor.WithTracing(cfg.Tracing),
			condor.WithTracingStdout(cfg.TracingStdout),
			condor.WithShutdownTimeout(
				config.Duration(cfg.ShutdownTimeout, condor.DefaultShutdownTimeout),
			),
			// Enable metrics with default prometheus registry
			condor.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the sync service and blocks until an interrupt or
// termination signal arrives, then shuts everything down gracefully
func Run(cfg *config.Config, logger *slog.Logger) error {
	s, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	shutdownTimeout := config.Duration(
		cfg.ShutdownTimeout,
		condor.DefaultShutdownTimeout,
	)
	// Metrics listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		fmt.Sprintf("serving prometheus metrics on :%d", cfg.MetricsPort),
		"component", "service",
	)
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "service",
			)
			os.Exit(1)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run sync in goroutine
	errChan := make(chan error, 1)
	go func() {
		err := s.Run()
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		if err := s.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		signalCtxStop()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("metrics server shutdown error", "error", shutdownErr)
		}
		if stopErr := s.Stop(); stopErr != nil {
			logger.Error("shutdown errors occurred", "error", stopErr)
		}
		if err != nil {
			logger.Error("sync error", "error", err)
		}
		return err
	}
}
