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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/condor"
	"github.com/blinklabs-io/condor/internal/config"
	"github.com/blinklabs-io/condor/internal/service"
	"github.com/spf13/cobra"
)

// passRun performs a single named sync pass and exits. Useful for
// cron-style deployments and for verifying config before running the
// full service.
func passRun(
	cfg *config.Config,
	name string,
	pass func(context.Context, *condor.Sync) (any, error),
) {
	logger := commonRun()

	s, err := service.Build(cfg, logger)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := s.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
		}
	}()

	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	report, err := pass(signalCtx, s)
	if err != nil {
		logger.Error(
			"pass failed",
			"component", name,
			"error", err,
		)
		os.Exit(1)
	}
	logger.Info(
		"pass complete",
		"component", name,
		"report", fmt.Sprintf("%+v", report),
	)
}

func rosterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Run a single roster reconciliation pass",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			passRun(
				cfg,
				"roster",
				func(ctx context.Context, s *condor.Sync) (any, error) {
					return s.RunRosterPass(ctx)
				},
			)
		},
	}
	return cmd
}

func activityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Run a single activity aggregation pass",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			passRun(
				cfg,
				"activity",
				func(ctx context.Context, s *condor.Sync) (any, error) {
					return s.RunActivityPass(ctx)
				},
			)
		},
	}
	return cmd
}
