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

// Package activity aggregates per-controller session history from the
// external activity source into monthly totals in the local registry.
package activity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/blinklabs-io/condor/database"
	"github.com/blinklabs-io/condor/database/models"
	"github.com/blinklabs-io/condor/event"
	"github.com/blinklabs-io/condor/facility"
	"github.com/blinklabs-io/condor/vatsim"
	"github.com/prometheus/client_golang/prometheus"
)

// ActivityUpdatedEventType is emitted after a controller's monthly
// activity rows have been replaced
const ActivityUpdatedEventType event.EventType = "activity.updated"

// ActivityUpdatedEvent is the payload for ActivityUpdatedEventType
type ActivityUpdatedEvent struct {
	CID    uint64
	Months int
}

const (
	// DefaultLookbackMonths is how far back sessions are fetched. Five
	// months keeps even the facility's most active controllers under
	// the activity endpoint's single-page result cap, so pagination is
	// deliberately not implemented.
	DefaultLookbackMonths = 5
	// DefaultThrottle is the pause between controllers, as a courtesy
	// to the external API's informal rate limit
	DefaultThrottle = 1 * time.Second
)

// Source is the external activity source.
type Source interface {
	GetATCSessions(
		ctx context.Context,
		cid uint64,
		since time.Time,
	) ([]vatsim.Session, error)
}

// Report summarizes a single aggregation pass.
type Report struct {
	Updated int
	Failed  int
}

// AggregatorConfig is the configuration for an Aggregator.
type AggregatorConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	Source       Source
	Facility     *facility.Config
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// LookbackMonths overrides DefaultLookbackMonths when positive
	LookbackMonths int
	// Throttle overrides DefaultThrottle when positive. The throttle
	// itself is contractual; zero falls back to the default rather
	// than disabling it.
	Throttle time.Duration
}

// Aggregator replaces each on-roster controller's stored monthly
// activity with fresh data from the external activity source.
// Controllers are processed strictly sequentially and each
// controller's rows are replaced in a single transaction.
type Aggregator struct {
	config  AggregatorConfig
	metrics *aggregatorMetrics
}

type aggregatorMetrics struct {
	passes      *prometheus.CounterVec
	controllers *prometheus.CounterVec
}

// NewAggregator creates an Aggregator with the given config.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = DefaultLookbackMonths
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	a := &Aggregator{
		config: cfg,
	}
	if cfg.PromRegistry != nil {
		a.metrics = &aggregatorMetrics{
			passes: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "condor_activity_passes_total",
					Help: "Total activity aggregation passes by result",
				},
				[]string{"result"},
			),
			controllers: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "condor_activity_controllers_total",
					Help: "Total controllers processed by result",
				},
				[]string{"result"},
			),
		}
		cfg.PromRegistry.MustRegister(
			a.metrics.passes,
			a.metrics.controllers,
		)
	}
	return a
}

// Run performs a single aggregation pass over all on-roster
// controllers. Per-controller failures leave that controller's prior
// rows untouched and processing continues. Run returns early only if
// the context is canceled or the on-roster listing fails.
func (a *Aggregator) Run(ctx context.Context) (Report, error) {
	var report Report
	cids, err := a.config.Database.GetOnRosterCIDs(nil)
	if err != nil {
		a.countPass("error")
		return report, fmt.Errorf("listing on-roster controllers: %w", err)
	}
	since := time.Now().UTC().AddDate(0, -a.config.LookbackMonths, 0)
	for i, cid := range cids {
		a.config.Logger.Debug(
			"updating activity",
			"component", "activity",
			"cid", cid,
		)
		if err := a.updateController(ctx, cid, since); err != nil {
			a.config.Logger.Error(
				"error updating activity",
				"component", "activity",
				"cid", cid,
				"error", err,
			)
			report.Failed++
			a.countController("failed")
		} else {
			report.Updated++
			a.countController("updated")
		}
		// pause between controllers to be nice to the external API
		if i < len(cids)-1 {
			select {
			case <-ctx.Done():
				a.countPass("canceled")
				return report, ctx.Err()
			case <-time.After(a.config.Throttle):
			}
		}
	}
	a.countPass("ok")
	return report, nil
}

// updateController fetches, filters, buckets, and stores a single
// controller's activity. The delete and inserts happen in one
// transaction so a mid-operation failure leaves the prior rows in
// place.
func (a *Aggregator) updateController(
	ctx context.Context,
	cid uint64,
	since time.Time,
) error {
	sessions, err := a.config.Source.GetATCSessions(ctx, cid, since)
	if err != nil {
		return err
	}
	buckets, err := a.bucketSessions(sessions)
	if err != nil {
		return err
	}
	txn := a.config.Database.Transaction()
	err = txn.Do(func(txn *database.Txn) error {
		// clear the controller's existing rows in prep for replacement
		if err := a.config.Database.DeleteActivityForCID(cid, txn); err != nil {
			return err
		}
		for month, seconds := range buckets {
			row := &models.Activity{
				CID:     cid,
				Month:   month,
				Minutes: uint(math.Round(seconds / 60)),
			}
			if err := a.config.Database.InsertActivity(row, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if a.config.EventBus != nil {
		a.config.EventBus.Publish(
			ActivityUpdatedEventType,
			event.NewEvent(
				ActivityUpdatedEventType,
				ActivityUpdatedEvent{
					CID:    cid,
					Months: len(buckets),
				},
			),
		)
	}
	return nil
}

// bucketSessions groups in-airspace sessions by calendar month,
// accumulating raw seconds. Rounding to whole minutes happens once per
// bucket at insert time, not per session.
func (a *Aggregator) bucketSessions(
	sessions []vatsim.Session,
) (map[string]float64, error) {
	buckets := make(map[string]float64)
	for i := range sessions {
		session := &sessions[i]
		if !a.config.Facility.InAirspace(session.Callsign) {
			continue
		}
		start, err := session.StartTime()
		if err != nil {
			return nil, err
		}
		minutes, err := session.Minutes()
		if err != nil {
			return nil, err
		}
		month := start.Format("2006-01")
		buckets[month] += minutes * 60
	}
	return buckets, nil
}

func (a *Aggregator) countPass(result string) {
	if a.metrics != nil {
		a.metrics.passes.WithLabelValues(result).Inc()
	}
}

func (a *Aggregator) countController(result string) {
	if a.metrics != nil {
		a.metrics.controllers.WithLabelValues(result).Inc()
	}
}
