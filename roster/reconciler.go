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

// Package roster keeps the local controller registry consistent with
// the external roster source of truth.
package roster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/condor/database"
	"github.com/blinklabs-io/condor/database/models"
	"github.com/blinklabs-io/condor/event"
	"github.com/blinklabs-io/condor/facility"
	"github.com/blinklabs-io/condor/staffing"
	"github.com/blinklabs-io/condor/vatusa"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ControllerAddedEventType is emitted when a controller is first
	// seen on the external roster
	ControllerAddedEventType event.EventType = "roster.controller-added"
	// ControllerRemovedEventType is emitted when a previously
	// on-roster controller disappears from the external roster
	ControllerRemovedEventType event.EventType = "roster.controller-removed"
)

// ControllerAddedEvent is the payload for ControllerAddedEventType
type ControllerAddedEvent struct {
	CID               uint64
	FirstName         string
	LastName          string
	OperatingInitials string
}

// ControllerRemovedEvent is the payload for ControllerRemovedEventType
type ControllerRemovedEvent struct {
	CID uint64
}

// Source is the external roster source of truth.
type Source interface {
	GetRoster(
		ctx context.Context,
		facilityCode string,
		membership vatusa.MembershipType,
	) ([]vatusa.RosterMember, error)
}

// Report summarizes a single reconciliation pass.
type Report struct {
	Created int
	Updated int
	Removed int
	Failed  int
}

// ReconcilerConfig is the configuration for a Reconciler.
type ReconcilerConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	Source       Source
	Facility     *facility.Config
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
}

// Reconciler merges the external roster into the local registry:
// per-member upsert without clobbering locally managed fields,
// operating-initials assignment for new members, and off-roster
// detection for members no longer present externally.
type Reconciler struct {
	config  ReconcilerConfig
	metrics *reconcilerMetrics
}

type reconcilerMetrics struct {
	passes      *prometheus.CounterVec
	controllers *prometheus.CounterVec
}

// NewReconciler creates a Reconciler with the given config.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r := &Reconciler{
		config: cfg,
	}
	if cfg.PromRegistry != nil {
		r.metrics = &reconcilerMetrics{
			passes: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "condor_roster_passes_total",
					Help: "Total roster reconciliation passes by result",
				},
				[]string{"result"},
			),
			controllers: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "condor_roster_controllers_total",
					Help: "Total controller records touched by action",
				},
				[]string{"action"},
			),
		}
		cfg.PromRegistry.MustRegister(
			r.metrics.passes,
			r.metrics.controllers,
		)
	}
	return r
}

// Run performs a single reconciliation pass. A failure to fetch the
// external roster aborts the pass; individual member failures are
// counted in the report and skipped.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report
	members, err := r.config.Source.GetRoster(
		ctx,
		r.config.Facility.Code,
		vatusa.MembershipBoth,
	)
	if err != nil {
		r.countPass("error")
		return report, fmt.Errorf("fetching roster: %w", err)
	}
	r.config.Logger.Debug(
		"got roster response",
		"component", "roster",
		"members", len(members),
	)
	fetched := make(map[uint64]struct{}, len(members))
	for i := range members {
		member := &members[i]
		fetched[member.CID] = struct{}{}
		created, err := r.updateController(member)
		if err != nil {
			r.config.Logger.Error(
				"error updating controller",
				"component", "roster",
				"cid", member.CID,
				"error", err,
			)
			report.Failed++
			r.countController("failed")
			continue
		}
		if created {
			report.Created++
			r.countController("created")
		} else {
			report.Updated++
			r.countController("updated")
		}
	}
	// Controllers missing from the external roster are the sole
	// removal signal; there is no explicit delete upstream
	removed, err := r.sweepRemoved(fetched)
	report.Removed = removed
	if err != nil {
		r.countPass("error")
		return report, err
	}
	r.countPass("ok")
	return report, nil
}

// updateController merges a single external roster member into the
// registry. Returns true if the controller was newly created.
func (r *Reconciler) updateController(
	member *vatusa.RosterMember,
) (bool, error) {
	db := r.config.Database
	newRoles := r.syncedRoles(member)
	existing, err := db.GetControllerByCID(member.CID, nil)
	if err != nil {
		return false, err
	}
	// Union new roles with any roles already stored locally so that
	// locally assigned roles the roster source doesn't know about
	// survive the sync
	roles := newRoles
	if existing != nil {
		roles = mergeRoles(existing.RoleTags(), newRoles)
	}
	facilityJoin, err := member.FacilityJoinTime()
	if err != nil {
		return false, err
	}
	record := &models.Controller{
		CID:          member.CID,
		FirstName:    member.FirstName,
		LastName:     member.LastName,
		Email:        member.Email,
		Rating:       member.Rating,
		HomeFacility: member.Facility,
		// the member is on the roster, since that's what the roster
		// source is showing
		IsOnRoster:   true,
		FacilityJoin: &facilityJoin,
		Roles:        strings.Join(roles, ","),
	}
	if err := db.UpsertController(record, nil); err != nil {
		return false, err
	}
	positions := staffing.ResolvePositions(
		staffing.Subject{
			CID:          member.CID,
			HomeFacility: member.Facility,
			Roles:        record.Roles,
			Rating:       member.Rating,
		},
		r.config.Facility,
	)
	if existing != nil {
		r.config.Logger.Debug(
			"controller updated",
			"component", "roster",
			"cid", member.CID,
			"positions", strings.Join(positions, ","),
		)
		return false, nil
	}
	// Controllers new to the facility get operating initials assigned
	// immediately from the complete in-use set
	inUse, err := db.GetInUseInitials(nil)
	if err != nil {
		return false, err
	}
	initials, err := GenerateOperatingInitials(
		inUse,
		member.FirstName,
		member.LastName,
	)
	if err != nil {
		return false, err
	}
	if err := db.SetOperatingInitials(member.CID, &initials, nil); err != nil {
		return false, err
	}
	r.config.Logger.Info(
		"controller added",
		"component", "roster",
		"cid", member.CID,
		"initials", initials,
		"positions", strings.Join(positions, ","),
	)
	if r.config.EventBus != nil {
		r.config.EventBus.Publish(
			ControllerAddedEventType,
			event.NewEvent(
				ControllerAddedEventType,
				ControllerAddedEvent{
					CID:               member.CID,
					FirstName:         member.FirstName,
					LastName:          member.LastName,
					OperatingInitials: initials,
				},
			),
		)
	}
	return true, nil
}

// sweepRemoved clears roster fields for every on-roster controller
// absent from the fetched CID set. Per-controller failures are logged
// and do not stop the sweep.
func (r *Reconciler) sweepRemoved(
	fetched map[uint64]struct{},
) (int, error) {
	db := r.config.Database
	localCids, err := db.GetOnRosterCIDs(nil)
	if err != nil {
		return 0, fmt.Errorf("listing on-roster controllers: %w", err)
	}
	removed := 0
	for _, cid := range localCids {
		if _, ok := fetched[cid]; ok {
			continue
		}
		r.config.Logger.Info(
			"controller no longer on roster",
			"component", "roster",
			"cid", cid,
		)
		if err := db.ClearRosterFields(cid, nil); err != nil {
			r.config.Logger.Error(
				"error marking controller off-roster",
				"component", "roster",
				"cid", cid,
				"error", err,
			)
			continue
		}
		removed++
		r.countController("removed")
		if r.config.EventBus != nil {
			r.config.EventBus.Publish(
				ControllerRemovedEventType,
				event.NewEvent(
					ControllerRemovedEventType,
					ControllerRemovedEvent{CID: cid},
				),
			)
		}
	}
	return removed, nil
}

// syncedRoles extracts the facility-scoped role tags that pass the
// sync allow-list. The roster source doesn't track junior staff roles
// well, so only allow-listed tags are taken; raw INS tags are rejected
// since instructor status is derived from rating instead.
func (r *Reconciler) syncedRoles(member *vatusa.RosterMember) []string {
	var roles []string
	for _, role := range member.Roles {
		if role.Facility != r.config.Facility.Code {
			continue
		}
		if role.Role == "INS" {
			continue
		}
		if !r.config.Facility.IsSyncRole(role.Role) {
			continue
		}
		roles = append(roles, role.Role)
	}
	return roles
}

// mergeRoles unions two role tag lists, preserving the order of the
// existing tags followed by any new tags not already present.
func mergeRoles(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, lst := range [][]string{existing, incoming} {
		for _, role := range lst {
			if role == "" {
				continue
			}
			if _, ok := seen[role]; ok {
				continue
			}
			seen[role] = struct{}{}
			merged = append(merged, role)
		}
	}
	return merged
}

func (r *Reconciler) countPass(result string) {
	if r.metrics != nil {
		r.metrics.passes.WithLabelValues(result).Inc()
	}
}

func (r *Reconciler) countController(action string) {
	if r.metrics != nil {
		r.metrics.controllers.WithLabelValues(action).Inc()
	}
}
