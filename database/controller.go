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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/condor/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetControllerByCID returns a single controller by CID, or nil if not
// found.
func (d *Database) GetControllerByCID(
	cid uint64,
	txn *Txn,
) (*models.Controller, error) {
	var ret models.Controller
	result := d.resolveDB(txn).Where("cid = ?", cid).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf(
			"GetControllerByCID: query: %w", result.Error,
		)
	}
	return &ret, nil
}

// GetControllerCIDs returns the CIDs of all known controllers,
// on-roster or not.
func (d *Database) GetControllerCIDs(txn *Txn) ([]uint64, error) {
	var ret []uint64
	result := d.resolveDB(txn).
		Model(&models.Controller{}).
		Order("cid").
		Pluck("cid", &ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"GetControllerCIDs: query: %w", result.Error,
		)
	}
	return ret, nil
}

// GetOnRosterCIDs returns the CIDs of all controllers currently on the
// roster.
func (d *Database) GetOnRosterCIDs(txn *Txn) ([]uint64, error) {
	var ret []uint64
	result := d.resolveDB(txn).
		Model(&models.Controller{}).
		Where("is_on_roster = ?", true).
		Order("cid").
		Pluck("cid", &ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"GetOnRosterCIDs: query: %w", result.Error,
		)
	}
	return ret, nil
}

// UpsertController creates or updates a controller record keyed by CID.
// On conflict, only the roster-synced fields are updated; locally
// managed fields (operating initials, status, Discord ID, LOA) are left
// alone.
func (d *Database) UpsertController(
	controller *models.Controller,
	txn *Txn,
) error {
	result := d.resolveDB(txn).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name",
			"last_name",
			"email",
			"rating",
			"home_facility",
			"is_on_roster",
			"roles",
			"facility_join",
		}),
	}).Create(controller)
	if result.Error != nil {
		return fmt.Errorf(
			"UpsertController: upsert: %w", result.Error,
		)
	}
	return nil
}

// SetOperatingInitials stores a controller's operating initials. Pass
// nil to clear them.
func (d *Database) SetOperatingInitials(
	cid uint64,
	initials *string,
	txn *Txn,
) error {
	result := d.resolveDB(txn).
		Model(&models.Controller{}).
		Where("cid = ?", cid).
		Update("operating_initials", initials)
	if result.Error != nil {
		return fmt.Errorf(
			"SetOperatingInitials: update: %w", result.Error,
		)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf(
			"SetOperatingInitials: %w", models.ErrControllerNotFound,
		)
	}
	return nil
}

// ClearRosterFields marks a controller as off-roster. Their home
// facility, facility join date, and operating initials are cleared in
// the same update; these fields only have meaning for on-roster
// controllers.
func (d *Database) ClearRosterFields(cid uint64, txn *Txn) error {
	result := d.resolveDB(txn).
		Model(&models.Controller{}).
		Where("cid = ?", cid).
		Updates(map[string]any{
			"is_on_roster":       false,
			"home_facility":      "",
			"facility_join":      nil,
			"operating_initials": nil,
		})
	if result.Error != nil {
		return fmt.Errorf(
			"ClearRosterFields: update: %w", result.Error,
		)
	}
	return nil
}

// GetInUseInitials returns every operating-initials value currently
// assigned.
func (d *Database) GetInUseInitials(txn *Txn) ([]string, error) {
	var ret []string
	result := d.resolveDB(txn).
		Model(&models.Controller{}).
		Where("operating_initials IS NOT NULL").
		Order("operating_initials").
		Pluck("operating_initials", &ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"GetInUseInitials: query: %w", result.Error,
		)
	}
	return ret, nil
}
