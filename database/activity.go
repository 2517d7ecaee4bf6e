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
	"fmt"

	"github.com/blinklabs-io/condor/database/models"
)

// GetActivityForCID returns a controller's monthly activity rows in
// month order.
func (d *Database) GetActivityForCID(
	cid uint64,
	txn *Txn,
) ([]models.Activity, error) {
	var ret []models.Activity
	result := d.resolveDB(txn).
		Where("cid = ?", cid).
		Order("month").
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"GetActivityForCID: query: %w", result.Error,
		)
	}
	return ret, nil
}

// DeleteActivityForCID removes all of a controller's activity rows,
// in preparation for replacement.
func (d *Database) DeleteActivityForCID(cid uint64, txn *Txn) error {
	result := d.resolveDB(txn).
		Where("cid = ?", cid).
		Delete(&models.Activity{})
	if result.Error != nil {
		return fmt.Errorf(
			"DeleteActivityForCID: delete: %w", result.Error,
		)
	}
	return nil
}

// InsertActivity stores a single monthly activity row.
func (d *Database) InsertActivity(
	activity *models.Activity,
	txn *Txn,
) error {
	result := d.resolveDB(txn).Create(activity)
	if result.Error != nil {
		return fmt.Errorf(
			"InsertActivity: insert: %w", result.Error,
		)
	}
	return nil
}
