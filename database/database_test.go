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
	"testing"
	"time"

	"github.com/blinklabs-io/condor/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	// File-backed per-test database so tests can't see each other's
	// state through the shared in-memory cache
	db, err := New(&Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func strPtr(s string) *string {
	return &s
}

func TestUpsertControllerCreate(t *testing.T) {
	db := openTestDB(t)
	joined := time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)
	controller := &models.Controller{
		CID:          1234567,
		FirstName:    "John",
		LastName:     "Smith",
		Email:        "john@example.com",
		Rating:       5,
		HomeFacility: "ZDV",
		IsOnRoster:   true,
		Roles:        "MTR",
		FacilityJoin: &joined,
	}
	require.NoError(t, db.UpsertController(controller, nil))

	fetched, err := db.GetControllerByCID(1234567, nil)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "John", fetched.FirstName)
	assert.Equal(t, "MTR", fetched.Roles)
	assert.True(t, fetched.IsOnRoster)
}

func TestUpsertControllerPreservesLocalFields(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.UpsertController(&models.Controller{
		CID:        1234567,
		FirstName:  "John",
		LastName:   "Smith",
		Rating:     5,
		IsOnRoster: true,
	}, nil))
	require.NoError(t, db.SetOperatingInitials(1234567, strPtr("JS"), nil))

	// A later roster sync must not clobber the assigned initials
	require.NoError(t, db.UpsertController(&models.Controller{
		CID:        1234567,
		FirstName:  "Johnny",
		LastName:   "Smith",
		Rating:     7,
		IsOnRoster: true,
	}, nil))

	fetched, err := db.GetControllerByCID(1234567, nil)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Johnny", fetched.FirstName)
	assert.Equal(t, 7, fetched.Rating)
	require.NotNil(t, fetched.OperatingInitials)
	assert.Equal(t, "JS", *fetched.OperatingInitials)
}

func TestGetControllerByCIDNotFound(t *testing.T) {
	db := openTestDB(t)
	fetched, err := db.GetControllerByCID(999, nil)
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestSetOperatingInitialsNotFound(t *testing.T) {
	db := openTestDB(t)
	err := db.SetOperatingInitials(999, strPtr("AB"), nil)
	require.ErrorIs(t, err, models.ErrControllerNotFound)
}

func TestClearRosterFields(t *testing.T) {
	db := openTestDB(t)
	joined := time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertController(&models.Controller{
		CID:          1234567,
		FirstName:    "John",
		LastName:     "Smith",
		HomeFacility: "ZDV",
		IsOnRoster:   true,
		FacilityJoin: &joined,
	}, nil))
	require.NoError(t, db.SetOperatingInitials(1234567, strPtr("JS"), nil))

	require.NoError(t, db.ClearRosterFields(1234567, nil))

	fetched, err := db.GetControllerByCID(1234567, nil)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.False(t, fetched.IsOnRoster)
	assert.Empty(t, fetched.HomeFacility)
	assert.Nil(t, fetched.FacilityJoin)
	assert.Nil(t, fetched.OperatingInitials)
	// Identity and history survive
	assert.Equal(t, "John", fetched.FirstName)
}

func TestGetInUseInitials(t *testing.T) {
	db := openTestDB(t)
	for i, initials := range []string{"JS", "AB"} {
		cid := uint64(1000 + i)
		require.NoError(t, db.UpsertController(&models.Controller{
			CID:        cid,
			FirstName:  "Test",
			LastName:   "Controller",
			IsOnRoster: true,
		}, nil))
		require.NoError(
			t,
			db.SetOperatingInitials(cid, strPtr(initials), nil),
		)
	}
	// Cleared initials must not appear in the in-use set
	require.NoError(t, db.UpsertController(&models.Controller{
		CID:        2000,
		FirstName:  "Off",
		LastName:   "Roster",
		IsOnRoster: false,
	}, nil))

	inUse, err := db.GetInUseInitials(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB", "JS"}, inUse)
}

func TestGetOnRosterCIDs(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.UpsertController(&models.Controller{
		CID: 1, FirstName: "A", LastName: "A", IsOnRoster: true,
	}, nil))
	require.NoError(t, db.UpsertController(&models.Controller{
		CID: 2, FirstName: "B", LastName: "B", IsOnRoster: false,
	}, nil))
	require.NoError(t, db.UpsertController(&models.Controller{
		CID: 3, FirstName: "C", LastName: "C", IsOnRoster: true,
	}, nil))

	cids, err := db.GetOnRosterCIDs(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, cids)

	all, err := db.GetControllerCIDs(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, all)
}

func TestActivityReplace(t *testing.T) {
	db := openTestDB(t)
	txn := db.Transaction()
	err := txn.Do(func(txn *Txn) error {
		for _, activity := range []models.Activity{
			{CID: 1234567, Month: "2024-02", Minutes: 90},
			{CID: 1234567, Month: "2024-03", Minutes: 120},
		} {
			if err := db.InsertActivity(&activity, txn); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	txn = db.Transaction()
	err = txn.Do(func(txn *Txn) error {
		if err := db.DeleteActivityForCID(1234567, txn); err != nil {
			return err
		}
		return db.InsertActivity(&models.Activity{
			CID:     1234567,
			Month:   "2024-03",
			Minutes: 150,
		}, txn)
	})
	require.NoError(t, err)

	rows, err := db.GetActivityForCID(1234567, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03", rows[0].Month)
	assert.Equal(t, uint(150), rows[0].Minutes)
}

func TestActivityReplaceRollback(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.InsertActivity(&models.Activity{
		CID: 1234567, Month: "2024-02", Minutes: 90,
	}, nil))

	// A failure mid-replace must leave the prior rows in place
	txn := db.Transaction()
	err := txn.Do(func(txn *Txn) error {
		if err := db.DeleteActivityForCID(1234567, txn); err != nil {
			return err
		}
		return errors.New("simulated failure")
	})
	require.ErrorContains(t, err, "simulated failure")

	rows, err := db.GetActivityForCID(1234567, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-02", rows[0].Month)
	assert.Equal(t, uint(90), rows[0].Minutes)
}
