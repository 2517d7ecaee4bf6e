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

package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/blinklabs-io/condor/database"
	"github.com/blinklabs-io/condor/database/models"
	"github.com/blinklabs-io/condor/event"
	"github.com/blinklabs-io/condor/facility"
	"github.com/blinklabs-io/condor/vatusa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRosterSource struct {
	members []vatusa.RosterMember
	err     error
}

func (m *mockRosterSource) GetRoster(
	_ context.Context,
	_ string,
	_ vatusa.MembershipType,
) ([]vatusa.RosterMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.members, nil
}

func testMember(
	cid uint64,
	firstName, lastName string,
	roles ...vatusa.RosterMemberRole,
) vatusa.RosterMember {
	return vatusa.RosterMember{
		CID:          cid,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        firstName + "@example.com",
		Facility:     "ZDV",
		Rating:       5,
		FacilityJoin: "2023-01-15T12:00:00Z",
		Roles:        roles,
	}
}

func newTestReconciler(
	t *testing.T,
	source Source,
) (*Reconciler, *database.Database, *event.EventBus) {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	bus := event.NewEventBus(nil)
	t.Cleanup(bus.Stop)
	r := NewReconciler(ReconcilerConfig{
		Database: db,
		Source:   source,
		Facility: facility.NewConfig("ZDV"),
		EventBus: bus,
	})
	return r, db, bus
}

func TestReconcilerCreatesControllers(t *testing.T) {
	source := &mockRosterSource{
		members: []vatusa.RosterMember{
			testMember(100, "John", "Smith",
				vatusa.RosterMemberRole{
					CID: 100, Facility: "ZDV", Role: "MTR",
				},
				// INS is rating-derived, never synced
				vatusa.RosterMemberRole{
					CID: 100, Facility: "ZDV", Role: "INS",
				},
				// other-facility roles are out of scope
				vatusa.RosterMemberRole{
					CID: 100, Facility: "ZLA", Role: "ATM",
				},
			),
			testMember(200, "Jane", "Doe"),
		},
	}
	r, db, _ := newTestReconciler(t, source)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 2}, report)

	john, err := db.GetControllerByCID(100, nil)
	require.NoError(t, err)
	require.NotNil(t, john)
	assert.Equal(t, "MTR", john.Roles)
	assert.True(t, john.IsOnRoster)
	require.NotNil(t, john.OperatingInitials)
	assert.Equal(t, "JS", *john.OperatingInitials)

	jane, err := db.GetControllerByCID(200, nil)
	require.NoError(t, err)
	require.NotNil(t, jane)
	require.NotNil(t, jane.OperatingInitials)
	assert.Equal(t, "JD", *jane.OperatingInitials)
}

func TestReconcilerIdempotent(t *testing.T) {
	source := &mockRosterSource{
		members: []vatusa.RosterMember{
			testMember(100, "John", "Smith"),
			testMember(200, "Jane", "Doe"),
		},
	}
	r, db, _ := newTestReconciler(t, source)

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 2}, first)

	second, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Updated: 2}, second)

	// Initials assigned on creation survive subsequent passes
	john, err := db.GetControllerByCID(100, nil)
	require.NoError(t, err)
	require.NotNil(t, john.OperatingInitials)
	assert.Equal(t, "JS", *john.OperatingInitials)
}

func TestReconcilerPreservesLocalRoles(t *testing.T) {
	source := &mockRosterSource{
		members: []vatusa.RosterMember{
			testMember(100, "John", "Smith",
				vatusa.RosterMemberRole{
					CID: 100, Facility: "ZDV", Role: "MTR",
				},
			),
		},
	}
	r, db, _ := newTestReconciler(t, source)

	// WM was assigned locally; the roster source knows nothing of it
	require.NoError(t, db.UpsertController(&models.Controller{
		CID:        100,
		FirstName:  "John",
		LastName:   "Smith",
		IsOnRoster: true,
		Roles:      "WM",
	}, nil))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Updated: 1}, report)

	john, err := db.GetControllerByCID(100, nil)
	require.NoError(t, err)
	assert.Equal(t, "WM,MTR", john.Roles)
}

func TestReconcilerSweepsRemoved(t *testing.T) {
	source := &mockRosterSource{
		members: []vatusa.RosterMember{
			testMember(100, "John", "Smith"),
			testMember(200, "Jane", "Doe"),
		},
	}
	r, db, bus := newTestReconciler(t, source)
	_, removedCh := bus.Subscribe(ControllerRemovedEventType)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// Jane disappears from the external roster
	source.members = source.members[:1]
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Updated: 1, Removed: 1}, report)

	jane, err := db.GetControllerByCID(200, nil)
	require.NoError(t, err)
	require.NotNil(t, jane)
	assert.False(t, jane.IsOnRoster)
	assert.Empty(t, jane.HomeFacility)
	assert.Nil(t, jane.FacilityJoin)
	assert.Nil(t, jane.OperatingInitials)

	evt := <-removedCh
	removed, ok := evt.Data.(ControllerRemovedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(200), removed.CID)
}

func TestReconcilerFetchFailureAbortsPass(t *testing.T) {
	source := &mockRosterSource{err: errors.New("connection refused")}
	r, _, _ := newTestReconciler(t, source)

	_, err := r.Run(context.Background())
	require.ErrorContains(t, err, "fetching roster")
}

func TestReconcilerPerMemberFailureContinues(t *testing.T) {
	badMember := testMember(100, "John", "Smith")
	badMember.FacilityJoin = "not-a-timestamp"
	source := &mockRosterSource{
		members: []vatusa.RosterMember{
			badMember,
			testMember(200, "Jane", "Doe"),
		},
	}
	r, db, _ := newTestReconciler(t, source)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 1, Failed: 1}, report)

	jane, err := db.GetControllerByCID(200, nil)
	require.NoError(t, err)
	require.NotNil(t, jane)
	assert.True(t, jane.IsOnRoster)
}

func TestReconcilerPublishesAddedEvents(t *testing.T) {
	source := &mockRosterSource{
		members: []vatusa.RosterMember{
			testMember(100, "John", "Smith"),
		},
	}
	r, _, bus := newTestReconciler(t, source)
	_, addedCh := bus.Subscribe(ControllerAddedEventType)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	evt := <-addedCh
	added, ok := evt.Data.(ControllerAddedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(100), added.CID)
	assert.Equal(t, "JS", added.OperatingInitials)
}
