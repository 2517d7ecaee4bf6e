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

package vatsim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(
	t *testing.T,
	handler http.HandlerFunc,
) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestParseTimestamp(t *testing.T) {
	testDefs := []struct {
		stamp    string
		expected time.Time
	}{
		{
			stamp: "2024-03-02T16:20:37.0439318Z",
			expected: time.Date(
				2024, 3, 2, 16, 20, 37, 43931800, time.UTC,
			),
		},
		{
			stamp: "2024-03-02T16:20:37Z",
			expected: time.Date(
				2024, 3, 2, 16, 20, 37, 0, time.UTC,
			),
		},
	}
	for _, testDef := range testDefs {
		parsed, err := ParseTimestamp(testDef.stamp)
		require.NoError(t, err)
		assert.Equal(t, testDef.expected, parsed)
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	_, err := ParseTimestamp("not-a-timestamp")
	require.ErrorContains(t, err, "parsing VATSIM timestamp")
}

func TestSessionMinutes(t *testing.T) {
	session := Session{MinutesOnCallsign: "125.333"}
	minutes, err := session.Minutes()
	require.NoError(t, err)
	assert.InDelta(t, 125.333, minutes, 0.0001)

	session = Session{MinutesOnCallsign: "bogus"}
	_, err = session.Minutes()
	require.ErrorContains(t, err, "parsing Session.MinutesOnCallsign")
}

func TestGetATCSessions(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Use t.Errorf (not require) because httptest handlers
		// run in a separate goroutine; require calls t.FailNow
		// which panics from non-test goroutines.
		if r.URL.Path != "/ratings/1234567/atcsessions/" {
			t.Errorf(
				"expected path /ratings/1234567/atcsessions/, got %s",
				r.URL.Path,
			)
		}
		if r.URL.Query().Get("start") != "2024-01-15" {
			t.Errorf(
				"expected start 2024-01-15, got %s",
				r.URL.Query().Get("start"),
			)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"count": 2,
			"results": [
				{
					"connection_id": 111,
					"vatsim_id": "1234567",
					"callsign": "DEN_2_TWR",
					"start": "2024-03-02T16:20:37.0439318Z",
					"end": "2024-03-02T18:20:37.0439318Z",
					"minutes_on_callsign": "120.000"
				},
				{
					"connection_id": 112,
					"vatsim_id": "1234567",
					"callsign": "DEN_CTR",
					"start": "2024-03-03T00:00:00Z",
					"end": "2024-03-03T01:00:00Z",
					"minutes_on_callsign": "60.500"
				}
			]
		}`))
	})

	client := NewClient(server.URL)
	sessions, err := client.GetATCSessions(
		context.Background(),
		1234567,
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, uint64(1234567), sessions[0].CID)
	assert.Equal(t, "DEN_2_TWR", sessions[0].Callsign)
	start, err := sessions[0].StartTime()
	require.NoError(t, err)
	assert.Equal(t, "2024-03", start.Format("2006-01"))
}

func TestGetATCSessionsHTTPError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	client := NewClient(server.URL)
	_, err := client.GetATCSessions(
		context.Background(),
		1234567,
		time.Now(),
	)
	require.ErrorContains(t, err, "unexpected HTTP status 429")
}
