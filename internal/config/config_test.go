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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	// LoadConfig overlays onto the package-global config; restore it
	// so tests don't leak values into each other
	saved := *globalConfig
	t.Cleanup(func() {
		*globalConfig = saved
	})
	path := filepath.Join(t.TempDir(), "condor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfigFile(t, `
facilityConfig: /etc/condor/zdv.yaml
rosterInterval: 2h
metricsPort: 9999
tracing: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/condor/zdv.yaml", cfg.FacilityConfig)
	assert.Equal(t, "2h", cfg.RosterInterval)
	assert.Equal(t, uint(9999), cfg.MetricsPort)
	assert.True(t, cfg.Tracing)
	// Values not in the file keep their defaults
	assert.Equal(t, "12h", cfg.ActivityInterval)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	path := writeConfigFile(t, `rosterInterval: often`)
	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "invalid rosterInterval")
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CONDOR_DATABASE_PATH", "/var/lib/condor")
	path := writeConfigFile(t, `databasePath: /tmp/ignored`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/condor", cfg.DatabasePath)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 4*time.Hour, Duration("4h", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("bogus", time.Minute))
}
