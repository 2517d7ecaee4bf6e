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

package facility

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StaffOverride maps a staff position tag to the CID of its canonical
// holder. Any other controller carrying the same tag is treated as an
// assistant for that position.
type StaffOverride struct {
	Role string `yaml:"role"`
	CID  uint64 `yaml:"cid"`
}

// Config describes a single facility: its identity, which upstream role
// tags are synced, and how sessions are matched to its airspace. It is
// loaded once at startup and treated as immutable afterward.
type Config struct {
	// Code is the facility identifier as known by the roster source
	// (e.g. "ZDV").
	Code string `yaml:"code"`
	// StaffOverrides names the canonical holder of each contested
	// staff position.
	StaffOverrides []StaffOverride `yaml:"staffOverrides"`
	// SyncRoles is the allow-list of role tags taken from the roster
	// source. The source doesn't track junior staff roles well, so
	// only these survive a sync.
	SyncRoles []string `yaml:"syncRoles"`
	// IgnoreRoles lists unmapped tags dropped during position
	// resolution (facility-specific noise values).
	IgnoreRoles []string `yaml:"ignoreRoles"`
	// InstructorRatings lists the numeric rating values that imply an
	// instructor position for home controllers.
	InstructorRatings []int `yaml:"instructorRatings"`
	// PositionPrefixes and PositionSuffixes define the airspace test
	// for session callsigns. Both a prefix and a suffix must match.
	PositionPrefixes []string `yaml:"positionPrefixes"`
	PositionSuffixes []string `yaml:"positionSuffixes"`
}

// Default sync allow-list and instructor tiers. These match VATUSA's
// behavior for a typical ARTCC and can be overridden in the config file.
var (
	DefaultSyncRoles         = []string{"ATM", "DATM", "TA", "MTR"}
	DefaultIgnoreRoles       = []string{"FACCBT"}
	DefaultInstructorRatings = []int{8, 9, 10}
)

// NewConfig returns a facility config with defaults applied.
func NewConfig(code string) *Config {
	return &Config{
		Code:              code,
		SyncRoles:         DefaultSyncRoles,
		IgnoreRoles:       DefaultIgnoreRoles,
		InstructorRatings: DefaultInstructorRatings,
	}
}

// NewConfigFromReader loads a facility config from YAML and applies
// defaults for any unset list fields.
func NewConfigFromReader(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding facility config: %w", err)
	}
	if cfg.SyncRoles == nil {
		cfg.SyncRoles = DefaultSyncRoles
	}
	if cfg.IgnoreRoles == nil {
		cfg.IgnoreRoles = DefaultIgnoreRoles
	}
	if cfg.InstructorRatings == nil {
		cfg.InstructorRatings = DefaultInstructorRatings
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewConfigFromFile loads a facility config from the named YAML file.
func NewConfigFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening facility config: %w", err)
	}
	defer f.Close()
	return NewConfigFromReader(f)
}

// Validate checks the config for required fields.
func (c *Config) Validate() error {
	if c.Code == "" {
		return errors.New("facility code is required")
	}
	for _, ovr := range c.StaffOverrides {
		if ovr.Role == "" || ovr.CID == 0 {
			return fmt.Errorf(
				"staff override requires both role and cid: %+v",
				ovr,
			)
		}
	}
	return nil
}

// OverrideFor returns the staff override for the given role tag, or nil
// if the position is uncontested.
func (c *Config) OverrideFor(role string) *StaffOverride {
	for i := range c.StaffOverrides {
		if c.StaffOverrides[i].Role == role {
			return &c.StaffOverrides[i]
		}
	}
	return nil
}

// IsSyncRole returns true if the given role tag is taken from the
// roster source during reconciliation.
func (c *Config) IsSyncRole(role string) bool {
	for _, r := range c.SyncRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsIgnoredRole returns true if the given role tag is dropped during
// position resolution.
func (c *Config) IsIgnoredRole(role string) bool {
	for _, r := range c.IgnoreRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsInstructorRating returns true if the given rating value is one of
// the configured instructor tiers.
func (c *Config) IsInstructorRating(rating int) bool {
	for _, r := range c.InstructorRatings {
		if r == rating {
			return true
		}
	}
	return false
}

// InAirspace checks whether a session position callsign belongs to this
// facility's airspace. A callsign must match one of the configured
// prefixes and one of the configured suffixes.
func (c *Config) InAirspace(position string) bool {
	prefixMatch := false
	for _, prefix := range c.PositionPrefixes {
		if strings.HasPrefix(position, prefix) {
			prefixMatch = true
			break
		}
	}
	if !prefixMatch {
		return false
	}
	for _, suffix := range c.PositionSuffixes {
		if strings.HasSuffix(position, suffix) {
			return true
		}
	}
	return false
}
