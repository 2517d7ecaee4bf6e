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

// Package staffing resolves a controller's effective staff positions
// from their stored role tags and the facility configuration.
package staffing

import (
	"strings"

	"github.com/blinklabs-io/condor/facility"
)

// Position is a staff position tag.
type Position string

// The full staff position vocabulary. A-prefixed tags denote the
// assistant variant of a contested position.
const (
	PositionATM  Position = "ATM"
	PositionDATM Position = "DATM"
	PositionTA   Position = "TA"
	PositionFE   Position = "FE"
	PositionEC   Position = "EC"
	PositionWM   Position = "WM"
	PositionAFE  Position = "AFE"
	PositionAEC  Position = "AEC"
	PositionAWM  Position = "AWM"
	PositionINS  Position = "INS"
	PositionMTR  Position = "MTR"
)

// InstructorTag is appended for home controllers holding an
// instructor-tier rating, independent of their stored role tags.
const InstructorTag = string(PositionINS)

// AssistantTag returns the assistant variant of a position tag.
func AssistantTag(role string) string {
	return "A" + role
}

// Subject is the minimal controller view needed for resolution.
type Subject struct {
	CID          uint64
	HomeFacility string
	Roles        string
	Rating       int
}

// ResolvePositions determines the effective staff positions for a
// controller.
//
// The roster source does not distinguish the official holder of a
// position (say, FE) from their assistants (AFE); both carry the same
// tag upstream. The facility's staff overrides name the canonical
// holder, and every other controller carrying the tag is rewritten to
// the assistant variant. Tags without an override pass through
// unchanged, as do tags like MTR that are legitimately shared.
//
// A controller can hold multiple positions at once, like being an
// Instructor and also the FE. Output preserves the order of the stored
// role tags, with the rating-derived instructor tag appended last.
func ResolvePositions(
	subject Subject,
	cfg *facility.Config,
) []string {
	positions := []string{}
	for _, role := range strings.Split(subject.Roles, ",") {
		if role == "" {
			continue
		}
		if cfg.IsIgnoredRole(role) {
			continue
		}
		ovr := cfg.OverrideFor(role)
		if ovr == nil {
			positions = append(positions, role)
			continue
		}
		if ovr.CID == subject.CID {
			positions = append(positions, role)
		} else {
			positions = append(positions, AssistantTag(role))
		}
	}
	if subject.HomeFacility == cfg.Code &&
		cfg.IsInstructorRating(subject.Rating) {
		positions = append(positions, InstructorTag)
	}
	return positions
}
