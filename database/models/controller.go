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

package models

import (
	"errors"
	"strings"
	"time"
)

var ErrControllerNotFound = errors.New("controller not found")

// Controller is a registered member of the facility. Controllers are
// never hard-deleted; leaving the roster clears IsOnRoster,
// HomeFacility, FacilityJoin, and OperatingInitials together.
type Controller struct {
	ID        uint   `gorm:"primarykey"`
	CID       uint64 `gorm:"column:cid;uniqueIndex"`
	FirstName string
	LastName  string
	Email     string
	// OperatingInitials is the controller's unique two-letter
	// identifier. Nil when the controller is off-roster.
	OperatingInitials *string `gorm:"uniqueIndex"`
	Rating            int
	Status            string
	DiscordID         string `gorm:"index"`
	HomeFacility      string
	IsOnRoster        bool `gorm:"index"`
	// Roles is the comma-joined set of raw role tags. Tags assigned
	// locally are preserved across roster syncs.
	Roles        string
	FacilityJoin *time.Time
	LOAUntil     *time.Time
}

func (Controller) TableName() string {
	return "controller"
}

// RoleTags returns the controller's raw role tags as a slice. An empty
// Roles field yields an empty slice.
func (c *Controller) RoleTags() []string {
	if c.Roles == "" {
		return []string{}
	}
	return strings.Split(c.Roles, ",")
}

// HasRole returns true if the controller carries the given raw role tag.
func (c *Controller) HasRole(role string) bool {
	for _, tag := range c.RoleTags() {
		if tag == role {
			return true
		}
	}
	return false
}
