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
	"errors"
	"unicode"
)

var (
	// ErrEmptyName is returned when either name passed to
	// GenerateOperatingInitials is empty.
	ErrEmptyName = errors.New("first and last name must not be empty")
	// ErrInitialsExhausted is returned when every candidate pairing is
	// already in use. This indicates a capacity assumption violation
	// and should be surfaced loudly rather than retried.
	ErrInitialsExhausted = errors.New(
		"all operating initials pairings are in use",
	)
)

// letterBound limits initials scanning to 'A'..'Y', a 625-pair space.
// Scanned candidates never contain 'Z'; only direct initials can.
const letterBound = 25

// GenerateOperatingInitials computes a unique two-letter operating
// identifier for a new controller. Input names are case-insensitive and
// the in-use set is never modified. The result is deterministic for
// identical inputs.
//
// Candidates are tried in order:
//  1. the controller's own initials
//  2. first initial fixed, second letter scanning alphabetically from
//     the last name's first letter
//  3. an exhaustive alphabetical scan of the remaining space
func GenerateOperatingInitials(
	inUse []string,
	firstName, lastName string,
) (string, error) {
	if firstName == "" || lastName == "" {
		return "", ErrEmptyName
	}
	used := make(map[string]struct{}, len(inUse))
	for _, ois := range inUse {
		used[ois] = struct{}{}
	}
	first := unicode.ToUpper([]rune(firstName)[0])
	last := unicode.ToUpper([]rune(lastName)[0])
	// Direct initials
	direct := string([]rune{first, last})
	if _, taken := used[direct]; !taken {
		return direct, nil
	}
	// Keep the first initial, scan the second letter starting from the
	// last name's own first letter
	for i := last - 'A'; i < letterBound; i++ {
		candidate := string([]rune{first, 'A' + i})
		if _, taken := used[candidate]; !taken {
			return candidate, nil
		}
	}
	// Exhaustive scan
	for i := rune(0); i < letterBound; i++ {
		for j := rune(0); j < letterBound; j++ {
			candidate := string([]rune{'A' + i, 'A' + j})
			if _, taken := used[candidate]; !taken {
				return candidate, nil
			}
		}
	}
	return "", ErrInitialsExhausted
}
