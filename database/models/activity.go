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

// Activity is one controller's total controlled minutes for a calendar
// month. Rows are written only by the activity aggregator, which
// replaces a controller's full set in a single transaction.
type Activity struct {
	ID  uint   `gorm:"primarykey"`
	CID uint64 `gorm:"column:cid;index;uniqueIndex:idx_activity_cid_month"`
	// Month is the calendar month in YYYY-MM form
	Month   string `gorm:"uniqueIndex:idx_activity_cid_month"`
	Minutes uint
}

func (Activity) TableName() string {
	return "activity"
}
