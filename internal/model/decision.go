package model

import "time"

// ScheduleDecision is the single live scheduling outcome. DayIndex is the
// candidate forecast day (0 = today, 1 = tomorrow). Start is nil when no
// watering is scheduled. Recheck, when set, triggers a full re-evaluation
// before the start time. Recomputing replaces the whole value atomically
// under the site lock.
type ScheduleDecision struct {
	DayIndex int        `json:"day_index"`
	Start    *time.Time `json:"start"`
	Recheck  *time.Time `json:"recheck"`
}
