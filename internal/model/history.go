package model

import "time"

// HistoryVersion is bumped when the stored blob layout changes.
const HistoryVersion = 1

// HistoryKey is the fixed storage key of the history blob.
const HistoryKey = "irrigo_history"

// ZoneHistory records when a zone last completed a watering run. LastRun is
// nil for zones that never ran.
type ZoneHistory struct {
	ZoneID  int        `json:"zone_id"`
	LastRun *time.Time `json:"last_run"`
}

// HistoryRecord is the durable per-zone run history, rewritten in full after
// each completed watering session.
type HistoryRecord struct {
	Version int           `json:"version"`
	Key     string        `json:"key"`
	Zones   []ZoneHistory `json:"zones"`
}
