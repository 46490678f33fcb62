package model

import (
	"strings"
	"time"
)

// WeekdayNames holds the lowercase day names used in zone configuration,
// Monday first.
var WeekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// WeekdayName maps a time.Weekday to its configuration name.
func WeekdayName(d time.Weekday) string {
	// time.Weekday starts at Sunday, the config week starts at Monday.
	return WeekdayNames[(int(d)+6)%7]
}

// ZoneConfig carries the immutable parameters of an irrigation zone.
type ZoneConfig struct {
	Name           string
	Enabled        bool
	Adaptive       bool
	Area           float64 // m²
	FlowRate       float64 // L/h per emitter
	EmitterCount   int
	Efficiency     float64 // %, 1-100
	CropCoef       float64
	PlantDensity   float64
	ExposureFactor float64
	MaxDuration    float64 // minutes
	RainThreshold  float64 // mm
	RainFactoring  bool
	Weekdays       []string // lowercase day names, empty means none
	Months         []int    // 1-12
}

// AllowsWeekday reports whether the zone may be watered on the given weekday.
func (c ZoneConfig) AllowsWeekday(d time.Weekday) bool {
	name := WeekdayName(d)
	for _, w := range c.Weekdays {
		if strings.EqualFold(w, name) {
			return true
		}
	}
	return false
}

// AllowsMonth reports whether the zone may be watered in the given month.
func (c ZoneConfig) AllowsMonth(m time.Month) bool {
	for _, cm := range c.Months {
		if cm == int(m) {
			return true
		}
	}
	return false
}

// TotalFlow returns the combined emitter flow in L/h.
func (c ZoneConfig) TotalFlow() float64 {
	return c.FlowRate * float64(c.EmitterCount)
}

// Zone couples a zone's configuration with its engine-owned runtime state.
// Runtime fields are mutated only under the site lock; presentation layers
// see copies via Snapshot.
type Zone struct {
	ID     int
	Config ZoneConfig

	Duration    float64 // minutes for the next run
	EtoTotal    float64 // mm accumulated until next watering day
	RainTotal   float64 // mm accumulated until next watering day
	WaterNeeded float64 // liters
	IsRunning   bool
	NextRun     *time.Time
	LastRun     *time.Time
}

// ZoneSnapshot is the read-model view of a zone.
type ZoneSnapshot struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	Duration    float64    `json:"duration"`
	EtoTotal    float64    `json:"eto_total"`
	RainTotal   float64    `json:"rain_total"`
	WaterNeeded float64    `json:"water_needed"`
	IsRunning   bool       `json:"is_running"`
	LastRun     *time.Time `json:"last_run"`
	NextRun     *time.Time `json:"next_run"`
}

// Snapshot returns a copy of the zone state for presentation layers.
func (z *Zone) Snapshot() ZoneSnapshot {
	return ZoneSnapshot{
		ID:          z.ID,
		Name:        z.Config.Name,
		Enabled:     z.Config.Enabled,
		Duration:    z.Duration,
		EtoTotal:    z.EtoTotal,
		RainTotal:   z.RainTotal,
		WaterNeeded: z.WaterNeeded,
		IsRunning:   z.IsRunning,
		LastRun:     z.LastRun,
		NextRun:     z.NextRun,
	}
}
