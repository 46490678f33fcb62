// Package demand turns forecast data into per-zone watering durations.
package demand

import (
	"github.com/gpellegrini/irrigo/internal/model"
)

// ZoneDuration computes the watering duration in minutes for the zone on the
// candidate forecast day (0 = today). On the adaptive path it also updates
// the zone's ETo/rain/water-need accumulators; skipped zones keep their
// previous accumulator values.
func ZoneDuration(zone *model.Zone, forecast []model.WeatherDay, dayIndex int) float64 {
	cfg := zone.Config
	if !cfg.Enabled || dayIndex >= len(forecast) {
		return 0
	}

	day := forecast[dayIndex]
	if !cfg.AllowsWeekday(day.Sunrise.Weekday()) || !cfg.AllowsMonth(day.Sunrise.Month()) {
		return 0
	}

	if !cfg.Adaptive {
		// Fixed fallback: half of the configured maximum.
		return cfg.MaxDuration / 2
	}

	// Days until the next allowed watering day, scanning up to a week ahead.
	daysUntilNext := 1
	for future := 1; future < 8; future++ {
		if dayIndex+future >= len(forecast) {
			break
		}
		if cfg.AllowsWeekday(forecast[dayIndex+future].Sunrise.Weekday()) {
			daysUntilNext = future
			break
		}
	}

	var etoTotal, rainTotal float64
	for off := 0; off < daysUntilNext; off++ {
		if dayIndex+off >= len(forecast) {
			break
		}
		etoTotal += forecast[dayIndex+off].ETo
		rainTotal += forecast[dayIndex+off].Rain
	}
	zone.EtoTotal = etoTotal
	zone.RainTotal = rainTotal

	water := etoTotal // mm
	if cfg.RainFactoring {
		water -= rainTotal
		if water < 0 {
			water = 0
		}
		// A soaked candidate day overrides any partial rain credit applied
		// above; threshold ordering kept as observed in the field.
		if day.Rain >= cfg.RainThreshold {
			return 0
		}
	}

	// mm × m² ≡ liters.
	water = water * cfg.CropCoef * cfg.PlantDensity * cfg.ExposureFactor * cfg.Area
	water = water * 100 / cfg.Efficiency
	zone.WaterNeeded = water

	var duration float64
	if flow := cfg.TotalFlow(); flow > 0 {
		duration = water * 60 / flow
	}
	if duration > cfg.MaxDuration {
		duration = cfg.MaxDuration
	}
	return duration
}
