package demand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpellegrini/irrigo/internal/model"
)

// monday is 2024-07-15, a Monday.
var monday = time.Date(2024, 7, 15, 6, 2, 0, 0, time.UTC)

func testForecast(days int) []model.WeatherDay {
	fc := make([]model.WeatherDay, days)
	for i := range fc {
		fc[i] = model.WeatherDay{
			Sunrise:  monday.AddDate(0, 0, i),
			MinTemp:  15,
			MaxTemp:  25,
			Humidity: 60,
			Pressure: 1013,
		}
	}
	return fc
}

func testZone() *model.Zone {
	return &model.Zone{
		ID: 1,
		Config: model.ZoneConfig{
			Name:           "lawn",
			Enabled:        true,
			Adaptive:       true,
			Area:           10,
			FlowRate:       2,
			EmitterCount:   10,
			Efficiency:     90,
			CropCoef:       0.6,
			PlantDensity:   1.0,
			ExposureFactor: 1.0,
			MaxDuration:    60,
			RainThreshold:  2.5,
			RainFactoring:  true,
			Weekdays:       model.WeekdayNames,
			Months:         []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		},
	}
}

func TestZoneDurationClampedToMax(t *testing.T) {
	zone := testZone()
	fc := testForecast(8)
	fc[0].ETo = 5 // all weekdays allowed, so only today accumulates

	got := ZoneDuration(zone, fc, 0)

	// 5 mm × 0.6 × 1.0 × 1.0 × 10 m² / 0.9 = 33.33 L → 100 min, clamped.
	require.InDelta(t, 33.333, zone.WaterNeeded, 0.01)
	assert.InDelta(t, 60.0, got, 1e-9)
	assert.InDelta(t, 5.0, zone.EtoTotal, 1e-9)
	assert.InDelta(t, 0.0, zone.RainTotal, 1e-9)
}

func TestZoneDurationRainSubtraction(t *testing.T) {
	zone := testZone()
	zone.Config.Area = 5
	zone.Config.RainThreshold = 10 // keep the override out of the way
	fc := testForecast(8)
	fc[0].ETo = 5
	fc[0].Rain = 2

	got := ZoneDuration(zone, fc, 0)

	// (5-2) mm × 0.6 × 5 m² / 0.9 = 10 L → 30 min at 20 L/h.
	require.InDelta(t, 10.0, zone.WaterNeeded, 0.01)
	assert.InDelta(t, 30.0, got, 0.1)
}

func TestZoneDurationRainDayOverride(t *testing.T) {
	zone := testZone()
	fc := testForecast(8)
	fc[0].ETo = 8
	fc[0].Rain = 3 // >= threshold 2.5

	got := ZoneDuration(zone, fc, 0)

	assert.Zero(t, got, "a rain day must force duration to zero")
	// Accumulators reflect the scan that already happened.
	assert.InDelta(t, 8.0, zone.EtoTotal, 1e-9)
	assert.InDelta(t, 3.0, zone.RainTotal, 1e-9)
}

func TestZoneDurationWeekdayExclusion(t *testing.T) {
	zone := testZone()
	zone.Config.Weekdays = []string{"sunday"} // forecast day 0 is a Monday
	zone.EtoTotal = 42
	zone.RainTotal = 7

	got := ZoneDuration(zone, testForecast(8), 0)

	assert.Zero(t, got)
	assert.Equal(t, 42.0, zone.EtoTotal, "accumulators stay untouched on skip")
	assert.Equal(t, 7.0, zone.RainTotal)
}

func TestZoneDurationMonthExclusion(t *testing.T) {
	zone := testZone()
	zone.Config.Months = []int{1, 2, 12} // forecast is July

	assert.Zero(t, ZoneDuration(zone, testForecast(8), 0))
}

func TestZoneDurationNonAdaptive(t *testing.T) {
	zone := testZone()
	zone.Config.Adaptive = false

	got := ZoneDuration(zone, testForecast(8), 0)

	assert.InDelta(t, 30.0, got, 1e-9, "non-adaptive zones water half of max")
	assert.Zero(t, zone.WaterNeeded, "fixed fallback skips the demand model")
}

func TestZoneDurationDisabled(t *testing.T) {
	zone := testZone()
	zone.Config.Enabled = false

	assert.Zero(t, ZoneDuration(zone, testForecast(8), 0))
}

func TestZoneDurationZeroFlow(t *testing.T) {
	zone := testZone()
	zone.Config.FlowRate = 0
	fc := testForecast(8)
	fc[0].ETo = 5

	assert.Zero(t, ZoneDuration(zone, fc, 0))
}

func TestZoneDurationAccumulatesUntilNextAllowedDay(t *testing.T) {
	zone := testZone()
	// Watering allowed Monday and Thursday: from Monday the next slot is
	// three days out, so Mon+Tue+Wed accumulate.
	zone.Config.Weekdays = []string{"monday", "thursday"}
	fc := testForecast(8)
	for i := range fc {
		fc[i].ETo = 2
		fc[i].Rain = 0.5
	}

	ZoneDuration(zone, fc, 0)

	assert.InDelta(t, 6.0, zone.EtoTotal, 1e-9)
	assert.InDelta(t, 1.5, zone.RainTotal, 1e-9)
}
