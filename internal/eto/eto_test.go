package eto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDeterministic(t *testing.T) {
	date := time.Date(2024, 7, 15, 6, 0, 0, 0, time.UTC)

	a := Calculate(16, 29, 55, 1012, 3.2, 6.5, 120, 41.9, date)
	b := Calculate(16, 29, 55, 1012, 3.2, 6.5, 120, 41.9, date)

	require.Equal(t, a, b, "identical inputs must give identical output")
	assert.Greater(t, a, 0.0)
	assert.Less(t, a, 15.0, "daily ETo beyond 15 mm is not physical for these inputs")
}

func TestCalculateNonNegative(t *testing.T) {
	date := time.Date(2024, 1, 10, 7, 30, 0, 0, time.UTC)

	cases := []struct {
		name                     string
		minT, maxT, hum, press   float64
		wind, solar, alt, lat    float64
	}{
		{"cold winter day", -2, 4, 95, 1030, 0.5, 1.0, 50, 52.5},
		{"humid still air", 18, 22, 100, 1013, 0, 3.0, 0, 45.0},
		{"hot dry wind", 25, 41, 12, 995, 9, 8.0, 600, 37.9},
		{"high altitude", 2, 15, 40, 820, 4, 7.0, 1800, 46.2},
		{"southern hemisphere", 12, 24, 65, 1018, 2.5, 5.5, 30, -33.8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(tc.minT, tc.maxT, tc.hum, tc.press, tc.wind, tc.solar, tc.alt, tc.lat, date)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestCalculateSeasonality(t *testing.T) {
	// Same weather, mid-latitude: the summer day must not evaporate less
	// than the winter day thanks to the extraterrestrial radiation term.
	summer := Calculate(15, 28, 50, 1013, 2, 6.0, 100, 43.0,
		time.Date(2024, 6, 21, 6, 0, 0, 0, time.UTC))
	winter := Calculate(15, 28, 50, 1013, 2, 6.0, 100, 43.0,
		time.Date(2024, 12, 21, 8, 0, 0, 0, time.UTC))

	assert.GreaterOrEqual(t, summer, winter)
}
