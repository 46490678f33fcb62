package model

import "time"

// WeatherDay is a single day of forecast data. Sunrise is timezone-aware and
// strictly increasing across a forecast slice. ETo stays zero until the
// engine computes it after fetch.
type WeatherDay struct {
	Sunrise   time.Time `json:"sunrise"`
	MinTemp   float64   `json:"min_temp"`    // °C
	MaxTemp   float64   `json:"max_temp"`    // °C
	Humidity  float64   `json:"humidity"`    // %
	Pressure  float64   `json:"pressure"`    // hPa
	WindSpeed float64   `json:"wind_speed"`  // m/s
	Rain      float64   `json:"rain"`        // mm
	Clouds    float64   `json:"clouds"`      // %
	Summary   string    `json:"summary"`
	ETo       float64   `json:"eto"` // mm/day
}
