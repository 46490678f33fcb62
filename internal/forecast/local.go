package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gpellegrini/irrigo/internal/model"
)

// StateReader exposes the most recent daily-forecast payload published by the
// host platform. mqttbus.StateCache implements it.
type StateReader interface {
	Latest() ([]byte, bool)
}

// StateSource reads the daily forecast the host automation platform already
// publishes on a state topic, and computes each day's local sunrise from the
// site coordinates.
type StateSource struct {
	reader   StateReader
	lat, lon float64
	loc      *time.Location
	now      func() time.Time
}

func NewStateSource(reader StateReader, lat, lon float64, loc *time.Location) *StateSource {
	return &StateSource{reader: reader, lat: lat, lon: lon, loc: loc, now: time.Now}
}

// stateDay mirrors the daily forecast entries of the platform's weather
// state. Pointer fields distinguish "absent" from zero.
type stateDay struct {
	Temperature   *float64 `json:"temperature"` // daily high
	TempLow       *float64 `json:"templow"`
	Humidity      *float64 `json:"humidity"`
	Pressure      *float64 `json:"pressure"`
	WindSpeed     *float64 `json:"wind_speed"`
	Precipitation *float64 `json:"precipitation"`
	CloudCoverage *float64 `json:"cloud_coverage"`
	Condition     string   `json:"condition"`
}

type statePayload struct {
	Forecast []stateDay `json:"forecast"`
}

func (s *StateSource) Fetch(_ context.Context, days int) ([]model.WeatherDay, error) {
	raw, ok := s.reader.Latest()
	if !ok {
		return nil, fmt.Errorf("no forecast state received yet")
	}

	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Some platforms publish the bare forecast array.
		if arrErr := json.Unmarshal(raw, &payload.Forecast); arrErr != nil {
			return nil, fmt.Errorf("invalid forecast state: %w", err)
		}
	}
	if len(payload.Forecast) == 0 {
		return nil, fmt.Errorf("forecast state holds no daily entries")
	}

	now := s.now()
	fc := make([]model.WeatherDay, 0, days)
	for i, d := range payload.Forecast {
		if i >= days {
			break
		}
		maxTemp := orDefault(d.Temperature, defaultMaxTemp)
		fc = append(fc, model.WeatherDay{
			Sunrise:   localSunrise(s.lat, s.lon, now.AddDate(0, 0, i), s.loc),
			MinTemp:   orDefault(d.TempLow, orDefault(d.Temperature, defaultMinTemp)),
			MaxTemp:   maxTemp,
			Humidity:  orDefault(d.Humidity, defaultHumidity),
			Pressure:  orDefault(d.Pressure, defaultPressure),
			WindSpeed: orDefault(d.WindSpeed, defaultWind),
			Rain:      orDefault(d.Precipitation, 0),
			Clouds:    orDefault(d.CloudCoverage, defaultClouds),
			Summary:   orDefaultStr(d.Condition, "unknown"),
		})
	}

	return pad(fc, days, s.lat, s.lon, now, s.loc), nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
