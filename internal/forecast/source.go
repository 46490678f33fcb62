// Package forecast produces the multi-day weather sequence that drives the
// irrigation demand model. Two strategies exist: a local read of the host
// platform's daily forecast state and a remote OpenWeatherMap fetch, chained
// with a defined fallback order.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/gpellegrini/irrigo/internal/model"
)

// ErrUnavailable signals that no configured weather source produced data.
// The scheduler treats it as "skip this cycle, retry next tick".
var ErrUnavailable = errors.New("no weather source produced data")

// Source yields an ordered sequence of per-day weather records. The result
// always has exactly the requested length; sources pad with defaults when the
// upstream provides fewer days.
type Source interface {
	Fetch(ctx context.Context, days int) ([]model.WeatherDay, error)
}

// Defaults used when an upstream omits a field or provides fewer days than
// requested.
const (
	defaultMinTemp  = 15.0
	defaultMaxTemp  = 20.0
	defaultHumidity = 60.0
	defaultPressure = 1013.0
	defaultWind     = 2.0
	defaultClouds   = 50.0
)

// Chain tries the local source first and falls back to the remote one when
// the local read fails and a remote source is configured.
type Chain struct {
	Local  Source
	Remote Source
}

func (c *Chain) Fetch(ctx context.Context, days int) ([]model.WeatherDay, error) {
	if c.Local != nil {
		fc, err := c.Local.Fetch(ctx, days)
		if err == nil {
			return fc, nil
		}
		if c.Remote == nil {
			return nil, fmt.Errorf("%w: local source: %v", ErrUnavailable, err)
		}
		log.Printf("forecast: local source failed, falling back to remote: %v", err)
	}
	if c.Remote != nil {
		fc, err := c.Remote.Fetch(ctx, days)
		if err != nil {
			return nil, fmt.Errorf("%w: remote source: %v", ErrUnavailable, err)
		}
		return fc, nil
	}
	return nil, ErrUnavailable
}

// localSunrise computes the sunrise for the given day at lat/lon, expressed
// in loc. Polar day/night degenerates to local noon so the sequence keeps
// increasing.
func localSunrise(lat, lon float64, day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	rise, _ := sunrise.SunriseSunset(lat, lon, d.Year(), d.Month(), d.Day())
	if rise.IsZero() {
		return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
	}
	return rise.In(loc)
}

// pad extends fc to the requested number of days using last-known sunrise
// progression and default weather values.
func pad(fc []model.WeatherDay, days int, lat, lon float64, now time.Time, loc *time.Location) []model.WeatherDay {
	for len(fc) < days {
		day := now.AddDate(0, 0, len(fc))
		fc = append(fc, model.WeatherDay{
			Sunrise:  localSunrise(lat, lon, day, loc),
			MinTemp:  defaultMinTemp,
			MaxTemp:  defaultMaxTemp,
			Humidity: defaultHumidity,
			Pressure: defaultPressure,
			WindSpeed: defaultWind,
			Clouds:   defaultClouds,
			Summary:  "unknown",
		})
	}
	return fc
}
