package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/gpellegrini/irrigo/internal/model"
)

const openWeatherURL = "https://api.openweathermap.org/data/3.0/onecall"

// OpenWeatherSource fetches the daily forecast from the OpenWeatherMap One
// Call 3.0 API. Calls run behind a circuit breaker with a bounded retry.
type OpenWeatherSource struct {
	apiKey   string
	lat, lon float64
	loc      *time.Location
	baseURL  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	now      func() time.Time
}

func NewOpenWeatherSource(client *http.Client, apiKey string, lat, lon float64, loc *time.Location) *OpenWeatherSource {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &OpenWeatherSource{
		apiKey:  apiKey,
		lat:     lat,
		lon:     lon,
		loc:     loc,
		baseURL: openWeatherURL,
		client:  client,
		breaker: cb,
		now:     time.Now,
	}
}

type owmDaily struct {
	Sunrise int64 `json:"sunrise"`
	Temp    struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Humidity  float64 `json:"humidity"`
	Pressure  float64 `json:"pressure"`
	WindSpeed float64 `json:"wind_speed"`
	Rain      float64 `json:"rain"`
	Clouds    float64 `json:"clouds"`
	Weather   []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type owmResponse struct {
	Daily []owmDaily `json:"daily"`
}

func (s *OpenWeatherSource) Fetch(ctx context.Context, days int) ([]model.WeatherDay, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("openweather api key not configured")
	}

	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", s.lat))
	values.Set("lon", fmt.Sprintf("%f", s.lon))
	values.Set("appid", s.apiKey)
	values.Set("units", "metric")
	values.Set("exclude", "current,minutely,hourly,alerts")
	reqURL := s.baseURL + "?" + values.Encode()

	var out owmResponse
	op := func() error {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.doRequest(ctx, reqURL, &out)
		})
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		return nil, err
	}
	if len(out.Daily) == 0 {
		return nil, fmt.Errorf("openweather returned no daily data")
	}

	fc := make([]model.WeatherDay, 0, days)
	for i, d := range out.Daily {
		if i >= days {
			break
		}
		summary := "unknown"
		if len(d.Weather) > 0 {
			summary = d.Weather[0].Description
		}
		fc = append(fc, model.WeatherDay{
			Sunrise:   time.Unix(d.Sunrise, 0).In(s.loc),
			MinTemp:   d.Temp.Min,
			MaxTemp:   d.Temp.Max,
			Humidity:  nonZero(d.Humidity, defaultHumidity),
			Pressure:  nonZero(d.Pressure, defaultPressure),
			WindSpeed: nonZero(d.WindSpeed, defaultWind),
			Rain:      d.Rain,
			Clouds:    d.Clouds,
			Summary:   summary,
		})
	}

	return pad(fc, days, s.lat, s.lon, s.now(), s.loc), nil
}

func (s *OpenWeatherSource) doRequest(ctx context.Context, reqURL string, out *owmResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("openweather status %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// nonZero substitutes the documented default when the upstream omitted the
// field (JSON zero value).
func nonZero(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
