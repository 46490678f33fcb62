package forecast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpellegrini/irrigo/internal/model"
)

type stubSource struct {
	fc  []model.WeatherDay
	err error
}

func (s *stubSource) Fetch(context.Context, int) ([]model.WeatherDay, error) {
	return s.fc, s.err
}

type stubReader struct {
	payload []byte
	ok      bool
}

func (r *stubReader) Latest() ([]byte, bool) { return r.payload, r.ok }

func TestChainFallsBackToRemote(t *testing.T) {
	want := []model.WeatherDay{{MaxTemp: 21}}
	chain := &Chain{
		Local:  &stubSource{err: errors.New("state topic empty")},
		Remote: &stubSource{fc: want},
	}

	got, err := chain.Fetch(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestChainPropagatesWithoutRemote(t *testing.T) {
	chain := &Chain{Local: &stubSource{err: errors.New("boom")}}

	_, err := chain.Fetch(context.Background(), 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChainUnconfigured(t *testing.T) {
	_, err := (&Chain{}).Fetch(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStateSourcePadsAndDefaults(t *testing.T) {
	payload := []byte(`{"forecast":[
		{"temperature":24,"templow":12,"humidity":55,"precipitation":1.2,"condition":"sunny"},
		{"temperature":19}
	]}`)
	src := NewStateSource(&stubReader{payload: payload, ok: true}, 41.9, 12.5, time.UTC)
	src.now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }

	fc, err := src.Fetch(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, fc, 5, "must never return fewer days than requested")

	assert.Equal(t, 24.0, fc[0].MaxTemp)
	assert.Equal(t, 12.0, fc[0].MinTemp)
	assert.Equal(t, 55.0, fc[0].Humidity)
	assert.Equal(t, 1013.0, fc[0].Pressure, "missing pressure defaults")
	assert.Equal(t, 1.2, fc[0].Rain)
	assert.Equal(t, "sunny", fc[0].Summary)

	// Second day only carries the high; low falls back to it.
	assert.Equal(t, 19.0, fc[1].MaxTemp)
	assert.Equal(t, 19.0, fc[1].MinTemp)

	// Padded days carry the documented defaults.
	assert.Equal(t, 60.0, fc[3].Humidity)
	assert.Equal(t, 2.0, fc[3].WindSpeed)
	assert.Equal(t, "unknown", fc[3].Summary)

	for i := 1; i < len(fc); i++ {
		assert.True(t, fc[i].Sunrise.After(fc[i-1].Sunrise),
			"sunrise must strictly increase (day %d)", i)
	}
}

func TestStateSourceBareArrayPayload(t *testing.T) {
	payload := []byte(`[{"temperature":22,"templow":11}]`)
	src := NewStateSource(&stubReader{payload: payload, ok: true}, 41.9, 12.5, time.UTC)

	fc, err := src.Fetch(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 22.0, fc[0].MaxTemp)
}

func TestStateSourceNoState(t *testing.T) {
	src := NewStateSource(&stubReader{}, 41.9, 12.5, time.UTC)

	_, err := src.Fetch(context.Background(), 3)

	assert.Error(t, err)
}

func TestOpenWeatherFetch(t *testing.T) {
	base := time.Date(2024, 6, 10, 4, 35, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "current,minutely,hourly,alerts", q.Get("exclude"))
		assert.NotEmpty(t, q.Get("lat"))
		assert.NotEmpty(t, q.Get("lon"))

		fmt.Fprintf(w, `{"daily":[
			{"sunrise":%d,"temp":{"min":14,"max":27},"humidity":48,"pressure":1009,
			 "wind_speed":3.4,"rain":0.6,"clouds":20,"weather":[{"description":"few clouds"}]},
			{"sunrise":%d,"temp":{"min":15,"max":29},"clouds":10,"weather":[]}
		]}`, base.Unix(), base.AddDate(0, 0, 1).Unix())
	}))
	defer srv.Close()

	src := NewOpenWeatherSource(srv.Client(), "secret", 41.9, 12.5, time.UTC)
	src.baseURL = srv.URL
	src.now = func() time.Time { return base }

	fc, err := src.Fetch(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, fc, 3)

	assert.Equal(t, 27.0, fc[0].MaxTemp)
	assert.Equal(t, 48.0, fc[0].Humidity)
	assert.Equal(t, 0.6, fc[0].Rain)
	assert.Equal(t, "few clouds", fc[0].Summary)

	// Day 2 omitted humidity/pressure/wind: documented defaults apply.
	assert.Equal(t, 60.0, fc[1].Humidity)
	assert.Equal(t, 1013.0, fc[1].Pressure)
	assert.Equal(t, 2.0, fc[1].WindSpeed)
	assert.Equal(t, "unknown", fc[1].Summary)

	assert.True(t, fc[1].Sunrise.After(fc[0].Sunrise))
	assert.True(t, fc[2].Sunrise.After(fc[1].Sunrise), "padded day keeps the sequence increasing")
}

func TestOpenWeatherMissingKey(t *testing.T) {
	src := NewOpenWeatherSource(http.DefaultClient, "", 41.9, 12.5, time.UTC)

	_, err := src.Fetch(context.Background(), 3)

	assert.Error(t, err)
}
