package history

import (
	"context"
	"log"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// RunRecord describes one completed zone run inside a watering session.
type RunRecord struct {
	SessionID   string
	ZoneID      int
	ZoneName    string
	Duration    float64 // minutes
	WaterNeeded float64 // liters
	EtoTotal    float64 // mm
	Completed   time.Time
}

// Recorder receives completed zone runs. Recording is fire-and-forget: the
// watering session never waits on it and failures are logged only.
type Recorder interface {
	Record(ctx context.Context, rec RunRecord)
}

// NoopRecorder drops records, used when no time-series backend is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, RunRecord) {}

// InfluxConfig identifies the bucket watering runs are written to.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxRecorder writes one point per completed zone run.
type InfluxRecorder struct {
	writeAPI api.WriteAPIBlocking
}

func NewInfluxRecorder(cfg InfluxConfig) *InfluxRecorder {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxRecorder{writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}
}

func (r *InfluxRecorder) Record(ctx context.Context, rec RunRecord) {
	tags := map[string]string{
		"zone_id":   strconv.Itoa(rec.ZoneID),
		"zone_name": rec.ZoneName,
	}
	fields := map[string]interface{}{
		"session_id":   rec.SessionID,
		"duration_min": rec.Duration,
		"water_l":      rec.WaterNeeded,
		"eto_mm":       rec.EtoTotal,
	}
	point := influxdb2.NewPoint("watering_run", tags, fields, rec.Completed)
	if err := r.writeAPI.WritePoint(ctx, point); err != nil {
		log.Printf("history: influx write error: %v", err)
		return
	}
	log.Printf("history: recorded run zone=%s session=%s duration=%.1fmin",
		rec.ZoneName, rec.SessionID, rec.Duration)
}
