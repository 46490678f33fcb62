// Package metrics registers the Prometheus instruments of the irrigation
// engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const prefix = "irrigo_"

var (
	registerOnce sync.Once

	// Evaluations counts schedule evaluation passes.
	Evaluations prometheus.Counter

	// ForecastFailures counts refresh cycles where no source produced data.
	ForecastFailures prometheus.Counter

	// Sessions counts watering sessions by result.
	Sessions *prometheus.CounterVec

	// ZoneRuns counts completed per-zone holds.
	ZoneRuns *prometheus.CounterVec

	// ScheduledStart exposes the next scheduled start as a Unix timestamp,
	// 0 when nothing is scheduled.
	ScheduledStart prometheus.Gauge

	// ZoneDuration exposes the last computed duration per zone in minutes.
	ZoneDuration *prometheus.GaugeVec
)

// Init registers all instruments on the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		Evaluations = prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "schedule_evaluations_total",
			Help: "Total schedule evaluation passes",
		})
		ForecastFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "forecast_failures_total",
			Help: "Total forecast refreshes with no usable source",
		})
		Sessions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "watering_sessions_total",
			Help: "Watering sessions by result",
		}, []string{"result"})
		ZoneRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "zone_runs_total",
			Help: "Completed zone watering holds",
		}, []string{"zone"})
		ScheduledStart = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "scheduled_start_timestamp_seconds",
			Help: "Unix time of the next scheduled watering start, 0 if none",
		})
		ZoneDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "zone_duration_minutes",
			Help: "Last computed watering duration per zone",
		}, []string{"zone"})

		prometheus.MustRegister(
			Evaluations, ForecastFailures, Sessions, ZoneRuns,
			ScheduledStart, ZoneDuration,
		)
	})
}
