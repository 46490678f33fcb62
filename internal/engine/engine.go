// Package engine owns the irrigation site state: it evaluates the watering
// schedule against the forecast, runs the periodic tick and refresh jobs and
// executes watering sessions.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/gpellegrini/irrigo/internal/actuator"
	"github.com/gpellegrini/irrigo/internal/demand"
	"github.com/gpellegrini/irrigo/internal/eto"
	"github.com/gpellegrini/irrigo/internal/forecast"
	"github.com/gpellegrini/irrigo/internal/history"
	"github.com/gpellegrini/irrigo/internal/metrics"
	"github.com/gpellegrini/irrigo/internal/model"
	"github.com/gpellegrini/irrigo/internal/notify"
)

var (
	// ErrZoneNotFound rejects commands targeting an unknown zone id.
	ErrZoneNotFound = errors.New("zone not found")

	// ErrSessionActive rejects a session start while one is running.
	ErrSessionActive = errors.New("watering session already active")
)

const defaultSolarRadiation = 6.0 // kWh/day when no monthly value configured

// Config carries the site-level scheduling parameters.
type Config struct {
	Latitude       float64
	Altitude       float64
	SunriseOffset  float64 // minutes before sunrise-anchored end
	Cycles         int
	LowThreshold   float64 // °C, minimum min-temp
	HighThreshold  float64 // °C, minimum max-temp
	RecheckMinutes float64
	ForecastDays   int
	RefreshMinutes int
	FetchTimeout   time.Duration
	SolarRadiation map[int]float64 // month (1-12) -> kWh/day
}

// Deps are the engine's external collaborators.
type Deps struct {
	Source   forecast.Source
	Store    history.Store
	Recorder history.Recorder
	Notifier notify.Notifier
	Actuator actuator.Actuator
}

// SiteState is the single mutable aggregate of the site. Every reader and
// writer goes through mu; there is no other shared state.
type SiteState struct {
	mu                sync.Mutex
	zones             []*model.Zone
	forecast          []model.WeatherDay
	decision          model.ScheduleDecision
	lastUpdateSuccess bool
}

// SiteSnapshot is the site-level read model.
type SiteSnapshot struct {
	ScheduledRun      *time.Time `json:"scheduled_run"`
	Recheck           *time.Time `json:"recheck"`
	LastUpdateSuccess bool       `json:"last_update_success"`
}

// Engine ties the schedule evaluation, the periodic jobs and the watering
// executor together.
type Engine struct {
	cfg   Config
	deps  Deps
	site  *SiteState
	sched *gocron.Scheduler

	// session bookkeeping, guarded by sessionMu
	sessionMu     sync.Mutex
	sessionActive bool
	sessionCancel context.CancelFunc
	holdZoneID    int
	holdCancel    context.CancelFunc

	now    func() time.Time
	minute time.Duration // hold time base, shrunk in tests
}

func New(cfg Config, zones []model.ZoneConfig, deps Deps) *Engine {
	if cfg.Cycles <= 0 {
		cfg.Cycles = 2
	}
	if cfg.ForecastDays <= 0 {
		cfg.ForecastDays = 8
	}
	if cfg.RefreshMinutes <= 0 {
		cfg.RefreshMinutes = 60
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if deps.Recorder == nil {
		deps.Recorder = history.NoopRecorder{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Actuator == nil {
		deps.Actuator = actuator.Noop{}
	}

	site := &SiteState{}
	for i, zc := range zones {
		site.zones = append(site.zones, &model.Zone{ID: i + 1, Config: zc})
	}
	log.Printf("engine: initialized %d zones", len(site.zones))

	metrics.Init()

	return &Engine{
		cfg:    cfg,
		deps:   deps,
		site:   site,
		now:    time.Now,
		minute: time.Minute,
	}
}

// Start loads persisted history, performs the first forecast refresh and
// launches the periodic tick (every minute) and refresh jobs.
func (e *Engine) Start(ctx context.Context) error {
	e.loadHistory()

	if err := e.Refresh(ctx); err != nil {
		log.Printf("engine: initial forecast refresh failed: %v", err)
	}

	e.sched = gocron.NewScheduler(time.UTC)
	if _, err := e.sched.Every(1).Minute().Do(e.tick); err != nil {
		return err
	}
	if _, err := e.sched.Every(e.cfg.RefreshMinutes).Minutes().Do(func() {
		if err := e.Refresh(context.Background()); err != nil {
			log.Printf("engine: forecast refresh failed: %v", err)
		}
	}); err != nil {
		return err
	}
	e.sched.StartAsync()
	return nil
}

// Stop halts the periodic jobs and cancels an in-flight session.
func (e *Engine) Stop() {
	if e.sched != nil {
		e.sched.Stop()
	}
	e.CancelSession()
}

// Refresh fetches the forecast, computes each day's ETo and re-evaluates the
// schedule. On failure the previous decision is retained and the error is
// returned for the caller to log.
func (e *Engine) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	fc, err := e.deps.Source.Fetch(ctx, e.cfg.ForecastDays)
	if err != nil {
		metrics.ForecastFailures.Inc()
		e.site.mu.Lock()
		e.site.lastUpdateSuccess = false
		e.site.mu.Unlock()
		return err
	}

	for i := range fc {
		fc[i].ETo = eto.Calculate(
			fc[i].MinTemp, fc[i].MaxTemp, fc[i].Humidity, fc[i].Pressure,
			fc[i].WindSpeed, e.solarFor(fc[i].Sunrise.Month()),
			e.cfg.Altitude, e.cfg.Latitude, fc[i].Sunrise,
		)
		log.Printf("engine: day %s eto=%.2fmm rain=%.1fmm temp=%.1f-%.1f°C",
			fc[i].Sunrise.Format("2006-01-02"), fc[i].ETo, fc[i].Rain, fc[i].MinTemp, fc[i].MaxTemp)
	}

	e.site.mu.Lock()
	e.site.forecast = fc
	e.site.lastUpdateSuccess = true
	e.evaluateLocked(e.now())
	e.site.mu.Unlock()
	return nil
}

// Recalculate forces a schedule evaluation against the current forecast.
func (e *Engine) Recalculate() {
	e.site.mu.Lock()
	e.evaluateLocked(e.now())
	e.site.mu.Unlock()
}

// tick runs every minute. A due recheck wins over a due start; at most one of
// the two fires per tick.
func (e *Engine) tick() {
	now := e.now()

	e.site.mu.Lock()
	if rc := e.site.decision.Recheck; rc != nil && !now.Before(*rc) {
		e.site.decision.Recheck = nil
		log.Printf("engine: running scheduled recheck")
		e.evaluateLocked(now)
		e.site.mu.Unlock()
		return
	}
	start := e.site.decision.Start
	due := start != nil && !now.Before(*start)
	e.site.mu.Unlock()

	if due {
		log.Printf("engine: scheduled watering start due")
		if err := e.StartSession(); err != nil {
			log.Printf("engine: start skipped: %v", err)
		}
	}
}

// evaluateLocked recomputes durations and the schedule decision. Caller holds
// the site lock.
func (e *Engine) evaluateLocked(now time.Time) {
	metrics.Evaluations.Inc()

	fc := e.site.forecast
	if len(fc) == 0 {
		log.Printf("engine: no forecast data available for scheduling")
		return
	}
	cycles := float64(e.cfg.Cycles)

	// Day-0 probe to find out whether today's window is still reachable.
	total := 0.0
	for _, z := range e.site.zones {
		if z.Config.Enabled {
			z.Duration = demand.ZoneDuration(z, fc, 0)
			total += z.Duration * cycles
		}
	}

	dayIndex := 0
	earliest := fc[0].Sunrise.Add(-minutesDur(total + e.cfg.SunriseOffset))
	if earliest.Before(now) {
		dayIndex = 1
	}
	if dayIndex >= len(fc) {
		e.site.decision = model.ScheduleDecision{}
		metrics.ScheduledStart.Set(0)
		return
	}

	day := fc[dayIndex]
	if day.MinTemp < e.cfg.LowThreshold || day.MaxTemp < e.cfg.HighThreshold {
		log.Printf("engine: temperature thresholds not met (min %.1f°C, max %.1f°C), skipping schedule",
			day.MinTemp, day.MaxTemp)
		e.site.decision = model.ScheduleDecision{DayIndex: dayIndex}
		metrics.ScheduledStart.Set(0)
		return
	}

	// Durations can differ on the chosen day; recompute before committing.
	total = 0
	for _, z := range e.site.zones {
		if !z.Config.Enabled {
			continue
		}
		z.Duration = demand.ZoneDuration(z, fc, dayIndex)
		total += z.Duration * cycles
		metrics.ZoneDuration.WithLabelValues(z.Config.Name).Set(z.Duration)
		if z.Duration > 0 {
			log.Printf("engine: zone %q: %.1f minutes (%d cycles of %.1f min)",
				z.Config.Name, z.Duration*cycles, e.cfg.Cycles, z.Duration)
		}
	}
	if total == 0 {
		log.Printf("engine: no watering needed")
		e.site.decision = model.ScheduleDecision{DayIndex: dayIndex}
		metrics.ScheduledStart.Set(0)
		return
	}

	start := day.Sunrise.Add(-minutesDur(total + e.cfg.SunriseOffset))
	end := start.Add(minutesDur(total))
	dec := model.ScheduleDecision{DayIndex: dayIndex, Start: &start}

	if e.cfg.RecheckMinutes > 0 {
		rc := start.Add(-minutesDur(e.cfg.RecheckMinutes))
		if rc.After(now) {
			dec.Recheck = &rc
			log.Printf("engine: recheck scheduled for %s", rc.Format(time.RFC3339))
		}
	}

	e.site.decision = dec
	metrics.ScheduledStart.Set(float64(start.Unix()))
	log.Printf("engine: watering scheduled start=%s end=%s total=%.1f min",
		start.Format(time.RFC3339), end.Format(time.RFC3339), total)
}

// Zones returns the per-zone read model.
func (e *Engine) Zones() []model.ZoneSnapshot {
	e.site.mu.Lock()
	defer e.site.mu.Unlock()
	out := make([]model.ZoneSnapshot, 0, len(e.site.zones))
	for _, z := range e.site.zones {
		out = append(out, z.Snapshot())
	}
	return out
}

// Site returns the site-level read model.
func (e *Engine) Site() SiteSnapshot {
	e.site.mu.Lock()
	defer e.site.mu.Unlock()
	return SiteSnapshot{
		ScheduledRun:      e.site.decision.Start,
		Recheck:           e.site.decision.Recheck,
		LastUpdateSuccess: e.site.lastUpdateSuccess,
	}
}

func (e *Engine) zoneByID(id int) *model.Zone {
	// The zone list and ids are immutable after New.
	for _, z := range e.site.zones {
		if z.ID == id {
			return z
		}
	}
	return nil
}

func (e *Engine) loadHistory() {
	rec, err := e.deps.Store.Load()
	if err != nil {
		log.Printf("engine: history load failed: %v", err)
		return
	}
	if rec == nil {
		return
	}
	e.site.mu.Lock()
	defer e.site.mu.Unlock()
	for _, zh := range rec.Zones {
		z := e.zoneByID(zh.ZoneID)
		if z == nil || zh.LastRun == nil {
			continue
		}
		t := *zh.LastRun
		z.LastRun = &t
		log.Printf("engine: restored last run for zone %q: %s", z.Config.Name, t.Format(time.RFC3339))
	}
}

// historyLocked builds the full history record. Caller holds the site lock.
func (e *Engine) historyLocked() model.HistoryRecord {
	rec := model.HistoryRecord{Version: model.HistoryVersion, Key: model.HistoryKey}
	for _, z := range e.site.zones {
		zh := model.ZoneHistory{ZoneID: z.ID}
		if z.LastRun != nil {
			t := *z.LastRun
			zh.LastRun = &t
		}
		rec.Zones = append(rec.Zones, zh)
	}
	return rec
}

func (e *Engine) solarFor(m time.Month) float64 {
	if v, ok := e.cfg.SolarRadiation[int(m)]; ok && v > 0 {
		return v
	}
	return defaultSolarRadiation
}

func minutesDur(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}
