package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gpellegrini/irrigo/internal/history"
	"github.com/gpellegrini/irrigo/internal/metrics"
	"github.com/gpellegrini/irrigo/internal/model"
	"github.com/gpellegrini/irrigo/internal/notify"
)

// StartSession launches a full watering session in the background. At most
// one session runs at a time; a second start is rejected, never queued.
func (e *Engine) StartSession() error {
	ctx, err := e.claimSession()
	if err != nil {
		return err
	}
	go e.runSession(ctx)
	return nil
}

// CancelSession aborts an in-flight session, if any.
func (e *Engine) CancelSession() {
	e.sessionMu.Lock()
	cancel := e.sessionCancel
	e.sessionMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// StartZone runs a single zone manually for the given number of minutes. The
// run claims the session slot so it cannot overlap a scheduled session, and
// it does not touch the run history.
func (e *Engine) StartZone(zoneID int, minutes float64) error {
	z := e.zoneByID(zoneID)
	if z == nil {
		return fmt.Errorf("%w: %d", ErrZoneNotFound, zoneID)
	}
	ctx, err := e.claimSession()
	if err != nil {
		return err
	}

	e.site.mu.Lock()
	z.Duration = minutes
	e.site.mu.Unlock()

	sessionID := shortID()
	log.Printf("engine: manual start of zone %q for %.0f minutes", z.Config.Name, minutes)
	go func() {
		defer e.releaseSession()
		if err := e.waterZone(ctx, sessionID, z, minutes); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("engine: manual run %s failed: %v", sessionID, err)
			e.deps.Notifier.Notify("Irrigation failed",
				fmt.Sprintf("Error watering zone %q: %v", z.Config.Name, err),
				notify.PriorityHigh)
		}
	}()
	return nil
}

// StopZone interrupts the hold of the given zone if it is currently watering.
// The session moves on to the next zone.
func (e *Engine) StopZone(zoneID int) error {
	z := e.zoneByID(zoneID)
	if z == nil {
		return fmt.Errorf("%w: %d", ErrZoneNotFound, zoneID)
	}
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	if e.holdZoneID == zoneID && e.holdCancel != nil {
		log.Printf("engine: stopping zone %q", z.Config.Name)
		e.holdCancel()
	}
	return nil
}

func (e *Engine) claimSession() (context.Context, error) {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	if e.sessionActive {
		return nil, ErrSessionActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.sessionActive = true
	e.sessionCancel = cancel
	return ctx, nil
}

func (e *Engine) releaseSession() {
	e.sessionMu.Lock()
	if e.sessionCancel != nil {
		e.sessionCancel()
	}
	e.sessionActive = false
	e.sessionCancel = nil
	e.sessionMu.Unlock()
}

type planEntry struct {
	zone    *model.Zone
	minutes float64
}

func (e *Engine) runSession(ctx context.Context) {
	defer e.releaseSession()

	sessionID := shortID()
	cycles := e.cfg.Cycles

	// Snapshot the plan so a mid-session refresh cannot change it.
	e.site.mu.Lock()
	var plan []planEntry
	for _, z := range e.site.zones {
		if z.Config.Enabled && z.Duration > 0 {
			plan = append(plan, planEntry{zone: z, minutes: z.Duration})
		}
	}
	e.site.mu.Unlock()

	if len(plan) == 0 {
		log.Printf("engine: session %s: nothing to water", sessionID)
		e.clearScheduleAndReevaluate()
		return
	}

	log.Printf("engine: session %s: starting watering (%d cycles, %d zones)",
		sessionID, cycles, len(plan))
	e.deps.Notifier.Notify("Irrigation started",
		fmt.Sprintf("Starting watering session (%d cycles)", cycles),
		notify.PriorityNormal)

	err := func() error {
		for cycle := 0; cycle < cycles; cycle++ {
			if cycle > 0 {
				log.Printf("engine: session %s: cycle %d/%d", sessionID, cycle+1, cycles)
			}
			for _, p := range plan {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := e.waterZone(ctx, sessionID, p.zone, p.minutes); err != nil {
					return err
				}
			}
		}
		return nil
	}()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("engine: session %s cancelled", sessionID)
			metrics.Sessions.WithLabelValues("cancelled").Inc()
			return
		}
		log.Printf("engine: session %s failed: %v", sessionID, err)
		metrics.Sessions.WithLabelValues("failure").Inc()
		e.deps.Notifier.Notify("Irrigation failed",
			fmt.Sprintf("Error during watering session: %v", err),
			notify.PriorityHigh)
		return
	}

	now := e.now()
	var names []string
	var runs []history.RunRecord
	e.site.mu.Lock()
	for _, p := range plan {
		t := now
		p.zone.LastRun = &t
		names = append(names, p.zone.Config.Name)
		runs = append(runs, history.RunRecord{
			SessionID:   sessionID,
			ZoneID:      p.zone.ID,
			ZoneName:    p.zone.Config.Name,
			Duration:    p.minutes,
			WaterNeeded: p.zone.WaterNeeded,
			EtoTotal:    p.zone.EtoTotal,
			Completed:   now,
		})
	}
	rec := e.historyLocked()
	e.site.mu.Unlock()

	metrics.Sessions.WithLabelValues("success").Inc()
	log.Printf("engine: session %s completed", sessionID)
	e.deps.Notifier.Notify("Irrigation completed",
		"All zones watered: "+strings.Join(names, ", "),
		notify.PriorityNormal)

	// Persistence never gates session completion.
	if err := e.deps.Store.Save(rec); err != nil {
		log.Printf("engine: history save failed: %v", err)
	}
	for _, r := range runs {
		e.deps.Recorder.Record(context.Background(), r)
	}

	e.clearScheduleAndReevaluate()
}

func (e *Engine) clearScheduleAndReevaluate() {
	e.site.mu.Lock()
	e.site.decision = model.ScheduleDecision{}
	e.evaluateLocked(e.now())
	e.site.mu.Unlock()
}

// waterZone opens one valve, holds for the zone's duration and closes it
// again. The valve is closed on every exit path.
func (e *Engine) waterZone(ctx context.Context, sessionID string, z *model.Zone, minutes float64) error {
	now := e.now()
	e.site.mu.Lock()
	z.IsRunning = true
	z.NextRun = &now
	name := z.Config.Name
	etoTotal := z.EtoTotal
	e.site.mu.Unlock()

	defer func() {
		if err := e.deps.Actuator.Off(z.ID); err != nil {
			log.Printf("engine: session %s: valve off zone %d failed: %v", sessionID, z.ID, err)
		}
		e.site.mu.Lock()
		z.IsRunning = false
		e.site.mu.Unlock()
	}()

	log.Printf("engine: session %s: zone %q for %.1f minutes", sessionID, name, minutes)
	e.deps.Notifier.Notify(
		fmt.Sprintf("Zone %q started", name),
		fmt.Sprintf("Watering for %.1f minutes (ETo %.1f mm)", minutes, etoTotal),
		notify.PriorityLow)

	if err := e.deps.Actuator.On(z.ID); err != nil {
		return fmt.Errorf("valve on zone %d: %w", z.ID, err)
	}

	stopped, err := e.hold(ctx, z.ID, minutes)
	if err != nil {
		return err
	}
	if stopped {
		log.Printf("engine: session %s: zone %q stopped early", sessionID, name)
		return nil
	}
	metrics.ZoneRuns.WithLabelValues(name).Inc()
	log.Printf("engine: session %s: zone %q finished", sessionID, name)
	return nil
}

// hold blocks for the zone's watering time. It returns stopped=true when the
// hold was cut short by StopZone, and an error when the whole session was
// cancelled.
func (e *Engine) hold(ctx context.Context, zoneID int, minutes float64) (stopped bool, err error) {
	holdCtx, cancel := context.WithCancel(ctx)
	e.sessionMu.Lock()
	e.holdZoneID = zoneID
	e.holdCancel = cancel
	e.sessionMu.Unlock()
	defer func() {
		cancel()
		e.sessionMu.Lock()
		e.holdZoneID = 0
		e.holdCancel = nil
		e.sessionMu.Unlock()
	}()

	select {
	case <-time.After(time.Duration(minutes * float64(e.minute))):
		return false, nil
	case <-holdCtx.Done():
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, nil
	}
}

func shortID() string {
	return uuid.NewString()[:8]
}
