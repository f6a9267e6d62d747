package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/maintain"
	"smoke_controller/internal/metrics"
	"smoke_controller/internal/models"
)

// Alarm codes surfaced in telemetry.
const (
	AlarmFanFault   = "FAN_FAULT"
	AlarmProbeFault = "PROBE_FAULT"
	AlarmFoodDone   = "FOOD_DONE"
)

type LoopConfig struct {
	Interval           time.Duration
	FaultRetryInterval time.Duration
	Params             maintain.Params
	Clock              func() time.Time
}

// commanded is the last speed change the loop submitted and has not seen confirmed yet.
type commanded struct {
	speed models.FanSpeed
	at    time.Time
}

// ControlLoop periodically turns pit readings into fan decisions and publishes telemetry.
// Step is not safe for concurrent use; Run is its only caller outside tests.
type ControlLoop struct {
	cfg     LoopConfig
	probes  *ProbeSet
	history HistoryReader
	target  *TargetHolder
	fan     FanWorker
	events  EventRecorder
	log     *logger.Logger

	cycle      uint64
	pending    *commanded
	fanAlarm   bool
	retryAfter time.Time
	lastSpeed  models.FanSpeed
	done       map[string]bool

	snapshot atomic.Pointer[models.Telemetry]
}

func NewControlLoop(cfg LoopConfig, probes *ProbeSet, history HistoryReader, target *TargetHolder,
	fan FanWorker, events EventRecorder, log *logger.Logger) *ControlLoop {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.FaultRetryInterval <= 0 {
		cfg.FaultRetryInterval = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	l := &ControlLoop{
		cfg:     cfg,
		probes:  probes,
		history: history,
		target:  target,
		fan:     fan,
		events:  events,
		log:     log.Named("loop"),
		done:    make(map[string]bool),
	}
	now := cfg.Clock()
	l.snapshot.Store(&models.Telemetry{
		Target:    target.Get(),
		Probes:    l.probeTelemetry(nil),
		Fan:       fan.State(),
		UpdatedAt: now,
	})
	return l
}

func (l *ControlLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.log.Infow("control_loop_started", "interval", l.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			l.log.Infow("control_loop_stopped", "cycles", l.cycle)
			return nil
		case <-ticker.C:
			l.Step(l.cfg.Clock())
		}
	}
}

// Snapshot returns the telemetry published by the last cycle.
func (l *ControlLoop) Snapshot() models.Telemetry {
	return *l.snapshot.Load()
}

// Step runs one control cycle at now and returns the telemetry it published.
func (l *ControlLoop) Step(now time.Time) models.Telemetry {
	tgt := l.target.Get()
	fan := l.fan.State()
	l.observeFan(fan, now)

	perProbe := make(map[string]models.Decision)
	var dec models.Decision
	if !tgt.Enabled {
		dec = models.Decision{Speed: models.FanOff, Reason: models.ReasonDisabled, At: now}
	} else {
		view := l.fanView(fan)
		var ds []models.Decision
		for _, w := range l.probes.Pits() {
			if !w.Enabled() {
				continue
			}
			d := maintain.Decide(l.cfg.Params, maintain.Input{
				ProbeID:  w.ID(),
				TargetC:  tgt.TempC,
				Readings: l.readingsFor(w, now),
				Fan:      view,
				Now:      now,
			})
			perProbe[w.ID()] = d
			ds = append(ds, d)
		}
		if len(ds) == 0 {
			dec = models.Decision{Speed: view.Speed, Reason: models.ReasonNoData, At: now}
		} else {
			dec = arbitrate(ds)
		}
	}

	l.submit(dec, fan, now)
	l.checkFoodDone(now)

	metrics.Decisions.WithLabelValues(string(dec.Reason)).Inc()
	metrics.TargetTemperature.Set(tgt.TempC)
	if dec.Speed != l.lastSpeed {
		l.log.Infow("decision_changed", "speed", dec.Speed.String(), "reason", dec.Reason,
			"probe", dec.ProbeID, "smoothed_c", dec.SmoothedC, "error_c", dec.ErrorC)
		l.lastSpeed = dec.Speed
	}

	l.cycle++
	t := models.Telemetry{
		Target:    tgt,
		Probes:    l.probeTelemetry(perProbe),
		Fan:       fan,
		Decision:  &dec,
		Alarms:    l.alarms(fan),
		Cycle:     l.cycle,
		UpdatedAt: now,
	}
	l.snapshot.Store(&t)
	return t
}

// readingsFor returns the decision window for a pit probe. A faulted probe gets a
// trailing invalid reading so its last good values are treated as stale, while the
// fail-safe clock keeps running from the last valid one.
func (l *ControlLoop) readingsFor(w ProbeWorker, now time.Time) []models.Reading {
	rs := l.history.Recent(w.ID(), l.cfg.Params.SmoothingWindow)
	if w.Status().State != models.ProbeFaulted {
		return rs
	}
	out := make([]models.Reading, len(rs), len(rs)+1)
	copy(out, rs)
	return append(out, models.Reading{ProbeID: w.ID(), At: now})
}

// observeFan tracks the fault alarm and forgets a pending command once the fan
// worker has either confirmed it or given up on it.
func (l *ControlLoop) observeFan(fan models.FanState, now time.Time) {
	if p := l.pending; p != nil {
		if fan.Speed == p.speed || (fan.Faulted && fan.Requested == p.speed) {
			l.pending = nil
		}
	}

	switch {
	case fan.Faulted && !l.fanAlarm:
		l.fanAlarm = true
		l.retryAfter = now.Add(l.cfg.FaultRetryInterval)
		l.log.Errorw("fan_fault_alarm", "requested", fan.Requested.String(), "error", fan.Fault,
			"retry_after", l.cfg.FaultRetryInterval)
	case !fan.Faulted && l.fanAlarm:
		l.fanAlarm = false
		l.log.Infow("fan_fault_cleared", "speed", fan.Speed.String())
	}
}

// fanView is the fan state the decision function should see: the confirmed state,
// or the change the loop already asked for if it is still in flight.
func (l *ControlLoop) fanView(fan models.FanState) models.FanState {
	p := l.pending
	if p == nil {
		return fan
	}
	view := fan
	view.Speed = p.speed
	if p.at.After(view.ChangedAt) {
		view.ChangedAt = p.at
	}
	return view
}

func (l *ControlLoop) submit(d models.Decision, fan models.FanState, now time.Time) {
	if fan.Faulted && d.Speed == fan.Requested {
		if now.Before(l.retryAfter) {
			return
		}
		l.retryAfter = now.Add(l.cfg.FaultRetryInterval)
		l.log.Infow("fan_command_retry", "speed", d.Speed.String())
	}
	l.fan.Submit(d)

	switch {
	case d.Speed == fan.Speed:
		l.pending = nil
	case l.pending == nil || l.pending.speed != d.Speed:
		l.pending = &commanded{speed: d.Speed, at: now}
	}
}

// arbitrate picks one decision among the pit probes: fresh data wins over
// stale or missing data, then the hungriest probe wins.
func arbitrate(ds []models.Decision) models.Decision {
	best := ds[0]
	for _, d := range ds[1:] {
		da, ba := d.Reason.Actionable(), best.Reason.Actionable()
		if da != ba {
			if da {
				best = d
			}
			continue
		}
		if d.Speed > best.Speed {
			best = d
		}
	}
	return best
}

func (l *ControlLoop) checkFoodDone(now time.Time) {
	for _, e := range l.probes.All() {
		w := e.Worker
		if w.Role() != models.RoleFood || e.DoneC <= 0 {
			continue
		}
		id := w.ID()
		if !w.Enabled() {
			delete(l.done, id)
			continue
		}
		if l.done[id] {
			continue
		}
		st := w.Status()
		if st.LastGood == nil || st.LastGood.TempC < e.DoneC {
			continue
		}
		l.done[id] = true
		l.log.Infow("food_done", "probe", id, "temp_c", st.LastGood.TempC, "done_c", e.DoneC)
		l.events.Record(models.ControlEvent{
			OccurredAt:  now.UTC(),
			Type:        models.EventFoodDone,
			ProbeID:     id,
			Description: fmt.Sprintf("%s reached %.1f°C (done at %.1f°C)", id, st.LastGood.TempC, e.DoneC),
			Metadata:    map[string]any{"temp_c": st.LastGood.TempC, "done_c": e.DoneC},
		})
	}
}

func (l *ControlLoop) probeTelemetry(decisions map[string]models.Decision) []models.ProbeTelemetry {
	all := l.probes.All()
	out := make([]models.ProbeTelemetry, 0, len(all))
	for _, e := range all {
		pt := models.ProbeTelemetry{
			ProbeStatus: e.Worker.Status(),
			DoneC:       e.DoneC,
			Done:        l.done[e.Worker.ID()],
		}
		if d, ok := decisions[e.Worker.ID()]; ok {
			d := d
			pt.Decision = &d
		}
		out = append(out, pt)
	}
	return out
}

func (l *ControlLoop) alarms(fan models.FanState) []string {
	var out []string
	if fan.Faulted {
		out = append(out, AlarmFanFault)
	}
	for _, e := range l.probes.All() {
		st := e.Worker.Status()
		if st.Enabled && st.State == models.ProbeFaulted {
			out = append(out, AlarmProbeFault+":"+st.ID)
		}
		if l.done[st.ID] {
			out = append(out, AlarmFoodDone+":"+st.ID)
		}
	}
	return out
}
