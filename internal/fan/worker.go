package fan

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/metrics"
	"smoke_controller/internal/models"
)

// Recorder receives session log events. Record must not block.
type Recorder interface {
	Record(e models.ControlEvent)
}

type nopRecorder struct{}

func (nopRecorder) Record(models.ControlEvent) {}

type WorkerConfig struct {
	CommandTimeout time.Duration
	MaxAttempts    int
	Backoff        time.Duration // delay before the first retry, doubled per retry
	MaxBackoff     time.Duration
	Settle         time.Duration
	Clock          func() time.Time
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 2 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 200 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Worker is the only caller of the actuator. Decisions arrive through a one-slot
// mailbox where a newer decision replaces one that has not been picked up yet.
type Worker struct {
	act    Actuator
	cfg    WorkerConfig
	events Recorder
	log    *logger.Logger

	mailbox chan models.Decision
	state   atomic.Pointer[models.FanState]
	done    chan struct{}
}

func NewWorker(act Actuator, cfg WorkerConfig, events Recorder, log *logger.Logger) *Worker {
	if events == nil {
		events = nopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	w := &Worker{
		act:     act,
		cfg:     cfg,
		events:  events,
		log:     log.Named("fan"),
		mailbox: make(chan models.Decision, 1),
		done:    make(chan struct{}),
	}
	w.state.Store(&models.FanState{Speed: models.FanOff, Requested: models.FanOff, UpdatedAt: cfg.Clock()})
	return w
}

// Submit hands a decision to the worker without blocking.
func (w *Worker) Submit(d models.Decision) {
	for {
		select {
		case w.mailbox <- d:
			return
		default:
		}
		// slot taken by an older decision nobody picked up yet
		select {
		case <-w.mailbox:
		default:
		}
	}
}

// State returns the last published fan state.
func (w *Worker) State() models.FanState {
	return *w.state.Load()
}

// Done is closed once Run has turned the fan off and returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)
	w.log.Infow("fan_worker_started", "max_attempts", w.cfg.MaxAttempts, "command_timeout", w.cfg.CommandTimeout)

	settle := time.NewTimer(time.Hour)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return nil
		case d := <-w.mailbox:
			if w.apply(ctx, d) && w.cfg.Settle > 0 {
				settle.Reset(w.cfg.Settle)
			}
		case <-settle.C:
			st := w.State()
			st.Settling = false
			st.UpdatedAt = w.cfg.Clock()
			w.publish(st)
		}
	}
}

// apply returns true when the fan changed speed.
func (w *Worker) apply(ctx context.Context, d models.Decision) bool {
	cur := w.State()
	if d.Speed == cur.Speed && !cur.Faulted {
		return false
	}

	err := w.command(ctx, d.Speed)
	if err != nil && ctx.Err() != nil {
		return false
	}

	st := cur
	st.Requested = d.Speed
	st.UpdatedAt = w.cfg.Clock()

	if err != nil {
		st.Faulted = true
		st.Fault = err.Error()
		w.publish(st)
		metrics.FanFaulted.Set(1)
		if !cur.Faulted {
			w.log.Errorw("fan_faulted", "requested", d.Speed, "speed", cur.Speed, "err", err)
			w.events.Record(models.ControlEvent{
				Type:        models.EventFanFault,
				Description: fmt.Sprintf("Fan did not accept %s: %v", d.Speed, err),
				Metadata:    map[string]any{"requested": d.Speed, "speed": cur.Speed},
			})
		}
		return false
	}

	if cur.Faulted {
		metrics.FanFaulted.Set(0)
		w.log.Infow("fan_recovered", "speed", d.Speed)
	}
	st.Faulted = false
	st.Fault = ""

	changed := d.Speed != cur.Speed
	if changed {
		st.Speed = d.Speed
		st.ChangedAt = st.UpdatedAt
		st.Settling = w.cfg.Settle > 0
		metrics.FanSpeed.Set(float64(d.Speed))
		w.log.Infow("fan_speed_changed", "from", cur.Speed, "to", d.Speed, "reason", d.Reason, "probe", d.ProbeID)
		w.events.Record(models.ControlEvent{
			Type:        models.EventSpeedChange,
			ProbeID:     d.ProbeID,
			Description: fmt.Sprintf("Fan %s -> %s (%s)", cur.Speed, d.Speed, d.Reason),
			Metadata:    map[string]any{"from": cur.Speed, "to": d.Speed, "reason": d.Reason, "error_c": d.ErrorC},
		})
	}
	w.publish(st)
	return changed
}

// command tries the actuator up to MaxAttempts times.
func (w *Worker) command(ctx context.Context, s models.FanSpeed) error {
	var lastErr error
	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.FanCommands.WithLabelValues("retry").Inc()
			t := time.NewTimer(w.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		start := time.Now()
		lastErr = w.once(ctx, s)
		metrics.FanCommandLatency.Observe(time.Since(start).Seconds())
		if lastErr == nil {
			metrics.FanCommands.WithLabelValues("success").Inc()
			return nil
		}
		w.log.Warnw("fan_command_failed", "speed", s, "attempt", attempt+1, "err", lastErr)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	metrics.FanCommands.WithLabelValues("failed").Inc()
	return fmt.Errorf("set %s failed after %d attempts: %w", s, w.cfg.MaxAttempts, lastErr)
}

// once runs a single command bounded by CommandTimeout even if the actuator ignores ctx.
func (w *Worker) once(ctx context.Context, s models.FanSpeed) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.CommandTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.act.SetSpeed(ctx, s) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("no response within %s: %w", w.cfg.CommandTimeout, ctx.Err())
	}
}

// backoff for retry n (0-based): Backoff * 2^n, capped.
func (w *Worker) backoff(n int) time.Duration {
	d := time.Duration(math.Pow(2, float64(n))) * w.cfg.Backoff
	if d > w.cfg.MaxBackoff {
		return w.cfg.MaxBackoff
	}
	return d
}

// shutdown turns the fan off with a fresh context; the run context is already gone.
func (w *Worker) shutdown() {
	budget := time.Duration(w.cfg.MaxAttempts)*w.cfg.CommandTimeout + time.Duration(w.cfg.MaxAttempts)*w.cfg.MaxBackoff
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	cur := w.State()
	err := w.command(ctx, models.FanOff)
	st := cur
	st.Requested = models.FanOff
	st.Settling = false
	st.UpdatedAt = w.cfg.Clock()
	if err != nil {
		st.Faulted = true
		st.Fault = err.Error()
		w.publish(st)
		w.log.Errorw("fan_shutdown_failed", "speed", cur.Speed, "err", err)
		return
	}
	if cur.Speed != models.FanOff {
		st.ChangedAt = st.UpdatedAt
	}
	st.Speed = models.FanOff
	st.Faulted = false
	st.Fault = ""
	w.publish(st)
	metrics.FanSpeed.Set(0)
	w.log.Infow("fan_worker_stopped", "from", cur.Speed)
}

func (w *Worker) publish(st models.FanState) {
	w.state.Store(&st)
}
