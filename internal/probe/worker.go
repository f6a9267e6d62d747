package probe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/metrics"
	"smoke_controller/internal/models"
)

// Worker lifecycle events.
const (
	EventEnable  = "enable"
	EventFault   = "fault"
	EventRecover = "recover"
	EventDisable = "disable"
)

const (
	defaultInterval    = 10 * time.Second
	defaultReadTimeout = 2 * time.Second
)

// Appender receives good readings.
type Appender interface {
	Append(r models.Reading) error
}

// Recorder receives session log events. Record must not block.
type Recorder interface {
	Record(e models.ControlEvent)
}

type nopRecorder struct{}

func (nopRecorder) Record(models.ControlEvent) {}

type WorkerConfig struct {
	Name        string
	Role        models.ProbeRole
	Interval    time.Duration
	ReadTimeout time.Duration
	Clock       func() time.Time
}

// Worker polls one probe on a fixed interval. The lifecycle is a state machine:
//
//	disabled --enable--> polling --fault--> faulted --recover--> polling
//	polling|faulted --disable--> disabled
//
// Only Run fires transitions. Enable and Disable flip a flag and wake Run.
type Worker struct {
	probe  Probe
	cfg    WorkerConfig
	store  Appender
	events Recorder
	log    *logger.Logger

	fsm     *fsm.FSM
	enabled atomic.Bool
	wake    chan struct{}
	status  atomic.Pointer[models.ProbeStatus]

	st models.ProbeStatus // owned by Run
}

func NewWorker(p Probe, cfg WorkerConfig, store Appender, events Recorder, log *logger.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Name == "" {
		cfg.Name = p.ID()
	}
	if events == nil {
		events = nopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}

	w := &Worker{
		probe:  p,
		cfg:    cfg,
		store:  store,
		events: events,
		log:    log.Named("probe").With("probe", p.ID()),
		wake:   make(chan struct{}, 1),
	}

	disabled, polling, faulted := string(models.ProbeDisabled), string(models.ProbePolling), string(models.ProbeFaulted)
	w.fsm = fsm.NewFSM(
		disabled,
		fsm.Events{
			{Name: EventEnable, Src: []string{disabled}, Dst: polling},
			{Name: EventFault, Src: []string{polling}, Dst: faulted},
			{Name: EventRecover, Src: []string{faulted}, Dst: polling},
			{Name: EventDisable, Src: []string{polling, faulted}, Dst: disabled},
		},
		fsm.Callbacks{
			"enter_" + polling:  w.enterPolling,
			"enter_" + faulted:  w.enterFaulted,
			"enter_" + disabled: w.enterDisabled,
		},
	)

	w.st = models.ProbeStatus{
		ID:        p.ID(),
		Name:      cfg.Name,
		Role:      cfg.Role,
		State:     models.ProbeDisabled,
		UpdatedAt: cfg.Clock(),
	}
	w.publish()
	return w
}

func (w *Worker) ID() string             { return w.probe.ID() }
func (w *Worker) Role() models.ProbeRole { return w.cfg.Role }
func (w *Worker) Enabled() bool          { return w.enabled.Load() }

// Enable starts polling. It never blocks.
func (w *Worker) Enable() {
	if !w.enabled.Swap(true) {
		w.notify()
	}
}

// Disable stops polling and cancels the pending wait. It never blocks.
func (w *Worker) Disable() {
	if w.enabled.Swap(false) {
		w.notify()
	}
}

func (w *Worker) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Status returns the latest published snapshot.
func (w *Worker) Status() models.ProbeStatus {
	st := *w.status.Load()
	st.Enabled = w.enabled.Load()
	return st
}

// Run polls until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Infow("probe_worker_started", "interval", w.cfg.Interval, "read_timeout", w.cfg.ReadTimeout)
	defer w.log.Infow("probe_worker_stopped")

	for {
		if !w.enabled.Load() {
			w.fire(ctx, EventDisable)
			select {
			case <-ctx.Done():
				return nil
			case <-w.wake:
			}
			continue
		}

		w.fire(ctx, EventEnable)
		w.poll(ctx)

		t := time.NewTimer(w.cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-w.wake:
			t.Stop()
		case <-t.C:
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	r, err := w.read(ctx)
	if ctx.Err() != nil || !w.enabled.Load() {
		// disabled mid-read: the result belongs to a session the operator closed
		return
	}
	now := w.cfg.Clock()

	if err != nil {
		fault := faultOf(err)
		metrics.ProbeFaults.WithLabelValues(w.probe.ID(), string(fault)).Inc()
		w.st.Fault = fault
		w.st.LastError = err.Error()
		w.st.UpdatedAt = now
		w.fire(ctx, EventFault, err)
		w.log.Debugw("probe_read_failed", "fault", fault, "err", err)
		w.publish()
		return
	}

	r.ProbeID = w.probe.ID()
	r.Valid = true
	if r.At.IsZero() {
		r.At = now
	}
	if err := w.store.Append(r); err != nil {
		return
	}
	metrics.ProbeTemperature.WithLabelValues(r.ProbeID).Set(r.TempC)

	w.st.LastGood = &r
	w.st.Fault = models.FaultNone
	w.st.LastError = ""
	w.st.UpdatedAt = now
	w.fire(ctx, EventRecover)
	w.publish()
}

// read bounds the probe call even if the driver ignores ctx.
func (w *Worker) read(ctx context.Context) (models.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.ReadTimeout)
	defer cancel()

	type result struct {
		r   models.Reading
		err error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := w.probe.Read(ctx)
		ch <- result{r, err}
	}()

	select {
	case res := <-ch:
		return res.r, res.err
	case <-ctx.Done():
		return models.Reading{}, fmt.Errorf("%w: no response within %s", ErrDisconnected, w.cfg.ReadTimeout)
	}
}

func (w *Worker) fire(ctx context.Context, event string, args ...interface{}) {
	if !w.fsm.Can(event) {
		return
	}
	if err := w.fsm.Event(ctx, event, args...); err != nil {
		w.log.Errorw("probe_transition_failed", "event", event, "state", w.fsm.Current(), "err", err)
		return
	}
	w.st.State = models.ProbeState(w.fsm.Current())
	w.st.UpdatedAt = w.cfg.Clock()
	w.publish()
}

func (w *Worker) enterPolling(_ context.Context, e *fsm.Event) {
	if e.Event != EventRecover {
		w.log.Infow("probe_enabled")
		return
	}
	w.log.Infow("probe_recovered")
	w.events.Record(models.ControlEvent{
		Type:        models.EventProbeRecovered,
		ProbeID:     w.probe.ID(),
		Description: fmt.Sprintf("Probe %s recovered", w.cfg.Name),
	})
}

func (w *Worker) enterFaulted(_ context.Context, e *fsm.Event) {
	var cause error
	if len(e.Args) > 0 {
		cause, _ = e.Args[0].(error)
	}
	w.log.Warnw("probe_faulted", "fault", faultOf(cause), "err", cause)
	w.events.Record(models.ControlEvent{
		Type:        models.EventProbeFault,
		ProbeID:     w.probe.ID(),
		Description: fmt.Sprintf("Probe %s faulted: %v", w.cfg.Name, cause),
		Metadata:    map[string]any{"fault": faultOf(cause)},
	})
}

func (w *Worker) enterDisabled(_ context.Context, _ *fsm.Event) {
	w.st.Fault = models.FaultNone
	w.st.LastError = ""
	w.log.Infow("probe_disabled")
}

func (w *Worker) publish() {
	st := w.st
	st.Enabled = w.enabled.Load()
	w.status.Store(&st)
}
