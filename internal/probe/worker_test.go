package probe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smoke_controller/internal/models"
)

type constSource float64

func (c constSource) TempC(string) float64 { return float64(c) }

type recordingStore struct {
	mu       sync.Mutex
	readings []models.Reading
}

func (s *recordingStore) Append(r models.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
	return nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.ControlEvent
}

func (r *recordingEvents) Record(e models.ControlEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// countingProbe wraps another probe and counts reads.
type countingProbe struct {
	Probe
	reads atomic.Int32
}

func (c *countingProbe) Read(ctx context.Context) (models.Reading, error) {
	c.reads.Add(1)
	return c.Probe.Read(ctx)
}

// stuckProbe never answers and ignores ctx.
type stuckProbe struct{ release chan struct{} }

func (s *stuckProbe) ID() string { return "stuck" }
func (s *stuckProbe) Read(ctx context.Context) (models.Reading, error) {
	<-s.release
	return models.Reading{}, nil
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startWorker(t *testing.T, w *Worker) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("worker did not stop")
		}
	}
}

func TestWorker_StartsDisabled(t *testing.T) {
	p := &countingProbe{Probe: NewSimulated("pit", constSource(100))}
	store := &recordingStore{}
	w := NewWorker(p, WorkerConfig{Role: models.RolePit, Interval: 5 * time.Millisecond}, store, nil, nil)

	stop := startWorker(t, w)
	time.Sleep(30 * time.Millisecond)
	stop()

	if got := w.Status().State; got != models.ProbeDisabled {
		t.Fatalf("state: got %s, want disabled", got)
	}
	if p.reads.Load() != 0 || store.count() != 0 {
		t.Fatalf("disabled worker must not read, got %d reads %d appends", p.reads.Load(), store.count())
	}
}

func TestWorker_PollsAndAppends(t *testing.T) {
	store := &recordingStore{}
	w := NewWorker(NewSimulated("pit", constSource(110)), WorkerConfig{Name: "Pit", Role: models.RolePit, Interval: 5 * time.Millisecond}, store, nil, nil)
	w.Enable()

	stop := startWorker(t, w)
	defer stop()

	eventually(t, "three appends", func() bool { return store.count() >= 3 })
	st := w.Status()
	if st.State != models.ProbePolling || !st.Enabled {
		t.Fatalf("status: %+v", st)
	}
	if st.LastGood == nil || st.LastGood.TempC != 110 || st.LastGood.ProbeID != "pit" {
		t.Fatalf("last good: %+v", st.LastGood)
	}
	if st.Name != "Pit" || st.Role != models.RolePit {
		t.Fatalf("identity: %+v", st)
	}
}

func TestWorker_FaultAndRecover(t *testing.T) {
	sim := NewSimulated("pit", constSource(120))
	sim.InjectFault(ErrOutOfRange)
	store := &recordingStore{}
	events := &recordingEvents{}
	w := NewWorker(sim, WorkerConfig{Interval: 5 * time.Millisecond}, store, events, nil)
	w.Enable()

	stop := startWorker(t, w)
	defer stop()

	eventually(t, "faulted state", func() bool { return w.Status().State == models.ProbeFaulted })
	st := w.Status()
	if st.Fault != models.FaultOutOfRange || st.LastError == "" {
		t.Fatalf("fault status: %+v", st)
	}
	if store.count() != 0 {
		t.Fatalf("faulted reads must not be stored")
	}

	sim.InjectFault(nil)
	eventually(t, "recovery", func() bool { return w.Status().State == models.ProbePolling })
	st = w.Status()
	if st.Fault != models.FaultNone || st.LastGood == nil {
		t.Fatalf("recovered status: %+v", st)
	}

	got := events.types()
	if len(got) != 2 || got[0] != models.EventProbeFault || got[1] != models.EventProbeRecovered {
		t.Fatalf("events: %v", got)
	}
}

func TestWorker_ReadTimeoutIsDisconnected(t *testing.T) {
	p := &stuckProbe{release: make(chan struct{})}
	defer close(p.release)

	w := NewWorker(p, WorkerConfig{Interval: time.Hour, ReadTimeout: 20 * time.Millisecond}, &recordingStore{}, nil, nil)
	w.Enable()

	stop := startWorker(t, w)
	defer stop()

	eventually(t, "timeout fault", func() bool { return w.Status().State == models.ProbeFaulted })
	if got := w.Status().Fault; got != models.FaultDisconnected {
		t.Fatalf("fault: got %s, want disconnected", got)
	}
}

func TestWorker_DisableCancelsPendingWait(t *testing.T) {
	p := &countingProbe{Probe: NewSimulated("pit", constSource(100))}
	store := &recordingStore{}
	w := NewWorker(p, WorkerConfig{Interval: time.Hour}, store, nil, nil)
	w.Enable()

	stop := startWorker(t, w)
	defer stop()

	eventually(t, "first read", func() bool { return store.count() == 1 })

	w.Disable()
	eventually(t, "disabled state", func() bool { return w.Status().State == models.ProbeDisabled })
	if w.Status().Enabled {
		t.Fatalf("status should report disabled")
	}

	w.Enable()
	eventually(t, "read after re-enable", func() bool { return store.count() == 2 })
	if p.reads.Load() != 2 {
		t.Fatalf("reads: got %d, want 2", p.reads.Load())
	}
}

func TestWorker_DisabledMidReadDropsResult(t *testing.T) {
	sim := NewSimulated("pit", constSource(100))
	sim.SetDelay(50 * time.Millisecond)
	store := &recordingStore{}
	w := NewWorker(sim, WorkerConfig{Interval: time.Hour, ReadTimeout: time.Second}, store, nil, nil)
	w.Enable()

	stop := startWorker(t, w)
	defer stop()

	time.Sleep(10 * time.Millisecond)
	w.Disable()
	eventually(t, "disabled state", func() bool { return w.Status().State == models.ProbeDisabled })
	if store.count() != 0 {
		t.Fatalf("reading taken while disabling must be dropped")
	}
}

func TestFaultOf(t *testing.T) {
	if faultOf(errors.New("x")) != models.FaultDisconnected {
		t.Fatalf("unknown errors count as disconnected")
	}
	if faultOf(ErrOutOfRange) != models.FaultOutOfRange {
		t.Fatalf("out of range")
	}
}
