package service

import (
	"sync"
	"time"

	"smoke_controller/internal/models"
)

type fakeProbe struct {
	mu       sync.Mutex
	id       string
	role     models.ProbeRole
	enabled  bool
	state    models.ProbeState
	lastGood *models.Reading

	enables, disables int
}

func newFakeProbe(id string, role models.ProbeRole, enabled bool) *fakeProbe {
	st := models.ProbeDisabled
	if enabled {
		st = models.ProbePolling
	}
	return &fakeProbe{id: id, role: role, enabled: enabled, state: st}
}

func (p *fakeProbe) ID() string             { return p.id }
func (p *fakeProbe) Role() models.ProbeRole { return p.role }

func (p *fakeProbe) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enables++
	p.enabled = true
	p.state = models.ProbePolling
}

func (p *fakeProbe) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disables++
	p.enabled = false
	p.state = models.ProbeDisabled
}

func (p *fakeProbe) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *fakeProbe) setState(s models.ProbeState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

func (p *fakeProbe) setLastGood(tempC float64, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastGood = &models.Reading{ProbeID: p.id, TempC: tempC, At: at, Valid: true}
}

func (p *fakeProbe) Status() models.ProbeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.ProbeStatus{
		ID:       p.id,
		Name:     p.id,
		Role:     p.role,
		Enabled:  p.enabled,
		State:    p.state,
		LastGood: p.lastGood,
	}
}

type fakeFan struct {
	mu        sync.Mutex
	st        models.FanState
	submitted []models.Decision
}

func (f *fakeFan) Submit(d models.Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, d)
}

func (f *fakeFan) State() models.FanState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeFan) set(st models.FanState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st = st
}

func (f *fakeFan) submissions() []models.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Decision(nil), f.submitted...)
}

type fakeHistory struct {
	mu       sync.Mutex
	readings map[string][]models.Reading
}

func newFakeHistory(ids ...string) *fakeHistory {
	h := &fakeHistory{readings: make(map[string][]models.Reading)}
	for _, id := range ids {
		h.readings[id] = nil
	}
	return h
}

// set stores temps as readings spaced 10s apart, the last one taken at newest.
func (h *fakeHistory) set(id string, newest time.Time, temps ...float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs := make([]models.Reading, len(temps))
	for i, c := range temps {
		at := newest.Add(-time.Duration(len(temps)-1-i) * 10 * time.Second)
		rs[i] = models.Reading{ProbeID: id, TempC: c, At: at, Valid: true}
	}
	h.readings[id] = rs
}

func (h *fakeHistory) Recent(id string, n int) []models.Reading {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs := h.readings[id]
	if n < len(rs) {
		rs = rs[len(rs)-n:]
	}
	return append([]models.Reading(nil), rs...)
}

func (h *fakeHistory) Window(id string, d time.Duration) []models.Reading {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs := h.readings[id]
	if len(rs) == 0 {
		return nil
	}
	cutoff := rs[len(rs)-1].At.Add(-d)
	var out []models.Reading
	for _, r := range rs {
		if !r.At.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func (h *fakeHistory) Has(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.readings[id]
	return ok
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
