package service

import (
	"fmt"

	"smoke_controller/internal/models"
)

// ProbeEntry is one configured probe.
type ProbeEntry struct {
	Worker ProbeWorker
	DoneC  float64 // food probes only; 0 disables the alert
}

// ProbeSet is the fixed, ordered set of probes of a cook.
type ProbeSet struct {
	entries []ProbeEntry
	byID    map[string]int
}

func NewProbeSet(entries ...ProbeEntry) *ProbeSet {
	s := &ProbeSet{entries: entries, byID: make(map[string]int, len(entries))}
	for i, e := range entries {
		s.byID[e.Worker.ID()] = i
	}
	return s
}

func (s *ProbeSet) Get(id string) (ProbeEntry, error) {
	i, ok := s.byID[id]
	if !ok {
		return ProbeEntry{}, fmt.Errorf("%w: %q", ErrUnknownProbe, id)
	}
	return s.entries[i], nil
}

// All returns the entries in configuration order.
func (s *ProbeSet) All() []ProbeEntry {
	return s.entries
}

// Pits returns the pit probes.
func (s *ProbeSet) Pits() []ProbeWorker {
	var out []ProbeWorker
	for _, e := range s.entries {
		if e.Worker.Role() == models.RolePit {
			out = append(out, e.Worker)
		}
	}
	return out
}
