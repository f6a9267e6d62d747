package models

import "time"

// ProbeTelemetry is the per-probe part of a telemetry snapshot.
type ProbeTelemetry struct {
	ProbeStatus
	Decision *Decision `json:"decision,omitempty"`
	DoneC    float64   `json:"done_c,omitempty"`
	Done     bool      `json:"done,omitempty"`
}

// Telemetry is everything a remote client needs to render the current cook.
type Telemetry struct {
	Target    Target           `json:"target"`
	Probes    []ProbeTelemetry `json:"probes"`
	Fan       FanState         `json:"fan"`
	Decision  *Decision        `json:"decision,omitempty"`
	Alarms    []string         `json:"alarms,omitempty"` // e.g. ["FAN_FAULT"]
	Cycle     uint64           `json:"cycle"`
	UpdatedAt time.Time        `json:"updated_at"`
}
