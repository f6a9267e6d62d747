package models

import "time"

// Reason explains why the maintain algorithm picked a speed.
type Reason string

const (
	ReasonOnTarget  Reason = "on_target"
	ReasonTooHot    Reason = "too_hot"
	ReasonTooCold   Reason = "too_cold"
	ReasonStaleData Reason = "stale_data"
	ReasonNoData    Reason = "no_data"
	ReasonFailSafe  Reason = "fail_safe"
	ReasonDisabled  Reason = "disabled"
)

// Actionable reports whether the decision was computed from fresh temperature data.
func (r Reason) Actionable() bool {
	switch r {
	case ReasonOnTarget, ReasonTooHot, ReasonTooCold:
		return true
	default:
		return false
	}
}

// Decision is one control cycle's output. It is consumed once by the fan worker.
type Decision struct {
	ProbeID      string    `json:"probe_id,omitempty"`
	Speed        FanSpeed  `json:"speed"`
	Reason       Reason    `json:"reason"`
	SmoothedC    float64   `json:"smoothed_c,omitempty"`
	ErrorC       float64   `json:"error_c,omitempty"` // target - smoothed
	TrendCPerSec float64   `json:"trend_c_per_sec,omitempty"`
	Held         bool      `json:"held,omitempty"` // a change was wanted but dwell/settling blocked it
	At           time.Time `json:"at"`
}
