package models

import "time"

// Event types written to the session log.
const (
	EventProbeEnabled    = "PROBE_ENABLED"
	EventProbeDisabled   = "PROBE_DISABLED"
	EventProbeFault      = "PROBE_FAULT"
	EventProbeRecovered  = "PROBE_RECOVERED"
	EventTargetSet       = "TARGET_SET"
	EventControlEnabled  = "CONTROL_ENABLED"
	EventControlDisabled = "CONTROL_DISABLED"
	EventSpeedChange     = "SPEED_CHANGE"
	EventFanFault        = "FAN_FAULT"
	EventFoodDone        = "FOOD_DONE"
)

// ControlEvent is a single session log entry.
type ControlEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	ProbeID     string    `json:"probe_id,omitempty"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
