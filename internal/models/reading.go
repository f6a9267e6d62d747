package models

import "time"

// Reading is one sample taken from a probe. Readings are appended once and never mutated.
type Reading struct {
	ProbeID string    `json:"probe_id"`
	TempC   float64   `json:"temp_c"` // °C
	At      time.Time `json:"at"`
	Valid   bool      `json:"valid"`
}
