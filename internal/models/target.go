package models

import "time"

// Target is the operator-set temperature and whether the control loop is active.
type Target struct {
	TempC     float64   `json:"temp_c"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
