package models

import "time"

// ProbeRole tells the control loop how a probe participates in a cook.
type ProbeRole string

const (
	RolePit  ProbeRole = "pit"  // chamber air, drives the fan
	RoleFood ProbeRole = "food" // monitored only
)

// ProbeState is the lifecycle state of a probe worker.
type ProbeState string

const (
	ProbeDisabled ProbeState = "disabled"
	ProbePolling  ProbeState = "polling"
	ProbeFaulted  ProbeState = "faulted"
)

// ProbeFault classifies why the last read failed.
type ProbeFault string

const (
	FaultNone         ProbeFault = ""
	FaultDisconnected ProbeFault = "disconnected"
	FaultOutOfRange   ProbeFault = "out_of_range"
)

// ProbeStatus is a read-only snapshot published by a probe worker.
type ProbeStatus struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      ProbeRole  `json:"role"`
	Enabled   bool       `json:"enabled"`
	State     ProbeState `json:"state"`
	Fault     ProbeFault `json:"fault,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	LastGood  *Reading   `json:"last_good,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
