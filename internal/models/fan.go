package models

import (
	"fmt"
	"strings"
	"time"
)

// FanSpeed is one of the discrete levels the actuator supports, ordered off < slow < medium < fast.
type FanSpeed int

const (
	FanOff FanSpeed = iota
	FanSlow
	FanMedium
	FanFast
)

// FanSpeeds lists every level in ascending order.
var FanSpeeds = []FanSpeed{FanOff, FanSlow, FanMedium, FanFast}

func (s FanSpeed) String() string {
	switch s {
	case FanOff:
		return "off"
	case FanSlow:
		return "slow"
	case FanMedium:
		return "medium"
	case FanFast:
		return "fast"
	default:
		return fmt.Sprintf("speed(%d)", int(s))
	}
}

// Valid reports whether s is a known level.
func (s FanSpeed) Valid() bool {
	return s >= FanOff && s <= FanFast
}

func (s FanSpeed) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FanSpeed) UnmarshalText(text []byte) error {
	v, err := ParseFanSpeed(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseFanSpeed accepts the level names used in configuration and the API.
func ParseFanSpeed(s string) (FanSpeed, error) {
	for _, sp := range FanSpeeds {
		if strings.EqualFold(strings.TrimSpace(s), sp.String()) {
			return sp, nil
		}
	}
	return FanOff, fmt.Errorf("unknown fan speed %q", s)
}

// FanState is the fan worker's view of the actuator. Speed only changes after the
// hardware confirmed the command.
type FanState struct {
	Speed     FanSpeed  `json:"speed"`
	Requested FanSpeed  `json:"requested"`            // last speed the worker tried to apply
	ChangedAt time.Time `json:"changed_at,omitempty"` // zero until the first confirmed change
	Settling  bool      `json:"settling"`
	Faulted   bool      `json:"faulted"`
	Fault     string    `json:"fault,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
