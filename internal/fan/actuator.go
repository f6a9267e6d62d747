// Package fan drives the blower that feeds air to the fire.
package fan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"smoke_controller/internal/models"
)

var ErrInvalidSpeed = errors.New("invalid fan speed")

// Actuator applies a speed to the hardware. A nil error means the command was accepted.
type Actuator interface {
	SetSpeed(ctx context.Context, s models.FanSpeed) error
}

// DefaultDutyCycles maps off/slow/medium/fast to PWM duty in percent.
var DefaultDutyCycles = [4]int{0, 35, 65, 90}

const DefaultPeriodNS = 10_000_000 // 100 Hz

// PWMActuator drives a Linux sysfs PWM channel, e.g. /sys/class/pwm/pwmchip0/pwm0.
// The channel must already be exported.
type PWMActuator struct {
	dir      string
	periodNS int64
	duty     [4]int

	mu    sync.Mutex
	ready bool
}

func NewPWMActuator(dir string, periodNS int64, duty [4]int) *PWMActuator {
	if periodNS <= 0 {
		periodNS = DefaultPeriodNS
	}
	return &PWMActuator{dir: dir, periodNS: periodNS, duty: duty}
}

func (a *PWMActuator) SetSpeed(ctx context.Context, s models.FanSpeed) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSpeed, int(s))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		// duty_cycle must never exceed period, so zero it before changing the period
		if err := a.write("duty_cycle", 0); err != nil {
			return err
		}
		if err := a.write("period", a.periodNS); err != nil {
			return err
		}
		if err := a.write("enable", 1); err != nil {
			return err
		}
		a.ready = true
	}

	duty := a.periodNS * int64(a.duty[s]) / 100
	if err := a.write("duty_cycle", duty); err != nil {
		a.ready = false
		return err
	}
	return nil
}

func (a *PWMActuator) write(name string, v int64) error {
	p := filepath.Join(a.dir, name)
	if err := os.WriteFile(p, []byte(strconv.FormatInt(v, 10)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
