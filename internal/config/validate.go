package config

import (
	"errors"
	"fmt"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/models"
)

// Validate reports every problem at once so an operator can fix the file in one pass.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Port == "" {
		add("port is required")
	}
	if !logger.ValidLevel(c.Log.Level) {
		add("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.DB.Path == "" {
		add("db.path is required")
	}

	if c.Auth.SigningKey == "" {
		add("auth.signing_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		add("auth.token_ttl must be > 0")
	}
	for i, op := range c.Auth.Operators {
		if op.Username == "" || op.Password == "" {
			add("auth.operators[%d] needs username and password", i)
		}
	}

	if c.Control.Interval <= 0 {
		add("control.interval must be > 0")
	}
	if c.Control.InitialTargetC <= 0 {
		add("control.initial_target_c must be > 0")
	}
	if c.Control.FaultRetryInterval < 0 {
		add("control.fault_retry_interval must be >= 0")
	}

	if err := c.Maintain.Params().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("maintain: %w", err))
	}
	if c.History.MaxSamples < c.Maintain.SmoothingWindow {
		add("history.max_samples (%d) must be >= maintain.smoothing_window (%d)", c.History.MaxSamples, c.Maintain.SmoothingWindow)
	}
	if c.History.Retention < 0 {
		add("history.retention must be >= 0")
	}

	errs = append(errs, c.validateProbes()...)
	errs = append(errs, c.validateFan()...)

	if c.usesSim() && c.Sim.Tick <= 0 {
		add("sim.tick must be > 0 when a sim driver is configured")
	}
	if len(c.Sim.HeatCPerSec) != 0 && len(c.Sim.HeatCPerSec) != 4 {
		add("sim.heat_c_per_sec needs one rate per fan level, got %d", len(c.Sim.HeatCPerSec))
	}
	return errors.Join(errs...)
}

func (c *Config) validateProbes() []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Probes) == 0 {
		add("at least one probe is required")
		return errs
	}
	seen := make(map[string]bool, len(c.Probes))
	pits := 0
	for i, p := range c.Probes {
		where := fmt.Sprintf("probes[%d]", i)
		if p.ID == "" {
			add("%s: id is required", where)
		} else {
			where = fmt.Sprintf("probe %q", p.ID)
			if seen[p.ID] {
				add("%s: duplicate id", where)
			}
			seen[p.ID] = true
		}

		switch models.ProbeRole(p.Role) {
		case models.RolePit:
			pits++
			if p.SampleInterval > c.Maintain.StaleAfter {
				add("%s: sample_interval %s exceeds maintain.stale_after %s", where, p.SampleInterval, c.Maintain.StaleAfter)
			}
		case models.RoleFood:
		default:
			add("%s: role %q must be pit or food", where, p.Role)
		}

		switch p.Driver {
		case DriverThermistor:
			if p.Address == "" {
				add("%s: thermistor needs an address", where)
			}
			if p.ADCBits < 8 || p.ADCBits > 16 {
				add("%s: adc_bits %d out of range 8..16", where, p.ADCBits)
			}
		case DriverSim:
		default:
			add("%s: driver %q must be thermistor or sim", where, p.Driver)
		}

		if p.SampleInterval <= 0 {
			add("%s: sample_interval must be > 0", where)
		}
		if p.ReadTimeout <= 0 || p.ReadTimeout > p.SampleInterval {
			add("%s: read_timeout must be in (0, sample_interval]", where)
		}
		if p.MinC >= p.MaxC {
			add("%s: min_c must be below max_c", where)
		}
		if p.DoneC < 0 {
			add("%s: done_c must be >= 0", where)
		}
	}
	if pits == 0 {
		add("at least one pit probe is required to drive the fan")
	}
	return errs
}

func (c *Config) validateFan() []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Fan.Driver {
	case DriverPWM:
		if c.Fan.Address == "" {
			add("fan: pwm driver needs an address")
		}
		if c.Fan.PeriodNS <= 0 {
			add("fan.period_ns must be > 0")
		}
	case DriverSim:
	default:
		add("fan.driver %q must be pwm or sim", c.Fan.Driver)
	}

	if len(c.Fan.DutyCycles) != 4 {
		add("fan.duty_cycles needs 4 entries (off, slow, medium, fast), got %d", len(c.Fan.DutyCycles))
	} else {
		for i, d := range c.Fan.DutyCycles {
			if d < 0 || d > 100 {
				add("fan.duty_cycles[%d] = %d out of range 0..100", i, d)
			}
			if i > 0 && d <= c.Fan.DutyCycles[i-1] {
				add("fan.duty_cycles must increase with speed")
				break
			}
		}
	}

	if c.Fan.CommandTimeout <= 0 {
		add("fan.command_timeout must be > 0")
	}
	if c.Fan.MaxAttempts < 1 {
		add("fan.max_attempts must be >= 1")
	}
	if c.Fan.Backoff < 0 || c.Fan.MaxBackoff < c.Fan.Backoff {
		add("fan.backoff must be >= 0 and <= fan.max_backoff")
	}
	if c.Fan.Settle < 0 {
		add("fan.settle must be >= 0")
	}
	return errs
}

func (c *Config) usesSim() bool {
	if c.Fan.Driver == DriverSim {
		return true
	}
	for _, p := range c.Probes {
		if p.Driver == DriverSim {
			return true
		}
	}
	return false
}
