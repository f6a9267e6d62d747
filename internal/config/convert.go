package config

import (
	"smoke_controller/internal/fan"
	"smoke_controller/internal/history"
	"smoke_controller/internal/maintain"
	"smoke_controller/internal/models"
	"smoke_controller/internal/pit"
	"smoke_controller/internal/probe"
)

func (m MaintainConfig) Params() maintain.Params {
	return maintain.Params{
		SmoothingWindow: m.SmoothingWindow,
		DeadbandC:       m.DeadbandC,
		Thresholds:      [3]float64{m.Bands.Slow, m.Bands.Medium, m.Bands.Fast},
		HysteresisC:     m.HysteresisC,
		MinDwell:        m.MinDwell,
		StaleAfter:      m.StaleAfter,
		FailSafeAfter:   m.FailSafeAfter,
		TrendLookahead:  m.TrendLookahead,
	}
}

// HistoryOptions never lets eviction go below one smoothing window.
func (c *Config) HistoryOptions() history.Options {
	return history.Options{
		MaxSamples: c.History.MaxSamples,
		Retention:  c.History.Retention,
		MinKeep:    c.Maintain.SmoothingWindow,
	}
}

func (p ProbeConfig) WorkerConfig() probe.WorkerConfig {
	return probe.WorkerConfig{
		Name:        p.Name,
		Role:        models.ProbeRole(p.Role),
		Interval:    p.SampleInterval,
		ReadTimeout: p.ReadTimeout,
	}
}

func (f FanConfig) WorkerConfig() fan.WorkerConfig {
	return fan.WorkerConfig{
		CommandTimeout: f.CommandTimeout,
		MaxAttempts:    f.MaxAttempts,
		Backoff:        f.Backoff,
		MaxBackoff:     f.MaxBackoff,
		Settle:         f.Settle,
	}
}

func (f FanConfig) Duty() [4]int {
	var d [4]int
	copy(d[:], f.DutyCycles)
	return d
}

func (s SimConfig) PitConfig() pit.Config {
	cfg := pit.Config{
		AmbientC:    s.AmbientC,
		StartC:      s.StartC,
		MaxC:        s.MaxC,
		CoolCPerSec: s.CoolCPerSec,
	}
	copy(cfg.HeatCPerSec[:], s.HeatCPerSec)
	return cfg
}

// ProbeIDs lists configured probe ids in file order.
func (c *Config) ProbeIDs() []string {
	ids := make([]string, len(c.Probes))
	for i, p := range c.Probes {
		ids[i] = p.ID
	}
	return ids
}

// FoodProbeIDs lists the ids of food probes.
func (c *Config) FoodProbeIDs() []string {
	var ids []string
	for _, p := range c.Probes {
		if models.ProbeRole(p.Role) == models.RoleFood {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
