// Package pit simulates a smoker chamber so the controller can run without hardware.
//
// The chamber heats while the fan feeds the fire and drifts toward ambient while it is
// off. Food probes lag behind the chamber temperature.
package pit

import (
	"context"
	"errors"
	"sync"
	"time"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/models"
)

// ----------- Simulation defaults -----------
const (
	AmbientC      = 20.0  // ambient temperature °C
	MaxSafeC      = 350.0 // firebox limit °C
	CoolCPerSec   = 0.25  // drift toward ambient with the fan off
	FoodLagPerSec = 0.002 // fraction of the pit/food gap closed per second
)

// DefaultHeatCPerSec is the ramp rate for off/slow/medium/fast.
var DefaultHeatCPerSec = [4]float64{0, 0.2, 0.5, 1.0}

var ErrActuatorFault = errors.New("simulated actuator fault")

type Config struct {
	AmbientC      float64
	StartC        float64
	MaxC          float64
	HeatCPerSec   [4]float64
	CoolCPerSec   float64
	FoodLagPerSec float64
	Clock         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.AmbientC == 0 {
		c.AmbientC = AmbientC
	}
	if c.StartC == 0 {
		c.StartC = c.AmbientC
	}
	if c.MaxC == 0 {
		c.MaxC = MaxSafeC
	}
	if c.HeatCPerSec == ([4]float64{}) {
		c.HeatCPerSec = DefaultHeatCPerSec
	}
	if c.CoolCPerSec == 0 {
		c.CoolCPerSec = CoolCPerSec
	}
	if c.FoodLagPerSec == 0 {
		c.FoodLagPerSec = FoodLagPerSec
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Pit is the simulated chamber. It is the fan actuator and the temperature source
// for simulated probes.
type Pit struct {
	cfg Config
	log *logger.Logger

	mu        sync.Mutex
	pitC      float64
	food      map[string]float64
	speed     models.FanSpeed
	fault     error
	updatedAt time.Time
	overheat  bool
}

// New creates a pit. foodProbes are the ids whose readings lag the chamber;
// every other probe id reads the chamber temperature.
func New(cfg Config, foodProbes []string, log *logger.Logger) *Pit {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	p := &Pit{
		cfg:       cfg,
		log:       log.Named("pit"),
		pitC:      cfg.StartC,
		food:      make(map[string]float64, len(foodProbes)),
		updatedAt: cfg.Clock(),
	}
	for _, id := range foodProbes {
		p.food[id] = cfg.AmbientC
	}
	return p
}

// SetSpeed implements fan.Actuator.
func (p *Pit) SetSpeed(ctx context.Context, s models.FanSpeed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fault != nil {
		return p.fault
	}
	p.speed = s
	return nil
}

// InjectActuatorFault makes SetSpeed fail with err until cleared with nil.
func (p *Pit) InjectActuatorFault(err error) {
	p.mu.Lock()
	p.fault = err
	p.mu.Unlock()
}

// SetActuatorFault toggles ErrActuatorFault on every SetSpeed.
func (p *Pit) SetActuatorFault(failing bool) {
	if failing {
		p.InjectActuatorFault(ErrActuatorFault)
		return
	}
	p.InjectActuatorFault(nil)
}

// TempC implements probe.TempSource.
func (p *Pit) TempC(probeID string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.food[probeID]; ok {
		return c
	}
	return p.pitC
}

// Speed is the level the chamber is currently fed at.
func (p *Pit) Speed() models.FanSpeed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Run advances the model at the given interval until ctx is canceled.
func (p *Pit) Run(ctx context.Context, tick time.Duration) error {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.Advance(p.cfg.Clock())
		}
	}
}

// Advance moves the model forward to now.
func (p *Pit) Advance(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := now.Sub(p.updatedAt).Seconds()
	if elapsed <= 0 {
		return
	}
	p.updatedAt = now

	if p.speed == models.FanOff {
		p.pitC = p.driftToAmbient(p.pitC, elapsed)
	} else {
		p.pitC = p.heat(p.pitC, elapsed, p.speed)
	}
	for id, c := range p.food {
		p.food[id] = p.soak(c, p.pitC, elapsed)
	}
	p.detectOverheat()
}

// driftToAmbient cools toward ambient and clamps there.
func (p *Pit) driftToAmbient(c, elapsed float64) float64 {
	if c > p.cfg.AmbientC {
		return maxFloat(c-p.cfg.CoolCPerSec*elapsed, p.cfg.AmbientC)
	}
	return c
}

// heat ramps the chamber at the rate of the current fan level, up to MaxC.
func (p *Pit) heat(c, elapsed float64, s models.FanSpeed) float64 {
	c += p.cfg.HeatCPerSec[s] * elapsed
	if c > p.cfg.MaxC {
		c = p.cfg.MaxC
	}
	return c
}

// soak moves food temperature toward the chamber by a fraction of the gap.
func (p *Pit) soak(food, pit, elapsed float64) float64 {
	k := p.cfg.FoodLagPerSec * elapsed
	if k > 1 {
		k = 1
	}
	return food + (pit-food)*k
}

func (p *Pit) detectOverheat() {
	hot := p.pitC >= p.cfg.MaxC
	if hot && !p.overheat {
		p.log.Warnw("pit_overheat", "temp_c", p.pitC, "max_c", p.cfg.MaxC, "speed", p.speed)
	}
	p.overheat = hot
}

func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}
