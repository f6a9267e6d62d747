package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/models"
)

// Accepted operator target range, °C.
const (
	MinTargetC = 40.0
	MaxTargetC = 350.0
)

var (
	ErrUnknownProbe  = errors.New("unknown probe")
	ErrInvalidTarget = fmt.Errorf("target must be within [%.0f, %.0f] °C", MinTargetC, MaxTargetC)
)

// ControlService applies operator commands. Commands flip state the workers and the
// loop read on their next iteration; nothing here waits on hardware.
type ControlService struct {
	probes *ProbeSet
	target *TargetHolder
	events EventRecorder
	log    *logger.Logger
	now    func() time.Time
}

func NewControlService(probes *ProbeSet, target *TargetHolder, events EventRecorder, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.Nop()
	}
	return &ControlService{
		probes: probes,
		target: target,
		events: events,
		log:    log.Named("control"),
		now:    time.Now,
	}
}

func (s *ControlService) EnableProbe(_ context.Context, id string) error {
	e, err := s.probes.Get(id)
	if err != nil {
		return err
	}
	if e.Worker.Enabled() {
		return nil
	}
	e.Worker.Enable()
	s.log.Infow("probe_enable_requested", "probe", id)
	s.record(models.EventProbeEnabled, id, "probe enabled", nil)
	return nil
}

func (s *ControlService) DisableProbe(_ context.Context, id string) error {
	e, err := s.probes.Get(id)
	if err != nil {
		return err
	}
	if !e.Worker.Enabled() {
		return nil
	}
	e.Worker.Disable()
	s.log.Infow("probe_disable_requested", "probe", id)
	s.record(models.EventProbeDisabled, id, "probe disabled", nil)
	return nil
}

func (s *ControlService) SetTarget(_ context.Context, tempC float64) error {
	if math.IsNaN(tempC) || tempC < MinTargetC || tempC > MaxTargetC {
		return fmt.Errorf("%w: got %.2f", ErrInvalidTarget, tempC)
	}
	now := s.now().UTC()
	prev, next := s.target.Update(func(t *models.Target) {
		t.TempC = tempC
		t.UpdatedAt = now
	})
	if prev.TempC == next.TempC {
		return nil
	}
	s.log.Infow("target_set", "from_c", prev.TempC, "to_c", next.TempC)
	s.record(models.EventTargetSet, "", fmt.Sprintf("target %.1f°C → %.1f°C", prev.TempC, next.TempC),
		map[string]any{"from_c": prev.TempC, "to_c": next.TempC})
	return nil
}

func (s *ControlService) SetControlEnabled(_ context.Context, enabled bool) error {
	now := s.now().UTC()
	prev, _ := s.target.Update(func(t *models.Target) {
		t.Enabled = enabled
		t.UpdatedAt = now
	})
	if prev.Enabled == enabled {
		return nil
	}
	typ, msg := models.EventControlDisabled, "control disabled, fan off"
	if enabled {
		typ, msg = models.EventControlEnabled, "control enabled"
	}
	s.log.Infow("control_toggled", "enabled", enabled)
	s.record(typ, "", msg, nil)
	return nil
}

func (s *ControlService) record(typ, probeID, desc string, meta any) {
	s.events.Record(models.ControlEvent{
		OccurredAt:  s.now().UTC(),
		Type:        typ,
		ProbeID:     probeID,
		Description: desc,
		Metadata:    meta,
	})
}
