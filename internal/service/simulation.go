package service

import (
	"context"
	"errors"
	"fmt"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/models"
)

var (
	ErrSimulationDisabled = errors.New("simulation is not running")
	ErrInvalidFault       = errors.New("invalid fault")
)

// Simulation lets an operator break simulated hardware on purpose.
type Simulation interface {
	SetProbeFault(ctx context.Context, id string, fault models.ProbeFault) error
	SetFanFault(ctx context.Context, failing bool) error
}

// ProbeFaulter is a simulated probe that can be made to fail.
type ProbeFaulter interface {
	SetFault(f models.ProbeFault)
}

// FanFaulter is a simulated actuator that can be made to fail.
type FanFaulter interface {
	SetActuatorFault(failing bool)
}

type SimulationService struct {
	probes map[string]ProbeFaulter
	fan    FanFaulter // nil when the fan is real hardware
	log    *logger.Logger
}

// NewSimulationService takes the simulated probes by id. With no probes and no fan
// every call returns ErrSimulationDisabled.
func NewSimulationService(probes map[string]ProbeFaulter, fan FanFaulter, log *logger.Logger) *SimulationService {
	if probes == nil {
		probes = map[string]ProbeFaulter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SimulationService{probes: probes, fan: fan, log: log.Named("sim")}
}

func (s *SimulationService) running() bool {
	return len(s.probes) > 0 || s.fan != nil
}

func (s *SimulationService) SetProbeFault(_ context.Context, id string, fault models.ProbeFault) error {
	if !s.running() {
		return ErrSimulationDisabled
	}
	switch fault {
	case models.FaultNone, models.FaultDisconnected, models.FaultOutOfRange:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFault, fault)
	}
	p, ok := s.probes[id]
	if !ok {
		return fmt.Errorf("%w: %s is not simulated", ErrUnknownProbe, id)
	}
	p.SetFault(fault)
	s.log.Infow("sim_probe_fault_set", "probe", id, "fault", fault)
	return nil
}

func (s *SimulationService) SetFanFault(_ context.Context, failing bool) error {
	if s.fan == nil {
		return ErrSimulationDisabled
	}
	s.fan.SetActuatorFault(failing)
	s.log.Infow("sim_fan_fault_set", "failing", failing)
	return nil
}
