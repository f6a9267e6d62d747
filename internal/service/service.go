package service

import (
	"context"
	"time"

	"smoke_controller/internal/logger"
	"smoke_controller/internal/models"
	"smoke_controller/internal/repository"
)

type Authorization interface {
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control exposes operator commands. None of them block on the hardware.
type Control interface {
	EnableProbe(ctx context.Context, id string) error
	DisableProbe(ctx context.Context, id string) error
	SetTarget(ctx context.Context, tempC float64) error
	SetControlEnabled(ctx context.Context, enabled bool) error
}

// Monitoring exposes read-only live state.
type Monitoring interface {
	Telemetry(ctx context.Context) (models.Telemetry, error)
	ProbeHistory(ctx context.Context, id string, q HistoryQuery) ([]models.Reading, error)
}

// EventLog exposes the session log.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error)
}

// Root Service aggregates the sub-services the HTTP layer talks to.
type Service struct {
	Control
	Monitoring
	EventLog
	Authorization
	Simulation
}

// Runtime is the running controller the services operate on.
type Runtime struct {
	Probes  *ProbeSet
	History HistoryReader
	Target  *TargetHolder
	Loop    *ControlLoop
	Events  *EventLogService
	Sim     *SimulationService // nil without simulated hardware
}

func NewService(repos *repository.Repository, rt Runtime, auth AuthOptions, log *logger.Logger) *Service {
	sim := rt.Sim
	if sim == nil {
		sim = NewSimulationService(nil, nil, log)
	}
	return &Service{
		Control:       NewControlService(rt.Probes, rt.Target, rt.Events, log),
		Monitoring:    NewMonitoringService(rt.Loop, rt.Probes, rt.History),
		EventLog:      rt.Events,
		Authorization: NewAuthService(repos.Operators, auth),
		Simulation:    sim,
	}
}

// ProbeWorker is the control surface of one probe worker.
type ProbeWorker interface {
	ID() string
	Role() models.ProbeRole
	Enable()
	Disable()
	Enabled() bool
	Status() models.ProbeStatus
}

// FanWorker accepts decisions and reports the confirmed fan state.
type FanWorker interface {
	Submit(d models.Decision)
	State() models.FanState
}

// HistoryReader is the read side of the reading history.
type HistoryReader interface {
	Recent(id string, n int) []models.Reading
	Window(id string, d time.Duration) []models.Reading
	Has(id string) bool
}

// EventRecorder accepts session log events without blocking.
type EventRecorder interface {
	Record(e models.ControlEvent)
}
