package service

import (
	"context"
	"errors"
	"fmt"

	"smoke_controller/internal/models"
)

const defaultHistoryN = 60

var ErrInvalidHistoryQuery = errors.New("invalid history query")

type telemetrySource interface {
	Snapshot() models.Telemetry
}

// MonitoringService serves read-only views of the running controller.
type MonitoringService struct {
	loop    telemetrySource
	probes  *ProbeSet
	history HistoryReader
}

func NewMonitoringService(loop telemetrySource, probes *ProbeSet, history HistoryReader) *MonitoringService {
	return &MonitoringService{loop: loop, probes: probes, history: history}
}

// Telemetry returns the last cycle's snapshot with probe statuses refreshed, so
// enable/disable and faults show up before the next cycle.
func (s *MonitoringService) Telemetry(_ context.Context) (models.Telemetry, error) {
	t := s.loop.Snapshot()
	probes := make([]models.ProbeTelemetry, len(t.Probes))
	copy(probes, t.Probes)
	for i := range probes {
		e, err := s.probes.Get(probes[i].ID)
		if err != nil {
			continue
		}
		probes[i].ProbeStatus = e.Worker.Status()
	}
	t.Probes = probes
	return t, nil
}

func (s *MonitoringService) ProbeHistory(_ context.Context, id string, q HistoryQuery) ([]models.Reading, error) {
	if !s.history.Has(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProbe, id)
	}
	switch {
	case q.N < 0 || q.Window < 0:
		return nil, fmt.Errorf("%w: n and window must not be negative", ErrInvalidHistoryQuery)
	case q.N > 0 && q.Window > 0:
		return nil, fmt.Errorf("%w: use either n or window, not both", ErrInvalidHistoryQuery)
	case q.Window > 0:
		return s.history.Window(id, q.Window), nil
	case q.N > 0:
		return s.history.Recent(id, q.N), nil
	default:
		return s.history.Recent(id, defaultHistoryN), nil
	}
}
