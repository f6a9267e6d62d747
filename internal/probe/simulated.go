package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smoke_controller/internal/models"
)

// TempSource supplies the true temperature a simulated probe measures.
type TempSource interface {
	TempC(probeID string) float64
}

// Simulated reads from a TempSource and can be told to fail.
type Simulated struct {
	id     string
	source TempSource
	clock  func() time.Time

	mu    sync.Mutex
	fault error
	delay time.Duration
}

func NewSimulated(id string, source TempSource) *Simulated {
	return &Simulated{id: id, source: source, clock: time.Now}
}

func (s *Simulated) ID() string { return s.id }

// InjectFault makes every read fail with err until cleared with nil.
func (s *Simulated) InjectFault(err error) {
	s.mu.Lock()
	s.fault = err
	s.mu.Unlock()
}

// SetFault makes reads fail the way a real sensor would for f. FaultNone clears it.
func (s *Simulated) SetFault(f models.ProbeFault) {
	switch f {
	case models.FaultDisconnected:
		s.InjectFault(ErrDisconnected)
	case models.FaultOutOfRange:
		s.InjectFault(ErrOutOfRange)
	default:
		s.InjectFault(nil)
	}
}

// SetDelay makes reads block for d, or until ctx is done.
func (s *Simulated) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (s *Simulated) Read(ctx context.Context) (models.Reading, error) {
	s.mu.Lock()
	fault, delay := s.fault, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return models.Reading{}, fmt.Errorf("%w: %v", ErrDisconnected, ctx.Err())
		case <-time.After(delay):
		}
	}
	if fault != nil {
		return models.Reading{}, fault
	}
	return models.Reading{ProbeID: s.id, TempC: s.source.TempC(s.id), At: s.clock(), Valid: true}, nil
}
