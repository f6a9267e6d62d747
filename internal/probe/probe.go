// Package probe reads temperature sensors and runs one polling worker per probe.
package probe

import (
	"context"
	"errors"

	"smoke_controller/internal/models"
)

var (
	ErrDisconnected = errors.New("probe disconnected")
	ErrOutOfRange   = errors.New("reading out of range")
)

// Probe is a single temperature sensor. Read must honor ctx where the driver can;
// the worker bounds it with a timeout either way.
type Probe interface {
	ID() string
	Read(ctx context.Context) (models.Reading, error)
}

// faultOf maps a read error to the status fault it causes.
func faultOf(err error) models.ProbeFault {
	if errors.Is(err, ErrOutOfRange) {
		return models.FaultOutOfRange
	}
	return models.FaultDisconnected
}
