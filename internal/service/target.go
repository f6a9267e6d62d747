package service

import (
	"sync/atomic"
	"time"

	"smoke_controller/internal/models"
)

// TargetHolder is the operator target, written by commands and read every cycle.
type TargetHolder struct {
	v atomic.Pointer[models.Target]
}

func NewTargetHolder(tempC float64, enabled bool, now time.Time) *TargetHolder {
	h := &TargetHolder{}
	h.v.Store(&models.Target{TempC: tempC, Enabled: enabled, UpdatedAt: now})
	return h
}

func (h *TargetHolder) Get() models.Target {
	return *h.v.Load()
}

// Update applies fn to a copy of the current target and publishes it. It returns
// the previous and new values.
func (h *TargetHolder) Update(fn func(t *models.Target)) (prev, next models.Target) {
	for {
		old := h.v.Load()
		n := *old
		fn(&n)
		if h.v.CompareAndSwap(old, &n) {
			return *old, n
		}
	}
}
