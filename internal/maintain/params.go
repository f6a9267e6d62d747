package maintain

import (
	"errors"
	"fmt"
	"time"

	"smoke_controller/internal/models"
)

// Params are the tunables of the decision function. They come from configuration and
// never change during a cook.
type Params struct {
	// SmoothingWindow is how many valid readings are averaged. Fewer readings means no decision.
	SmoothingWindow int
	// DeadbandC is the half-width of the on-target band around the target.
	DeadbandC float64
	// Thresholds[i] is the error (target - smoothed, °C) that must be exceeded to run at
	// level i+1: slow, medium, fast.
	Thresholds [3]float64
	// HysteresisC is how far below a level's threshold the error must fall before stepping down.
	HysteresisC float64
	// MinDwell is the minimum time between two speed changes.
	MinDwell time.Duration
	// StaleAfter marks the newest reading as stale; FailSafeAfter starts stepping toward off.
	StaleAfter    time.Duration
	FailSafeAfter time.Duration
	// TrendLookahead projects the error forward along the measured slope; 0 disables it.
	TrendLookahead time.Duration
}

// DefaultParams are reasonable values for a small charcoal smoker.
func DefaultParams() Params {
	return Params{
		SmoothingWindow: 3,
		DeadbandC:       2,
		Thresholds:      [3]float64{2, 8, 20},
		HysteresisC:     3,
		MinDwell:        30 * time.Second,
		StaleAfter:      30 * time.Second,
		FailSafeAfter:   2 * time.Minute,
	}
}

// Validate reports every inconsistency in p.
func (p Params) Validate() error {
	var errs []error
	if p.SmoothingWindow < 1 {
		errs = append(errs, fmt.Errorf("smoothing_window must be >= 1, got %d", p.SmoothingWindow))
	}
	if p.DeadbandC < 0 {
		errs = append(errs, fmt.Errorf("deadband_c must be >= 0, got %.2f", p.DeadbandC))
	}
	if p.HysteresisC < 0 {
		errs = append(errs, fmt.Errorf("hysteresis_c must be >= 0, got %.2f", p.HysteresisC))
	}
	for i := 1; i < len(p.Thresholds); i++ {
		if p.Thresholds[i] <= p.Thresholds[i-1] {
			errs = append(errs, fmt.Errorf("band %s threshold %.2f must exceed %s threshold %.2f",
				models.FanSpeed(i+1), p.Thresholds[i], models.FanSpeed(i), p.Thresholds[i-1]))
		}
	}
	if p.MinDwell < 0 {
		errs = append(errs, errors.New("min_dwell must be >= 0"))
	}
	if p.StaleAfter <= 0 {
		errs = append(errs, errors.New("stale_after must be > 0"))
	}
	if p.FailSafeAfter < p.StaleAfter {
		errs = append(errs, fmt.Errorf("fail_safe_after (%s) must be >= stale_after (%s)", p.FailSafeAfter, p.StaleAfter))
	}
	if p.TrendLookahead < 0 {
		errs = append(errs, errors.New("trend_lookahead must be >= 0"))
	}
	return errors.Join(errs...)
}

// threshold returns the error a level needs; off needs nothing.
func (p Params) threshold(s models.FanSpeed) float64 {
	if s <= models.FanOff {
		return 0
	}
	return p.Thresholds[int(s)-1]
}
