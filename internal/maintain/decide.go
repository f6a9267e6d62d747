// Package maintain turns a window of readings into a fan speed decision.
//
// Decide is a pure function: it reads nothing but its arguments, so every control
// scenario can be replayed in a test with fixed timestamps.
package maintain

import (
	"time"

	"smoke_controller/internal/models"
)

// Input is everything one evaluation needs.
type Input struct {
	ProbeID  string
	TargetC  float64
	Readings []models.Reading // oldest first
	Fan      models.FanState
	Now      time.Time
}

// Decide computes the fan speed for one probe.
func Decide(p Params, in Input) models.Decision {
	cur := in.Fan.Speed
	d := models.Decision{
		ProbeID: in.ProbeID,
		Speed:   cur,
		At:      in.Now,
	}

	valid := validReadings(in.Readings)
	if len(valid) == 0 {
		d.Reason = models.ReasonNoData
		return d
	}

	lastValid := valid[len(valid)-1]
	if in.Now.Sub(lastValid.At) > p.FailSafeAfter {
		d.Reason = models.ReasonFailSafe
		if cur > models.FanOff {
			applyChange(&d, p, in, cur-1)
		}
		return d
	}
	newest := in.Readings[len(in.Readings)-1]
	if !newest.Valid || in.Now.Sub(newest.At) > p.StaleAfter {
		d.Reason = models.ReasonStaleData
		return d
	}

	if len(valid) < p.SmoothingWindow {
		d.Reason = models.ReasonNoData
		return d
	}
	window := valid[len(valid)-p.SmoothingWindow:]

	d.SmoothedC = mean(window)
	d.ErrorC = in.TargetC - d.SmoothedC
	d.TrendCPerSec = Trend(window)

	// projected error at now+lookahead; identical to ErrorC when lookahead is 0
	e := d.ErrorC - d.TrendCPerSec*p.TrendLookahead.Seconds()

	switch {
	case e > p.DeadbandC:
		d.Reason = models.ReasonTooCold
	case e < -p.DeadbandC:
		d.Reason = models.ReasonTooHot
	default:
		d.Reason = models.ReasonOnTarget
	}

	want := models.FanOff
	if d.Reason != models.ReasonTooHot {
		want = band(p, cur, e)
	}
	applyChange(&d, p, in, want)
	return d
}

// band maps an error to a level with hysteresis on the way down.
func band(p Params, cur models.FanSpeed, e float64) models.FanSpeed {
	up := models.FanOff
	for s := models.FanFast; s > models.FanOff; s-- {
		if e > p.threshold(s) {
			up = s
			break
		}
	}
	if up > cur {
		return up
	}

	if cur == models.FanOff || e >= p.threshold(cur)-p.HysteresisC {
		return cur
	}
	for s := cur - 1; s > models.FanOff; s-- {
		if e >= p.threshold(s)-p.HysteresisC {
			return s
		}
	}
	return models.FanOff
}

// applyChange sets the decision's speed to want unless the fan is still settling or
// the last change is younger than MinDwell.
func applyChange(d *models.Decision, p Params, in Input, want models.FanSpeed) {
	if want == in.Fan.Speed {
		return
	}
	if in.Fan.Settling || dwelling(p, in) {
		d.Held = true
		return
	}
	d.Speed = want
}

func dwelling(p Params, in Input) bool {
	if in.Fan.ChangedAt.IsZero() {
		return false
	}
	return in.Now.Sub(in.Fan.ChangedAt) < p.MinDwell
}

func validReadings(rs []models.Reading) []models.Reading {
	out := make([]models.Reading, 0, len(rs))
	for _, r := range rs {
		if r.Valid {
			out = append(out, r)
		}
	}
	return out
}
