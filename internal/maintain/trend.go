package maintain

import "smoke_controller/internal/models"

// Trend estimates the rate of change in °C per second as the mean temperature step
// divided by the mean time step. Fewer than two readings, or no elapsed time, is flat.
func Trend(readings []models.Reading) float64 {
	if len(readings) < 2 {
		return 0
	}
	first, last := readings[0], readings[len(readings)-1]
	steps := float64(len(readings) - 1)

	// the per-step deltas telescope, so the means reduce to end-to-end differences
	avgDy := (last.TempC - first.TempC) / steps
	avgDx := last.At.Sub(first.At).Seconds() / steps
	if avgDx <= 0 {
		return 0
	}
	return avgDy / avgDx
}

func mean(readings []models.Reading) float64 {
	sum := 0.0
	for _, r := range readings {
		sum += r.TempC
	}
	return sum / float64(len(readings))
}
