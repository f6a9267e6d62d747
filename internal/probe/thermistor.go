package probe

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"smoke_controller/internal/models"
)

const (
	FixedResistorOhm = 100000.0
	NominalC         = 25.0
	BetaK            = 3950.0

	kelvinOffset = 273.15
)

// ADC is one analog input channel.
type ADC interface {
	ReadRaw(ctx context.Context) (int, error)
	// Max is the full-scale raw value.
	Max() int
}

// SysfsADC reads an IIO channel such as
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw exposed by the mcp320x driver.
type SysfsADC struct {
	Path string
	Bits int
}

func NewSysfsADC(path string, bits int) *SysfsADC {
	if bits <= 0 {
		bits = 10
	}
	return &SysfsADC{Path: path, Bits: bits}
}

func (a *SysfsADC) ReadRaw(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b, err := os.ReadFile(a.Path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", a.Path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", a.Path, err)
	}
	return v, nil
}

func (a *SysfsADC) Max() int {
	return 1<<a.Bits - 1
}

// Thermistor is an NTC probe on a voltage divider with a fixed 100k resistor.
type Thermistor struct {
	id    string
	adc   ADC
	minC  float64
	maxC  float64
	clock func() time.Time
}

func NewThermistor(id string, adc ADC, minC, maxC float64) *Thermistor {
	return &Thermistor{id: id, adc: adc, minC: minC, maxC: maxC, clock: time.Now}
}

func (t *Thermistor) ID() string { return t.id }

func (t *Thermistor) Read(ctx context.Context) (models.Reading, error) {
	raw, err := t.adc.ReadRaw(ctx)
	if err != nil {
		return models.Reading{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c, err := RawToCelsius(raw, t.adc.Max())
	if err != nil {
		return models.Reading{}, err
	}
	if c < t.minC || c > t.maxC {
		return models.Reading{}, fmt.Errorf("%w: %.1f°C outside [%.0f, %.0f]", ErrOutOfRange, c, t.minC, t.maxC)
	}
	return models.Reading{ProbeID: t.id, TempC: c, At: t.clock(), Valid: true}, nil
}

// Resistance converts a raw divider reading to the thermistor's resistance.
// A rail value means an open or shorted probe.
func Resistance(raw, fullScale int) (float64, error) {
	if raw <= 0 || raw >= fullScale {
		return 0, fmt.Errorf("%w: raw value %d at rail", ErrDisconnected, raw)
	}
	return FixedResistorOhm / (float64(fullScale)/float64(raw) - 1), nil
}

// SteinhartC applies the beta form of the Steinhart-Hart equation.
func SteinhartC(ohm float64) float64 {
	inv := math.Log(ohm/FixedResistorOhm)/BetaK + 1/(NominalC+kelvinOffset)
	return 1/inv - kelvinOffset
}

func RawToCelsius(raw, fullScale int) (float64, error) {
	r, err := Resistance(raw, fullScale)
	if err != nil {
		return 0, err
	}
	return SteinhartC(r), nil
}
