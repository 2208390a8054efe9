// SPDX-License-Identifier: MIT

// Package modulate turns band features into deformation amplitudes.
package modulate

import (
	"errors"
	"fmt"
	"math"

	"visualiser/internal/analysis"
)

// ErrDegenerateRange is returned when an input range has zero width.
var ErrDegenerateRange = errors.New("modulate: input range has zero width")

// Fractionate returns where value sits in [minVal, maxVal] as a fraction.
// The result is not clamped.
func Fractionate(value, minVal, maxVal float64) (float64, error) {
	if minVal == maxVal {
		return 0, ErrDegenerateRange
	}
	return (value - minVal) / (maxVal - minVal), nil
}

// Modulate maps value from [inMin, inMax] onto [outMin, outMax]. Values
// outside the input range extrapolate linearly.
func Modulate(value, inMin, inMax, outMin, outMax float64) (float64, error) {
	fr, err := Fractionate(value, inMin, inMax)
	if err != nil {
		return 0, err
	}
	return outMin + fr*(outMax-outMin), nil
}

// Unmodulate is the inverse of Modulate.
func Unmodulate(value, inMin, inMax, outMin, outMax float64) (float64, error) {
	return Modulate(value, outMin, outMax, inMin, inMax)
}

// Range is a closed interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Band describes how one feature becomes an amplitude: value^Exponent is
// rescaled from In to Out.
type Band struct {
	Exponent float64
	In       Range
	Out      Range
}

// Config holds the per-band mappings.
type Config struct {
	Bass   Band
	Treble Band
}

// DefaultConfig returns the mapping used by the original visualiser:
// bass^0.8 over [0,1] → [0,8] and treble over [0,1] → [0,4].
func DefaultConfig() Config {
	return Config{
		Bass:   Band{Exponent: 0.8, In: Range{0, 1}, Out: Range{0, 8}},
		Treble: Band{Exponent: 1, In: Range{0, 1}, Out: Range{0, 4}},
	}
}

// Amplitudes are the deformation strengths for one frame.
type Amplitudes struct {
	Bass   float64 `json:"bass"`
	Treble float64 `json:"treble"`
}

// Mapper applies a validated Config to features every tick.
type Mapper struct {
	cfg Config
}

// Validate rejects zero-width input ranges and non-positive exponents.
func (c Config) Validate() error {
	if err := c.Bass.validate(); err != nil {
		return fmt.Errorf("bass band: %w", err)
	}
	if err := c.Treble.validate(); err != nil {
		return fmt.Errorf("treble band: %w", err)
	}
	return nil
}

func (b Band) validate() error {
	if b.In.Min == b.In.Max {
		return ErrDegenerateRange
	}
	if b.Exponent <= 0 || math.IsNaN(b.Exponent) || math.IsInf(b.Exponent, 0) {
		return fmt.Errorf("exponent must be positive, got %v", b.Exponent)
	}
	return nil
}

// NewMapper validates both bands once so Map cannot fail per frame.
func NewMapper(cfg Config) (*Mapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{cfg: cfg}, nil
}

// Config returns the mapping in use.
func (m *Mapper) Config() Config {
	return m.cfg
}

// Map converts features into amplitudes.
func (m *Mapper) Map(f analysis.Features) Amplitudes {
	return Amplitudes{
		Bass:   m.cfg.Bass.apply(f.Bass),
		Treble: m.cfg.Treble.apply(f.Treble),
	}
}

func (b Band) apply(v float64) float64 {
	if b.Exponent != 1 {
		v = math.Pow(v, b.Exponent)
	}
	// In.Min != In.Max was checked in NewMapper.
	out, _ := Modulate(v, b.In.Min, b.In.Max, b.Out.Min, b.Out.Max)
	return out
}
