// SPDX-License-Identifier: MIT

// Package deform displaces mesh vertices from band amplitudes and noise.
package deform

import (
	"fmt"
	"math"

	"visualiser/internal/mesh"
	"visualiser/internal/modulate"

	"gonum.org/v1/gonum/spatial/r3"
)

// Field is a bounded 3D noise function, normally *noise.Field.
type Field interface {
	Sample(x, y, z float64) float64
}

// Params are the fixed constants of the deformation.
type Params struct {
	RateFactor  float64 `yaml:"rate_factor"` // Scales elapsed milliseconds into noise space.
	RateX       float64 `yaml:"rate_x"`      // Drift multiplier per axis.
	RateY       float64 `yaml:"rate_y"`
	RateZ       float64 `yaml:"rate_z"`
	FixedAmp    float64 `yaml:"fixed_amp"`    // Noise displacement per unit of treble amplitude.
	SphereBoost float64 `yaml:"sphere_boost"` // Extra treble gain applied on the sphere only.
}

// DefaultParams returns the constants of the original visualiser.
func DefaultParams() Params {
	return Params{
		RateFactor:  1e-5,
		RateX:       4,
		RateY:       6,
		RateZ:       7,
		FixedAmp:    5,
		SphereBoost: 2,
	}
}

// Validate rejects non-finite or negative constants.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"rate_factor": p.RateFactor, "rate_x": p.RateX, "rate_y": p.RateY, "rate_z": p.RateZ,
		"fixed_amp": p.FixedAmp, "sphere_boost": p.SphereBoost,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("deform %s must be a finite non-negative number, got %v", name, v)
		}
	}
	return nil
}

// Engine applies the deformation. It holds no mesh state: meshes are
// borrowed for the duration of a single call.
type Engine struct {
	field  Field
	params Params
}

// New returns an Engine sampling field.
func New(field Field, params Params) *Engine {
	return &Engine{field: field, params: params}
}

// Params returns the constants in use.
func (e *Engine) Params() Params {
	return e.params
}

// WarpSphere places every vertex along its base direction at
//
//	(radius + a.Bass) + noise(dir + drift(t)) * FixedAmp * a.Treble * SphereBoost
//
// and recomputes the normals. t is elapsed milliseconds.
func (e *Engine) WarpSphere(s *mesh.Sphere, a modulate.Amplitudes, t float64) {
	p := e.params
	dx, dy, dz := t*p.RateFactor*p.RateX, t*p.RateFactor*p.RateY, t*p.RateFactor*p.RateZ
	base := s.Radius + a.Bass
	gain := p.FixedAmp * a.Treble * p.SphereBoost

	for i, dir := range s.Directions {
		n := e.field.Sample(dir.X+dx, dir.Y+dy, dir.Z+dz)
		s.Vertices[i] = r3.Scale(base+n*gain, dir)
	}
	s.ComputeNormals()
}

// WarpLine sets y of every point to noise(x + drift(t)) * FixedAmp * a.Treble.
// x and z are left alone.
func (e *Engine) WarpLine(l *mesh.Polyline, a modulate.Amplitudes, t float64) {
	p := e.params
	dx := t * p.RateFactor * p.RateX
	gain := p.FixedAmp * a.Treble

	for i := range l.Points {
		pt := &l.Points[i]
		pt.Y = e.field.Sample(pt.X+dx, 0, 0) * gain
	}
}

// SphereBounds returns the closed interval every deformed vertex distance
// falls in for the given amplitudes.
func (e *Engine) SphereBounds(radius float64, a modulate.Amplitudes) (lo, hi float64) {
	span := math.Abs(e.params.FixedAmp * a.Treble * e.params.SphereBoost)
	mid := radius + a.Bass
	return mid - span, mid + span
}
