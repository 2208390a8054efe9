// SPDX-License-Identifier: MIT
package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Polyline is an open line of points along the x axis. Deformation only
// ever changes Y.
type Polyline struct {
	Points []r3.Vec
}

// NewPolyline returns n points at x = i - n/2 with y = z = 0.
func NewPolyline(n int) (*Polyline, error) {
	if n < 2 {
		return nil, fmt.Errorf("polyline needs at least 2 points, got %d", n)
	}
	half := n / 2
	pts := make([]r3.Vec, n)
	for i := range pts {
		pts[i] = r3.Vec{X: float64(i - half)}
	}
	return &Polyline{Points: pts}, nil
}

// Clone returns a deep copy of l.
func (l *Polyline) Clone() *Polyline {
	return &Polyline{Points: append([]r3.Vec(nil), l.Points...)}
}

// Positions appends the points as flat x,y,z float32 triples to dst.
func (l *Polyline) Positions(dst []float32) []float32 {
	return appendPositions(dst, l.Points)
}
