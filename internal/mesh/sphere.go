// SPDX-License-Identifier: MIT

// Package mesh builds the deformable geometry the visualiser renders.
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sphere is an icosphere with shared vertices. Deformation moves Vertices
// in place; topology is fixed for the lifetime of the mesh.
type Sphere struct {
	Radius        float64
	Detail        int
	Vertices      []r3.Vec
	Directions    []r3.Vec // Unit direction of each vertex on the undeformed sphere.
	Faces         [][3]int
	FaceNormals   []r3.Vec
	VertexNormals []r3.Vec
}

// Unit icosahedron, same vertex order and winding as three.js.
var (
	phi = (1 + math.Sqrt(5)) / 2

	icoVertices = []r3.Vec{
		{X: -1, Y: phi}, {X: 1, Y: phi}, {X: -1, Y: -phi}, {X: 1, Y: -phi},
		{Y: -1, Z: phi}, {Y: 1, Z: phi}, {Y: -1, Z: -phi}, {Y: 1, Z: -phi},
		{X: phi, Z: -1}, {X: phi, Z: 1}, {X: -phi, Z: -1}, {X: -phi, Z: 1},
	}

	icoFaces = [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
)

// NewIcosphere builds a sphere of the given radius by splitting each
// icosahedron face into (detail+1)^2 triangles and projecting the result
// onto the sphere. It has 10(detail+1)^2+2 vertices and 20(detail+1)^2 faces.
func NewIcosphere(radius float64, detail int) (*Sphere, error) {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("sphere radius must be positive, got %v", radius)
	}
	if detail < 0 {
		return nil, fmt.Errorf("sphere detail must be >= 0, got %d", detail)
	}

	b := newBuilder(radius)
	for _, f := range icoFaces {
		b.subdivide(icoVertices[f[0]], icoVertices[f[1]], icoVertices[f[2]], detail)
	}

	dirs := make([]r3.Vec, len(b.vertices))
	for i, v := range b.vertices {
		dirs[i] = r3.Unit(v)
	}

	s := &Sphere{
		Radius:        radius,
		Detail:        detail,
		Vertices:      b.vertices,
		Directions:    dirs,
		Faces:         b.faces,
		FaceNormals:   make([]r3.Vec, len(b.faces)),
		VertexNormals: make([]r3.Vec, len(b.vertices)),
	}
	s.ComputeNormals()
	return s, nil
}

// ComputeNormals recomputes face normals and area-weighted vertex normals
// from the current vertex positions.
func (s *Sphere) ComputeNormals() {
	clear(s.VertexNormals)
	for i, f := range s.Faces {
		a, b, c := s.Vertices[f[0]], s.Vertices[f[1]], s.Vertices[f[2]]
		n := r3.Cross(r3.Sub(c, b), r3.Sub(a, b))
		for _, idx := range f {
			s.VertexNormals[idx] = r3.Add(s.VertexNormals[idx], n)
		}
		s.FaceNormals[i] = unitOrZero(n)
	}
	for i, n := range s.VertexNormals {
		s.VertexNormals[i] = unitOrZero(n)
	}
}

// Clone returns a deep copy that shares nothing with s.
func (s *Sphere) Clone() *Sphere {
	return &Sphere{
		Radius:        s.Radius,
		Detail:        s.Detail,
		Vertices:      append([]r3.Vec(nil), s.Vertices...),
		Directions:    append([]r3.Vec(nil), s.Directions...),
		Faces:         append([][3]int(nil), s.Faces...),
		FaceNormals:   append([]r3.Vec(nil), s.FaceNormals...),
		VertexNormals: append([]r3.Vec(nil), s.VertexNormals...),
	}
}

// Positions appends the vertices as flat x,y,z float32 triples to dst.
func (s *Sphere) Positions(dst []float32) []float32 {
	return appendPositions(dst, s.Vertices)
}

// Indices appends the face indices as a flat uint32 list to dst.
func (s *Sphere) Indices(dst []uint32) []uint32 {
	for _, f := range s.Faces {
		dst = append(dst, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	return dst
}

// builder accumulates deduplicated vertices while faces are subdivided.
type builder struct {
	radius   float64
	vertices []r3.Vec
	faces    [][3]int
	index    map[[3]int64]int
}

func newBuilder(radius float64) *builder {
	return &builder{radius: radius, index: make(map[[3]int64]int)}
}

// vertex projects p onto the sphere and returns its shared index.
func (b *builder) vertex(p r3.Vec) int {
	p = r3.Scale(b.radius, r3.Unit(p))
	// Points produced from different faces agree to well within 1e-6.
	const q = 1e6
	key := [3]int64{
		int64(math.Round(p.X * q / b.radius)),
		int64(math.Round(p.Y * q / b.radius)),
		int64(math.Round(p.Z * q / b.radius)),
	}
	if idx, ok := b.index[key]; ok {
		return idx
	}
	idx := len(b.vertices)
	b.vertices = append(b.vertices, p)
	b.index[key] = idx
	return idx
}

// subdivide splits triangle abc into rows of cols = detail+1 segments.
func (b *builder) subdivide(a, bv, c r3.Vec, detail int) {
	cols := detail + 1
	grid := make([][]int, cols+1)
	for i := 0; i <= cols; i++ {
		aj := lerp(a, c, float64(i)/float64(cols))
		bj := lerp(bv, c, float64(i)/float64(cols))
		rows := cols - i
		grid[i] = make([]int, rows+1)
		for j := 0; j <= rows; j++ {
			if j == 0 && i == cols {
				grid[i][j] = b.vertex(aj)
				continue
			}
			grid[i][j] = b.vertex(lerp(aj, bj, float64(j)/float64(rows)))
		}
	}

	for i := 0; i < cols; i++ {
		for j := 0; j < 2*(cols-i)-1; j++ {
			k := j / 2
			if j%2 == 0 {
				b.faces = append(b.faces, [3]int{grid[i][k+1], grid[i+1][k], grid[i][k]})
			} else {
				b.faces = append(b.faces, [3]int{grid[i][k+1], grid[i+1][k+1], grid[i+1][k]})
			}
		}
	}
}

func lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

func unitOrZero(v r3.Vec) r3.Vec {
	if r3.Norm(v) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(v)
}

func appendPositions(dst []float32, vs []r3.Vec) []float32 {
	for _, v := range vs {
		dst = append(dst, float32(v.X), float32(v.Y), float32(v.Z))
	}
	return dst
}
