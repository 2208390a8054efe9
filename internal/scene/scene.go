// SPDX-License-Identifier: MIT

// Package scene tracks the meshes on display and hands renderers immutable
// copies of them.
package scene

import (
	"slices"
	"sync"

	"visualiser/internal/analysis"
	"visualiser/internal/mesh"
	"visualiser/internal/modulate"
)

// Kind names the geometry held by an Object.
type Kind string

const (
	KindSphere Kind = "sphere"
	KindLine   Kind = "line"
)

// Object is one mesh in the scene, tagged with the session that owns it.
// Exactly one of Sphere and Line is set.
type Object struct {
	SessionID string
	Name      string
	Sphere    *mesh.Sphere
	Line      *mesh.Polyline
}

// Kind reports which geometry the object holds.
func (o Object) Kind() Kind {
	if o.Sphere != nil {
		return KindSphere
	}
	return KindLine
}

// Scene is the set of objects currently displayed.
type Scene struct {
	mu      sync.RWMutex
	objects []Object
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// Add appends objects to the scene.
func (s *Scene) Add(objs ...Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = append(s.objects, objs...)
}

// RemoveSession detaches every object owned by id and returns how many
// were removed.
func (s *Scene) RemoveSession(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.objects)
	s.objects = slices.DeleteFunc(s.objects, func(o Object) bool {
		return o.SessionID == id
	})
	return before - len(s.objects)
}

// Len returns the number of objects in the scene.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Sessions returns the distinct owners of the current objects in insertion order.
func (s *Scene) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, o := range s.objects {
		if !slices.Contains(ids, o.SessionID) {
			ids = append(ids, o.SessionID)
		}
	}
	return ids
}

// FrameInfo describes the tick a snapshot was taken on.
type FrameInfo struct {
	Frame      uint64              `json:"frame"`
	SessionID  string              `json:"session"`
	Time       float64             `json:"time"` // Milliseconds since process start.
	Paused     bool                `json:"paused"`
	Track      string              `json:"track"`
	Features   analysis.Features   `json:"features"`
	Amplitudes modulate.Amplitudes `json:"amplitudes"`
}

// MeshSnapshot is a flat copy of one object's geometry.
type MeshSnapshot struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Positions []float32 `json:"positions"`         // x,y,z per vertex.
	Normals   []float32 `json:"normals,omitempty"` // x,y,z per vertex, spheres only.
	Indices   []uint32  `json:"indices,omitempty"` // Three per face, spheres only.
}

// Snapshot is the immutable state handed to renderers once per tick.
type Snapshot struct {
	FrameInfo
	Meshes []MeshSnapshot `json:"meshes"`
}

// Snapshot copies the current geometry. The result shares no memory with
// the scene and stays valid after the meshes are deformed again.
func (s *Scene) Snapshot(info FrameInfo) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{FrameInfo: info, Meshes: make([]MeshSnapshot, 0, len(s.objects))}
	for _, o := range s.objects {
		ms := MeshSnapshot{Name: o.Name, Kind: o.Kind()}
		switch ms.Kind {
		case KindSphere:
			ms.Positions = o.Sphere.Positions(make([]float32, 0, 3*len(o.Sphere.Vertices)))
			ms.Normals = flatten(make([]float32, 0, 3*len(o.Sphere.VertexNormals)), o.Sphere)
			ms.Indices = o.Sphere.Indices(make([]uint32, 0, 3*len(o.Sphere.Faces)))
		case KindLine:
			ms.Positions = o.Line.Positions(make([]float32, 0, 3*len(o.Line.Points)))
		}
		snap.Meshes = append(snap.Meshes, ms)
	}
	return snap
}

// Mesh returns the first mesh snapshot with the given kind.
func (s Snapshot) Mesh(kind Kind) (MeshSnapshot, bool) {
	for _, m := range s.Meshes {
		if m.Kind == kind {
			return m, true
		}
	}
	return MeshSnapshot{}, false
}

func flatten(dst []float32, s *mesh.Sphere) []float32 {
	for _, n := range s.VertexNormals {
		dst = append(dst, float32(n.X), float32(n.Y), float32(n.Z))
	}
	return dst
}
