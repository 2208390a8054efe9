// SPDX-License-Identifier: MIT

// Package glwindow draws scene snapshots in a native OpenGL window. The
// window itself is only compiled with -tags gl; other builds get a stub
// whose Run reports ErrUnavailable.
package glwindow

import (
	"errors"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"visualiser/internal/scene"
)

// Camera settings shared with the browser viewer.
const (
	FieldOfView = 75  // Vertical, in degrees.
	CameraZ     = 100 // Distance from the origin along +z.
	NearPlane   = 0.1
	FarPlane    = 1000
	SpinRate    = 0.12 // Sphere rotation in radians per second.
)

// ErrUnavailable is returned by Run in builds without OpenGL support.
var ErrUnavailable = errors.New("native window not available: rebuild with -tags gl")

// Toggler receives the window's play/pause key.
type Toggler interface {
	TogglePause() bool
}

// Options configures the window.
type Options struct {
	Width   int
	Height  int
	Title   string
	Toggler Toggler // Space key. May be nil.
	OnClose func()  // Called when the user closes the window. May be nil.
}

// ViewProjection returns projection * view for a window of the given size.
func ViewProjection(width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	proj := mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, NearPlane, FarPlane)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, CameraZ}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

// Model returns the model matrix of a mesh kind after seconds of running.
// Spheres spin about y; lines stay put.
func Model(kind scene.Kind, seconds float64) mgl32.Mat4 {
	if kind != scene.KindSphere {
		return mgl32.Ident4()
	}
	return mgl32.HomogRotate3DY(float32(seconds * SpinRate))
}

// latest holds the most recent snapshot handed to Render.
type latest struct {
	snap atomic.Pointer[scene.Snapshot]
}

// Render stores snap for the next redraw.
func (l *latest) Render(snap scene.Snapshot) error {
	l.snap.Store(&snap)
	return nil
}

// Latest returns the stored snapshot, or nil before the first frame.
func (l *latest) Latest() *scene.Snapshot {
	return l.snap.Load()
}
