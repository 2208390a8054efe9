//go:build gl

// SPDX-License-Identifier: MIT
package glwindow

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"visualiser/internal/log"
	"visualiser/internal/scene"
)

// Available reports whether this build can open a native window.
const Available = true

const vertSrc = `#version 410 core

layout(location = 0) in vec3 aPos;

uniform mat4 uMVP;

void main() {
    gl_Position = uMVP * vec4(aPos, 1.0);
}
` + "\x00"

const fragSrc = `#version 410 core

uniform vec3 uColor;

out vec4 FragColor;

void main() {
    FragColor = vec4(uColor, 1.0);
}
` + "\x00"

// Window draws the latest snapshot as wireframes.
type Window struct {
	latest
	opts   Options
	closed atomic.Bool

	program uint32
	uMVP    int32
	uColor  int32
	meshes  map[string]*glMesh
}

// glMesh is the GPU side of one scene mesh.
type glMesh struct {
	vao, vbo, ebo uint32
	indices       int32
}

// New returns a window. Nothing is created until Run.
func New(opts Options) *Window {
	if opts.Title == "" {
		opts.Title = "visualiser"
	}
	return &Window{opts: opts, meshes: make(map[string]*glMesh)}
}

// Run opens the window and redraws until ctx is done, Close is called or
// the user closes the window. It must be called from the main goroutine.
func (w *Window) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(w.opts.Width, w.opts.Height, w.opts.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	if err := w.initProgram(); err != nil {
		return err
	}
	defer w.release()

	window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeySpace:
			if w.opts.Toggler != nil {
				w.opts.Toggler.TogglePause()
			}
		case glfw.KeyEscape, glfw.KeyQ:
			window.SetShouldClose(true)
		}
	})

	gl.Enable(gl.DEPTH_TEST)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	gl.ClearColor(0, 0, 0, 1)
	log.Infof("Window: OpenGL %s", gl.GoStr(gl.GetString(gl.VERSION)))

	start := time.Now()
	for !window.ShouldClose() && !w.closed.Load() && ctx.Err() == nil {
		fbw, fbh := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(fbw), int32(fbh))
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		if snap := w.Latest(); snap != nil {
			w.draw(snap, fbw, fbh, time.Since(start).Seconds())
		}

		window.SwapBuffers()
		glfw.PollEvents()
	}

	if window.ShouldClose() && w.opts.OnClose != nil {
		w.opts.OnClose()
	}
	return nil
}

func (w *Window) initProgram() error {
	vs, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return err
	}
	fs, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(buf))
		gl.DeleteProgram(program)
		return fmt.Errorf("link program: %s", strings.TrimRight(buf, "\x00"))
	}

	w.program = program
	w.uMVP = gl.GetUniformLocation(program, gl.Str("uMVP\x00"))
	w.uColor = gl.GetUniformLocation(program, gl.Str("uColor\x00"))
	return nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(buf))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(buf, "\x00"))
	}
	return shader, nil
}

// draw uploads and draws every mesh in snap. Buffers of meshes that left
// the scene are released.
func (w *Window) draw(snap *scene.Snapshot, width, height int, seconds float64) {
	gl.UseProgram(w.program)
	vp := ViewProjection(width, height)

	seen := make(map[string]bool, len(snap.Meshes))
	for _, m := range snap.Meshes {
		key := snap.SessionID + "/" + m.Name
		seen[key] = true
		gm := w.meshes[key]
		if gm == nil {
			gm = newGLMesh()
			w.meshes[key] = gm
		}
		gm.upload(m)

		mvp := vp.Mul4(Model(m.Kind, seconds))
		gl.UniformMatrix4fv(w.uMVP, 1, false, &mvp[0])

		gl.BindVertexArray(gm.vao)
		switch m.Kind {
		case scene.KindSphere:
			gl.Uniform3f(w.uColor, 1, 0, 0.93)
			gl.DrawElements(gl.TRIANGLES, gm.indices, gl.UNSIGNED_INT, nil)
		default:
			gl.Uniform3f(w.uColor, 0, 1, 0.8)
			gl.DrawArrays(gl.LINE_STRIP, 0, int32(len(m.Positions)/3))
		}
	}
	gl.BindVertexArray(0)

	for key, gm := range w.meshes {
		if !seen[key] {
			gm.delete()
			delete(w.meshes, key)
		}
	}
}

func newGLMesh() *glMesh {
	gm := &glMesh{}
	gl.GenVertexArrays(1, &gm.vao)
	gl.GenBuffers(1, &gm.vbo)
	gl.GenBuffers(1, &gm.ebo)

	gl.BindVertexArray(gm.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))
	gl.BindVertexArray(0)
	return gm
}

func (gm *glMesh) upload(m scene.MeshSnapshot) {
	gl.BindVertexArray(gm.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	if len(m.Positions) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(m.Positions)*4, gl.Ptr(m.Positions), gl.STREAM_DRAW)
	}
	if len(m.Indices) > 0 {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gm.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STREAM_DRAW)
		gm.indices = int32(len(m.Indices))
	}
	gl.BindVertexArray(0)
}

func (gm *glMesh) delete() {
	gl.DeleteBuffers(1, &gm.vbo)
	gl.DeleteBuffers(1, &gm.ebo)
	gl.DeleteVertexArrays(1, &gm.vao)
}

func (w *Window) release() {
	for key, gm := range w.meshes {
		gm.delete()
		delete(w.meshes, key)
	}
	gl.DeleteProgram(w.program)
}

// Close asks Run to return after the current frame.
func (w *Window) Close() error {
	w.closed.Store(true)
	return nil
}

var _ scene.Renderer = (*Window)(nil)
