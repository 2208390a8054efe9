// SPDX-License-Identifier: MIT

// Package transport forwards scene snapshots to clients outside the process
// and carries their playback commands back in.
package transport

import (
	"visualiser/internal/scene"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Controller receives commands issued by remote clients.
type Controller interface {
	TogglePause() (paused bool)
	Load(path string) error
	Status() Status
}

// Status describes the active session.
type Status struct {
	Session string `json:"session"`
	State   string `json:"state"`
	Track   string `json:"track"`
	Paused  bool   `json:"paused"`
}

// Message types exchanged with clients.
const (
	TypeFrame  = "frame"
	TypeStatus = "status"
	TypeError  = "error"
	TypeToggle = "toggle"
	TypeLoad   = "load"
)

// FrameMessage carries one snapshot.
type FrameMessage struct {
	Type string `json:"type"`
	scene.Snapshot
}

// StatusMessage reports the current session state.
type StatusMessage struct {
	Type string `json:"type"`
	Status
}

// ErrorMessage reports a failed command.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Command is sent by clients. Path is only used by load.
type Command struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

// TransportRenderer adapts a Transport to the scene.Renderer interface.
type TransportRenderer struct {
	t Transport
}

// NewTransportRenderer wraps t.
func NewTransportRenderer(t Transport) *TransportRenderer {
	return &TransportRenderer{t: t}
}

// Render sends snap as a frame message.
func (r *TransportRenderer) Render(snap scene.Snapshot) error {
	return r.t.Send(FrameMessage{Type: TypeFrame, Snapshot: snap})
}

// Close closes the underlying transport.
func (r *TransportRenderer) Close() error {
	return r.t.Close()
}

var _ scene.Renderer = (*TransportRenderer)(nil)
