// SPDX-License-Identifier: MIT
package transport

import (
	applog "visualiser/internal/log"
	"visualiser/internal/scene"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("LoggingTransport: Received %T", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called.")
	return nil
}

// LoggingRenderer logs a one-line summary of every Nth snapshot.
type LoggingRenderer struct {
	every uint64
}

// NewLoggingRenderer logs every frames. Values below 1 log every frame.
func NewLoggingRenderer(every int) *LoggingRenderer {
	if every < 1 {
		every = 1
	}
	return &LoggingRenderer{every: uint64(every)}
}

// Render logs snap if its frame number falls on the interval.
func (lr *LoggingRenderer) Render(snap scene.Snapshot) error {
	if snap.Frame%lr.every != 0 {
		return nil
	}
	applog.Infof("Frame %d: bass=%.3f treble=%.3f amp=(%.2f, %.2f) paused=%t meshes=%d",
		snap.Frame, snap.Features.Bass, snap.Features.Treble,
		snap.Amplitudes.Bass, snap.Amplitudes.Treble, snap.Paused, len(snap.Meshes))
	return nil
}

// Close is a no-op.
func (lr *LoggingRenderer) Close() error {
	return nil
}

var (
	_ Transport      = (*LoggingTransport)(nil)
	_ scene.Renderer = (*LoggingRenderer)(nil)
)
