//go:build !gl

// SPDX-License-Identifier: MIT
package glwindow

import (
	"context"

	"visualiser/internal/scene"
)

// Available reports whether this build can open a native window.
const Available = false

// Window is a stand-in that accepts frames and never opens.
type Window struct {
	latest
	opts Options
}

// New returns a window stub.
func New(opts Options) *Window {
	return &Window{opts: opts}
}

// Run reports ErrUnavailable.
func (w *Window) Run(ctx context.Context) error {
	return ErrUnavailable
}

// Close is a no-op.
func (w *Window) Close() error {
	return nil
}

var _ scene.Renderer = (*Window)(nil)
