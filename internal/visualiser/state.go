// SPDX-License-Identifier: MIT

// Package visualiser ties playback, analysis and deformation together: it
// owns the active session, swaps it when a new source is loaded and runs
// the per-frame tick.
package visualiser

import "errors"

// State is the lifecycle stage of the visualiser.
type State int

const (
	StateIdle    State = iota // No source loaded yet.
	StateLoading              // A source is being decoded.
	StateRunning              // A session is playing and ticking.
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is returned by operations on a closed visualiser.
	ErrClosed = errors.New("visualiser closed")
	// ErrSchedulerRunning is returned when starting a scheduler twice.
	ErrSchedulerRunning = errors.New("scheduler already running")
)
