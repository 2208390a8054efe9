// SPDX-License-Identifier: MIT
package scene

import (
	"errors"
	"sync"

	"visualiser/internal/log"
)

// Renderer draws or forwards snapshots. Render is called from the tick
// goroutine and must not block for long.
type Renderer interface {
	Render(snap Snapshot) error
	Close() error
}

// MultiRenderer fans one snapshot out to several renderers. A failing
// renderer does not stop the others.
type MultiRenderer struct {
	mu        sync.RWMutex
	renderers []Renderer
}

// NewMultiRenderer returns a fan-out over rs.
func NewMultiRenderer(rs ...Renderer) *MultiRenderer {
	return &MultiRenderer{renderers: rs}
}

// Add registers another renderer.
func (m *MultiRenderer) Add(r Renderer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderers = append(m.renderers, r)
}

// Len returns the number of registered renderers.
func (m *MultiRenderer) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.renderers)
}

// Render passes snap to every renderer and joins their errors.
func (m *MultiRenderer) Render(snap Snapshot) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, r := range m.renderers {
		if err := r.Render(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every renderer and joins their errors.
func (m *MultiRenderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, r := range m.renderers {
		if err := r.Close(); err != nil {
			log.Warnf("Scene: Closing renderer %T: %v", r, err)
			errs = append(errs, err)
		}
	}
	m.renderers = nil
	return errors.Join(errs...)
}

var _ Renderer = (*MultiRenderer)(nil)
