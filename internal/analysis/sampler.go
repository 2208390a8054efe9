// SPDX-License-Identifier: MIT
package analysis

import "visualiser/internal/log"

// Frame is one spectrum snapshot: unsigned magnitudes, lowest bin first.
type Frame []uint8

// Sampler pulls one Frame per render tick from a SpectrumSource.
type Sampler struct {
	src SpectrumSource
}

// NewSampler wraps src.
func NewSampler(src SpectrumSource) *Sampler {
	return &Sampler{src: src}
}

// Len returns the length of frames produced by Pull.
func (s *Sampler) Len() int {
	return s.src.FrequencyBinCount()
}

// Pull returns a freshly allocated frame holding the source's current
// spectrum. It never blocks; if the source cannot fill the frame the zero
// frame is returned.
func (s *Sampler) Pull() Frame {
	frame := make(Frame, s.src.FrequencyBinCount())
	s.PullInto(frame)
	return frame
}

// PullInto refills frame in place. frame must be Len() long.
func (s *Sampler) PullInto(frame Frame) {
	if err := s.src.GetByteFrequencyData(frame); err != nil {
		log.Debugf("Sampler: %v", err)
		clear(frame)
	}
}
