// SPDX-License-Identifier: MIT
package analysis

// SampleWriter accepts mono time-domain samples. Implementations are fed from
// the audio callback and must not block or allocate.
type SampleWriter interface {
	Write(mono []float32)
}

// SpectrumSource is the read side of a frequency analysis node: anything that
// can fill a byte frame with its current magnitudes. It decouples the Sampler
// from the concrete Analyser so tests can script spectra.
type SpectrumSource interface {
	FrequencyBinCount() int                 // FrequencyBinCount is half the transform size.
	GetByteFrequencyData(dst []uint8) error // GetByteFrequencyData fills dst with scaled magnitudes.
}

// Compile-time checks for interface implementations.
var _ SampleWriter = (*Analyser)(nil)
var _ SpectrumSource = (*Analyser)(nil)
