// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"visualiser/internal/log"
	"visualiser/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Defaults match a browser AnalyserNode created with fftSize 512.
const (
	DefaultFFTSize     = 512
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// AnalyserConfig configures an Analyser.
type AnalyserConfig struct {
	FFTSize     int        // Transform size, power of two. Frames are FFTSize/2 long.
	Smoothing   float64    // Time constant in [0, 1) blending each frame with the previous one.
	MinDecibels float64    // Magnitude mapped to byte 0.
	MaxDecibels float64    // Magnitude mapped to byte 255.
	Window      WindowFunc // Window applied to the time-domain block.
}

// DefaultAnalyserConfig returns the settings of the original browser analyser.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:     DefaultFFTSize,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
		Window:      Blackman,
	}
}

// Pre-allocated buffers for FFT calculations.
type analyserWorkspace struct {
	input     []float64    // Windowed time-domain block in chronological order.
	fftOutput []complex128 // FFT complex results, FFTSize/2 + 1 values.
	smoothed  []float64    // Smoothed linear magnitudes, one per bin.
	bytes     []uint8      // Last byte frame, reused while no new samples arrive.
	window    []float64    // Pre-calculated window coefficients.
}

// Analyser reproduces the frequency side of a WebAudio AnalyserNode. Audio
// callbacks push mono samples with Write; the render loop reads the current
// spectrum with GetByteFrequencyData. Analysis runs lazily on read and only
// when new samples arrived, so a paused source yields a frozen frame.
type Analyser struct {
	cfg           AnalyserConfig
	fftCalculator *fourier.FFT

	mu        sync.Mutex // Protects ring, dirty and workspace.
	ring      []float32  // Last FFTSize samples, written circularly.
	pos       int        // Next write position in ring.
	dirty     bool       // Set by Write, cleared by analyse.
	workspace analyserWorkspace
}

// Validate reports the first setting an Analyser cannot be built with.
func (cfg AnalyserConfig) Validate() error {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) || cfg.FFTSize < 32 {
		return fmt.Errorf("fft size must be a power of 2 >= 32, got %d", cfg.FFTSize)
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		return fmt.Errorf("smoothing must be in [0, 1), got %f", cfg.Smoothing)
	}
	if cfg.MinDecibels >= cfg.MaxDecibels {
		return fmt.Errorf("min decibels (%f) must be below max decibels (%f)", cfg.MinDecibels, cfg.MaxDecibels)
	}
	return nil
}

// NewAnalyser validates cfg and pre-allocates every buffer the hot path needs.
func NewAnalyser(cfg AnalyserConfig) (*Analyser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	windowCoeffs := make([]float64, cfg.FFTSize)
	applyWindow(windowCoeffs, cfg.Window)

	bins := cfg.FFTSize / 2

	log.Debugf("Analysis: Initializing Analyser (Size: %d, Smoothing: %.2f, Range: %.0f..%.0f dB, Window: %v)",
		cfg.FFTSize, cfg.Smoothing, cfg.MinDecibels, cfg.MaxDecibels, cfg.Window)

	return &Analyser{
		cfg:           cfg,
		fftCalculator: fourier.NewFFT(cfg.FFTSize),
		ring:          make([]float32, cfg.FFTSize),
		workspace: analyserWorkspace{
			input:     make([]float64, cfg.FFTSize),
			fftOutput: make([]complex128, bins+1),
			smoothed:  make([]float64, bins),
			bytes:     make([]uint8, bins),
			window:    windowCoeffs,
		},
	}, nil
}

// FFTSize returns the configured transform size.
func (a *Analyser) FFTSize() int {
	return a.cfg.FFTSize
}

// FrequencyBinCount returns the length of frames produced by GetByteFrequencyData.
func (a *Analyser) FrequencyBinCount() int {
	return a.cfg.FFTSize / 2
}

// Write appends mono samples to the time-domain ring. Only the newest
// FFTSize samples are retained.
func (a *Analyser) Write(mono []float32) {
	if len(mono) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(mono) >= len(a.ring) {
		copy(a.ring, mono[len(mono)-len(a.ring):])
		a.pos = 0
		a.dirty = true
		return
	}

	n := copy(a.ring[a.pos:], mono)
	if n < len(mono) {
		copy(a.ring, mono[n:])
	}
	a.pos = (a.pos + len(mono)) % len(a.ring)
	a.dirty = true
}

// GetByteFrequencyData fills dst with the current spectrum scaled to bytes.
// dst must be FrequencyBinCount long.
func (a *Analyser) GetByteFrequencyData(dst []uint8) error {
	if len(dst) != a.FrequencyBinCount() {
		return fmt.Errorf("destination length %d does not match bin count %d", len(dst), a.FrequencyBinCount())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dirty {
		a.analyse()
		a.dirty = false
	}
	copy(dst, a.workspace.bytes)
	return nil
}

// Reset clears the time-domain ring and the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	clear(a.ring)
	clear(a.workspace.smoothed)
	clear(a.workspace.bytes)
	a.pos = 0
	a.dirty = false
}

// analyse windows the ring, transforms it, smooths the magnitudes against the
// previous frame and converts them to bytes. Caller holds a.mu.
func (a *Analyser) analyse() {
	ws := &a.workspace
	n := len(a.ring)

	// --- 1. Unroll the ring oldest-first and apply the window ---
	for i := range n {
		ws.input[i] = float64(a.ring[(a.pos+i)%n]) * ws.window[i]
	}

	// --- 2. Perform FFT ---
	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	// --- 3. Smooth, convert to dB, scale to bytes ---
	tau := a.cfg.Smoothing
	scale := 255 / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	norm := 1 / float64(n)
	for k := range ws.smoothed {
		mag := cmplx.Abs(ws.fftOutput[k]) * norm
		s := tau*ws.smoothed[k] + (1-tau)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		ws.smoothed[k] = s

		db := 20 * math.Log10(s)
		v := scale * (db - a.cfg.MinDecibels)
		switch {
		case v <= 0 || math.IsNaN(v):
			ws.bytes[k] = 0
		case v >= 255:
			ws.bytes[k] = 255
		default:
			ws.bytes[k] = uint8(v)
		}
	}
}

// String returns the lower-case name of the window function.
func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Blackman) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman", "":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Blackman, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall back
// to Blackman.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window funcs scale in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		log.Warnf("Analysis: Unknown window function type %d, defaulting to Blackman", windowType)
		window.Blackman(coeffs)
	}
}
