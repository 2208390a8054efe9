// Package utils holds signal generators shared by tests and by the synthetic
// fallback track.
package utils

import "math"

// GenerateComplexWave returns a 440 Hz tone with its second and third
// harmonics, peaking at 0.9 full scale.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateSineWave returns a pure tone at 0.9 full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// GenerateSweep returns a tone whose frequency rises linearly from f0 to f1,
// used for the synthetic track so both bands move over time.
func GenerateSweep(size int, sampleRate, f0, f1 float64) []float32 {
	buffer := make([]float32, size)
	if size == 0 {
		return buffer
	}
	duration := float64(size) / sampleRate
	k := (f1 - f0) / duration
	for i := range buffer {
		t := float64(i) / sampleRate
		phase := 2 * math.Pi * (f0*t + 0.5*k*t*t)
		buffer[i] = float32(math.Sin(phase) * 0.9)
	}
	return buffer
}

// Interleave merges equal-length channel buffers into frame order
// (L R L R ...). Shorter channels are padded with silence.
func Interleave(channels ...[]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	frames := 0
	for _, ch := range channels {
		frames = max(frames, len(ch))
	}
	out := make([]float32, frames*len(channels))
	for c, ch := range channels {
		for i, v := range ch {
			out[i*len(channels)+c] = v
		}
	}
	return out
}

// FindPeakBin returns the index of the largest value in magnitudes[startBin:endBin+1].
// Out-of-range bounds are clamped.
func FindPeakBin[T ~uint8 | ~float32 | ~float64](magnitudes []T, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
