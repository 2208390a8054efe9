// SPDX-License-Identifier: MIT
/*
Package audio plays one decoded track at a time and feeds what is played to
the spectrum analyser:
- WAV and MP3 decoding into interleaved float32 tracks
- A Player with play/pause that downmixes to mono for the analyser tap
- Output sinks backed by PortAudio, oto or a silent real-time clock
- WAV recording of the played signal with atomic state management

Thread Safety:
- Sinks call Player.Read from their own callback thread
- Play/Pause/Toggle are safe from any goroutine
- Pre-allocates buffers to avoid GC in the callback
*/
package audio

import (
	"fmt"
	"time"

	"visualiser/pkg/utils"
)

// Track is a fully decoded audio clip held in memory.
type Track struct {
	Name       string    // File name or a label for generated tracks.
	SampleRate int       // Frames per second.
	Channels   int       // Interleaved channel count.
	Samples    []float32 // Interleaved samples in [-1, 1].
}

// Frames returns the number of sample frames in the track.
func (t *Track) Frames() int {
	if t.Channels == 0 {
		return 0
	}
	return len(t.Samples) / t.Channels
}

// Duration returns the playing time of the track.
func (t *Track) Duration() time.Duration {
	if t.SampleRate == 0 {
		return 0
	}
	return time.Duration(t.Frames()) * time.Second / time.Duration(t.SampleRate)
}

func (t *Track) String() string {
	return fmt.Sprintf("%s (%d Hz, %d ch, %s)", t.Name, t.SampleRate, t.Channels, t.Duration().Round(time.Millisecond))
}

// Synthetic builds the stereo track played when no file is given: a slow
// rising sweep on the left, a harmonic tone on the right, with a gentle
// amplitude pulse so both bands move.
func Synthetic(sampleRate int, seconds float64) *Track {
	frames := int(float64(sampleRate) * seconds)
	left := utils.GenerateSweep(frames, float64(sampleRate), 40, 4000)
	right := utils.GenerateComplexWave(frames, float64(sampleRate))

	// Pulse at 2 Hz between 0.4 and 1.0 of full level.
	pulse := utils.GenerateSineWave(frames, float64(sampleRate), 2)
	for i := range frames {
		g := 0.7 + pulse[i]/0.9*0.3
		left[i] *= g
		right[i] *= g
	}

	return &Track{
		Name:       "synthetic",
		SampleRate: sampleRate,
		Channels:   2,
		Samples:    utils.Interleave(left, right),
	}
}
