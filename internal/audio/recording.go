// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"visualiser/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned by StartRecording while a file is open.
var ErrAlreadyRecording = errors.New("already recording")

// Recorder writes the played signal to a WAV file.
type Recorder struct {
	sampleRate int
	channels   int
	bitDepth   int
	maxFrames  int // 0 for unlimited.

	isRecording int32 // Atomic flag checked before taking mu on the audio thread.

	mu         sync.Mutex
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
	frames     int
	maxSample  float32
}

// NewRecorder returns a recorder for interleaved audio in the given layout.
// maxDuration of zero records until StopRecording.
func NewRecorder(sampleRate, channels, bitDepth int, maxDuration time.Duration) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		maxFrames:  int(math.Round(maxDuration.Seconds() * float64(sampleRate))),
		maxSample:  float32(int64(1)<<(bitDepth-1) - 1),
	}
}

// RecordingName returns a timestamped file name inside dir.
func RecordingName(dir string, now time.Time) string {
	return filepath.Join(dir, "visualiser-"+now.Format("20060102-150405")+".wav")
}

// Recording reports whether a file is currently open.
func (r *Recorder) Recording() bool {
	return atomic.LoadInt32(&r.isRecording) == 1
}

// StartRecording creates filename and begins accepting samples.
func (r *Recorder) StartRecording(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.isRecording) == 1 {
		return ErrAlreadyRecording
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create recording dir: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file

	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, r.channels, 1)

	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: r.channels,
			SampleRate:  r.sampleRate,
		},
		Data:           make([]int, 4096*r.channels),
		SourceBitDepth: r.bitDepth,
	}
	r.frames = 0

	atomic.StoreInt32(&r.isRecording, 1)
	log.Infof("Recording: Writing %s (%d Hz, %d ch, %d-bit)", filename, r.sampleRate, r.channels, r.bitDepth)

	return nil
}

// Write converts interleaved float samples to integers and appends them to
// the file. It is a no-op when not recording.
func (r *Recorder) Write(samples []float32) {
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return
	}

	if r.maxFrames > 0 {
		remaining := (r.maxFrames - r.frames) * r.channels
		if remaining < len(samples) {
			samples = samples[:max(remaining, 0)]
		}
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		s = max(-1, min(1, s))
		r.sampleBuf.Data[i] = int(s * r.maxSample)
	}

	if len(samples) > 0 {
		if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
			log.Errorf("Recording: Error writing to WAV file: %v", err)
		}
		r.frames += len(samples) / r.channels
	}

	if r.maxFrames > 0 && r.frames >= r.maxFrames {
		log.Infof("Recording: Reached maximum duration")
		if err := r.stopLocked(); err != nil {
			log.Errorf("Recording: %v", err)
		}
	}
}

// StopRecording finalises the WAV header and closes the file.
func (r *Recorder) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Recorder) stopLocked() error {
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&r.isRecording, 0)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	return nil
}

// Close stops any recording in progress.
func (r *Recorder) Close() error {
	return r.StopRecording()
}
