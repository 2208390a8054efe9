// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"visualiser/internal/config"
	"visualiser/internal/log"
)

// Sink drives a Player in real time, normally by sending its output to a
// sound device.
type Sink interface {
	Start() error
	Close() error
	Name() string
}

// SinkOptions configures device sinks.
type SinkOptions struct {
	DeviceID        int  // PortAudio output device, config.MinDeviceID for default.
	FramesPerBuffer int  // Frames pulled from the player per callback.
	LowLatency      bool // Request the device's low latency setting.
}

// NewSink returns the sink named kind ("portaudio", "oto" or "null")
// playing src. The sink is not started.
func NewSink(kind string, src *Player, opts SinkOptions) (Sink, error) {
	if opts.FramesPerBuffer <= 0 {
		opts.FramesPerBuffer = config.DefaultFramesPerBuffer
	}
	switch kind {
	case config.SinkPortAudio:
		return newPortAudioSink(src, opts), nil
	case config.SinkOto:
		return newOtoSink(src), nil
	case config.SinkNull:
		return NewNullSink(src, opts.FramesPerBuffer), nil
	default:
		return nil, fmt.Errorf("unknown audio sink %q", kind)
	}
}

// NullSink plays nothing but pulls from the player at the track's sample
// rate, so the analyser sees the signal exactly as a device sink would
// deliver it. Useful on machines without sound hardware.
type NullSink struct {
	src    *Player
	frames int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNullSink returns a silent sink pulling frames per period.
func NewNullSink(src *Player, frames int) *NullSink {
	return &NullSink{src: src, frames: frames}
}

func (s *NullSink) Name() string { return config.SinkNull }

// Start begins pulling on a background goroutine.
func (s *NullSink) Start() error {
	if s.cancel != nil {
		return fmt.Errorf("null sink already started")
	}
	track := s.src.Track()
	if track.SampleRate <= 0 || track.Channels <= 0 {
		return fmt.Errorf("track %q has no playable format", track.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	period := time.Duration(s.frames) * time.Second / time.Duration(track.SampleRate)
	buf := make([]float32, s.frames*track.Channels)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.src.Read(buf)
			}
		}
	}()

	log.Debugf("Audio: Null sink pulling %d frames every %v", s.frames, period)
	return nil
}

// Close stops the pull loop and waits for it to exit.
func (s *NullSink) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	return nil
}
