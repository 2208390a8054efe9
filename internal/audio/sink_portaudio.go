// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"time"

	"visualiser/internal/config"
	"visualiser/internal/log"

	"github.com/gordonklaus/portaudio"
)

type portAudioSink struct {
	src  *Player
	opts SinkOptions

	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream
	started bool
}

func newPortAudioSink(src *Player, opts SinkOptions) *portAudioSink {
	return &portAudioSink{src: src, opts: opts}
}

func (s *portAudioSink) Name() string { return config.SinkPortAudio }

// Start initialises PortAudio, opens an output stream in the track's format
// and starts it.
func (s *portAudioSink) Start() error {
	if err := Initialize(); err != nil {
		return err
	}
	s.started = true

	device, err := OutputDevice(s.opts.DeviceID)
	if err != nil {
		s.terminate()
		return err
	}
	s.device = device

	if s.opts.LowLatency {
		s.latency = device.DefaultLowOutputLatency
	} else {
		s.latency = device.DefaultHighOutputLatency
	}

	track := s.src.Track()
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: track.Channels,
			Device:   device,
			Latency:  s.latency,
		},
		FramesPerBuffer: s.opts.FramesPerBuffer,
		SampleRate:      float64(track.SampleRate),
	}

	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		s.terminate()
		return fmt.Errorf("open output stream: %w", err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		s.stream = nil
		s.terminate()
		return fmt.Errorf("start output stream: %w", err)
	}

	log.Infof("Audio: Playing on %q (%d Hz, %d ch, latency %v)", device.Name, track.SampleRate, track.Channels, s.latency)
	return nil
}

// process is the PortAudio output callback. It runs on the host API's
// audio thread and must not block.
func (s *portAudioSink) process(out []float32) {
	s.src.Read(out)
}

// Close stops and closes the stream, then releases PortAudio.
func (s *portAudioSink) Close() error {
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			log.Warnf("Audio: Stopping output stream: %v", err)
		}
		if err := s.stream.Close(); err != nil {
			return err
		}
		s.stream = nil
	}
	return s.terminate()
}

func (s *portAudioSink) terminate() error {
	if !s.started {
		return nil
	}
	s.started = false
	return Terminate()
}
