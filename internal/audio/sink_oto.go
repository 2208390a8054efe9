// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"visualiser/internal/config"
	"visualiser/internal/log"

	"github.com/hajimehoshi/oto/v2"
)

// oto allows one context per process, fixed to the format it was created with.
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func otoContext(sampleRate, channels int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != sampleRate || otoChannels != channels {
			return nil, fmt.Errorf("oto context is fixed at %d Hz/%d ch, cannot play %d Hz/%d ch",
				otoRate, otoChannels, sampleRate, channels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(sampleRate, channels, oto.FormatFloat32LE)
	if err != nil {
		return nil, err
	}
	<-ready
	otoCtx, otoRate, otoChannels = ctx, sampleRate, channels
	return ctx, nil
}

type otoSink struct {
	src    *Player
	player oto.Player
}

func newOtoSink(src *Player) *otoSink {
	return &otoSink{src: src}
}

func (s *otoSink) Name() string { return config.SinkOto }

func (s *otoSink) Start() error {
	track := s.src.Track()
	ctx, err := otoContext(track.SampleRate, track.Channels)
	if err != nil {
		return err
	}
	s.player = ctx.NewPlayer(&float32Reader{src: s.src, channels: track.Channels})
	s.player.Play()
	log.Infof("Audio: Playing through oto (%d Hz, %d ch)", track.SampleRate, track.Channels)
	return nil
}

func (s *otoSink) Close() error {
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}

// float32Reader adapts Player.Read to the little-endian byte stream oto
// consumes. It never returns io.EOF; the player pads with silence.
type float32Reader struct {
	src      *Player
	channels int
	buf      []float32
}

func (r *float32Reader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	n := frames * r.channels
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	buf := r.buf[:n]
	r.src.Read(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	return frames * frameBytes, nil
}
