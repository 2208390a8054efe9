// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"visualiser/internal/log"
)

// Tap receives the mono signal that is being played, normally the analyser.
type Tap interface {
	Write(mono []float32)
}

// Player streams a Track to a sink. Sinks pull interleaved samples with Read
// from their callback thread; controls may be called from any goroutine.
type Player struct {
	track *Track
	tap   Tap
	loop  bool

	paused   atomic.Bool
	recorder atomic.Pointer[Recorder]

	mu   sync.Mutex // Protects pos and mono.
	pos  int        // Next frame to play.
	mono []float32  // Downmix scratch for the tap.
}

// NewPlayer returns a player positioned at the start of track. It starts
// playing; call Pause first to start paused.
func NewPlayer(track *Track, tap Tap, loop bool) *Player {
	return &Player{
		track: track,
		tap:   tap,
		loop:  loop,
		mono:  make([]float32, 4096),
	}
}

// Track returns the track being played.
func (p *Player) Track() *Track {
	return p.track
}

// Play resumes playback. A player that reached the end starts over.
func (p *Player) Play() {
	p.mu.Lock()
	if p.pos >= p.track.Frames() {
		p.pos = 0
	}
	p.mu.Unlock()
	p.paused.Store(false)
}

// Pause stops playback. Reads return silence and the tap receives nothing,
// so the analyser holds its last frame.
func (p *Player) Pause() {
	p.paused.Store(true)
}

// Toggle flips between playing and paused and reports whether the player
// is now paused.
func (p *Player) Toggle() bool {
	if p.Paused() {
		p.Play()
		return false
	}
	p.Pause()
	return true
}

// Paused reports whether playback is paused.
func (p *Player) Paused() bool {
	return p.paused.Load()
}

// Position returns how far into the track playback is.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.pos) * time.Second / time.Duration(p.track.SampleRate)
}

// SetRecorder attaches r so every played sample is recorded. Pass nil to detach.
func (p *Player) SetRecorder(r *Recorder) {
	p.recorder.Store(r)
}

// Read fills out with interleaved samples in the track's channel layout.
// It always fills the whole buffer, padding with silence while paused or
// past the end. It returns the number of frames taken from the track.
func (p *Player) Read(out []float32) int {
	ch := p.track.Channels
	if p.paused.Load() || ch == 0 {
		clear(out)
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	want := len(out) / ch
	frames := p.track.Frames()
	n := 0
	for n < want {
		if p.pos >= frames {
			if !p.loop || frames == 0 {
				break
			}
			p.pos = 0
		}
		k := min(want-n, frames-p.pos)
		copy(out[n*ch:(n+k)*ch], p.track.Samples[p.pos*ch:(p.pos+k)*ch])
		p.pos += k
		n += k
	}
	clear(out[n*ch:])

	if n > 0 {
		p.feed(out[:n*ch], ch)
	}
	if rec := p.recorder.Load(); rec != nil {
		rec.Write(out[:want*ch])
	}

	if n < want {
		// Like a media element reaching its end: stop and wait for Play.
		p.paused.Store(true)
		log.Infof("Audio: Reached end of %s", p.track.Name)
	}
	return n
}

// feed downmixes interleaved samples to mono and hands them to the tap.
// Caller holds p.mu.
func (p *Player) feed(interleaved []float32, ch int) {
	if p.tap == nil {
		return
	}
	frames := len(interleaved) / ch
	if cap(p.mono) < frames {
		p.mono = make([]float32, frames)
	}
	mono := p.mono[:frames]

	if ch == 1 {
		copy(mono, interleaved)
	} else {
		inv := 1 / float32(ch)
		for i := range mono {
			var sum float32
			for c := range ch {
				sum += interleaved[i*ch+c]
			}
			mono[i] = sum * inv
		}
	}
	p.tap.Write(mono)
}
