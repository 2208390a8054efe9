// SPDX-License-Identifier: MIT
package visualiser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"visualiser/internal/audio"
	"visualiser/internal/config"
	"visualiser/internal/log"
	"visualiser/internal/noise"
	"visualiser/internal/scene"
	"visualiser/internal/transport"
)

// Visualiser owns the active session, the scene its meshes live in and the
// scheduler that ticks it.
type Visualiser struct {
	cfg       *config.Config
	field     *noise.Field
	scene     *scene.Scene
	renderer  scene.Renderer
	scheduler *Scheduler
	started   time.Time
	frames    atomic.Uint64

	// open decodes a file into a track.
	open func(path string) (*audio.Track, error)

	ctx    context.Context
	cancel context.CancelFunc

	loadMu  sync.Mutex // Serialises Load and LoadTrack.
	mu      sync.Mutex // Protects session, state and closed.
	session *Session
	state   State
	closed  bool
}

// New returns an idle visualiser rendering to renderer. The noise field is
// seeded once here and shared by every session.
func New(cfg *config.Config, renderer scene.Renderer) *Visualiser {
	field := noise.New(cfg.Deform.Seed)
	log.Infof("Visualiser: Noise seed %d", field.Seed())

	ctx, cancel := context.WithCancel(context.Background())
	return &Visualiser{
		cfg:       cfg,
		field:     field,
		scene:     scene.New(),
		renderer:  renderer,
		scheduler: NewScheduler(cfg.Render.FPS),
		started:   time.Now(),
		open:      audio.Open,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Scene returns the scene holding the active session's meshes.
func (v *Visualiser) Scene() *scene.Scene {
	return v.scene
}

// Scheduler returns the tick scheduler.
func (v *Visualiser) Scheduler() *Scheduler {
	return v.scheduler
}

// State returns the current lifecycle stage.
func (v *Visualiser) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Session returns the active session, or nil while idle.
func (v *Visualiser) Session() *Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// Load decodes the file at path and swaps it in. Unsupported or unreadable
// files are rejected and the current session keeps running.
func (v *Visualiser) Load(path string) error {
	v.loadMu.Lock()
	defer v.loadMu.Unlock()

	prev, err := v.beginLoad()
	if err != nil {
		return err
	}
	track, err := v.open(path)
	if err != nil {
		v.abortLoad(prev)
		log.Warnf("Visualiser: Rejected %s: %v", path, err)
		return err
	}
	return v.swap(prev, track)
}

// LoadTrack swaps in an already decoded track.
func (v *Visualiser) LoadTrack(track *audio.Track) error {
	v.loadMu.Lock()
	defer v.loadMu.Unlock()

	prev, err := v.beginLoad()
	if err != nil {
		return err
	}
	return v.swap(prev, track)
}

// beginLoad moves to Loading and returns the state to restore on failure.
func (v *Visualiser) beginLoad() (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return v.state, ErrClosed
	}
	prev := v.state
	v.state = StateLoading
	return prev, nil
}

func (v *Visualiser) abortLoad(prev State) {
	v.mu.Lock()
	v.state = prev
	v.mu.Unlock()
}

// swap builds and starts a session for track, then retires the old one:
// its loop is cancelled and drained, its sink closed and its meshes removed
// from the scene before the new loop starts.
func (v *Visualiser) swap(prev State, track *audio.Track) error {
	next, err := newSession(v.cfg, track, v.field)
	if err != nil {
		v.abortLoad(prev)
		return fmt.Errorf("creating session for %s: %w", track.Name, err)
	}
	if err := next.start(v.cfg.Recording.OutputDir); err != nil {
		next.close()
		v.abortLoad(prev)
		return err
	}

	v.scheduler.Stop()

	v.mu.Lock()
	old := v.session
	v.session = next
	v.mu.Unlock()

	if old != nil {
		v.retire(old)
	}
	v.scene.Add(next.Objects()...)

	if err := v.scheduler.Start(v.ctx, v.tickFunc(next)); err != nil {
		return err
	}

	v.mu.Lock()
	v.state = StateRunning
	v.mu.Unlock()
	log.Infof("Visualiser: Session %s running (%s)", next.ID, track)
	return nil
}

func (v *Visualiser) retire(s *Session) {
	if err := s.close(); err != nil {
		log.Warnf("Visualiser: Closing session %s: %v", s.ID, err)
	}
	n := v.scene.RemoveSession(s.ID)
	log.Debugf("Visualiser: Session %s retired, %d objects removed", s.ID, n)
}

func (v *Visualiser) tickFunc(s *Session) TickFunc {
	return func(ctx context.Context, _ uint64) error {
		return v.tick(s)
	}
}

// tick runs one frame for s and hands the result to the renderer.
func (v *Visualiser) tick(s *Session) error {
	t := float64(time.Since(v.started)) / float64(time.Millisecond)
	features, amps, err := s.Tick(t)
	if err != nil {
		return err
	}
	snap := v.scene.Snapshot(scene.FrameInfo{
		Frame:      v.frames.Add(1),
		SessionID:  s.ID,
		Time:       t,
		Paused:     s.Paused(),
		Track:      s.Track.Name,
		Features:   features,
		Amplitudes: amps,
	})
	if v.renderer == nil {
		return nil
	}
	return v.renderer.Render(snap)
}

// TogglePause flips playback of the active session and reports whether it
// is now paused. It reports true while idle.
func (v *Visualiser) TogglePause() bool {
	s := v.Session()
	if s == nil {
		return true
	}
	paused := s.Toggle()
	if paused {
		log.Infof("Visualiser: Paused at %s", s.Position().Round(time.Millisecond))
	} else {
		log.Infof("Visualiser: Playing")
	}
	return paused
}

// Status describes the active session.
func (v *Visualiser) Status() transport.Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := transport.Status{State: v.state.String(), Paused: true}
	if v.session != nil {
		st.Session = v.session.ID
		st.Track = v.session.Track.Name
		st.Paused = v.session.Paused()
	}
	return st
}

// Close stops the loop, retires the active session and closes the renderer.
func (v *Visualiser) Close() error {
	v.loadMu.Lock()
	defer v.loadMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	s := v.session
	v.session = nil
	v.state = StateIdle
	v.mu.Unlock()

	v.cancel()
	v.scheduler.Stop()

	var errs []error
	if s != nil {
		if err := s.close(); err != nil {
			errs = append(errs, err)
		}
		v.scene.RemoveSession(s.ID)
	}
	if v.renderer != nil {
		if err := v.renderer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	log.Infof("Visualiser: Closed after %d ticks (%d failed)", v.scheduler.Ticks(), v.scheduler.Failures())
	return errors.Join(errs...)
}

var _ transport.Controller = (*Visualiser)(nil)
