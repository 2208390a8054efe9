// SPDX-License-Identifier: MIT
package visualiser

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"visualiser/internal/analysis"
	"visualiser/internal/audio"
	"visualiser/internal/config"
	"visualiser/internal/deform"
	"visualiser/internal/log"
	"visualiser/internal/mesh"
	"visualiser/internal/modulate"
	"visualiser/internal/scene"
)

// Session is everything that lives for one loaded source: the playback
// chain, the analysis chain and the meshes it deforms.
type Session struct {
	ID    string
	Track *audio.Track

	player   *audio.Player
	sink     audio.Sink
	recorder *audio.Recorder

	analyser  *analysis.Analyser
	sampler   *analysis.Sampler
	frame     analysis.Frame
	extractor *analysis.Extractor
	mapper    *modulate.Mapper
	engine    *deform.Engine

	Sphere *mesh.Sphere
	Line   *mesh.Polyline
}

// newSession builds the chains for track. Nothing plays until start.
func newSession(cfg *config.Config, track *audio.Track, field deform.Field) (*Session, error) {
	ac, err := cfg.AnalyserConfig()
	if err != nil {
		return nil, fmt.Errorf("analyser config: %w", err)
	}
	analyser, err := analysis.NewAnalyser(ac)
	if err != nil {
		return nil, err
	}
	mapper, err := modulate.NewMapper(cfg.ModulationConfig())
	if err != nil {
		return nil, fmt.Errorf("modulation config: %w", err)
	}
	sphere, err := mesh.NewIcosphere(cfg.Deform.SphereRadius, cfg.Deform.SphereDetail)
	if err != nil {
		return nil, err
	}
	line, err := mesh.NewPolyline(cfg.Deform.LinePoints)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		Track:     track,
		player:    audio.NewPlayer(track, analyser, cfg.Audio.Loop),
		analyser:  analyser,
		extractor: analysis.NewExtractor(cfg.SplitPolicy()),
		mapper:    mapper,
		engine:    deform.New(field, cfg.Deform.Params),
		Sphere:    sphere,
		Line:      line,
	}
	s.sampler = analysis.NewSampler(analyser)
	s.frame = make(analysis.Frame, s.sampler.Len())

	s.sink, err = audio.NewSink(cfg.Audio.Sink, s.player, audio.SinkOptions{
		DeviceID:        cfg.Audio.OutputDevice,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		LowLatency:      cfg.Audio.LowLatency,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Recording.Enabled {
		s.recorder = audio.NewRecorder(track.SampleRate, track.Channels, cfg.Recording.BitDepth,
			time.Duration(cfg.Recording.MaxDuration)*time.Second)
		s.player.SetRecorder(s.recorder)
	}
	return s, nil
}

// Objects returns the scene objects owned by the session.
func (s *Session) Objects() []scene.Object {
	return []scene.Object{
		{SessionID: s.ID, Name: "sphere", Sphere: s.Sphere},
		{SessionID: s.ID, Name: "line", Line: s.Line},
	}
}

// Paused reports whether playback is paused.
func (s *Session) Paused() bool {
	return s.player.Paused()
}

// Toggle flips playback and reports whether it is now paused.
func (s *Session) Toggle() bool {
	return s.player.Toggle()
}

// Position returns the playback position.
func (s *Session) Position() time.Duration {
	return s.player.Position()
}

// start begins recording, if enabled, and then audio output.
func (s *Session) start(recordingDir string) error {
	if s.recorder != nil {
		name := audio.RecordingName(recordingDir, time.Now())
		if err := s.recorder.StartRecording(name); err != nil {
			return fmt.Errorf("starting recording: %w", err)
		}
		log.Infof("Session %s: Recording to %s", s.ID, name)
	}
	if err := s.sink.Start(); err != nil {
		if s.recorder != nil {
			s.recorder.Close()
		}
		return fmt.Errorf("starting %s sink: %w", s.sink.Name(), err)
	}
	log.Infof("Session %s: Playing %s through %s", s.ID, s.Track, s.sink.Name())
	return nil
}

// Tick runs one frame of the pipeline at time t (milliseconds) and deforms
// the session's meshes in place.
func (s *Session) Tick(t float64) (analysis.Features, modulate.Amplitudes, error) {
	s.sampler.PullInto(s.frame)
	f, err := s.extractor.Extract(s.frame)
	if err != nil {
		return analysis.Features{}, modulate.Amplitudes{}, fmt.Errorf("extracting features: %w", err)
	}
	a := s.mapper.Map(f)
	s.engine.WarpSphere(s.Sphere, a, t)
	s.engine.WarpLine(s.Line, a, t)
	return f, a, nil
}

// close stops audio output and finalises any recording.
func (s *Session) close() error {
	var errs []error
	if err := s.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing %s sink: %w", s.sink.Name(), err))
	}
	if s.recorder != nil {
		s.player.SetRecorder(nil)
		if err := s.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing recorder: %w", err))
		}
	}
	return errors.Join(errs...)
}
