// SPDX-License-Identifier: MIT
package visualiser

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/eiannone/keyboard"
	"gonum.org/v1/gonum/spatial/r3"

	"visualiser/internal/audio"
	"visualiser/internal/config"
	"visualiser/internal/scene"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.Sink = config.SinkNull
	cfg.Audio.Loop = true
	cfg.Deform.Seed = 7
	cfg.Deform.SphereDetail = 1
	cfg.Render.FPS = 200
	cfg.Transport.WebSocketEnabled = false
	cfg.Recording.OutputDir = t.TempDir()
	return cfg
}

type recordingRenderer struct {
	mu     sync.Mutex
	snaps  []scene.Snapshot
	closed bool
}

func (r *recordingRenderer) Render(snap scene.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *recordingRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recordingRenderer) since(n int) []scene.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.snaps[n:])
}

func newTestVisualiser(t *testing.T) (*Visualiser, *recordingRenderer) {
	t.Helper()
	r := &recordingRenderer{}
	v := New(testConfig(t), r)
	t.Cleanup(func() { v.Close() })
	return v, r
}

func TestSwapLeavesOneSession(t *testing.T) {
	v, r := newTestVisualiser(t)
	if v.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", v.State())
	}

	if err := v.LoadTrack(audio.Synthetic(8000, 1)); err != nil {
		t.Fatal(err)
	}
	first := v.Session().ID
	waitFor(t, "frames from the first session", func() bool { return r.count() >= 3 })

	if err := v.LoadTrack(audio.Synthetic(8000, 1)); err != nil {
		t.Fatal(err)
	}
	second := v.Session().ID
	if first == second {
		t.Fatal("swap reused the session id")
	}
	if got := v.Scene().Sessions(); len(got) != 1 || got[0] != second {
		t.Errorf("scene sessions = %v, want only %s", got, second)
	}
	if v.Scene().Len() != 2 {
		t.Errorf("scene holds %d objects, want sphere and line", v.Scene().Len())
	}
	if v.State() != StateRunning {
		t.Errorf("state = %v, want running", v.State())
	}

	mark := r.count()
	waitFor(t, "frames from the second session", func() bool { return r.count() >= mark+3 })
	for _, snap := range r.since(mark) {
		if snap.SessionID != second {
			t.Fatalf("frame %d rendered for session %s after the swap", snap.Frame, snap.SessionID)
		}
		if len(snap.Meshes) != 2 {
			t.Fatalf("frame %d has %d meshes, want 2", snap.Frame, len(snap.Meshes))
		}
	}
}

func TestFramesIncreaseAcrossSwaps(t *testing.T) {
	v, r := newTestVisualiser(t)
	v.LoadTrack(audio.Synthetic(8000, 1))
	waitFor(t, "frames", func() bool { return r.count() >= 2 })
	v.LoadTrack(audio.Synthetic(8000, 1))
	mark := r.count()
	waitFor(t, "more frames", func() bool { return r.count() >= mark+2 })

	snaps := r.since(0)
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Frame <= snaps[i-1].Frame {
			t.Fatalf("frame %d follows %d", snaps[i].Frame, snaps[i-1].Frame)
		}
	}
}

func TestFailedLoadKeepsSession(t *testing.T) {
	v, _ := newTestVisualiser(t)

	notes := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(notes, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := v.Load(notes); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("Load(notes.txt) error = %v, want ErrUnsupportedFormat", err)
	}
	if v.State() != StateIdle || v.Session() != nil {
		t.Errorf("failed first load left state %v", v.State())
	}

	if err := v.LoadTrack(audio.Synthetic(8000, 1)); err != nil {
		t.Fatal(err)
	}
	current := v.Session()

	if err := v.Load(notes); err == nil {
		t.Fatal("Load(notes.txt) should fail")
	}
	if err := v.Load(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("Load(missing.wav) should fail")
	}
	if v.Session() != current || v.State() != StateRunning {
		t.Errorf("failed load replaced the session (state %v)", v.State())
	}
	if !v.Scheduler().Running() {
		t.Error("scheduler stopped after a failed load")
	}
	if got := v.Scene().Sessions(); len(got) != 1 || got[0] != current.ID {
		t.Errorf("scene sessions = %v, want %s", got, current.ID)
	}
}

func TestTogglePause(t *testing.T) {
	v, r := newTestVisualiser(t)
	if !v.TogglePause() {
		t.Error("TogglePause while idle should report paused")
	}
	if err := v.LoadTrack(audio.Synthetic(8000, 1)); err != nil {
		t.Fatal(err)
	}
	if st := v.Status(); st.Paused || st.State != "running" || st.Track == "" {
		t.Errorf("Status() = %+v, want a running, playing session", st)
	}

	if !v.TogglePause() {
		t.Fatal("first toggle should pause")
	}
	if !v.Status().Paused {
		t.Error("Status() not paused after toggle")
	}
	mark := r.count()
	waitFor(t, "paused frames", func() bool { return r.count() >= mark+2 })
	for _, snap := range r.since(mark) {
		if !snap.Paused {
			t.Fatalf("frame %d not marked paused", snap.Frame)
		}
	}

	if v.TogglePause() {
		t.Error("second toggle should resume")
	}
}

func TestCloseRetiresSession(t *testing.T) {
	r := &recordingRenderer{}
	v := New(testConfig(t), r)
	if err := v.LoadTrack(audio.Synthetic(8000, 1)); err != nil {
		t.Fatal(err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if v.Scene().Len() != 0 {
		t.Errorf("scene holds %d objects after Close", v.Scene().Len())
	}
	if !r.closed {
		t.Error("renderer not closed")
	}
	if v.Scheduler().Running() {
		t.Error("scheduler still running")
	}
	if err := v.LoadTrack(audio.Synthetic(8000, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("LoadTrack after Close = %v, want ErrClosed", err)
	}
	if err := v.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestRecordingPerSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recording.Enabled = true
	v := New(cfg, nil)

	if err := v.LoadTrack(audio.Synthetic(8000, 1)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "playback", func() bool { return v.Session().Position() > 0 })
	if err := v.Close(); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(cfg.Recording.OutputDir, "*.wav"))
	if err != nil || len(files) != 1 {
		t.Fatalf("recordings = %v (%v), want one file", files, err)
	}
	if _, err := audio.Open(files[0]); err != nil {
		t.Errorf("recording is not a readable WAV: %v", err)
	}
}

func TestSessionTickSilence(t *testing.T) {
	cfg := testConfig(t)
	v := New(cfg, nil)
	s, err := newSession(cfg, audio.Synthetic(8000, 1), v.field)
	if err != nil {
		t.Fatal(err)
	}
	defer s.close()

	// Nothing has been played, so the analyser holds silence.
	f, a, err := s.Tick(1234)
	if err != nil {
		t.Fatal(err)
	}
	if f.Bass != 0 || f.Treble != 0 || a.Bass != 0 || a.Treble != 0 {
		t.Errorf("silent tick = %+v %+v, want zeros", f, a)
	}
	for i, p := range s.Sphere.Vertices {
		if d := r3.Norm(p); math.Abs(d-cfg.Deform.SphereRadius) > 1e-9 {
			t.Fatalf("vertex %d at distance %v, want rest radius", i, d)
		}
	}
	for i, p := range s.Line.Points {
		if p.Y != 0 {
			t.Fatalf("line point %d at y=%v, want 0", i, p.Y)
		}
	}
}

type countingToggler struct{ n int }

func (c *countingToggler) TogglePause() bool { c.n++; return c.n%2 == 1 }

func TestHandleKey(t *testing.T) {
	tests := []struct {
		name        string
		char        rune
		key         keyboard.Key
		wantQuit    bool
		wantToggles int
	}{
		{"space", 0, keyboard.KeySpace, false, 1},
		{"space rune", ' ', 0, false, 1},
		{"q", 'q', 0, true, 0},
		{"Q", 'Q', 0, true, 0},
		{"escape", 0, keyboard.KeyEsc, true, 0},
		{"ctrl+c", 0, keyboard.KeyCtrlC, true, 0},
		{"other", 'x', 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &countingToggler{}
			if got := handleKey(c, tt.char, tt.key); got != tt.wantQuit {
				t.Errorf("quit = %t, want %t", got, tt.wantQuit)
			}
			if c.n != tt.wantToggles {
				t.Errorf("toggles = %d, want %d", c.n, tt.wantToggles)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateIdle: "idle", StateLoading: "loading", StateRunning: "running", State(9): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
