// SPDX-License-Identifier: MIT
package scene

import (
	"errors"
	"testing"

	"visualiser/internal/mesh"
)

func testObjects(t *testing.T, session string) []Object {
	t.Helper()
	sphere, err := mesh.NewIcosphere(20, 1)
	if err != nil {
		t.Fatal(err)
	}
	line, err := mesh.NewPolyline(10)
	if err != nil {
		t.Fatal(err)
	}
	return []Object{
		{SessionID: session, Name: "sphere", Sphere: sphere},
		{SessionID: session, Name: "line", Line: line},
	}
}

func TestRemoveSession(t *testing.T) {
	s := New()
	s.Add(testObjects(t, "a")...)
	s.Add(testObjects(t, "b")...)

	if got := s.Sessions(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Sessions() = %v, want [a b]", got)
	}
	if n := s.RemoveSession("a"); n != 2 {
		t.Errorf("RemoveSession(a) removed %d objects, want 2", n)
	}
	if got := s.Sessions(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Sessions() after removal = %v, want [b]", got)
	}
	if n := s.RemoveSession("missing"); n != 0 {
		t.Errorf("RemoveSession(missing) removed %d objects", n)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	objs := testObjects(t, "a")
	s.Add(objs...)

	snap := s.Snapshot(FrameInfo{Frame: 7, SessionID: "a"})
	if len(snap.Meshes) != 2 {
		t.Fatalf("snapshot has %d meshes, want 2", len(snap.Meshes))
	}

	sphere, ok := snap.Mesh(KindSphere)
	if !ok {
		t.Fatal("snapshot has no sphere")
	}
	if len(sphere.Positions) != 3*42 || len(sphere.Normals) != 3*42 || len(sphere.Indices) != 3*80 {
		t.Errorf("sphere snapshot sizes = %d/%d/%d", len(sphere.Positions), len(sphere.Normals), len(sphere.Indices))
	}
	line, _ := snap.Mesh(KindLine)
	if len(line.Positions) != 30 || line.Indices != nil {
		t.Errorf("line snapshot = %d positions, indices %v", len(line.Positions), line.Indices)
	}

	before := sphere.Positions[0]
	objs[0].Sphere.Vertices[0].X += 100
	if sphere.Positions[0] != before {
		t.Error("snapshot changed when the mesh was mutated")
	}
}

type stubRenderer struct {
	renders int
	err     error
	closed  bool
}

func (s *stubRenderer) Render(Snapshot) error { s.renders++; return s.err }
func (s *stubRenderer) Close() error          { s.closed = true; return s.err }

func TestMultiRendererContinuesPastFailures(t *testing.T) {
	failing := &stubRenderer{err: errors.New("socket closed")}
	ok := &stubRenderer{}
	m := NewMultiRenderer(failing)
	m.Add(ok)

	err := m.Render(Snapshot{})
	if err == nil || !errors.Is(err, failing.err) {
		t.Errorf("Render error = %v, want wrapped socket error", err)
	}
	if failing.renders != 1 || ok.renders != 1 {
		t.Errorf("renders = %d/%d, want 1/1", failing.renders, ok.renders)
	}

	if err := m.Close(); err == nil {
		t.Error("Close should report the failing renderer")
	}
	if !failing.closed || !ok.closed {
		t.Error("Close should close every renderer")
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", m.Len())
	}
}
