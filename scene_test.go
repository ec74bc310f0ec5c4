package main

import "testing"

func TestSceneAddRemoveClear(t *testing.T) {
	s := NewScene()
	i0 := s.Add(ModelInstance{MeshPath: "a.glb"})
	i1 := s.Add(ModelInstance{MeshPath: "b.glb"})
	if i0 != 0 || i1 != 1 {
		t.Fatalf("unexpected indices: %d, %d", i0, i1)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	s.Remove(0)
	if s.Len() != 1 || s.At(0).MeshPath != "b.glb" {
		t.Fatalf("remove did not leave the expected survivor: %+v", s.At(0))
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Clear() left %d instances", s.Len())
	}
}

func TestSceneSnapshotIsIndependent(t *testing.T) {
	s := NewScene()
	s.Add(ModelInstance{MeshPath: "a.glb", Position: Vec3{1, 2, 3}})

	snap := s.Snapshot()
	s.At(0) // no-op read, instances are values already

	s.instances[0].Position = Vec3{9, 9, 9}

	if snap.Instances[0].Position != (Vec3{1, 2, 3}) {
		t.Errorf("snapshot observed a post-snapshot mutation: %v", snap.Instances[0].Position)
	}

	s.Add(ModelInstance{MeshPath: "c.glb"})
	if len(snap.Instances) != 1 {
		t.Errorf("snapshot grew after a later Add: %d instances", len(snap.Instances))
	}
}

func TestSceneRemoveOutOfRangeIsNoop(t *testing.T) {
	s := NewScene()
	s.Add(ModelInstance{MeshPath: "a.glb"})
	s.Remove(5)
	s.Remove(-1)
	if s.Len() != 1 {
		t.Errorf("out-of-range Remove mutated the scene: Len() = %d", s.Len())
	}
}
