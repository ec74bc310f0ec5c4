package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"
)

// fakeMeshLoader serves canned triangle soups by path so scene_builder
// tests don't depend on real glTF files.
type fakeMeshLoader struct {
	meshes map[string][]RawTriangle
	loads  map[string]int
}

func newFakeMeshLoader() *fakeMeshLoader {
	return &fakeMeshLoader{meshes: map[string][]RawTriangle{}, loads: map[string]int{}}
}

func (f *fakeMeshLoader) Load(path string) ([]RawTriangle, error) {
	f.loads[path]++
	tris, ok := f.meshes[path]
	if !ok {
		return nil, fmt.Errorf("no such mesh: %s", path)
	}
	return tris, nil
}

func unitTriangle() RawTriangle {
	return RawTriangle{V0: Vec3{0, 0, 0}, V1: Vec3{1, 0, 0}, V2: Vec3{0, 1, 0}}
}

func TestBuildSceneEmptyInstancesIsValid(t *testing.T) {
	loader := newFakeMeshLoader()
	pkg, err := BuildScene(SceneSnapshot{}, loader, nil)
	if err != nil {
		t.Fatalf("empty scene should not error: %v", err)
	}
	if pkg.TriangleCount != 0 {
		t.Errorf("TriangleCount = %d, want 0", pkg.TriangleCount)
	}
}

func TestBuildSceneTransformOrderScaleThenTranslate(t *testing.T) {
	loader := newFakeMeshLoader()
	loader.meshes["tri.glb"] = []RawTriangle{{
		V0: Vec3{1, 1, 1}, V1: Vec3{2, 1, 1}, V2: Vec3{1, 2, 1},
	}}

	snap := SceneSnapshot{Instances: []ModelInstance{{
		MeshPath: "tri.glb",
		Position: Vec3{10, 0, 0},
		Scale:    Vec3{2, 3, 1},
		Color:    Vec3{1, 0, 0},
		Material: MaterialMatte,
	}}}

	pkg, err := BuildScene(snap, loader, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.TriangleCount != 1 {
		t.Fatalf("TriangleCount = %d, want 1", pkg.TriangleCount)
	}

	// v' = v*scale + position; v0=(1,1,1) -> (2,3,1)+(10,0,0) = (12,3,1)
	got := readVertex(pkg.VertexStream, 0)
	want := Vec3{12, 3, 1}
	if got != want {
		t.Errorf("transformed v0 = %v, want %v (scale-then-translate)", got, want)
	}
}

func readVertex(stream []byte, n int) Vec3 {
	off := n * 16
	return Vec3{
		X: math.Float32frombits(binary.LittleEndian.Uint32(stream[off : off+4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(stream[off+4 : off+8])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(stream[off+8 : off+12])),
	}
}

func TestBuildSceneSkipsFailingInstanceWithoutAborting(t *testing.T) {
	loader := newFakeMeshLoader()
	loader.meshes["ok.glb"] = []RawTriangle{unitTriangle()}

	snap := SceneSnapshot{Instances: []ModelInstance{
		{MeshPath: "missing.glb"},
		{MeshPath: "ok.glb", Scale: Vec3{1, 1, 1}},
	}}

	pkg, err := BuildScene(snap, loader, nil)
	if err != nil {
		t.Fatalf("a per-instance load failure must not abort the build: %v", err)
	}
	if pkg.TriangleCount != 1 {
		t.Errorf("TriangleCount = %d, want 1 (only the surviving instance)", pkg.TriangleCount)
	}
}

func TestBuildSceneMeshCacheLoadsOnce(t *testing.T) {
	loader := newFakeMeshLoader()
	loader.meshes["shared.glb"] = []RawTriangle{unitTriangle()}

	snap := SceneSnapshot{Instances: []ModelInstance{
		{MeshPath: "shared.glb", Position: Vec3{0, 0, 0}, Scale: Vec3{1, 1, 1}},
		{MeshPath: "shared.glb", Position: Vec3{5, 0, 0}, Scale: Vec3{1, 1, 1}},
	}}

	pkg, err := BuildScene(snap, loader, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.TriangleCount != 2 {
		t.Errorf("TriangleCount = %d, want 2", pkg.TriangleCount)
	}
	if loader.loads["shared.glb"] != 1 {
		t.Errorf("mesh loaded %d times, want 1 (cache should dedupe within one build)", loader.loads["shared.glb"])
	}
}

func TestBuildSceneThreeInstancesRootEnclosesAll(t *testing.T) {
	loader := newFakeMeshLoader()
	loader.meshes["plane.glb"] = []RawTriangle{unitTriangle()}
	loader.meshes["car.glb"] = []RawTriangle{unitTriangle()}
	loader.meshes["sun.glb"] = []RawTriangle{unitTriangle()}

	snap := SceneSnapshot{Instances: []ModelInstance{
		{MeshPath: "plane.glb", Position: Vec3{0, -10, 0}, Scale: Vec3{150, 1, 150}},
		{MeshPath: "car.glb", Position: Vec3{0, -8, 0}, Scale: Vec3{2, 2, 2}},
		{MeshPath: "sun.glb", Position: Vec3{0, 220, 0}, Scale: Vec3{0.35, 0.35, 0.35}},
	}}

	pkg, err := BuildScene(snap, loader, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.TriangleCount != 3 {
		t.Fatalf("TriangleCount = %d, want 3 (sum of the three meshes)", pkg.TriangleCount)
	}

	if len(pkg.BVHBytes)/FlatNodeSize == 0 {
		t.Fatal("no flattened BVH nodes produced")
	}
	rootMin := readVec3(pkg.BVHBytes[0:12])
	rootMax := readVec3(pkg.BVHBytes[16:28])
	if rootMax.Y < 220 {
		t.Errorf("root bbox does not reach the sun instance: max=%v", rootMax)
	}
	if rootMin.Y > -10 {
		t.Errorf("root bbox does not reach the plane instance: min=%v", rootMin)
	}
}

func TestBuildSceneAllInstancesFailIsEmptyNotError(t *testing.T) {
	loader := newFakeMeshLoader()
	snap := SceneSnapshot{Instances: []ModelInstance{{MeshPath: "missing.glb"}}}

	pkg, err := BuildScene(snap, loader, nil)
	if err != nil {
		t.Fatalf("all instances failing should still yield an empty package, not an error: %v", err)
	}
	if pkg.TriangleCount != 0 {
		t.Errorf("TriangleCount = %d, want 0", pkg.TriangleCount)
	}
}
