package main

import (
	"encoding/binary"
	"math"
	"testing"
)

func readInt32(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }

func readVec3(b []byte) Vec3 {
	return Vec3{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
	}
}

func TestFlattenSingleTriangle(t *testing.T) {
	tris := []Triangle{
		NewTriangle(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0}, 1, 1, 1, MaterialMatte),
	}
	root, err := BuildBVH(tris, nil)
	if err != nil {
		t.Fatal(err)
	}
	nodes, reordered := FlattenBVH(root, tris)

	if len(nodes) != FlatNodeSize {
		t.Fatalf("node bytes length = %d, want %d", len(nodes), FlatNodeSize)
	}
	if len(reordered) != 1 {
		t.Fatalf("reordered length = %d, want 1", len(reordered))
	}

	a := readInt32(nodes[32:36])
	b := readInt32(nodes[36:40])
	if a != -1 || b != -1 {
		t.Errorf("leaf encoding = (%d, %d), want (-1, -1)", a, b)
	}

	min := readVec3(nodes[0:12])
	max := readVec3(nodes[16:28])
	wantBox := tris[0].Bbox()
	if min != wantBox.Min || max != wantBox.Max {
		t.Errorf("leaf bbox = {%v, %v}, want %v", min, max, wantBox)
	}
}

func TestFlattenReorderIsPermutation(t *testing.T) {
	tris := make([]Triangle, 0, 40)
	for i := 0; i < 40; i++ {
		x := float32(i)
		tris = append(tris, NewTriangle(
			Vec3{x, 0, 0}, Vec3{x + 1, 0, 0}, Vec3{x, 1, 0}, float32(i), 0, 0, MaterialMatte))
	}
	root, err := BuildBVH(tris, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, reordered := FlattenBVH(root, tris)

	if len(reordered) != len(tris) {
		t.Fatalf("reordered length = %d, want %d", len(reordered), len(tris))
	}
	seen := make(map[float32]bool, len(tris))
	for _, tri := range reordered {
		if seen[tri.R] {
			t.Errorf("triangle tagged R=%v appears more than once in reordered list", tri.R)
		}
		seen[tri.R] = true
	}
	for i := range tris {
		if !seen[float32(i)] {
			t.Errorf("triangle %d missing from reordered list", i)
		}
	}
}

func TestFlattenLeftChildAdjacency(t *testing.T) {
	tris := make([]Triangle, 0, 17)
	for i := 0; i < 17; i++ {
		x := float32(i)
		tris = append(tris, NewTriangle(
			Vec3{x, 0, 0}, Vec3{x + 1, 0, 0}, Vec3{x, 1, 0}, 1, 1, 1, MaterialMatte))
	}
	root, err := BuildBVH(tris, nil)
	if err != nil {
		t.Fatal(err)
	}
	nodes, reordered := FlattenBVH(root, tris)
	nodeCount := len(nodes) / FlatNodeSize

	for i := 0; i < nodeCount; i++ {
		off := i * FlatNodeSize
		a := readInt32(nodes[off+32 : off+36])
		b := readInt32(nodes[off+36 : off+40])
		if a >= 0 {
			// internal node: left child must immediately follow.
			if int(a) != i+1 {
				t.Errorf("node %d: left child = %d, want %d", i, a, i+1)
			}
			if int(b) >= nodeCount {
				t.Errorf("node %d: right child %d out of range", i, b)
			}
		} else {
			// leaf node.
			if b != -1 {
				t.Errorf("node %d: leaf b = %d, want -1", i, b)
			}
			triIdx := int(-(a + 1))
			if triIdx < 0 || triIdx >= len(reordered) {
				t.Errorf("node %d: leaf triangle index %d out of range", i, triIdx)
			}
		}
	}
}

func TestFlattenNodeCountMatchesTree(t *testing.T) {
	tris := make([]Triangle, 0, 9)
	for i := 0; i < 9; i++ {
		x := float32(i)
		tris = append(tris, NewTriangle(
			Vec3{x, 0, 0}, Vec3{x + 1, 0, 0}, Vec3{x, 1, 0}, 1, 1, 1, MaterialMatte))
	}
	root, err := BuildBVH(tris, nil)
	if err != nil {
		t.Fatal(err)
	}
	nodes, _ := FlattenBVH(root, tris)
	want := countNodes(root) * FlatNodeSize
	if len(nodes) != want {
		t.Errorf("flat node bytes = %d, want %d", len(nodes), want)
	}
}

func TestFlattenTwoTrianglesThreeNodes(t *testing.T) {
	left := NewTriangle(Vec3{-10, 0, 0}, Vec3{-9, 0, 0}, Vec3{-10, 1, 0}, 1, 1, 1, MaterialMatte)
	right := NewTriangle(Vec3{10, 0, 0}, Vec3{11, 0, 0}, Vec3{10, 1, 0}, 1, 1, 1, MaterialMatte)
	tris := []Triangle{right, left}
	root, err := BuildBVH(tris, nil)
	if err != nil {
		t.Fatal(err)
	}
	nodes, reordered := FlattenBVH(root, tris)
	if len(nodes)/FlatNodeSize != 3 {
		t.Fatalf("node count = %d, want 3", len(nodes)/FlatNodeSize)
	}
	if len(reordered) != 2 {
		t.Fatalf("reordered length = %d, want 2", len(reordered))
	}

	rootMin := readVec3(nodes[0:12])
	rootMax := readVec3(nodes[16:28])
	wantRoot := Surround(left.Bbox(), right.Bbox())
	if rootMin != wantRoot.Min || rootMax != wantRoot.Max {
		t.Errorf("root bbox = {%v,%v}, want %v", rootMin, rootMax, wantRoot)
	}
}

func BenchmarkFlattenBVH(b *testing.B) {
	tris := make([]Triangle, 0, 2000)
	for i := 0; i < 2000; i++ {
		x := float32(i)
		tris = append(tris, NewTriangle(
			Vec3{x, 0, 0}, Vec3{x + 1, 0, 0}, Vec3{x, 1, 0}, 1, 1, 1, MaterialMatte))
	}
	root, err := BuildBVH(tris, nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FlattenBVH(root, tris)
	}
}
