// bvh_builder.go - top-down recursive construction of a Bounding Volume
// Hierarchy over a triangle list.

package main

import (
	"math/rand"
	"sort"
)

// BVHNode is a tagged value: either an internal node with two children, or
// a leaf referencing one triangle by index into the builder's input list.
// A nil Left/Right pair with Leaf == false never occurs; the tree is always
// full (every internal node has exactly two children).
type BVHNode struct {
	Bbox  AABB
	Leaf  bool
	Tri   int // valid when Leaf
	Left  *BVHNode
	Right *BVHNode
}

// BuildBVH constructs a full binary BVH over tris. It fails with
// *BuildError{EmptyScene} on an empty input and *BuildError{DegenerateGeometry}
// on the first non-finite triangle encountered.
//
// axisRand, if non-nil, is consulted for the split axis at every internal
// node (reproducible under a fixed seed); if nil, the deterministic
// longest-axis heuristic is used. Either produces a valid tree per the
// Axis choice design note.
func BuildBVH(tris []Triangle, axisRand *rand.Rand) (*BVHNode, error) {
	if len(tris) == 0 {
		return nil, &BuildError{Operation: "bvh build", Details: "no triangles", Err: ErrEmptyScene}
	}
	for i := range tris {
		if !tris[i].Finite() {
			return nil, &BuildError{Operation: "bvh build", Details: "non-finite triangle vertex", Err: ErrDegenerateGeometry}
		}
	}

	indices := make([]int, len(tris))
	for i := range indices {
		indices[i] = i
	}
	return buildRange(tris, indices, 0, len(indices), axisRand), nil
}

func buildRange(tris []Triangle, indices []int, lo, hi int, axisRand *rand.Rand) *BVHNode {
	n := hi - lo
	if n == 1 {
		i := indices[lo]
		return &BVHNode{Bbox: tris[i].Bbox(), Leaf: true, Tri: i}
	}

	axis := chooseAxis(tris, indices, lo, hi, axisRand)

	if n == 2 {
		i0, i1 := indices[lo], indices[lo+1]
		c0 := tris[i0].Bbox().Center().Axis(axis)
		c1 := tris[i1].Bbox().Center().Axis(axis)
		leftIdx, rightIdx := i0, i1
		if c1 < c0 {
			leftIdx, rightIdx = i1, i0
		}
		left := &BVHNode{Bbox: tris[leftIdx].Bbox(), Leaf: true, Tri: leftIdx}
		right := &BVHNode{Bbox: tris[rightIdx].Bbox(), Leaf: true, Tri: rightIdx}
		return &BVHNode{Bbox: Surround(left.Bbox, right.Bbox), Left: left, Right: right}
	}

	sub := indices[lo:hi]
	sort.Slice(sub, func(a, b int) bool {
		return tris[sub[a]].Bbox().Center().Axis(axis) < tris[sub[b]].Bbox().Center().Axis(axis)
	})

	mid := lo + n/2
	left := buildRange(tris, indices, lo, mid, axisRand)
	right := buildRange(tris, indices, mid, hi, axisRand)
	return &BVHNode{Bbox: Surround(left.Bbox, right.Bbox), Left: left, Right: right}
}

// chooseAxis picks the split axis for the range [lo, hi): a uniformly random
// axis when a seeded rand is supplied, else the longest axis of the range's
// combined bbox.
func chooseAxis(tris []Triangle, indices []int, lo, hi int, axisRand *rand.Rand) int {
	if axisRand != nil {
		return axisRand.Intn(3)
	}
	box := tris[indices[lo]].Bbox()
	for i := lo + 1; i < hi; i++ {
		box = Surround(box, tris[indices[i]].Bbox())
	}
	return box.LongestAxis()
}
