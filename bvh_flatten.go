// bvh_flatten.go - depth-first pre-order linearization of a BVH into the
// fixed 48-byte GPU node layout, with triangles reordered to leaf-visitation
// order.

package main

import (
	"encoding/binary"
	"math"
)

// FlatNodeSize is the byte stride of one flattened node:
// bbox_min (vec3+pad) + bbox_max (vec3+pad) + a (i32) + b (i32).
const FlatNodeSize = 48

// FlattenBVH serializes root into a byte buffer of node_count*FlatNodeSize
// bytes (little-endian) and a triangle list reordered to match leaf
// visitation order. tris is the same slice BuildBVH was called with; leaf
// nodes reference it by index.
func FlattenBVH(root *BVHNode, tris []Triangle) (nodeBytes []byte, reordered []Triangle) {
	nodeCount := countNodes(root)
	nodeBytes = make([]byte, nodeCount*FlatNodeSize)
	reordered = make([]Triangle, 0, len(tris))

	nextIndex := 0
	var flatten func(n *BVHNode) int
	flatten = func(n *BVHNode) int {
		my := nextIndex
		nextIndex++
		offset := my * FlatNodeSize
		writeVec3Pad(nodeBytes[offset:], n.Bbox.Min)
		writeVec3Pad(nodeBytes[offset+16:], n.Bbox.Max)

		if n.Leaf {
			t := len(reordered)
			reordered = append(reordered, tris[n.Tri])
			writeInt32(nodeBytes[offset+32:], int32(-(t + 1)))
			writeInt32(nodeBytes[offset+36:], -1)
			return my
		}

		li := flatten(n.Left)
		ri := flatten(n.Right)
		writeInt32(nodeBytes[offset+32:], int32(li))
		writeInt32(nodeBytes[offset+36:], int32(ri))
		return my
	}
	flatten(root)

	return nodeBytes, reordered
}

func countNodes(n *BVHNode) int {
	if n == nil {
		return 0
	}
	if n.Leaf {
		return 1
	}
	return 1 + countNodes(n.Left) + countNodes(n.Right)
}

func writeVec3Pad(dst []byte, v Vec3) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v.Z))
	// bytes 12:16 are the std140 pad word, left zero.
}

func writeInt32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(v))
}

func writeFloat32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v))
}

func writeUint32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], v)
}
