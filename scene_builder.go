// scene_builder.go - the ephemeral scene-build role (spec §4.3, §5). Runs on
// a worker goroutine distinct from the UI and render roles; never touches
// GPU objects.

package main

import (
	"fmt"
	"log"
	"math/rand"
)

// BuiltScenePackage is the CPU-side product of a scene build, ready for the
// render engine's hot-swap (spec §3.1). The three streams are freed by the
// render engine once their contents have been copied into GPU buffers.
type BuiltScenePackage struct {
	VertexStream   []byte // 12 floats per triangle (pos0, pos1, pos2), pad to 16
	MaterialStream []byte // 4 floats per triangle: r, g, b, material type
	BVHBytes       []byte // flattened BVH node array, FlatNodeSize per node
	TriangleCount  int
}

// vertexFloatsPerTriangle is 3 vertices * 3 components, padded per vertex
// to a 4-float (16-byte) stride so the GPU side can index by vec4.
const vertexFloatsPerTriangle = 3 * 4

// BuildScene loads every model instance's mesh (external parser), applies
// its transform and material tag, concatenates all triangles, and builds +
// flattens the unified BVH. A mesh is loaded at most once per build even if
// several instances reference the same path. Per-instance load failures are
// logged and skipped rather than aborting the whole build; an empty scene
// (zero instances, or every instance failing to load) is a valid result
// with TriangleCount == 0, not an error.
func BuildScene(snapshot SceneSnapshot, loader MeshLoader, axisRand *rand.Rand) (*BuiltScenePackage, error) {
	cache := map[string][]RawTriangle{}
	var tris []Triangle

	for _, inst := range snapshot.Instances {
		raw, ok := cache[inst.MeshPath]
		if !ok {
			loaded, err := loader.Load(inst.MeshPath)
			if err != nil {
				log.Printf("scene build: skipping instance %q: %v", inst.DisplayName, &BuildError{
					Operation: "mesh load",
					Details:   inst.MeshPath,
					Err:       fmt.Errorf("%w: %v", ErrMeshLoadFailure, err),
				})
				cache[inst.MeshPath] = nil
				continue
			}
			cache[inst.MeshPath] = loaded
			raw = loaded
		}
		if raw == nil {
			continue // a previously failed mesh path; already logged.
		}

		for _, rt := range raw {
			tris = append(tris, transformTriangle(rt, inst))
		}
	}

	if len(tris) == 0 {
		return &BuiltScenePackage{}, nil
	}

	root, err := BuildBVH(tris, axisRand)
	if err != nil {
		return nil, err
	}
	nodeBytes, reordered := FlattenBVH(root, tris)

	return &BuiltScenePackage{
		VertexStream:   encodeVertexStream(reordered),
		MaterialStream: encodeMaterialStream(reordered),
		BVHBytes:       nodeBytes,
		TriangleCount:  len(reordered),
	}, nil
}

// transformTriangle applies the instance transform scale-then-translate
// (spec §4.3: v' = v ⊙ scale + position) and tags the triangle with the
// instance's color and material.
func transformTriangle(rt RawTriangle, inst ModelInstance) Triangle {
	v0 := rt.V0.Mul(inst.Scale).Add(inst.Position)
	v1 := rt.V1.Mul(inst.Scale).Add(inst.Position)
	v2 := rt.V2.Mul(inst.Scale).Add(inst.Position)
	return NewTriangle(v0, v1, v2, inst.Color.X, inst.Color.Y, inst.Color.Z, inst.Material)
}

func encodeVertexStream(tris []Triangle) []byte {
	buf := make([]byte, len(tris)*vertexFloatsPerTriangle*4)
	off := 0
	write := func(v Vec3) {
		writeVec3Pad(buf[off:], v)
		off += 16
	}
	for _, t := range tris {
		write(t.V0)
		write(t.V1)
		write(t.V2)
	}
	return buf
}

func encodeMaterialStream(tris []Triangle) []byte {
	buf := make([]byte, len(tris)*4*4)
	off := 0
	for _, t := range tris {
		writeFloat32(buf[off:], t.R)
		writeFloat32(buf[off+4:], t.G)
		writeFloat32(buf[off+8:], t.B)
		writeFloat32(buf[off+12:], float32(t.Material))
		off += 16
	}
	return buf
}
