// mesh_loader.go - the external mesh-parsing service (spec §6): loads a
// glTF/GLB file into a raw triangle soup of untransformed, untagged
// positions. Color and material tagging is applied later by the instance
// that references the mesh (scene_builder.go).

package main

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// RawTriangle is three untransformed, untagged vertex positions as read
// from a mesh file.
type RawTriangle struct {
	V0, V1, V2 Vec3
}

// MeshLoader loads a path-addressed mesh file into a triangle soup. An
// unknown or unreadable path returns an error; the caller (scene builder)
// is responsible for skipping the offending instance rather than aborting
// the whole build.
type MeshLoader interface {
	Load(path string) ([]RawTriangle, error)
}

// GLTFMeshLoader loads .gltf/.glb documents via qmuntal/gltf, flattening
// every mesh primitive's POSITION accessor (using its index accessor when
// present) into a plain triangle list.
type GLTFMeshLoader struct{}

// NewGLTFMeshLoader returns a loader backed by qmuntal/gltf + modeler.
func NewGLTFMeshLoader() *GLTFMeshLoader { return &GLTFMeshLoader{} }

func (l *GLTFMeshLoader) Load(path string) ([]RawTriangle, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	var out []RawTriangle
	for mi, mesh := range doc.Meshes {
		for pi, prim := range mesh.Primitives {
			tris, err := loadPrimitiveTriangles(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			out = append(out, tris...)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%q: no triangle data in any mesh primitive", path)
	}
	return out, nil
}

func loadPrimitiveTriangles(doc *gltf.Document, prim *gltf.Primitive) ([]RawTriangle, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	verts := make([]Vec3, len(positions))
	for i, p := range positions {
		verts[i] = Vec3{X: p[0], Y: p[1], Z: p[2]}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(verts))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}

	tris := make([]RawTriangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(verts) || int(b) >= len(verts) || int(c) >= len(verts) {
			return nil, fmt.Errorf("index out of range of position accessor")
		}
		tris = append(tris, RawTriangle{V0: verts[a], V1: verts[b], V2: verts[c]})
	}
	return tris, nil
}
