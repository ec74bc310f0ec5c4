// geometry.go - geometric primitives shared by the BVH builder, flattener,
// and scene builder.

package main

import "math"

// bboxEpsilon pads a zero-extent axis so an AABB never has a degenerate
// (zero-thickness) slab, which would make ray/box slab tests divide by zero.
const bboxEpsilon = 1e-4

// Vec3 is a three-component floating-point vector. Pure value, no pointer
// receivers anywhere in this file.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul is the componentwise (Hadamard) product, used for non-uniform scale.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(o Vec3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

func (v Vec3) Unit() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func (v Vec3) Min(o Vec3) Vec3 {
	return Vec3{minF32(v.X, o.X), minF32(v.Y, o.Y), minF32(v.Z, o.Z)}
}

func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{maxF32(v.X, o.X), maxF32(v.Y, o.Y), maxF32(v.Z, o.Z)}
}

// Axis indexes a vector's component by 0=X, 1=Y, 2=Z.
func (v Vec3) Axis(axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (v Vec3) Finite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// AABB is an axis-aligned bounding box. Invariant: Min <= Max componentwise.
type AABB struct {
	Min, Max Vec3
}

// NewAABB returns the tightest box enclosing min and max, padding any
// degenerate (zero-thickness) axis by bboxEpsilon so later slab tests never
// divide by zero.
func NewAABB(min, max Vec3) AABB {
	box := AABB{Min: min.Min(max), Max: min.Max(max)}
	return box.padDegenerate()
}

func (b AABB) padDegenerate() AABB {
	if b.Max.X-b.Min.X < bboxEpsilon {
		b.Min.X -= bboxEpsilon
		b.Max.X += bboxEpsilon
	}
	if b.Max.Y-b.Min.Y < bboxEpsilon {
		b.Min.Y -= bboxEpsilon
		b.Max.Y += bboxEpsilon
	}
	if b.Max.Z-b.Min.Z < bboxEpsilon {
		b.Min.Z -= bboxEpsilon
		b.Max.Z += bboxEpsilon
	}
	return b
}

// Surround returns the smallest AABB enclosing both a and b. Commutative,
// idempotent (Surround(a,a) == a), and associative.
func Surround(a, b AABB) AABB {
	return AABB{Min: a.Min.Min(b.Min), Max: a.Max.Max(b.Max)}
}

// Center returns the box's centroid, used as the sort key during BVH
// partitioning.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns Max - Min per axis.
func (b AABB) Extent() Vec3 {
	return b.Max.Sub(b.Min)
}

// LongestAxis returns 0, 1, or 2 for the box's longest extent.
func (b AABB) LongestAxis() int {
	e := b.Extent()
	if e.X > e.Y && e.X > e.Z {
		return 0
	}
	if e.Y > e.Z {
		return 1
	}
	return 2
}

// MaterialType tags a triangle's shading behavior for the compute kernel.
type MaterialType float32

const (
	MaterialMatte       MaterialType = 0
	MaterialMetalShiny  MaterialType = 1
	MaterialMetalFuzzy  MaterialType = 2
	MaterialEmissive    MaterialType = 3
)

// Triangle is a single transformed, material-tagged triangle. Bbox is
// computed once at construction and cached.
type Triangle struct {
	V0, V1, V2 Vec3
	R, G, B    float32
	Material   MaterialType
	bbox       AABB
}

// NewTriangle builds a triangle and caches its padded bbox.
func NewTriangle(v0, v1, v2 Vec3, r, g, b float32, material MaterialType) Triangle {
	t := Triangle{V0: v0, V1: v1, V2: v2, R: r, G: g, B: b, Material: material}
	min := v0.Min(v1).Min(v2)
	max := v0.Max(v1).Max(v2)
	t.bbox = NewAABB(min, max)
	return t
}

// Bbox returns the triangle's cached bounding box.
func (t Triangle) Bbox() AABB { return t.bbox }

// Finite reports whether every vertex component is finite; a triangle that
// fails this is DegenerateGeometry.
func (t Triangle) Finite() bool {
	return t.V0.Finite() && t.V1.Finite() && t.V2.Finite()
}
