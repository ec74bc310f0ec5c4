package main

import (
	"math"
	"testing"
)

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -1, 2}

	if got := a.Add(b); got != (Vec3{5, 1, 5}) {
		t.Errorf("Add: got %v", got)
	}
	if got := a.Sub(b); got != (Vec3{-3, 3, 1}) {
		t.Errorf("Sub: got %v", got)
	}
	if got := a.Mul(b); got != (Vec3{4, -2, 6}) {
		t.Errorf("Mul: got %v", got)
	}
	if got := a.Dot(b); got != 4-2+6 {
		t.Errorf("Dot: got %v", got)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	if got := x.Cross(y); got != (Vec3{0, 0, 1}) {
		t.Errorf("Cross(x,y): got %v, want Z-up", got)
	}
}

func TestVec3Unit(t *testing.T) {
	v := Vec3{3, 4, 0}
	u := v.Unit()
	if math.Abs(float64(u.Length()-1)) > 1e-6 {
		t.Errorf("Unit length = %v, want 1", u.Length())
	}

	zero := Vec3{}
	if zero.Unit() != zero {
		t.Errorf("Unit of zero vector should stay zero, got %v", zero.Unit())
	}
}

func TestVec3Axis(t *testing.T) {
	v := Vec3{1, 2, 3}
	for axis, want := range []float32{1, 2, 3} {
		if got := v.Axis(axis); got != want {
			t.Errorf("Axis(%d) = %v, want %v", axis, got, want)
		}
	}
}

func TestVec3Finite(t *testing.T) {
	if !(Vec3{1, 2, 3}).Finite() {
		t.Error("finite vector reported non-finite")
	}
	if (Vec3{float32(math.NaN()), 0, 0}).Finite() {
		t.Error("NaN vector reported finite")
	}
	if (Vec3{float32(math.Inf(1)), 0, 0}).Finite() {
		t.Error("+Inf vector reported finite")
	}
}

func TestSurroundCommutative(t *testing.T) {
	a := NewAABB(Vec3{0, 0, 0}, Vec3{1, 1, 1})
	b := NewAABB(Vec3{-1, -1, -1}, Vec3{0.5, 0.5, 0.5})

	ab := Surround(a, b)
	ba := Surround(b, a)
	if ab != ba {
		t.Errorf("Surround not commutative: %v vs %v", ab, ba)
	}
}

func TestSurroundIdempotent(t *testing.T) {
	a := NewAABB(Vec3{0, 0, 0}, Vec3{2, 3, 4})
	if got := Surround(a, a); got != a {
		t.Errorf("Surround(a,a) = %v, want %v", got, a)
	}
}

func TestSurroundAssociative(t *testing.T) {
	a := NewAABB(Vec3{0, 0, 0}, Vec3{1, 1, 1})
	b := NewAABB(Vec3{2, 0, 0}, Vec3{3, 1, 1})
	c := NewAABB(Vec3{0, 2, 0}, Vec3{1, 3, 1})

	left := Surround(a, Surround(b, c))
	right := Surround(Surround(a, b), c)
	if left != right {
		t.Errorf("Surround not associative: %v vs %v", left, right)
	}
}

func TestAABBPadsDegenerateAxis(t *testing.T) {
	flat := NewAABB(Vec3{0, 0, 0}, Vec3{1, 0, 1})
	if flat.Max.Y-flat.Min.Y <= 0 {
		t.Errorf("degenerate Y axis was not padded: %v", flat)
	}
}

func TestAABBLongestAxis(t *testing.T) {
	box := NewAABB(Vec3{0, 0, 0}, Vec3{10, 1, 1})
	if got := box.LongestAxis(); got != 0 {
		t.Errorf("LongestAxis = %d, want 0 (X)", got)
	}
}

func TestTriangleBboxEnclosesVertices(t *testing.T) {
	tri := NewTriangle(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0}, 1, 1, 1, MaterialMatte)
	box := tri.Bbox()
	if box.Min.X > 0 || box.Max.X < 1 {
		t.Errorf("triangle bbox does not enclose vertices: %v", box)
	}
}

func TestTriangleFinite(t *testing.T) {
	ok := NewTriangle(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0}, 1, 1, 1, MaterialMatte)
	if !ok.Finite() {
		t.Error("ordinary triangle reported non-finite")
	}

	bad := NewTriangle(Vec3{float32(math.NaN()), 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0}, 1, 1, 1, MaterialMatte)
	if bad.Finite() {
		t.Error("NaN-vertex triangle reported finite")
	}
}
