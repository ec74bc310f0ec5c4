package main

import (
	"math"
	"testing"
)

func TestCameraRecomputeChangesOnMove(t *testing.T) {
	c := NewCamera(Vec3{0, 0, 0}, Vec3{0, 0, -1}, Vec3{0, 1, 0}, 90, 1.0)
	before := c.LowerLeft

	c.Origin = Vec3{5, 0, 0}
	c.Recompute()

	if c.LowerLeft == before {
		t.Error("LowerLeft did not change after moving the origin and recomputing")
	}
}

func TestCameraRayDirectionCentered(t *testing.T) {
	c := NewCamera(Vec3{0, 0, 0}, Vec3{0, 0, -1}, Vec3{0, 1, 0}, 90, 1.0)
	dir := c.RayDirection(0.5, 0.5)

	// The center ray should point roughly down -Z with negligible X/Y.
	if math.Abs(float64(dir.X)) > 1e-4 || math.Abs(float64(dir.Y)) > 1e-4 {
		t.Errorf("center ray direction = %v, want near (0,0,-1)", dir)
	}
	if dir.Z >= 0 {
		t.Errorf("center ray direction Z = %v, want negative (looking toward -Z)", dir.Z)
	}
}

func TestCameraFrameCountStartsZero(t *testing.T) {
	c := NewCamera(Vec3{0, 0, 0}, Vec3{0, 0, -1}, Vec3{0, 1, 0}, 90, 1.0)
	if c.FrameCount != 0 {
		t.Errorf("FrameCount = %d, want 0 on a fresh camera", c.FrameCount)
	}
}
