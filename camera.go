// camera.go - the pinhole camera: viewport vectors plus the accumulation
// frame counter. Owned by the UI role and sent to the render engine by
// value on every tick.

package main

import "math"

// Camera is copied by value across the UI→render camera queue (spec §3.2).
// Viewport is recomputed whenever Origin or LookAt changes via Recompute.
type Camera struct {
	Origin     Vec3
	LookAt     Vec3
	VUp        Vec3
	VFovDeg    float32
	Aspect     float32
	Exposure   float32

	LowerLeft  Vec3
	Horizontal Vec3
	Vertical   Vec3

	FrameCount uint32
}

// NewCamera builds a camera at the given origin looking at lookAt, and
// computes its initial viewport vectors.
func NewCamera(origin, lookAt, vUp Vec3, vfovDeg, aspect float32) Camera {
	c := Camera{Origin: origin, LookAt: lookAt, VUp: vUp, VFovDeg: vfovDeg, Aspect: aspect, Exposure: 1}
	c.Recompute()
	return c
}

// Recompute derives LowerLeft/Horizontal/Vertical from Origin, LookAt, VUp,
// VFovDeg and Aspect. Call this after changing any of those five fields.
func (c *Camera) Recompute() {
	theta := float64(c.VFovDeg) * math.Pi / 180
	halfHeight := float32(math.Tan(theta / 2))
	halfWidth := c.Aspect * halfHeight

	w := c.Origin.Sub(c.LookAt).Unit()
	u := c.VUp.Cross(w).Unit()
	v := w.Cross(u)

	c.Horizontal = u.Scale(2 * halfWidth)
	c.Vertical = v.Scale(2 * halfHeight)
	c.LowerLeft = c.Origin.
		Sub(u.Scale(halfWidth)).
		Sub(v.Scale(halfHeight)).
		Sub(w)
}

// RayDirection maps normalized image coordinates (s, t) in [0,1]^2 to a
// world-space ray direction, per the Viewport vectors glossary entry.
func (c Camera) RayDirection(s, t float32) Vec3 {
	target := c.LowerLeft.Add(c.Horizontal.Scale(s)).Add(c.Vertical.Scale(t))
	return target.Sub(c.Origin)
}
