package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a fixed look-at camera with a perspective projection.
type Camera struct {
	Eye    mgl32.Vec3
	Center mgl32.Vec3
	Up     mgl32.Vec3
	FovY   float32 // degrees
	Aspect float32
	Near   float32
	Far    float32
}

// NewCamera frames a sphere of the given radius from the +Z axis.
func NewCamera(radius, aspect float32) Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return Camera{
		Eye:    mgl32.Vec3{0, radius * 0.4, radius * 3},
		Center: mgl32.Vec3{0, 0, 0},
		Up:     mgl32.Vec3{0, 1, 0},
		FovY:   50,
		Aspect: aspect,
		Near:   0.1,
		Far:    radius * 20,
	}
}

// View returns the world-to-view matrix.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Center, c.Up)
}

// Projection returns the view-to-clip matrix.
func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// Orbit returns a copy of the camera with its eye rotated about the vertical
// axis through Center.
func (c Camera) Orbit(angle float32) Camera {
	rot := mgl32.HomogRotate3DY(angle)
	rel := c.Eye.Sub(c.Center)
	c.Eye = c.Center.Add(rot.Mul4x1(rel.Vec4(1)).Vec3())
	return c
}

// Project maps a world point to screen coordinates on a w×h viewport with
// the origin at the top left. depth is the distance in front of the camera.
// ok is false for points behind the camera or outside the view volume.
func (c Camera) Project(p mgl32.Vec3, w, h int) (sx, sy, depth float32, ok bool) {
	view := c.View().Mul4x1(p.Vec4(1))
	depth = -view.Z()
	if depth <= c.Near || depth >= c.Far {
		return 0, 0, depth, false
	}
	clip := c.Projection().Mul4x1(view)
	if clip.W() <= 0 {
		return 0, 0, depth, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	if ndc.X() < -1 || ndc.X() > 1 || ndc.Y() < -1 || ndc.Y() > 1 {
		return 0, 0, depth, false
	}
	sx = (ndc.X() + 1) / 2 * float32(w)
	sy = (1 - ndc.Y()) / 2 * float32(h)
	return sx, sy, depth, true
}
