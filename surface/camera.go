// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import "github.com/go-gl/mathgl/mgl32"

// Camera describes the current view and the view-projection of the
// previous frame used for reprojection.
type Camera struct {
	Position mgl32.Vec3
	Near     float32
	Far      float32

	View         mgl32.Mat4
	Proj         mgl32.Mat4
	ViewProj     mgl32.Mat4
	InvViewProj  mgl32.Mat4
	PrevViewProj mgl32.Mat4
}

// NewCamera builds a perspective camera looking from eye at target.
// fovy is in radians. The previous view-projection starts equal to the
// current one.
func NewCamera(eye, target, up mgl32.Vec3, fovy, aspect, near, far float32) Camera {
	view := mgl32.LookAtV(eye, target, up)
	proj := mgl32.Perspective(fovy, aspect, near, far)
	vp := proj.Mul4(view)
	return Camera{
		Position:     eye,
		Near:         near,
		Far:          far,
		View:         view,
		Proj:         proj,
		ViewProj:     vp,
		InvViewProj:  vp.Inv(),
		PrevViewProj: vp,
	}
}

// WithPrevious returns a copy of c whose previous view-projection is taken
// from prev.
func (c Camera) WithPrevious(prev Camera) Camera {
	c.PrevViewProj = prev.ViewProj
	return c
}

// Unproject reconstructs the world position of normalized coordinates
// (u, v) at the given device depth.
func (c Camera) Unproject(u, v, depth float32) mgl32.Vec3 {
	ndc := mgl32.Vec4{2*u - 1, 1 - 2*v, 2*depth - 1, 1}
	w := c.InvViewProj.Mul4x1(ndc)
	return w.Vec3().Mul(1 / w[3])
}

// Project maps a world position to normalized coordinates and device
// depth. ok is false when the point is behind the camera.
func (c Camera) Project(world mgl32.Vec3) (uv mgl32.Vec2, depth float32, ok bool) {
	return project(c.ViewProj, world)
}

// ProjectPrevious is like Project but uses the previous frame's transform.
func (c Camera) ProjectPrevious(world mgl32.Vec3) (uv mgl32.Vec2, depth float32, ok bool) {
	return project(c.PrevViewProj, world)
}

// Clip transforms a world position into clip space.
func (c Camera) Clip(world mgl32.Vec3) mgl32.Vec4 {
	return c.ViewProj.Mul4x1(world.Vec4(1))
}

// LinearDepth converts device depth to view-space distance along the view axis.
func (c Camera) LinearDepth(depth float32) float32 {
	zNDC := 2*depth - 1
	return 2 * c.Near * c.Far / (c.Far + c.Near - zNDC*(c.Far-c.Near))
}

func project(vp mgl32.Mat4, world mgl32.Vec3) (mgl32.Vec2, float32, bool) {
	clip := vp.Mul4x1(world.Vec4(1))
	if clip[3] <= 1e-6 {
		return mgl32.Vec2{}, 0, false
	}
	inv := 1 / clip[3]
	x, y, z := clip[0]*inv, clip[1]*inv, clip[2]*inv
	return mgl32.Vec2{x*0.5 + 0.5, 0.5 - y*0.5}, z*0.5 + 0.5, true
}

// ClipToScreen converts a clip-space position to normalized coordinates and
// device depth. The w component must be positive.
func ClipToScreen(clip mgl32.Vec4) mgl32.Vec3 {
	inv := 1 / clip[3]
	return mgl32.Vec3{clip[0]*inv*0.5 + 0.5, 0.5 - clip[1]*inv*0.5, clip[2]*inv*0.5 + 0.5}
}

// PixelUV returns the normalized coordinates of the center of pixel (x, y).
func PixelUV(x, y, width, height int) (u, v float32) {
	return (float32(x) + 0.5) / float32(width), (float32(y) + 0.5) / float32(height)
}
