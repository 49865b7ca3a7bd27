// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package synth

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/parallel"
	"github.com/gogpu/ssr/surface"
)

// Output is one rasterized frame.
type Output struct {
	GBuffer *surface.GBuffer
	Color   *surface.Color
	AO      *surface.Scalar
	HiZ     *surface.Pyramid
}

// Render rasterizes the scene from cam at the given resolution. Motion
// vectors are derived from cam.PrevViewProj. Rows are rendered on pool when
// it is non-nil.
func (s *Scene) Render(pool *parallel.Pool, cam surface.Camera, width, height int) *Output {
	out := &Output{
		GBuffer: surface.NewGBuffer(width, height),
		Color:   surface.NewPlane[mgl32.Vec3](width, height),
		AO:      surface.NewPlane[float32](width, height),
	}

	row := func(y int) {
		for x := range width {
			s.renderPixel(out, cam, x, y, width, height)
		}
	}
	if pool != nil {
		pool.Dispatch(height, row)
	} else {
		for y := range height {
			row(y)
		}
	}

	out.HiZ = surface.BuildPyramid(out.GBuffer.Depth)
	return out
}

func (s *Scene) renderPixel(out *Output, cam surface.Camera, x, y, width, height int) {
	gb := out.GBuffer
	idx := y*width + x
	u, v := surface.PixelUV(x, y, width, height)

	origin := cam.Unproject(u, v, 0)
	dir := cam.Unproject(u, v, 1).Sub(origin).Normalize()

	h, ok := s.Trace(origin, dir, cam.Far)
	var depth float32 = 1
	if ok {
		if _, d, visible := cam.Project(h.position); visible && d < 1 {
			depth = d
		} else {
			ok = false
		}
	}

	if !ok {
		gb.Depth.Pix[idx] = 1
		gb.Roughness.Pix[idx] = 1
		out.Color.Pix[idx] = s.Sky.Radiance(dir, 0)
		out.AO.Pix[idx] = 1
		far := origin.Add(dir.Mul(cam.Far * 0.5))
		gb.Velocity.Pix[idx] = motion(cam, far, u, v)
		return
	}

	gb.Depth.Pix[idx] = depth
	gb.Normal.Pix[idx] = h.normal
	gb.Roughness.Pix[idx] = h.material.Roughness
	gb.Metalness.Pix[idx] = h.material.Metalness
	gb.BaseColor.Pix[idx] = h.material.BaseColor
	gb.Velocity.Pix[idx] = motion(cam, h.position, u, v)
	out.AO.Pix[idx] = s.occlusion(h.position, h.normal)
	out.Color.Pix[idx] = s.shade(h)
}

// motion returns current minus previous normalized position of world.
func motion(cam surface.Camera, world mgl32.Vec3, u, v float32) mgl32.Vec2 {
	prev, _, ok := cam.ProjectPrevious(world)
	if !ok {
		return mgl32.Vec2{}
	}
	return mgl32.Vec2{u - prev[0], v - prev[1]}
}

// OrbitCamera returns a camera circling target at the given radius and
// height, at angle radians. aspect is width over height.
func OrbitCamera(target mgl32.Vec3, radius, height, angle, aspect float32) surface.Camera {
	eye := mgl32.Vec3{
		target[0] + radius*float32(math.Sin(float64(angle))),
		target[1] + height,
		target[2] + radius*float32(math.Cos(float64(angle))),
	}
	return surface.NewCamera(eye, target, mgl32.Vec3{0, 1, 0}, mgl32.DegToRad(60), aspect, 0.1, 100)
}
