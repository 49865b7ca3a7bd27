// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/worklist"
)

// Apply adds the denoised reflection of every pixel classified as reflective
// into the HDR color buffer, weighted by the environment BRDF and by
// specular occlusion from the ambient occlusion buffer. It is a full-screen
// dispatch; unclassified pixels are left untouched.
func Apply(f *Frame) {
	tx, ty := worklist.TileGrid(f.Width, f.Height)
	f.Pool.Dispatch2D(tx, ty, func(gx, gy int) {
		applyTile(f, gx, gy)
	})
}

func applyTile(f *Frame, gx, gy int) {
	gb := f.GBuffer
	cur := f.History.Current()
	mask := f.Scratch.Mask.Pix
	intensity := f.Params.Intensity

	x0, y0, x1, y1 := f.tileBounds(gx, gy)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			idx := y*f.Width + x
			if mask[idx] == 0 {
				continue
			}

			normal := gb.Normal.Pix[idx]
			rough := gb.Roughness.Pix[idx]
			u := (float32(x) + 0.5) / float32(f.Width)
			v := (float32(y) + 0.5) / float32(f.Height)
			world := f.Camera.Unproject(u, v, gb.Depth.Pix[idx])
			toEye := f.Camera.Position.Sub(world).Normalize()
			nDotV := mgl32.Clamp(normal.Dot(toEye), 1e-4, 1)

			f0 := lerpScalar3(0.04, gb.BaseColor.Pix[idx], gb.Metalness.Pix[idx])
			reflectance := EnvBRDF(f0, rough, nDotV)

			ao := float32(1)
			if f.AO != nil {
				ao = f.AO.Pix[idx]
			}
			occlusion := SpecularOcclusion(nDotV, ao, rough)

			contrib := mul3(cur.Radiance.Pix[idx], reflectance).Mul(occlusion * intensity)
			f.Color.Pix[idx] = f.Color.Pix[idx].Add(contrib)
		}
	}
}

// EnvBRDF is the analytic split-sum environment BRDF approximation for
// specular reflectance f0.
func EnvBRDF(f0 mgl32.Vec3, roughness, nDotV float32) mgl32.Vec3 {
	c0 := [4]float32{-1, -0.0275, -0.572, 0.022}
	c1 := [4]float32{1, 0.0425, 1.04, -0.04}
	var r [4]float32
	for i := range 4 {
		r[i] = roughness*c0[i] + c1[i]
	}
	a004 := min(r[0]*r[0], float32(math.Exp2(float64(-9.28*nDotV))))*r[0] + r[1]
	scale := -1.04*a004 + r[2]
	bias := 1.04*a004 + r[3]
	return mgl32.Vec3{f0[0]*scale + bias, f0[1]*scale + bias, f0[2]*scale + bias}
}

// SpecularOcclusion derives specular visibility from ambient occlusion.
func SpecularOcclusion(nDotV, ao, roughness float32) float32 {
	e := math.Exp2(float64(-16*roughness - 1))
	so := float32(math.Pow(float64(nDotV+ao), e)) - 1 + ao
	return mgl32.Clamp(so, 0, 1)
}

func lerpScalar3(a float32, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return mgl32.Vec3{a + (b[0]-a)*t, a + (b[1]-a)*t, a + (b[2]-a)*t}
}
