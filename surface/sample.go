// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Tap is one corner of a bilinear footprint.
type Tap struct {
	X, Y   int
	Weight float32
}

// BilinearTaps returns the four taps of a bilinear footprint centered on the
// continuous pixel position (px, py), where pixel centers sit at
// half-integer positions. Taps may lie outside the plane; callers decide
// whether to clamp or discard them.
func BilinearTaps(px, py float32) [4]Tap {
	fx := px - 0.5
	fy := py - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	return [4]Tap{
		{X: x0, Y: y0, Weight: (1 - tx) * (1 - ty)},
		{X: x0 + 1, Y: y0, Weight: tx * (1 - ty)},
		{X: x0, Y: y0 + 1, Weight: (1 - tx) * ty},
		{X: x0 + 1, Y: y0 + 1, Weight: tx * ty},
	}
}

// SampleColor samples a color plane at normalized coordinates (u, v) with
// bilinear filtering. Out-of-bounds coordinates are clamped to the edge.
func SampleColor(p *Color, u, v float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for _, t := range BilinearTaps(u*float32(p.Width), v*float32(p.Height)) {
		if t.Weight == 0 {
			continue
		}
		out = out.Add(p.AtClamped(t.X, t.Y).Mul(t.Weight))
	}
	return out
}

// SampleScalar samples a scalar plane at normalized coordinates (u, v) with
// bilinear filtering. Out-of-bounds coordinates are clamped to the edge.
func SampleScalar(p *Scalar, u, v float32) float32 {
	var out float32
	for _, t := range BilinearTaps(u*float32(p.Width), v*float32(p.Height)) {
		if t.Weight == 0 {
			continue
		}
		out += p.AtClamped(t.X, t.Y) * t.Weight
	}
	return out
}

// NearestMotion returns the motion vector of the pixel containing (u, v).
func NearestMotion(p *Motion, u, v float32) mgl32.Vec2 {
	x := int(math.Floor(float64(u * float32(p.Width))))
	y := int(math.Floor(float64(v * float32(p.Height))))
	return p.AtClamped(x, y)
}

// Luminance returns the Rec. 709 luminance of c.
func Luminance(c mgl32.Vec3) float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}
