// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// minTapWeight is the accumulated bilinear weight below which reprojection
// counts as a disocclusion.
const minTapWeight = 0.05

// Reproject resamples the previous radiance, variance and sample count for
// every reflective pixel of the denoise-tile list. Each bilinear tap is
// validated against depth, normal and roughness; when no tap survives the
// pixel is disoccluded and restarts from the current ray result with the
// seed sample count and widened variance.
//
// Reproject also records the mean and deviation of the raw radiance per
// tile, used later to clamp history.
func Reproject(f *Frame) {
	n := f.Lists.TileCount()
	forEachListed(f, f.Lists.TileArgs, n, func(i int) {
		reprojectTile(f, f.Lists.TileList[i])
	})
}

func reprojectTile(f *Frame, tile worklist.TileItem) {
	p := &f.Params
	s := f.Scratch
	cur := f.History.Current()

	var sum, sumSq mgl32.Vec3
	count := 0

	forEachTilePixel(f, tile, func(x, y, idx int) {
		raw := cur.Radiance.Pix[idx]
		sum = sum.Add(raw)
		sumSq = sumSq.Add(mul3(raw, raw))
		count++

		rad, variance, samples, ok := reprojectPixel(f, x, y, idx)
		if !ok {
			rad = raw
			variance = p.DisocclusionVariance
			samples = max(p.SeedSampleCount-1, 0)
		}
		s.Reprojected.Pix[idx] = rad
		s.ReprojectedVariance.Pix[idx] = variance
		s.ReprojectedCount.Pix[idx] = samples
	})

	t := f.tileIndex(tile)
	if count == 0 {
		s.TileMean[t] = mgl32.Vec3{}
		s.TileDeviation[t] = mgl32.Vec3{}
		return
	}
	inv := 1 / float32(count)
	mean := sum.Mul(inv)
	meanSq := sumSq.Mul(inv)
	var dev mgl32.Vec3
	for c := range 3 {
		dev[c] = float32(math.Sqrt(float64(max(meanSq[c]-mean[c]*mean[c], 0))))
	}
	s.TileMean[t] = mean
	s.TileDeviation[t] = dev
}

// reprojectPixel blends the valid previous-frame taps under pixel (x, y).
func reprojectPixel(f *Frame, x, y, idx int) (mgl32.Vec3, float32, float32, bool) {
	p := &f.Params
	gb := f.GBuffer
	prev := f.History.Previous()
	w, h := float32(f.Width), float32(f.Height)

	vel := gb.Velocity.Pix[idx]
	px := float32(x) + 0.5 - vel[0]*w
	py := float32(y) + 0.5 - vel[1]*h

	depth := gb.Depth.Pix[idx]
	normal := gb.Normal.Pix[idx]
	rough := gb.Roughness.Pix[idx]

	// Expected distance of this surface point from last frame's camera.
	u, v := surface.PixelUV(x, y, f.Width, f.Height)
	expected := f.Camera.LinearDepth(depth)
	if _, prevDepth, ok := f.Camera.ProjectPrevious(f.Camera.Unproject(u, v, depth)); ok {
		expected = f.Camera.LinearDepth(prevDepth)
	}

	var (
		rad      mgl32.Vec3
		variance float32
		samples  float32
		weight   float32
	)
	for _, tap := range surface.BilinearTaps(px, py) {
		if tap.Weight <= 1e-4 || !prev.SampleCount.InBounds(tap.X, tap.Y) {
			continue
		}
		pi := tap.Y*f.Width + tap.X
		if prev.SampleCount.Pix[pi] <= 0 {
			continue
		}
		if !tapMatches(f, pi, expected, normal, rough) {
			continue
		}
		rad = rad.Add(prev.Radiance.Pix[pi].Mul(tap.Weight))
		variance += prev.Variance.Pix[pi] * tap.Weight
		samples += prev.SampleCount.Pix[pi] * tap.Weight
		weight += tap.Weight
	}
	if weight < minTapWeight {
		return mgl32.Vec3{}, 0, 0, false
	}

	inv := 1 / weight
	samples = float32(math.Round(float64(samples * inv)))
	return rad.Mul(inv), variance * inv, min(samples, p.MaxSampleCount), true
}

// tapMatches is the disocclusion test for one previous-frame pixel.
func tapMatches(f *Frame, pi int, expected float32, normal mgl32.Vec3, rough float32) bool {
	p := &f.Params
	prevDepth := f.PrevDepth.Pix[pi]
	if surface.IsSky(prevDepth) {
		return false
	}
	lin := f.Camera.LinearDepth(prevDepth)
	if abs32(lin-expected) > p.DepthTolerance*max(expected, 1e-6) {
		return false
	}
	if f.PrevNormal.Pix[pi].Dot(normal) < p.NormalTolerance {
		return false
	}
	return abs32(f.History.Previous().Roughness.Pix[pi]-rough) <= p.RoughnessTolerance
}

func mul3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
