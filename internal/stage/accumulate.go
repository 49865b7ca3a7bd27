// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// Accumulate blends the current ray result into the prefiltered history with
// weight 1/(1+n), where n is the reprojected sample count, updates the
// running luminance variance with the same weight and stores n+1 (capped)
// as the new sample count. Results are written to the current history role.
func Accumulate(f *Frame) {
	n := f.Lists.TileCount()
	forEachListed(f, f.Lists.TileArgs, n, func(i int) {
		accumulateTile(f, f.Lists.TileList[i])
	})
}

func accumulateTile(f *Frame, tile worklist.TileItem) {
	p := &f.Params
	s := f.Scratch
	cur := f.History.Current()

	t := f.tileIndex(tile)
	lo := s.TileMean[t].Sub(s.TileDeviation[t].Mul(p.HistoryClampSigma))
	hi := s.TileMean[t].Add(s.TileDeviation[t].Mul(p.HistoryClampSigma))

	forEachTilePixel(f, tile, func(_, _, idx int) {
		raw := cur.Radiance.Pix[idx]
		n := s.ReprojectedCount.Pix[idx]
		alpha := 1 / (1 + n)

		hist := s.Filtered.Pix[idx]
		if p.HistoryClampSigma > 0 {
			hist = clamp3(hist, lo, hi)
		}

		out := hist.Add(raw.Sub(hist).Mul(alpha))
		delta := surface.Luminance(raw) - surface.Luminance(hist)
		variance := (1 - alpha) * (s.FilteredVariance.Pix[idx] + alpha*delta*delta)

		cur.Radiance.Pix[idx] = out
		cur.Variance.Pix[idx] = variance
		cur.SampleCount.Pix[idx] = min(n+1, p.MaxSampleCount)
	})
}

func clamp3(v, lo, hi mgl32.Vec3) mgl32.Vec3 {
	for c := range 3 {
		v[c] = mgl32.Clamp(v[c], lo[c], hi[c])
	}
	return v
}
