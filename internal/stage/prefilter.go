// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

const (
	// prefilterLumaSigma scales the luminance edge-stopping by the center's
	// standard deviation.
	prefilterLumaSigma = 4

	// prefilterDepthSigma is the relative view-depth difference at which a
	// neighbor's weight falls to 1/e.
	prefilterDepthSigma = 0.05

	prefilterNormalPower = 32
)

// Prefilter smooths the reprojected estimate of every reflective pixel of the
// denoise-tile list with a small edge-aware kernel. Neighbor weights scale
// with the center's relative variance and with how far its sample count is
// from MaxSampleCount: fresh pixels are smoothed hard, converged pixels
// pass through unchanged.
func Prefilter(f *Frame) {
	n := f.Lists.TileCount()
	forEachListed(f, f.Lists.TileArgs, n, func(i int) {
		prefilterTile(f, f.Lists.TileList[i])
	})
}

func prefilterTile(f *Frame, tile worklist.TileItem) {
	s := f.Scratch
	radius := f.Params.PrefilterRadius

	forEachTilePixel(f, tile, func(x, y, idx int) {
		center := s.Reprojected.Pix[idx]
		cVar := s.ReprojectedVariance.Pix[idx]
		strength := filterStrength(s.ReprojectedCount.Pix[idx], f.Params.MaxSampleCount)
		if cVar <= 0 || radius <= 0 || strength <= 0 {
			s.Filtered.Pix[idx] = center
			s.FilteredVariance.Pix[idx] = cVar
			return
		}
		s.Filtered.Pix[idx], s.FilteredVariance.Pix[idx] = filterPixel(f, x, y, idx, radius, strength)
	})
}

// filterStrength is 1 for a pixel without history and 0 once it has
// accumulated the maximum sample count.
func filterStrength(samples, maxSamples float32) float32 {
	if maxSamples <= 0 {
		return 0
	}
	return 1 - min(max(samples/maxSamples, 0), 1)
}

func filterPixel(f *Frame, x, y, idx, radius int, strength float32) (mgl32.Vec3, float32) {
	s := f.Scratch
	gb := f.GBuffer
	cam := f.Camera

	center := s.Reprojected.Pix[idx]
	cVar := s.ReprojectedVariance.Pix[idx]
	cLum := surface.Luminance(center)
	cDepth := cam.LinearDepth(gb.Depth.Pix[idx])
	cNormal := gb.Normal.Pix[idx]
	lumSigma := prefilterLumaSigma*float32(math.Sqrt(float64(cVar))) + 1e-4

	acc := center
	accVar := cVar
	wSum := float32(1)

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			qx, qy := x+dx, y+dy
			if qx < 0 || qy < 0 || qx >= f.Width || qy >= f.Height {
				continue
			}
			q := qy*f.Width + qx
			if s.Mask.Pix[q] == 0 {
				continue
			}

			qVar := s.ReprojectedVariance.Pix[q]
			qRad := s.Reprojected.Pix[q]

			dDepth := abs32(cam.LinearDepth(gb.Depth.Pix[q])-cDepth) / (cDepth*prefilterDepthSigma + 1e-6)
			wDepth := float32(math.Exp(-float64(dDepth)))
			wNormal := float32(math.Pow(float64(max(cNormal.Dot(gb.Normal.Pix[q]), 0)), prefilterNormalPower))
			wLum := float32(math.Exp(-float64(abs32(surface.Luminance(qRad)-cLum) / lumSigma)))
			confidence := cVar / (cVar + qVar + 1e-6)

			w := wDepth * wNormal * wLum * confidence * strength
			if w <= 0 {
				continue
			}
			acc = acc.Add(qRad.Mul(w))
			accVar += qVar * w * w
			wSum += w
		}
	}

	return acc.Mul(1 / wSum), accVar / (wSum * wSum)
}
