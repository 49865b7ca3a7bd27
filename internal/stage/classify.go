// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// tileSkyMip is the pyramid level whose cells cover one classification tile.
const tileSkyMip = 3

// quadOffsets lists the pixels of a 2x2 quad: base, horizontal, vertical
// and diagonal neighbor.
var quadOffsets = [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// Classify resets the counters and scans every 8x8 tile. Reflective pixels
// are appended to the ray list (or marked to copy their quad's base ray),
// and each tile holding at least one reflective pixel is appended once to
// the denoise-tile list.
//
// Classify also writes the current roughness of every pixel, and clears the
// current radiance, variance and sample count of non-reflective pixels.
func Classify(f *Frame) {
	f.Lists.Reset()

	tx, ty := worklist.TileGrid(f.Width, f.Height)
	f.Pool.Dispatch2D(tx, ty, func(gx, gy int) {
		classifyTile(f, gx, gy)
	})
}

func classifyTile(f *Frame, gx, gy int) {
	x0, y0, x1, y1 := f.tileBounds(gx, gy)

	if tileIsSky(f.HiZ, gx, gy) {
		clearTile(f, x0, y0, x1, y1)
		return
	}

	active := false
	for qy := y0; qy < y1; qy += 2 {
		for qx := x0; qx < x1; qx += 2 {
			if classifyQuad(f, qx, qy) {
				active = true
			}
		}
	}
	if active {
		f.Lists.AppendTile(worklist.PackTile(gx, gy))
	}
}

// tileIsSky consults the coarse pyramid level: a tile whose minimum depth is
// sky contains no reflective pixel.
func tileIsSky(hiz *surface.Pyramid, gx, gy int) bool {
	if hiz.Levels() <= tileSkyMip {
		return false
	}
	w, h := hiz.LevelSize(tileSkyMip)
	if gx >= w || gy >= h {
		return false
	}
	return surface.IsSky(hiz.MinAt(tileSkyMip, gx, gy))
}

func clearTile(f *Frame, x0, y0, x1, y1 int) {
	cur := f.History.Current()
	rough := f.GBuffer.Roughness
	for y := y0; y < y1; y++ {
		clear(f.Scratch.Mask.Row(y)[x0:x1])
		clear(cur.Radiance.Row(y)[x0:x1])
		clear(cur.Variance.Row(y)[x0:x1])
		clear(cur.SampleCount.Row(y)[x0:x1])
		copy(cur.Roughness.Row(y)[x0:x1], rough.Row(y)[x0:x1])
	}
}

// classifyQuad classifies one 2x2 quad and appends its rays. It reports
// whether any pixel of the quad is reflective.
func classifyQuad(f *Frame, qx, qy int) bool {
	p := &f.Params
	cur := f.History.Current()
	prev := f.History.Previous()
	gb := f.GBuffer

	var (
		inside     [4]bool
		reflective [4]bool
		index      [4]int
	)
	found := false
	for i, o := range quadOffsets {
		x, y := qx+o[0], qy+o[1]
		if x >= f.Width || y >= f.Height {
			continue
		}
		idx := y*f.Width + x
		inside[i] = true
		index[i] = idx

		rough := gb.Roughness.Pix[idx]
		cur.Roughness.Pix[idx] = rough

		refl := !surface.IsSky(gb.Depth.Pix[idx]) && rough < p.RoughnessThreshold
		reflective[i] = refl
		if refl {
			f.Scratch.Mask.Pix[idx] = 1
			found = true
			continue
		}
		f.Scratch.Mask.Pix[idx] = 0
		cur.Radiance.Pix[idx] = mgl32.Vec3{}
		cur.Variance.Pix[idx] = 0
		cur.SampleCount.Pix[idx] = 0
	}
	if !found {
		return false
	}

	var traces [4]bool
	for i := range quadOffsets {
		if !inside[i] || !reflective[i] {
			continue
		}
		traces[i] = isBaseRay(i, p.SamplesPerQuad) ||
			!reflective[0] ||
			(p.VarianceGuided && prev.Variance.Pix[index[i]] > p.VarianceThreshold)
	}

	for i, o := range quadOffsets {
		if !traces[i] {
			continue
		}
		var copyH, copyV, copyD bool
		if i == 0 {
			copyH = reflective[1] && !traces[1]
			copyV = reflective[2] && !traces[2]
			copyD = reflective[3] && !traces[3]
		}
		f.Lists.AppendRay(worklist.PackRay(qx+o[0], qy+o[1], copyH, copyV, copyD))
	}
	return true
}

// isBaseRay reports whether quad pixel i always traces for the given
// samples-per-quad setting.
func isBaseRay(i, samplesPerQuad int) bool {
	switch {
	case samplesPerQuad >= 4:
		return true
	case samplesPerQuad == 2:
		return i == 0 || i == 3
	default:
		return i == 0
	}
}
