// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package debugview

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// Heat returns the color of t in [0, 1] on a black, blue, red, yellow ramp.
func Heat(t float32) color.RGBA {
	t = min(max(t, 0), 1)
	stops := [...]color.RGBA{
		{0, 0, 0, 0xff},
		{0x20, 0x40, 0xe0, 0xff},
		{0xe0, 0x30, 0x20, 0xff},
		{0xff, 0xf0, 0x40, 0xff},
	}
	f := t * float32(len(stops)-1)
	i := min(int(f), len(stops)-2)
	a, b := stops[i], stops[i+1]
	w := f - float32(i)
	mix := func(x, y uint8) uint8 { return uint8(float32(x) + (float32(y)-float32(x))*w + 0.5) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xff}
}

// TileCoverage returns the fraction of reflective pixels in each 8x8 tile
// as a tilesX by tilesY plane.
func TileCoverage(mask *surface.Mask) *surface.Scalar {
	tx, ty := worklist.TileGrid(mask.Width, mask.Height)
	cov := surface.NewPlane[float32](tx, ty)
	for y := range mask.Height {
		for x := range mask.Width {
			if mask.Pix[y*mask.Width+x] != 0 {
				cov.Pix[(y/worklist.TileSize)*tx+x/worklist.TileSize]++
			}
		}
	}
	for i := range cov.Pix {
		x0 := (i % tx) * worklist.TileSize
		y0 := (i / tx) * worklist.TileSize
		w := min(worklist.TileSize, mask.Width-x0)
		h := min(worklist.TileSize, mask.Height-y0)
		cov.Pix[i] /= float32(w * h)
	}
	return cov
}

// TileHeatMap renders TileCoverage at full frame resolution, one flat
// block per tile.
func TileHeatMap(mask *surface.Mask) *image.RGBA {
	cov := TileCoverage(mask)
	small := image.NewRGBA(image.Rect(0, 0, cov.Width, cov.Height))
	for i, v := range cov.Pix {
		small.SetRGBA(i%cov.Width, i/cov.Width, Heat(v))
	}
	return upscale(small, cov.Width*worklist.TileSize, cov.Height*worklist.TileSize, mask.Width, mask.Height)
}

// SampleCountMap renders accumulated sample counts, saturating at limit.
func SampleCountMap(counts *surface.Scalar, limit float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, counts.Width, counts.Height))
	if limit <= 0 {
		return img
	}
	for i, n := range counts.Pix {
		img.SetRGBA(i%counts.Width, i/counts.Width, Heat(n/limit))
	}
	return img
}

// upscale scales src to w by h with nearest-neighbour sampling and crops the
// result to cw by ch.
func upscale(src image.Image, w, h, cw, ch int) *image.RGBA {
	full := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(full, full.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return full.SubImage(image.Rect(0, 0, cw, ch)).(*image.RGBA)
}
