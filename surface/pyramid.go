// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import "math"

// Pyramid is a hierarchical depth buffer (HiZ). Each level halves the
// dimensions of the previous one and stores, per cell, the minimum and
// maximum device depth of the level-0 pixels it covers. Level 0 is the full
// resolution depth buffer.
type Pyramid struct {
	Min []*Scalar
	Max []*Scalar
}

// BuildPyramid builds a min/max pyramid from a depth plane. Levels are
// generated until the larger dimension reaches one texel. Odd dimensions
// fold the trailing row or column into the last cell so every level stays
// conservative.
//
// Returns nil if depth is nil or empty.
func BuildPyramid(depth *Scalar) *Pyramid {
	if depth == nil || depth.Width == 0 || depth.Height == 0 {
		return nil
	}

	maxDim := max(depth.Width, depth.Height)
	numLevels := 1 + int(math.Floor(math.Log2(float64(maxDim))))

	p := &Pyramid{
		Min: make([]*Scalar, numLevels),
		Max: make([]*Scalar, numLevels),
	}
	p.Min[0] = depth
	p.Max[0] = depth

	for i := 1; i < numLevels; i++ {
		p.Min[i], p.Max[i] = reduceLevel(p.Min[i-1], p.Max[i-1])
	}
	return p
}

// reduceLevel computes the next coarser level from a min/max pair.
func reduceLevel(srcMin, srcMax *Scalar) (*Scalar, *Scalar) {
	srcW, srcH := srcMin.Width, srcMin.Height
	dstW := max(1, srcW/2)
	dstH := max(1, srcH/2)

	dstMin := NewPlane[float32](dstW, dstH)
	dstMax := NewPlane[float32](dstW, dstH)

	for dy := range dstH {
		y0 := dy * 2
		y1 := min(y0+1, srcH-1)
		if dy == dstH-1 {
			y1 = srcH - 1
		}
		for dx := range dstW {
			x0 := dx * 2
			x1 := min(x0+1, srcW-1)
			if dx == dstW-1 {
				x1 = srcW - 1
			}

			lo := float32(math.MaxFloat32)
			hi := float32(-math.MaxFloat32)
			for sy := y0; sy <= y1; sy++ {
				for sx := x0; sx <= x1; sx++ {
					lo = min(lo, srcMin.At(sx, sy))
					hi = max(hi, srcMax.At(sx, sy))
				}
			}
			dstMin.Set(dx, dy, lo)
			dstMax.Set(dx, dy, hi)
		}
	}
	return dstMin, dstMax
}

// Levels returns the number of levels in the pyramid.
func (p *Pyramid) Levels() int {
	if p == nil {
		return 0
	}
	return len(p.Min)
}

// Size returns the dimensions of level 0.
func (p *Pyramid) Size() (width, height int) {
	if p == nil || len(p.Min) == 0 {
		return 0, 0
	}
	return p.Min[0].Width, p.Min[0].Height
}

// LevelSize returns the dimensions of the given level.
func (p *Pyramid) LevelSize(level int) (width, height int) {
	l := p.Min[level]
	return l.Width, l.Height
}

// MinAt returns the minimum depth of the cell (x, y) at the given level.
// Coordinates are clamped to the level bounds.
func (p *Pyramid) MinAt(level, x, y int) float32 {
	return p.Min[level].AtClamped(x, y)
}

// MaxAt returns the maximum depth of the cell (x, y) at the given level.
// Coordinates are clamped to the level bounds.
func (p *Pyramid) MaxAt(level, x, y int) float32 {
	return p.Max[level].AtClamped(x, y)
}
