// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import "github.com/go-gl/mathgl/mgl32"

// Plane is a dense two-dimensional buffer of T stored in row-major order.
type Plane[T any] struct {
	Width  int
	Height int
	Pix    []T
}

// Common plane instantiations.
type (
	Scalar = Plane[float32]
	Color  = Plane[mgl32.Vec3]
	Vector = Plane[mgl32.Vec3]
	Motion = Plane[mgl32.Vec2]
	Mask   = Plane[uint8]
)

// NewPlane allocates a zeroed plane. Negative dimensions are treated as 0.
func NewPlane[T any](width, height int) *Plane[T] {
	width = max(width, 0)
	height = max(height, 0)
	return &Plane[T]{
		Width:  width,
		Height: height,
		Pix:    make([]T, width*height),
	}
}

// Index returns the offset of (x, y) into Pix. The coordinates are not checked.
func (p *Plane[T]) Index(x, y int) int {
	return y*p.Width + x
}

// InBounds reports whether (x, y) addresses a pixel of the plane.
func (p *Plane[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < p.Width && y < p.Height
}

// At returns the value at (x, y).
func (p *Plane[T]) At(x, y int) T {
	return p.Pix[y*p.Width+x]
}

// AtClamped returns the value at (x, y) with coordinates clamped to the edge.
func (p *Plane[T]) AtClamped(x, y int) T {
	x = clampInt(x, 0, p.Width-1)
	y = clampInt(y, 0, p.Height-1)
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y).
func (p *Plane[T]) Set(x, y int, v T) {
	p.Pix[y*p.Width+x] = v
}

// Row returns the pixels of row y.
func (p *Plane[T]) Row(y int) []T {
	return p.Pix[y*p.Width : (y+1)*p.Width]
}

// Clear resets every pixel to the zero value of T.
func (p *Plane[T]) Clear() {
	clear(p.Pix)
}

// Fill sets every pixel to v.
func (p *Plane[T]) Fill(v T) {
	for i := range p.Pix {
		p.Pix[i] = v
	}
}

// Clone returns a deep copy of the plane.
func (p *Plane[T]) Clone() *Plane[T] {
	if p == nil {
		return nil
	}
	c := &Plane[T]{Width: p.Width, Height: p.Height, Pix: make([]T, len(p.Pix))}
	copy(c.Pix, p.Pix)
	return c
}

// HasSize reports whether the plane is non-nil and has the given dimensions.
func (p *Plane[T]) HasSize(width, height int) bool {
	return p != nil && p.Width == width && p.Height == height
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
