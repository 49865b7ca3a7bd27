// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package worklist

// RayItem is a packed ray work item: the pixel that traces the ray plus
// flags naming which other pixels of its 2x2 quad copy the result.
//
//	bits  0..14  x
//	bits 15..28  y
//	bit  29      copy to horizontal neighbor
//	bit  30      copy to vertical neighbor
//	bit  31      copy to diagonal neighbor
type RayItem uint32

// Coordinate limits imposed by the packing.
const (
	MaxRayX = 1<<15 - 1
	MaxRayY = 1<<14 - 1
)

const (
	rayXMask    = 1<<15 - 1
	rayYShift   = 15
	rayYMask    = 1<<14 - 1
	copyHBit    = 1 << 29
	copyVBit    = 1 << 30
	copyDiagBit = 1 << 31
)

// PackRay builds a ray item for pixel (x, y).
func PackRay(x, y int, copyH, copyV, copyDiag bool) RayItem {
	r := uint32(x&rayXMask) | uint32(y&rayYMask)<<rayYShift //nolint:gosec // masked
	if copyH {
		r |= copyHBit
	}
	if copyV {
		r |= copyVBit
	}
	if copyDiag {
		r |= copyDiagBit
	}
	return RayItem(r)
}

// X returns the pixel column.
func (r RayItem) X() int { return int(uint32(r) & rayXMask) }

// Y returns the pixel row.
func (r RayItem) Y() int { return int(uint32(r) >> rayYShift & rayYMask) }

// CopyHorizontal reports whether the horizontal quad neighbor reuses this ray.
func (r RayItem) CopyHorizontal() bool { return uint32(r)&copyHBit != 0 }

// CopyVertical reports whether the vertical quad neighbor reuses this ray.
func (r RayItem) CopyVertical() bool { return uint32(r)&copyVBit != 0 }

// CopyDiagonal reports whether the diagonal quad neighbor reuses this ray.
func (r RayItem) CopyDiagonal() bool { return uint32(r)&copyDiagBit != 0 }

// TileItem is a packed denoise tile: tile column in the low 16 bits and
// tile row in the high 16 bits.
type TileItem uint32

// PackTile builds a tile item for tile (tx, ty).
func PackTile(tx, ty int) TileItem {
	return TileItem(uint32(tx&0xffff) | uint32(ty&0xffff)<<16) //nolint:gosec // masked
}

// X returns the tile column.
func (t TileItem) X() int { return int(uint32(t) & 0xffff) }

// Y returns the tile row.
func (t TileItem) Y() int { return int(uint32(t) >> 16) }
