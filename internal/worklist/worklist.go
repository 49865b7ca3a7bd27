// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package worklist implements the frame-scoped work lists of the reflection
// pipeline: two atomic counters, the ray and denoise-tile lists they index,
// and the indirect dispatch arguments derived from them.
//
// Appends follow the stream-compaction pattern: a fetch-and-add on the
// counter reserves a slot in a pre-sized list, so concurrent producers never
// contend on anything but the counter itself.
package worklist

import "sync/atomic"

const (
	// TileSize is the edge length of a classification tile in pixels.
	TileSize = 8

	// GroupSize is the number of work items one dispatch group consumes.
	GroupSize = 64
)

// Counters holds the two frame-scoped append counters.
type Counters struct {
	rays  atomic.Uint32
	tiles atomic.Uint32
}

// Reset zeroes both counters. Must run exactly once per frame, before any append.
func (c *Counters) Reset() {
	c.rays.Store(0)
	c.tiles.Store(0)
}

// Store sets both counters, for counts produced outside this package.
func (c *Counters) Store(rays, tiles uint32) {
	c.rays.Store(rays)
	c.tiles.Store(tiles)
}

// Rays returns the number of ray appends this frame.
func (c *Counters) Rays() uint32 { return c.rays.Load() }

// Tiles returns the number of denoise-tile appends this frame.
func (c *Counters) Tiles() uint32 { return c.tiles.Load() }

// Lists owns the ray and tile lists for one resolution.
type Lists struct {
	Counters

	RayList  []RayItem
	TileList []TileItem

	// RayArgs and TileArgs are written by BuildArgs.
	RayArgs  IndirectArgs
	TileArgs IndirectArgs

	width, height int
}

// NewLists allocates lists sized for a width by height frame.
func NewLists(width, height int) *Lists {
	l := &Lists{}
	l.Ensure(width, height)
	return l
}

// TileGrid returns the number of 8x8 tiles covering a width by height frame.
func TileGrid(width, height int) (tilesX, tilesY int) {
	return (width + TileSize - 1) / TileSize, (height + TileSize - 1) / TileSize
}

// Ensure resizes the lists for a new resolution. Existing contents are
// discarded when the size changes.
func (l *Lists) Ensure(width, height int) {
	if l.width == width && l.height == height && l.RayList != nil {
		return
	}
	tx, ty := TileGrid(width, height)
	l.RayList = make([]RayItem, width*height)
	l.TileList = make([]TileItem, tx*ty)
	l.width, l.height = width, height
	l.Reset()
	l.RayArgs = IndirectArgs{}
	l.TileArgs = IndirectArgs{}
}

// Size returns the resolution the lists are sized for.
func (l *Lists) Size() (width, height int) {
	return l.width, l.height
}

// AppendRay reserves the next ray slot and stores item in it.
// It reports false if the list is full.
func (l *Lists) AppendRay(item RayItem) bool {
	idx := l.rays.Add(1) - 1
	if int(idx) >= len(l.RayList) {
		l.rays.Add(^uint32(0))
		return false
	}
	l.RayList[idx] = item
	return true
}

// AppendTile reserves the next tile slot and stores item in it.
// It reports false if the list is full.
func (l *Lists) AppendTile(item TileItem) bool {
	idx := l.tiles.Add(1) - 1
	if int(idx) >= len(l.TileList) {
		l.tiles.Add(^uint32(0))
		return false
	}
	l.TileList[idx] = item
	return true
}

// RayCount returns the number of valid entries in RayList.
func (l *Lists) RayCount() int {
	return min(int(l.Rays()), len(l.RayList))
}

// TileCount returns the number of valid entries in TileList.
func (l *Lists) TileCount() int {
	return min(int(l.Tiles()), len(l.TileList))
}
