// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package history owns the long-lived reflection history: radiance,
// variance, roughness and sample count, each held in a "current" and a
// "previous" role that are exchanged at the end of every frame.
package history

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/surface"
)

// Buffers is one role of the history set.
type Buffers struct {
	Radiance    *surface.Color
	Variance    *surface.Scalar
	Roughness   *surface.Scalar
	SampleCount *surface.Scalar
}

func newBuffers(width, height int) Buffers {
	return Buffers{
		Radiance:    surface.NewPlane[mgl32.Vec3](width, height),
		Variance:    surface.NewPlane[float32](width, height),
		Roughness:   surface.NewPlane[float32](width, height),
		SampleCount: surface.NewPlane[float32](width, height),
	}
}

// Set is the ping-pong history. Both roles always share one resolution.
//
// The zero value is an unallocated set; the first Ensure allocates it.
// Set is not safe for concurrent use.
type Set struct {
	roles  [2]Buffers
	parity int

	width, height int
	allocated     bool
}

// Ensure makes the set match the given resolution. On first use, after
// Invalidate, or when the resolution changes, both roles are reallocated
// and zeroed and Ensure reports a cold start.
func (s *Set) Ensure(width, height int) (cold bool) {
	if s.allocated && s.width == width && s.height == height {
		return false
	}
	s.roles[0] = newBuffers(width, height)
	s.roles[1] = newBuffers(width, height)
	s.parity = 0
	s.width, s.height = width, height
	s.allocated = true
	return true
}

// Current returns the role written this frame.
func (s *Set) Current() *Buffers {
	return &s.roles[s.parity]
}

// Previous returns the role written last frame.
func (s *Set) Previous() *Buffers {
	return &s.roles[s.parity^1]
}

// Swap exchanges the roles. No data is copied.
func (s *Set) Swap() {
	s.parity ^= 1
}

// Invalidate discards the history so the next Ensure cold-starts.
func (s *Set) Invalidate() {
	s.roles = [2]Buffers{}
	s.allocated = false
	s.parity = 0
}

// Allocated reports whether the set currently holds buffers.
func (s *Set) Allocated() bool {
	return s.allocated
}

// Size returns the resolution of both roles.
func (s *Set) Size() (width, height int) {
	return s.width, s.height
}
