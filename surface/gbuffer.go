// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Errors returned by input validation.
var (
	// ErrMissingPlane is returned when a required plane is nil.
	ErrMissingPlane = errors.New("surface: missing plane")

	// ErrSizeMismatch is returned when planes of one frame disagree on size.
	ErrSizeMismatch = errors.New("surface: plane size mismatch")
)

// GBuffer holds the per-pixel surface attributes of the current frame.
type GBuffer struct {
	// Depth is device depth in [0, 1]; 1 marks sky.
	Depth *Scalar

	// Normal is the unit world-space normal.
	Normal *Vector

	// Roughness is perceptual roughness in [0, 1].
	Roughness *Scalar

	// Metalness in [0, 1].
	Metalness *Scalar

	// BaseColor is linear albedo.
	BaseColor *Color

	// Velocity is the screen motion in normalized coordinates, current
	// position minus previous position.
	Velocity *Motion
}

// NewGBuffer allocates a zeroed G-buffer with all planes at the given size.
func NewGBuffer(width, height int) *GBuffer {
	return &GBuffer{
		Depth:     NewPlane[float32](width, height),
		Normal:    NewPlane[mgl32.Vec3](width, height),
		Roughness: NewPlane[float32](width, height),
		Metalness: NewPlane[float32](width, height),
		BaseColor: NewPlane[mgl32.Vec3](width, height),
		Velocity:  NewPlane[mgl32.Vec2](width, height),
	}
}

// Size returns the dimensions of the depth plane.
func (g *GBuffer) Size() (width, height int) {
	if g == nil || g.Depth == nil {
		return 0, 0
	}
	return g.Depth.Width, g.Depth.Height
}

// Validate checks that every plane is present and shares the depth plane's size.
func (g *GBuffer) Validate() error {
	if g == nil || g.Depth == nil {
		return fmt.Errorf("%w: depth", ErrMissingPlane)
	}
	w, h := g.Size()
	checks := []struct {
		name    string
		present bool
		sized   bool
	}{
		{"normal", g.Normal != nil, g.Normal.HasSize(w, h)},
		{"roughness", g.Roughness != nil, g.Roughness.HasSize(w, h)},
		{"metalness", g.Metalness != nil, g.Metalness.HasSize(w, h)},
		{"base color", g.BaseColor != nil, g.BaseColor.HasSize(w, h)},
		{"velocity", g.Velocity != nil, g.Velocity.HasSize(w, h)},
	}
	for _, c := range checks {
		if !c.present {
			return fmt.Errorf("%w: %s", ErrMissingPlane, c.name)
		}
		if !c.sized {
			return fmt.Errorf("%w: %s is not %dx%d", ErrSizeMismatch, c.name, w, h)
		}
	}
	return nil
}

// IsSky reports whether a device depth value belongs to the sky.
func IsSky(depth float32) bool {
	return depth >= 1
}
