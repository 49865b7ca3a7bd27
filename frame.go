// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ssr

import (
	"fmt"

	"github.com/gogpu/ssr/surface"
)

// Frame holds the inputs of one frame and the color target reflections are
// added to. Planes are owned by the caller; Render only writes Color.
type Frame struct {
	GBuffer *surface.GBuffer

	// HiZ is the min/max depth pyramid of GBuffer.Depth. If nil it is
	// built from the depth plane.
	HiZ *surface.Pyramid

	// AO is ambient occlusion in [0, 1]. Optional; nil means unoccluded.
	AO *surface.Scalar

	// Previous frame's depth, normal and final color. All three are
	// required; a frame without them is skipped.
	PrevDepth  *surface.Scalar
	PrevNormal *surface.Vector
	PrevColor  *surface.Color

	// Color is the HDR target.
	Color *surface.Color

	// Camera must carry last frame's view-projection in PrevViewProj.
	Camera surface.Camera

	// Sky is the global environment. A frame without one is skipped.
	Sky surface.Environment

	// Probes are local reflection captures blended over the sky.
	Probes surface.ProbeContext

	// HistoryInvalidated drops the temporal history and skips the frame.
	HistoryInvalidated bool
}

// validateTarget checks the inputs needed before any skip decision.
func (f *Frame) validateTarget() error {
	if f.GBuffer == nil {
		return fmt.Errorf("ssr: gbuffer: %w", ErrMissingInput)
	}
	if err := f.GBuffer.Validate(); err != nil {
		return fmt.Errorf("ssr: %w", err)
	}
	w, h := f.GBuffer.Size()
	if f.Color == nil {
		return fmt.Errorf("ssr: color: %w", ErrMissingInput)
	}
	if !f.Color.HasSize(w, h) {
		return fmt.Errorf("ssr: color is %dx%d, gbuffer is %dx%d: %w",
			f.Color.Width, f.Color.Height, w, h, ErrSizeMismatch)
	}
	return nil
}

// validateInputs checks the optional and previous-frame planes.
func (f *Frame) validateInputs() error {
	w, h := f.GBuffer.Size()
	checks := []struct {
		name    string
		present bool
		sized   bool
	}{
		{"prev depth", f.PrevDepth != nil, f.PrevDepth.HasSize(w, h)},
		{"prev normal", f.PrevNormal != nil, f.PrevNormal.HasSize(w, h)},
		{"prev color", f.PrevColor != nil, f.PrevColor.HasSize(w, h)},
		{"ao", f.AO != nil, f.AO.HasSize(w, h)},
	}
	for _, c := range checks {
		if c.present && !c.sized {
			return fmt.Errorf("ssr: %s: %w", c.name, ErrSizeMismatch)
		}
	}
	if f.HiZ != nil {
		if pw, ph := f.HiZ.Size(); pw != w || ph != h {
			return fmt.Errorf("ssr: hiz is %dx%d, gbuffer is %dx%d: %w", pw, ph, w, h, ErrSizeMismatch)
		}
	}
	if err := f.Probes.Validate(); err != nil {
		return fmt.Errorf("ssr: %w", err)
	}
	return nil
}

// skipReason evaluates the frame preconditions, once, before any stage.
func (f *Frame) skipReason() SkipReason {
	switch {
	case f.HistoryInvalidated:
		return SkipHistoryInvalidated
	case surface.IsNilEnvironment(f.Sky):
		return SkipNoSky
	case f.PrevDepth == nil || f.PrevNormal == nil || f.PrevColor == nil:
		return SkipNoHistory
	default:
		return SkipNone
	}
}
