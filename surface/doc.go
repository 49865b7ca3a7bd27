// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the screen-space inputs consumed by the
// reflection pipeline.
//
// All buffers are dense row-major planes ([Plane]) addressed in pixel
// coordinates with (0,0) at the top-left. Normalized coordinates (u, v)
// span [0, 1] with v pointing down, matching image rows.
//
// # Inputs
//
//   - [GBuffer]: depth, world-space normal, roughness, metalness,
//     base color and motion vectors of the current frame
//   - [Pyramid]: hierarchical min/max depth (HiZ)
//   - [Camera]: current and previous view-projection transforms
//   - [Environment]: the global sky light and probe captures
//   - [ProbeContext]: up to two local reflection probes
//
// # Depth Convention
//
// Depth is stored as device depth in [0, 1] with 0 at the near plane and
// 1 at the far plane. Pixels with depth >= 1 are sky and never reflect.
//
// # Usage
//
//	gb := surface.NewGBuffer(1280, 720)
//	// ... rasterize into gb ...
//	hiz := surface.BuildPyramid(gb.Depth)
package surface
