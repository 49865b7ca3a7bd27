// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu runs the reflection stages as WGSL compute shaders on a
// gogpu/wgpu HAL device.
//
// The seven stages share one bind group layout:
//
//	@binding(0) uniform  params      frame constants and section offsets
//	@binding(1) storage  inputs      G-buffer, previous frame, depth pyramid, environment tables
//	@binding(2) storage  color       HDR target, three floats per pixel
//	@binding(3) storage  hist_prev   previous history role, three half2 words per pixel
//	@binding(4) storage  hist_cur    current history role
//	@binding(5) storage  counters    ray and tile append counters
//	@binding(6) storage  lists       reflective mask, ray list, tile list
//	@binding(7) storage  scratch     reprojected and filtered estimates, tile moments
//	@binding(8) storage  args        indirect dispatch arguments
//
// Classify and Apply dispatch one invocation per 8x8 tile. BuildArgs runs a
// single invocation that writes the indirect arguments consumed by
// Intersect (ray list) and by Reproject, Prefilter and Accumulate (tile
// list) through DispatchIndirect. The counters are zeroed by a buffer clear
// recorded ahead of the first pass, so every frame starts from zero.
//
// The CPU history set stays authoritative: each frame uploads the previous
// role and reads the current role back, so the pipeline can fall back to
// the CPU stages at any frame.
package gpu
