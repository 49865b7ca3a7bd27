// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ssr implements a dynamic-workload screen-space reflection pass.
//
// # Overview
//
// A Pipeline turns a G-buffer, a hierarchical depth pyramid and the previous
// frame's color into glossy reflections that are added to the HDR color
// target. Each frame runs seven stages separated by barriers:
//
//  1. Classify   -- find reflective pixels, compact them into a ray list and
//     a denoise-tile list using two atomic counters
//  2. BuildArgs  -- turn the counters into indirect dispatch sizes
//  3. Intersect  -- march the depth pyramid for each listed ray
//  4. Reproject  -- fetch last frame's estimate through the motion vectors
//  5. Prefilter  -- variance-guided spatial smoothing of that estimate
//  6. Accumulate -- blend the new sample into the temporal history
//  7. Apply      -- add the denoised radiance to the color target
//
// Only pixels that need a ray pay for one: the work of stages 3 to 6 is
// sized by the counters, never by the screen.
//
// # Quick Start
//
//	p, err := ssr.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	stats, err := p.Render(&ssr.Frame{
//	    GBuffer:    gbuf,
//	    PrevDepth:  prevDepth,
//	    PrevNormal: prevNormal,
//	    PrevColor:  prevColor,
//	    Color:      hdr,
//	    Camera:     cam,
//	    Sky:        surface.DefaultSky(),
//	})
//
// # History
//
// The pipeline owns a ping-pong history (radiance, variance, roughness and
// sample count). A resolution change reallocates it and is reported as a cold
// start; Frame.HistoryInvalidated (for example on a camera cut) drops it and
// skips the frame.
//
// # GPU
//
// WithDevice runs the stages as WGSL compute shaders on a shared HAL device.
// If the device cannot be used the pipeline logs a warning and stays on the
// CPU path, which implements the same stages on a work-stealing pool.
//
// # Logging
//
// The package is silent by default. Use SetLogger to enable log/slog output.
package ssr
