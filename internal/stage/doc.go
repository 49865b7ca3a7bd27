// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stage implements the compute stages of the screen-space
// reflection pipeline as stateless functions over an explicit per-frame
// context.
//
// Every stage is one dispatch on a parallel.Pool. Dispatch returns only
// when all groups have finished, so the sequence
//
//	Classify -> BuildArgs -> Intersect -> Reproject -> Prefilter -> Accumulate -> Apply
//
// forms a strict happens-before chain. Intersect, Reproject, Prefilter and
// Accumulate are indirect: their group counts come from the arguments that
// BuildArgs derived from the classification counters, never from the caller.
package stage
