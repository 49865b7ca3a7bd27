// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ssr

import (
	"fmt"
	"time"
)

// Stage identifies one stage of the pipeline.
type Stage uint8

const (
	StageClassify Stage = iota
	StageBuildArgs
	StageIntersect
	StageReproject
	StagePrefilter
	StageAccumulate
	StageApply

	// StageCount is the number of stages.
	StageCount
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageClassify:
		return "classify"
	case StageBuildArgs:
		return "build_args"
	case StageIntersect:
		return "intersect"
	case StageReproject:
		return "reproject"
	case StagePrefilter:
		return "prefilter"
	case StageAccumulate:
		return "accumulate"
	case StageApply:
		return "apply"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// DispatchArgs is the group count of an indirect dispatch.
type DispatchArgs struct {
	X, Y, Z uint32
}

// FrameStats describes what Render did with a frame.
type FrameStats struct {
	Width, Height int

	// Skipped is set when a precondition was missing; nothing was written.
	Skipped bool
	Reason  SkipReason

	// ColdStart is set when the history was (re)allocated this frame.
	ColdStart bool

	// RayCount and TileCount are the final counter values.
	RayCount  uint32
	TileCount uint32

	RayArgs  DispatchArgs
	TileArgs DispatchArgs

	// Timings holds the duration of each stage: wall time on the CPU, pass
	// timestamps on the GPU. A GPU without timestamp queries reports the
	// whole submission under StageIntersect and leaves the rest zero.
	Timings [StageCount]time.Duration
	Total   time.Duration

	// Backend is "cpu" or "gpu".
	Backend string
}

// HitTime returns the time spent classifying and tracing.
func (s FrameStats) HitTime() time.Duration {
	return s.Timings[StageClassify] + s.Timings[StageBuildArgs] + s.Timings[StageIntersect]
}

// FilterTime returns the time spent denoising and compositing.
func (s FrameStats) FilterTime() time.Duration {
	return s.Timings[StageReproject] + s.Timings[StagePrefilter] +
		s.Timings[StageAccumulate] + s.Timings[StageApply]
}
