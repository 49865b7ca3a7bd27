// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "fmt"

// Stage identifies one compute pass of a frame, in dispatch order.
type Stage int

const (
	// StageClassify resets per-pixel state and appends rays and tiles.
	StageClassify Stage = iota

	// StageBuildArgs converts the counters into indirect arguments.
	StageBuildArgs

	// StageIntersect traces the ray list.
	StageIntersect

	// StageReproject resamples history for the tile list.
	StageReproject

	// StagePrefilter smooths the reprojected estimate.
	StagePrefilter

	// StageAccumulate blends the new sample into history.
	StageAccumulate

	// StageApply composites reflections into the color target.
	StageApply

	// StageCount is the number of stages.
	StageCount
)

// String returns the shader file stem of the stage.
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
