// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import "github.com/gogpu/ssr/internal/worklist"

// BuildArgs converts the classification counters into the indirect
// arguments of the ray and denoise-tile dispatches. It is a single
// invocation and must run between Classify and Intersect.
func BuildArgs(f *Frame) {
	worklist.BuildArgs(f.Lists)
}
