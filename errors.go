// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ssr

import (
	"errors"
	"fmt"

	"github.com/gogpu/ssr/surface"
)

// Errors returned for caller misuse. Pipeline conditions such as a missing
// sky are not errors; they are reported through FrameStats.
var (
	// ErrNilFrame is returned by Render when the frame is nil.
	ErrNilFrame = errors.New("ssr: nil frame")

	// ErrMissingInput is returned when a required plane of the frame is nil.
	ErrMissingInput = surface.ErrMissingPlane

	// ErrSizeMismatch is returned when the planes of a frame disagree on size.
	ErrSizeMismatch = surface.ErrSizeMismatch

	// ErrInvalidConfig is returned by New when an option is out of range.
	ErrInvalidConfig = errors.New("ssr: invalid configuration")
)

// SkipReason explains why a frame was not processed.
type SkipReason uint8

const (
	// SkipNone means the frame was processed.
	SkipNone SkipReason = iota

	// SkipNoSky means the frame had no sky environment.
	SkipNoSky

	// SkipNoHistory means a previous-frame input (depth, normal or color)
	// was missing.
	SkipNoHistory

	// SkipHistoryInvalidated means the history was dropped this frame,
	// typically on a camera cut. The next frame cold-starts.
	SkipHistoryInvalidated
)

// String returns the name of the skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipNoSky:
		return "no-sky"
	case SkipNoHistory:
		return "no-history"
	case SkipHistoryInvalidated:
		return "history-invalidated"
	default:
		return fmt.Sprintf("SkipReason(%d)", r)
	}
}
