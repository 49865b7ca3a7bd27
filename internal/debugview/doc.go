// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package debugview turns pipeline buffers into 8-bit images for
// inspection: tone-mapped color, per-tile classification heat maps and
// sample-count maps, composed side by side with labels.
package debugview
