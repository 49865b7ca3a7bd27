// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

// pcgHash is the PCG output permutation used as a stateless per-pixel hash.
func pcgHash(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// hash2 returns two uniform values in [0, 1) for pixel (x, y) on a frame.
func hash2(x, y int, frame uint32) (float32, float32) {
	seed := pcgHash(uint32(x) ^ pcgHash(uint32(y)^pcgHash(frame))) //nolint:gosec // pixel coordinates are non-negative
	a := pcgHash(seed)
	b := pcgHash(a)
	return float32(a>>8) / (1 << 24), float32(b>>8) / (1 << 24)
}
