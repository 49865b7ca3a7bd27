// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"

	"github.com/gogpu/ssr/internal/history"
)

// historyWords is the number of u32 words per pixel in a history buffer:
// (r, g), (b, variance), (roughness, sample count), each a half2.
const historyWords = 3

func packHalf2(a, b float32) uint32 {
	return uint32(float16.Fromfloat32(a).Bits()) | uint32(float16.Fromfloat32(b).Bits())<<16
}

func unpackHalf2(w uint32) (float32, float32) {
	return float16.Frombits(uint16(w)).Float32(), float16.Frombits(uint16(w >> 16)).Float32()
}

// packHistory encodes one history role into dst, which must hold
// historyWords words per pixel.
func packHistory(dst []byte, b *history.Buffers) {
	le := binary.LittleEndian
	for i, rad := range b.Radiance.Pix {
		o := i * historyWords * 4
		le.PutUint32(dst[o:], packHalf2(rad[0], rad[1]))
		le.PutUint32(dst[o+4:], packHalf2(rad[2], b.Variance.Pix[i]))
		le.PutUint32(dst[o+8:], packHalf2(b.Roughness.Pix[i], b.SampleCount.Pix[i]))
	}
}

// unpackHistory decodes a history buffer into one role.
func unpackHistory(src []byte, b *history.Buffers) {
	le := binary.LittleEndian
	for i := range b.Radiance.Pix {
		o := i * historyWords * 4
		r, g := unpackHalf2(le.Uint32(src[o:]))
		bl, variance := unpackHalf2(le.Uint32(src[o+4:]))
		rough, count := unpackHalf2(le.Uint32(src[o+8:]))
		b.Radiance.Pix[i] = mgl32.Vec3{r, g, bl}
		b.Variance.Pix[i] = variance
		b.Roughness.Pix[i] = rough
		b.SampleCount.Pix[i] = count
	}
}
