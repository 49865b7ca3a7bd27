// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/history"
	"github.com/gogpu/ssr/internal/stage"
	"github.com/gogpu/ssr/internal/synth"
	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// testFrame renders a mirror floor seen from above into a frame whose
// previous-frame inputs equal the current ones.
func testFrame(t *testing.T, w, h int) *stage.Frame {
	t.Helper()
	scene := &synth.Scene{
		Planes: []synth.Plane{{
			Normal:   mgl32.Vec3{0, 1, 0},
			Material: synth.Material{BaseColor: mgl32.Vec3{0.8, 0.8, 0.8}, Metalness: 1},
		}},
		Sky: surface.DefaultSky(),
	}
	cam := surface.NewCamera(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1},
		mgl32.DegToRad(60), float32(w)/float32(h), 0.1, 100)
	out := scene.Render(nil, cam, w, h)

	hs := &history.Set{}
	hs.Ensure(w, h)
	return &stage.Frame{
		Width: w, Height: h,
		GBuffer:    out.GBuffer,
		HiZ:        out.HiZ,
		AO:         out.AO,
		PrevDepth:  out.GBuffer.Depth.Clone(),
		PrevNormal: out.GBuffer.Normal.Clone(),
		PrevColor:  out.Color.Clone(),
		Color:      out.Color,
		Camera:     cam,
		Sky:        scene.Sky,
		History:    hs,
		Lists:      worklist.NewLists(w, h),
		Scratch:    stage.NewScratch(w, h),
		Params: stage.Params{
			RoughnessThreshold: 0.2,
			SamplesPerQuad:     4,
			MaxMarchSteps:      64,
			Thickness:          0.1,
			MaxSampleCount:     32,
			SeedSampleCount:    1,
			PrefilterRadius:    1,
			Intensity:          1,
		},
		FrameIndex: 3,
	}
}

func TestNewFrameLayout(t *testing.T) {
	f := testFrame(t, 20, 12)
	l := newFrameLayout(f)
	n := uint32(20 * 12)

	if l.tilesX != 3 || l.tilesY != 2 {
		t.Errorf("tiles = %dx%d, want 3x2", l.tilesX, l.tilesY)
	}
	if l.hizLevels != f.HiZ.Levels() {
		t.Errorf("hizLevels = %d, want %d", l.hizLevels, f.HiZ.Levels())
	}
	if l.hiz[0] != [3]uint32{0, 20, 12} {
		t.Errorf("hiz[0] = %v, want [0 20 12]", l.hiz[0])
	}

	var hizWords uint32
	for i := range f.HiZ.Levels() {
		w, h := f.HiZ.LevelSize(i)
		if l.hiz[i][0] != hizWords {
			t.Errorf("hiz[%d] offset = %d, want %d", i, l.hiz[i][0], hizWords)
		}
		hizWords += uint32(w * h) //nolint:gosec // test sizes
	}

	want := [sectionCount]uint32{
		secDepth:       0,
		secNormal:      n,
		secRoughness:   4 * n,
		secBaseColor:   5 * n,
		secMetalness:   8 * n,
		secVelocity:    9 * n,
		secAO:          11 * n,
		secPrevDepth:   12 * n,
		secPrevNormal:  13 * n,
		secPrevColor:   16 * n,
		secHiZ:         19 * n,
		secEnvironment: 19*n + hizWords,
	}
	if l.offsets != want {
		t.Errorf("offsets = %v, want %v", l.offsets, want)
	}
	if got, want := l.inputWords, int(19*n+hizWords)+3*envTables*envTexels; got != want {
		t.Errorf("inputWords = %d, want %d", got, want)
	}
	if got := uint64(len(packInputs(f, &l))); got != l.inputBytes() {
		t.Errorf("packed inputs = %d bytes, want %d", got, l.inputBytes())
	}
}

func TestEncodeUniforms(t *testing.T) {
	f := testFrame(t, 20, 12)
	l := newFrameLayout(f)
	buf := encodeUniforms(f, &l)
	if len(buf) != uniformSize {
		t.Fatalf("uniform size = %d, want %d", len(buf), uniformSize)
	}

	le := binary.LittleEndian
	word := func(off int) uint32 { return le.Uint32(buf[off:]) }
	float := func(off int) float32 { return math.Float32frombits(word(off)) }

	if got := float(0); got != f.Camera.InvViewProj[0] {
		t.Errorf("inv_view_proj[0] = %v, want %v", got, f.Camera.InvViewProj[0])
	}
	if got := float(12 * 16); got != f.Camera.Position[0] {
		t.Errorf("camera.x = %v, want %v", got, f.Camera.Position[0])
	}

	// size, misc and flags follow the three matrices and the camera.
	const sizeOff = 3*64 + 16
	if word(sizeOff) != 20 || word(sizeOff+4) != 12 || word(sizeOff+8) != 3 || word(sizeOff+12) != 2 {
		t.Errorf("size = %d %d %d %d, want 20 12 3 2",
			word(sizeOff), word(sizeOff+4), word(sizeOff+8), word(sizeOff+12))
	}
	if got := word(sizeOff + 16 + 12); got != f.FrameIndex {
		t.Errorf("frame index = %d, want %d", got, f.FrameIndex)
	}
	if got := word(sizeOff + 32); got != 4 {
		t.Errorf("samples per quad = %d, want 4", got)
	}
	if got := float(sizeOff + 48 + 12); got != f.Camera.Far {
		t.Errorf("far = %v, want %v", got, f.Camera.Far)
	}

	const offsetsOff = sizeOff + 6*16
	if got := word(offsetsOff + 4*secNormal); got != l.offsets[secNormal] {
		t.Errorf("normal offset = %d, want %d", got, l.offsets[secNormal])
	}
	const hizOff = offsetsOff + 3*16
	if word(hizOff+4) != 20 || word(hizOff+8) != 12 {
		t.Errorf("hiz level 0 = %dx%d, want 20x12", word(hizOff+4), word(hizOff+8))
	}
	// No probes: both slots are zero.
	for off := hizOff + 16*maxHiZLevels; off < uniformSize; off += 4 {
		if word(off) != 0 {
			t.Fatalf("probe word at %d = %d, want 0", off, word(off))
		}
	}
}

func TestPackInputs_MissingAO(t *testing.T) {
	f := testFrame(t, 8, 8)
	f.AO = nil
	l := newFrameLayout(f)
	buf := packInputs(f, &l)
	for i := range l.pixels() {
		o := 4 * (int(l.offsets[secAO]) + i)
		if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[o:])); got != 1 {
			t.Fatalf("ao[%d] = %v, want 1", i, got)
		}
	}
}

func TestHalfPacking(t *testing.T) {
	tests := []struct{ a, b float32 }{
		{0, 0},
		{1.5, -32},
		{0.125, 1024},
		{65504, -0.5},
	}
	for _, tt := range tests {
		a, b := unpackHalf2(packHalf2(tt.a, tt.b))
		if a != tt.a || b != tt.b {
			t.Errorf("half2(%v, %v) round trip = (%v, %v)", tt.a, tt.b, a, b)
		}
	}
	if w := packHalf2(1, 0); w != 0x3c00 {
		t.Errorf("packHalf2(1, 0) = %#x, want 0x3c00", w)
	}
}

func TestHistoryPacking(t *testing.T) {
	var src, dst history.Set
	src.Ensure(3, 2)
	dst.Ensure(3, 2)
	b := src.Current()
	for i := range b.Radiance.Pix {
		fi := float32(i)
		b.Radiance.Pix[i] = mgl32.Vec3{fi, fi / 2, fi / 4}
		b.Variance.Pix[i] = fi / 8
		b.Roughness.Pix[i] = 0.25
		b.SampleCount.Pix[i] = fi + 1
	}

	buf := make([]byte, historyWords*4*6)
	packHistory(buf, b)
	got := dst.Current()
	unpackHistory(buf, got)

	for i := range b.Radiance.Pix {
		if got.Radiance.Pix[i] != b.Radiance.Pix[i] ||
			got.Variance.Pix[i] != b.Variance.Pix[i] ||
			got.Roughness.Pix[i] != b.Roughness.Pix[i] ||
			got.SampleCount.Pix[i] != b.SampleCount.Pix[i] {
			t.Errorf("pixel %d: got (%v %v %v %v), want (%v %v %v %v)", i,
				got.Radiance.Pix[i], got.Variance.Pix[i], got.Roughness.Pix[i], got.SampleCount.Pix[i],
				b.Radiance.Pix[i], b.Variance.Pix[i], b.Roughness.Pix[i], b.SampleCount.Pix[i])
		}
	}
}

func TestColorPacking(t *testing.T) {
	c := surface.NewPlane[mgl32.Vec3](2, 2)
	c.Pix = []mgl32.Vec3{{1, 2, 3}, {0.1, 0.2, 0.3}, {}, {1e6, -1, 7}}
	buf := packColor(c)
	if len(buf) != 48 {
		t.Fatalf("packed %d bytes, want 48", len(buf))
	}
	out := surface.NewPlane[mgl32.Vec3](2, 2)
	unpackColor(buf, out)
	for i := range c.Pix {
		if out.Pix[i] != c.Pix[i] {
			t.Errorf("pixel %d = %v, want %v", i, out.Pix[i], c.Pix[i])
		}
	}
}
