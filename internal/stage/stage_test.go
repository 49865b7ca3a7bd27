// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/history"
	"github.com/gogpu/ssr/internal/parallel"
	"github.com/gogpu/ssr/internal/synth"
	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

func testParams() Params {
	return Params{
		RoughnessThreshold:   0.2,
		SamplesPerQuad:       4,
		MostDetailedMip:      0,
		MaxMarchSteps:        128,
		Thickness:            0.1,
		MaxSampleCount:       32,
		SeedSampleCount:      1,
		DepthTolerance:       0.1,
		NormalTolerance:      0.9,
		RoughnessTolerance:   0.1,
		DisocclusionVariance: 1,
		PrefilterRadius:      1,
		HistoryClampSigma:    0,
		Intensity:            1,
	}
}

func floor(roughness float32) *synth.Scene {
	return &synth.Scene{
		Planes: []synth.Plane{{
			Point: mgl32.Vec3{}, Normal: mgl32.Vec3{0, 1, 0},
			Material: synth.Material{BaseColor: mgl32.Vec3{0.5, 0.5, 0.5}, Roughness: roughness, Metalness: 1},
		}},
		Sky: surface.DefaultSky(),
	}
}

func topDown(w, h int) surface.Camera {
	return surface.NewCamera(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1},
		mgl32.DegToRad(60), float32(w)/float32(h), 0.1, 100)
}

func oblique(w, h int) surface.Camera {
	return surface.NewCamera(mgl32.Vec3{0, 2, 4}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0},
		mgl32.DegToRad(60), float32(w)/float32(h), 0.1, 100)
}

// harness owns the long-lived state a pipeline keeps between frames.
type harness struct {
	pool    *parallel.Pool
	history history.Set
	lists   *worklist.Lists
	scratch *Scratch
	frame   uint32
}

func newHarness(t *testing.T, w, h int) *harness {
	t.Helper()
	pool := parallel.NewPool(4)
	t.Cleanup(pool.Close)
	return &harness{pool: pool, lists: worklist.NewLists(w, h), scratch: NewScratch(w, h)}
}

func (hs *harness) frameFor(out *synth.Output, cam surface.Camera, sky surface.Environment, p Params) *Frame {
	w, h := out.GBuffer.Size()
	hs.history.Ensure(w, h)
	hs.frame++
	return &Frame{
		Width: w, Height: h,
		GBuffer:    out.GBuffer,
		HiZ:        out.HiZ,
		AO:         out.AO,
		PrevDepth:  out.GBuffer.Depth.Clone(),
		PrevNormal: out.GBuffer.Normal.Clone(),
		PrevColor:  out.Color.Clone(),
		Color:      out.Color,
		Camera:     cam,
		Sky:        sky,
		History:    &hs.history,
		Lists:      hs.lists,
		Scratch:    hs.scratch,
		Pool:       hs.pool,
		Params:     p,
		FrameIndex: hs.frame,
	}
}

func runAll(f *Frame) {
	Classify(f)
	BuildArgs(f)
	Intersect(f)
	Reproject(f)
	Prefilter(f)
	Accumulate(f)
	Apply(f)
}

// =============================================================================
// Classification
// =============================================================================

func TestClassify_AllMirror(t *testing.T) {
	const w, h = 64, 64
	cam := topDown(w, h)
	out := floor(0.05).Render(nil, cam, w, h)

	hs := newHarness(t, w, h)
	f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, testParams())
	Classify(f)
	BuildArgs(f)

	if got := f.Lists.Rays(); got != 4096 {
		t.Errorf("rayCount = %d, want 4096", got)
	}
	if got := f.Lists.Tiles(); got != 64 {
		t.Errorf("denoiseTileCount = %d, want 64", got)
	}
	if f.Lists.RayArgs != (worklist.IndirectArgs{GroupsX: 64, GroupsY: 1, GroupsZ: 1}) {
		t.Errorf("ray args = %+v, want 64x1x1", f.Lists.RayArgs)
	}
	if f.Lists.TileArgs != (worklist.IndirectArgs{GroupsX: 1, GroupsY: 1, GroupsZ: 1}) {
		t.Errorf("tile args = %+v, want 1x1x1", f.Lists.TileArgs)
	}

	seen := make(map[worklist.TileItem]bool)
	for _, tile := range f.Lists.TileList[:f.Lists.TileCount()] {
		if seen[tile] {
			t.Fatalf("tile (%d,%d) appended twice", tile.X(), tile.Y())
		}
		seen[tile] = true
	}
}

func TestClassify_CountersResetEachFrame(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	out := floor(0.05).Render(nil, cam, w, h)

	hs := newHarness(t, w, h)
	for range 3 {
		f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, testParams())
		Classify(f)
		if got := f.Lists.Rays(); got != w*h {
			t.Fatalf("rayCount = %d, want %d on every frame", got, w*h)
		}
		hs.history.Swap()
	}
}

func TestClassify_SamplesPerQuad(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	out := floor(0.05).Render(nil, cam, w, h)

	tests := []struct {
		spq  int
		want uint32
	}{
		{1, 64},
		{2, 128},
		{4, 256},
	}
	for _, tt := range tests {
		hs := newHarness(t, w, h)
		p := testParams()
		p.SamplesPerQuad = tt.spq
		f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, p)
		Classify(f)
		BuildArgs(f)
		if got := f.Lists.Rays(); got != tt.want {
			t.Errorf("spq=%d: rayCount = %d, want %d", tt.spq, got, tt.want)
		}

		// Copied quads still receive radiance at every pixel.
		Intersect(f)
		for i, c := range f.History.Current().Radiance.Pix {
			if c == (mgl32.Vec3{}) {
				t.Fatalf("spq=%d: pixel %d has no radiance after Intersect", tt.spq, i)
			}
		}
	}
}

func TestClassify_SkyAndOddSize(t *testing.T) {
	const w, h = 37, 29
	cam := oblique(w, h)
	out := floor(0.05).Render(nil, cam, w, h)

	hs := newHarness(t, w, h)
	f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, testParams())
	Classify(f)

	sky, reflective := 0, 0
	for i, d := range out.GBuffer.Depth.Pix {
		if surface.IsSky(d) {
			sky++
			if f.Scratch.Mask.Pix[i] != 0 {
				t.Fatalf("sky pixel %d classified as reflective", i)
			}
			continue
		}
		reflective++
	}
	if sky == 0 {
		t.Fatal("test view should contain sky")
	}
	if got := int(f.Lists.Rays()); got != reflective {
		t.Errorf("rayCount = %d, want %d", got, reflective)
	}
	tx, ty := worklist.TileGrid(w, h)
	if got := f.Lists.Tiles(); got > uint32(tx*ty) {
		t.Errorf("denoiseTileCount = %d exceeds %d tiles", got, tx*ty)
	}
}

// =============================================================================
// Zero-sized work
// =============================================================================

func TestPipeline_AllDiffuseIsEmpty(t *testing.T) {
	const w, h = 32, 32
	cam := oblique(w, h)
	out := floor(0.8).Render(nil, cam, w, h)
	before := out.Color.Clone()

	hs := newHarness(t, w, h)
	f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, testParams())
	runAll(f)

	if f.Lists.Rays() != 0 || f.Lists.Tiles() != 0 {
		t.Fatalf("counts = %d/%d, want 0/0", f.Lists.Rays(), f.Lists.Tiles())
	}
	if f.Lists.RayArgs != (worklist.IndirectArgs{GroupsX: 0, GroupsY: 1, GroupsZ: 1}) {
		t.Errorf("ray args = %+v, want 0x1x1", f.Lists.RayArgs)
	}
	for i := range before.Pix {
		if f.Color.Pix[i] != before.Pix[i] {
			t.Fatalf("pixel %d changed with no reflective pixels", i)
		}
	}
}

// =============================================================================
// Temporal behavior
// =============================================================================

func TestTemporal_SampleCountSaturates(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	scene := floor(0.05)

	hs := newHarness(t, w, h)
	p := testParams()
	last := float32(0)
	for k := 1; k <= 40; k++ {
		out := scene.Render(nil, cam, w, h)
		f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, p)
		runAll(f)

		got := f.History.Current().SampleCount.At(8, 8)
		want := float32(min(k, 32))
		if got != want {
			t.Fatalf("frame %d: sample count = %v, want %v", k, got, want)
		}
		if got < last {
			t.Fatalf("frame %d: sample count decreased from %v to %v", k, last, got)
		}
		last = got
		hs.history.Swap()
	}
}

func TestTemporal_DisocclusionResetsToSeed(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	scene := floor(0.05)

	for _, seed := range []float32{1, 3} {
		hs := newHarness(t, w, h)
		p := testParams()
		p.SeedSampleCount = seed

		for range 10 {
			f := hs.frameFor(scene.Render(nil, cam, w, h), cam, surface.ConstantEnvironment{1, 1, 1}, p)
			runAll(f)
			hs.history.Swap()
		}

		f := hs.frameFor(scene.Render(nil, cam, w, h), cam, surface.ConstantEnvironment{1, 1, 1}, p)
		// The previous frame saw a much nearer surface at (5,5).
		f.PrevDepth.Set(5, 5, f.PrevDepth.At(5, 5)*0.5)
		runAll(f)

		cur := f.History.Current()
		if got := cur.SampleCount.At(5, 5); got != seed {
			t.Errorf("seed %v: disoccluded sample count = %v, want seed", seed, got)
		}
		if got := cur.SampleCount.At(10, 10); got <= seed {
			t.Errorf("seed %v: stable pixel sample count = %v, want > seed", seed, got)
		}
	}
}

func TestTemporal_ConvergesToStableSignal(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	scene := floor(0.05)
	sky := surface.ConstantEnvironment{0.25, 0.5, 1}

	hs := newHarness(t, w, h)
	p := testParams()
	p.HistoryClampSigma = 3
	for range 8 {
		f := hs.frameFor(scene.Render(nil, cam, w, h), cam, sky, p)
		runAll(f)
		got := f.History.Current().Radiance.At(7, 9)
		if !got.ApproxEqualThreshold(mgl32.Vec3(sky), 1e-4) {
			t.Fatalf("radiance = %v, want %v", got, sky)
		}
		if v := f.History.Current().Variance.At(7, 9); v > 1 {
			t.Fatalf("variance = %v, want <= disocclusion variance", v)
		}
		hs.history.Swap()
	}
}

// =============================================================================
// Intersection
// =============================================================================

func TestIntersect_FloorReflectsWall(t *testing.T) {
	const w, h = 64, 64
	cam := surface.NewCamera(mgl32.Vec3{0, 1.5, 4}, mgl32.Vec3{0, 0.5, 0}, mgl32.Vec3{0, 1, 0},
		mgl32.DegToRad(60), 1, 0.1, 100)
	scene := floor(0.0)
	scene.Planes = append(scene.Planes, synth.Plane{
		Point: mgl32.Vec3{0, 0, -3}, Normal: mgl32.Vec3{0, 0, 1},
		Material: synth.Material{BaseColor: mgl32.Vec3{1, 0, 0}, Roughness: 0.9},
	})
	out := scene.Render(nil, cam, w, h)

	hs := newHarness(t, w, h)
	f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, testParams())
	f.PrevColor.Fill(mgl32.Vec3{1, 0, 0})
	Classify(f)
	BuildArgs(f)
	Intersect(f)

	hits := 0
	for y := h / 2; y < h-4; y++ {
		for x := 8; x < w-8; x++ {
			if f.Scratch.Mask.At(x, y) == 0 {
				continue
			}
			c := f.History.Current().Radiance.At(x, y)
			if c[0] > 0.9 && c[1] < 0.1 {
				hits++
			}
		}
	}
	if hits == 0 {
		t.Error("no floor pixel reflected the wall")
	}
}

func TestIntersect_MissResolvesEnvironment(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	out := floor(0).Render(nil, cam, w, h)

	hs := newHarness(t, w, h)
	sky := surface.ConstantEnvironment{0.1, 0.2, 0.3}
	f := hs.frameFor(out, cam, sky, testParams())
	f.Probes = surface.ProbeContext{Probes: []surface.Probe{{
		Position: mgl32.Vec3{}, Radius: 100, Shape: surface.ProbeSphere,
		Validity: 1, Capture: surface.ConstantEnvironment{0, 1, 0},
	}}}
	Classify(f)
	BuildArgs(f)
	Intersect(f)

	got := f.History.Current().Radiance.At(8, 8)
	if !got.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-4) {
		t.Errorf("miss radiance = %v, want probe capture", got)
	}
}

// =============================================================================
// Prefilter and apply
// =============================================================================

func TestPrefilter_IdentityAtZeroVariance(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	out := floor(0.05).Render(nil, cam, w, h)

	hs := newHarness(t, w, h)
	f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, testParams())
	Classify(f)
	BuildArgs(f)

	for i := range f.Scratch.Reprojected.Pix {
		f.Scratch.Reprojected.Pix[i] = mgl32.Vec3{float32(i % 7), 0, 0}
		f.Scratch.ReprojectedVariance.Pix[i] = 0
		f.Scratch.ReprojectedCount.Pix[i] = 0
	}
	Prefilter(f)

	for i := range f.Scratch.Filtered.Pix {
		if f.Scratch.Filtered.Pix[i] != f.Scratch.Reprojected.Pix[i] {
			t.Fatalf("pixel %d filtered with zero variance", i)
		}
	}

	// With variance, a noisy neighborhood gets smoothed.
	for i := range f.Scratch.ReprojectedVariance.Pix {
		f.Scratch.ReprojectedVariance.Pix[i] = 4
	}
	Prefilter(f)
	changed := 0
	for i := range f.Scratch.Filtered.Pix {
		if f.Scratch.Filtered.Pix[i] != f.Scratch.Reprojected.Pix[i] {
			changed++
		}
	}
	if changed == 0 {
		t.Error("prefilter never blended neighbors at high variance")
	}
}

func TestPrefilter_StrengthFollowsSampleCount(t *testing.T) {
	const w, h = 16, 16
	cam := topDown(w, h)
	out := floor(0.05).Render(nil, cam, w, h)
	p := testParams()

	hs := newHarness(t, w, h)
	f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, p)
	Classify(f)
	BuildArgs(f)

	// Small-variance checkerboard: neighbors differ by a little luminance.
	filterAt := func(samples float32) *surface.Color {
		for y := range h {
			for x := range w {
				i := y*w + x
				v := float32(0.5)
				if (x+y)%2 == 1 {
					v = 0.52
				}
				f.Scratch.Reprojected.Pix[i] = mgl32.Vec3{v, v, v}
				f.Scratch.ReprojectedVariance.Pix[i] = 1e-4
				f.Scratch.ReprojectedCount.Pix[i] = samples
			}
		}
		Prefilter(f)
		return f.Scratch.Filtered.Clone()
	}

	// maxShift is the largest change the filter made to any reflective pixel.
	maxShift := func(filtered *surface.Color) float32 {
		var m float32
		for i, c := range filtered.Pix {
			if f.Scratch.Mask.Pix[i] == 0 {
				continue
			}
			m = max(m, abs32(c[0]-f.Scratch.Reprojected.Pix[i][0]))
		}
		return m
	}

	fresh := maxShift(filterAt(1))
	half := maxShift(filterAt(p.MaxSampleCount / 2))
	converged := maxShift(filterAt(p.MaxSampleCount))

	if fresh <= 1e-4 {
		t.Fatalf("fresh pixels barely filtered: shift %v", fresh)
	}
	if half >= fresh {
		t.Errorf("shift at half count %v, want below fresh %v", half, fresh)
	}
	if converged != 0 {
		t.Errorf("converged pixels shifted by %v, want pass-through", converged)
	}
}

func TestApply_OnlyReflectivePixels(t *testing.T) {
	const w, h = 32, 32
	cam := oblique(w, h)
	out := floor(0.05).Render(nil, cam, w, h)
	before := out.Color.Clone()

	hs := newHarness(t, w, h)
	f := hs.frameFor(out, cam, surface.ConstantEnvironment{1, 1, 1}, testParams())
	runAll(f)

	modified := 0
	for i := range before.Pix {
		changed := f.Color.Pix[i] != before.Pix[i]
		if f.Scratch.Mask.Pix[i] == 0 && changed {
			t.Fatalf("unclassified pixel %d was modified", i)
		}
		if changed {
			modified++
		}
	}
	if modified == 0 {
		t.Error("no reflective pixel received a reflection")
	}
}

func TestEnvBRDF(t *testing.T) {
	for _, rough := range []float32{0, 0.25, 0.5, 1} {
		for _, nDotV := range []float32{0.01, 0.5, 1} {
			dielectric := EnvBRDF(mgl32.Vec3{0.04, 0.04, 0.04}, rough, nDotV)
			metal := EnvBRDF(mgl32.Vec3{1, 1, 1}, rough, nDotV)
			if dielectric[0] < 0 || metal[0] > 1.01 || dielectric[0] > metal[0] {
				t.Errorf("EnvBRDF(r=%v, nv=%v) dielectric=%v metal=%v", rough, nDotV, dielectric[0], metal[0])
			}
		}
	}

	if so := SpecularOcclusion(1, 1, 0.1); math.Abs(float64(so-1)) > 1e-6 {
		t.Errorf("unoccluded specular occlusion = %v, want 1", so)
	}
	if so := SpecularOcclusion(0.5, 0, 0.1); so != 0 {
		t.Errorf("fully occluded specular occlusion = %v, want 0", so)
	}
}
