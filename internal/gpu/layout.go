// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/stage"
	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

const (
	// maxHiZLevels matches the hiz array of the params uniform.
	maxHiZLevels = 16

	// uniformSize is the byte size of the WGSL Params struct.
	uniformSize = 704

	countersSize = 8
	argsSize     = 2 * worklist.IndirectArgsSize
)

// Sections of the inputs buffer, in upload order.
const (
	secDepth = iota
	secNormal
	secRoughness
	secBaseColor
	secMetalness
	secVelocity
	secAO
	secPrevDepth
	secPrevNormal
	secPrevColor
	secHiZ
	secEnvironment
	sectionCount
)

// frameLayout places one frame's arrays in the GPU buffers. Offsets and
// sizes count 4-byte words.
type frameLayout struct {
	width, height  int
	tilesX, tilesY int

	hizLevels int
	// hiz holds offset (relative to the hiz section), width and height.
	hiz [maxHiZLevels][3]uint32

	offsets    [sectionCount]uint32
	inputWords int
}

func newFrameLayout(f *stage.Frame) frameLayout {
	l := frameLayout{width: f.Width, height: f.Height}
	l.tilesX, l.tilesY = worklist.TileGrid(f.Width, f.Height)
	n := l.pixels()

	var hizWords int
	l.hizLevels = min(f.HiZ.Levels(), maxHiZLevels)
	for i := range l.hizLevels {
		w, h := f.HiZ.LevelSize(i)
		l.hiz[i] = [3]uint32{uint32(hizWords), uint32(w), uint32(h)} //nolint:gosec // bounded by frame size
		hizWords += w * h
	}

	sizes := [sectionCount]int{
		secDepth:       n,
		secNormal:      3 * n,
		secRoughness:   n,
		secBaseColor:   3 * n,
		secMetalness:   n,
		secVelocity:    2 * n,
		secAO:          n,
		secPrevDepth:   n,
		secPrevNormal:  3 * n,
		secPrevColor:   3 * n,
		secHiZ:         hizWords,
		secEnvironment: 3 * envTables * envTexels,
	}
	off := 0
	for s, size := range sizes {
		l.offsets[s] = uint32(off) //nolint:gosec // bounded by frame size
		off += size
	}
	l.inputWords = off
	return l
}

func (l *frameLayout) pixels() int { return l.width * l.height }
func (l *frameLayout) tiles() int  { return l.tilesX * l.tilesY }

// Buffer sizes in bytes.
func (l *frameLayout) colorBytes() uint64   { return uint64(12 * l.pixels()) }
func (l *frameLayout) historyBytes() uint64 { return uint64(historyWords * 4 * l.pixels()) }
func (l *frameLayout) maskBytes() uint64    { return uint64(4 * l.pixels()) }
func (l *frameLayout) listsBytes() uint64   { return uint64(4 * (2*l.pixels() + l.tiles())) }
func (l *frameLayout) scratchBytes() uint64 { return uint64(4 * (9*l.pixels() + 6*l.tiles())) }
func (l *frameLayout) inputBytes() uint64   { return uint64(4 * l.inputWords) }

// floats writes float32 values into a little-endian word buffer.
type floats []byte

func (b floats) put(i int, v float32) {
	binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
}

func (b floats) scalars(off uint32, pix []float32) {
	for i, v := range pix {
		b.put(int(off)+i, v)
	}
}

func (b floats) vec2s(off uint32, pix []mgl32.Vec2) {
	for i, v := range pix {
		b.put(int(off)+2*i, v[0])
		b.put(int(off)+2*i+1, v[1])
	}
}

func (b floats) vec3s(off uint32, pix []mgl32.Vec3) {
	for i, v := range pix {
		o := int(off) + 3*i
		b.put(o, v[0])
		b.put(o+1, v[1])
		b.put(o+2, v[2])
	}
}

// packInputs encodes the read-only inputs of a frame. A missing AO buffer
// uploads as fully unoccluded.
func packInputs(f *stage.Frame, l *frameLayout) []byte {
	b := floats(make([]byte, l.inputBytes()))
	gb := f.GBuffer
	b.scalars(l.offsets[secDepth], gb.Depth.Pix)
	b.vec3s(l.offsets[secNormal], gb.Normal.Pix)
	b.scalars(l.offsets[secRoughness], gb.Roughness.Pix)
	b.vec3s(l.offsets[secBaseColor], gb.BaseColor.Pix)
	b.scalars(l.offsets[secMetalness], gb.Metalness.Pix)
	b.vec2s(l.offsets[secVelocity], gb.Velocity.Pix)
	if f.AO != nil {
		b.scalars(l.offsets[secAO], f.AO.Pix)
	} else {
		for i := range l.pixels() {
			b.put(int(l.offsets[secAO])+i, 1)
		}
	}
	b.scalars(l.offsets[secPrevDepth], f.PrevDepth.Pix)
	b.vec3s(l.offsets[secPrevNormal], f.PrevNormal.Pix)
	b.vec3s(l.offsets[secPrevColor], f.PrevColor.Pix)

	for i := range l.hizLevels {
		b.scalars(l.offsets[secHiZ]+l.hiz[i][0], f.HiZ.Min[i].Pix)
	}

	envOff := l.offsets[secEnvironment]
	b.vec3s(envOff, BakeEnvironment(f.Sky))
	for i, p := range f.Probes.Probes {
		if i >= surface.MaxProbes {
			break
		}
		b.vec3s(envOff+uint32(3*(i+1)*envTexels), BakeEnvironment(p.Capture)) //nolint:gosec // small constant
	}
	return b
}

// packColor encodes the HDR target, three floats per pixel.
func packColor(c *surface.Color) []byte {
	b := floats(make([]byte, 12*len(c.Pix)))
	b.vec3s(0, c.Pix)
	return b
}

func unpackColor(src []byte, c *surface.Color) {
	le := binary.LittleEndian
	for i := range c.Pix {
		o := 12 * i
		c.Pix[i] = mgl32.Vec3{
			math.Float32frombits(le.Uint32(src[o:])),
			math.Float32frombits(le.Uint32(src[o+4:])),
			math.Float32frombits(le.Uint32(src[o+8:])),
		}
	}
}

// words appends little-endian words to a fixed uniform block.
type words struct {
	buf []byte
	off int
}

func (w *words) u32(vs ...uint32) {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(w.buf[w.off:], v)
		w.off += 4
	}
}

func (w *words) f32(vs ...float32) {
	for _, v := range vs {
		w.u32(math.Float32bits(v))
	}
}

func (w *words) mat(m mgl32.Mat4) {
	w.f32(m[:]...)
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// encodeUniforms builds the params uniform. The order follows the WGSL
// Params struct field by field.
func encodeUniforms(f *stage.Frame, l *frameLayout) []byte {
	w := &words{buf: make([]byte, uniformSize)}
	cam := f.Camera
	p := f.Params

	w.mat(cam.InvViewProj)
	w.mat(cam.ViewProj)
	w.mat(cam.PrevViewProj)
	w.f32(cam.Position[0], cam.Position[1], cam.Position[2], cam.Near)

	u := func(v int) uint32 { return uint32(max(v, 0)) } //nolint:gosec // validated sizes
	w.u32(u(l.width), u(l.height), u(l.tilesX), u(l.tilesY))
	w.u32(u(l.hizLevels), u(p.MostDetailedMip), u(p.MaxMarchSteps), f.FrameIndex)
	w.u32(u(p.SamplesPerQuad), boolWord(p.VarianceGuided), u(p.PrefilterRadius),
		u(min(len(f.Probes.Probes), surface.MaxProbes)))
	w.f32(p.RoughnessThreshold, p.VarianceThreshold, p.Thickness, cam.Far)
	w.f32(p.MaxSampleCount, p.SeedSampleCount, p.DepthTolerance, p.NormalTolerance)
	w.f32(p.RoughnessTolerance, p.DisocclusionVariance, p.HistoryClampSigma, p.Intensity)
	w.u32(l.offsets[:]...)

	for i := range maxHiZLevels {
		h := l.hiz[i]
		w.u32(h[0], h[1], h[2], 0)
	}

	for i := range surface.MaxProbes {
		if i >= len(f.Probes.Probes) {
			w.f32(make([]float32, 12)...)
			continue
		}
		pr := f.Probes.Probes[i]
		var shape, present float32
		if pr.Shape == surface.ProbeSphere {
			shape = 1
		}
		if !surface.IsNilEnvironment(pr.Capture) {
			present = 1
		}
		w.f32(pr.Position[0], pr.Position[1], pr.Position[2], pr.Radius)
		w.f32(pr.Extent[0], pr.Extent[1], pr.Extent[2], shape)
		w.f32(pr.Validity, pr.Blend, present, 0)
	}
	return w.buf
}
