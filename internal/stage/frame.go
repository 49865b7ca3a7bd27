// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/history"
	"github.com/gogpu/ssr/internal/parallel"
	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// Params holds the tuning values shared by the stages.
type Params struct {
	// RoughnessThreshold is the roughness at and above which a pixel is
	// not traced.
	RoughnessThreshold float32

	// SamplesPerQuad is 1, 2 or 4 rays per 2x2 quad. Pixels that do not
	// trace copy the quad's base ray.
	SamplesPerQuad int

	// VarianceGuided lets a non-base pixel trace its own ray when its
	// previous variance exceeds VarianceThreshold.
	VarianceGuided    bool
	VarianceThreshold float32

	MostDetailedMip int
	MaxMarchSteps   int

	// Thickness is the accepted depth of a hit behind the surface, as a
	// fraction of the surface's view distance.
	Thickness float32

	MaxSampleCount       float32
	SeedSampleCount      float32
	DepthTolerance       float32
	NormalTolerance      float32
	RoughnessTolerance   float32
	DisocclusionVariance float32

	PrefilterRadius   int
	HistoryClampSigma float32

	Intensity float32
}

// Frame is the explicit per-frame context handed to every stage.
type Frame struct {
	Width, Height int

	GBuffer *surface.GBuffer
	HiZ     *surface.Pyramid
	AO      *surface.Scalar

	PrevDepth  *surface.Scalar
	PrevNormal *surface.Vector
	PrevColor  *surface.Color

	// Color is the HDR target Apply adds reflections into.
	Color *surface.Color

	Camera surface.Camera
	Sky    surface.Environment
	Probes surface.ProbeContext

	History *history.Set
	Lists   *worklist.Lists
	Scratch *Scratch
	Pool    *parallel.Pool

	Params     Params
	FrameIndex uint32
}

// Scratch holds frame-scoped intermediate buffers. Contents are only
// meaningful at pixels classified as reflective this frame.
type Scratch struct {
	// Mask is 1 at pixels classified as reflective.
	Mask *surface.Mask

	Reprojected         *surface.Color
	ReprojectedVariance *surface.Scalar
	ReprojectedCount    *surface.Scalar

	Filtered         *surface.Color
	FilteredVariance *surface.Scalar

	// Per-tile mean and standard deviation of the raw radiance.
	TileMean      []mgl32.Vec3
	TileDeviation []mgl32.Vec3

	width, height int
}

// NewScratch allocates scratch buffers for a width by height frame.
func NewScratch(width, height int) *Scratch {
	s := &Scratch{}
	s.Ensure(width, height)
	return s
}

// Ensure reallocates the buffers when the resolution changes.
func (s *Scratch) Ensure(width, height int) {
	if s.Mask != nil && s.width == width && s.height == height {
		return
	}
	tx, ty := worklist.TileGrid(width, height)
	s.Mask = surface.NewPlane[uint8](width, height)
	s.Reprojected = surface.NewPlane[mgl32.Vec3](width, height)
	s.ReprojectedVariance = surface.NewPlane[float32](width, height)
	s.ReprojectedCount = surface.NewPlane[float32](width, height)
	s.Filtered = surface.NewPlane[mgl32.Vec3](width, height)
	s.FilteredVariance = surface.NewPlane[float32](width, height)
	s.TileMean = make([]mgl32.Vec3, tx*ty)
	s.TileDeviation = make([]mgl32.Vec3, tx*ty)
	s.width, s.height = width, height
}

// tileBounds returns the pixel rectangle [x0,x1)x[y0,y1) of a tile.
func (f *Frame) tileBounds(tx, ty int) (x0, y0, x1, y1 int) {
	x0 = tx * worklist.TileSize
	y0 = ty * worklist.TileSize
	return x0, y0, min(x0+worklist.TileSize, f.Width), min(y0+worklist.TileSize, f.Height)
}

// forEachListed runs fn for every valid entry of a list of n items using the
// group count from args. Groups beyond the items present do nothing.
func forEachListed(f *Frame, args worklist.IndirectArgs, n int, fn func(i int)) {
	f.Pool.Dispatch(args.Groups(), func(g int) {
		lo := g * worklist.GroupSize
		hi := min(lo+worklist.GroupSize, n)
		for i := lo; i < hi; i++ {
			fn(i)
		}
	})
}

// forEachTilePixel calls fn for every reflective pixel of the listed tile.
func forEachTilePixel(f *Frame, tile worklist.TileItem, fn func(x, y, idx int)) {
	x0, y0, x1, y1 := f.tileBounds(tile.X(), tile.Y())
	mask := f.Scratch.Mask.Pix
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			idx := y*f.Width + x
			if mask[idx] == 0 {
				continue
			}
			fn(x, y, idx)
		}
	}
}

// tileIndex returns the linear index of a tile item.
func (f *Frame) tileIndex(tile worklist.TileItem) int {
	tx, _ := worklist.TileGrid(f.Width, f.Height)
	return tile.Y()*tx + tile.X()
}
