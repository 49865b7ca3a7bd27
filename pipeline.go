// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ssr

import (
	"time"

	"github.com/gogpu/ssr/internal/gpu"
	"github.com/gogpu/ssr/internal/history"
	"github.com/gogpu/ssr/internal/parallel"
	"github.com/gogpu/ssr/internal/stage"
	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// Pipeline runs the reflection stages frame after frame and owns the
// temporal history.
//
// Render is not safe for concurrent use; frames of one Pipeline are serial.
// Distinct pipelines are independent.
type Pipeline struct {
	cfg Config

	pool    *parallel.Pool
	history history.Set
	lists   *worklist.Lists
	scratch *stage.Scratch

	// gpu is nil when running on the CPU.
	gpu *gpu.Dispatcher

	frameIndex uint32
}

// New creates a pipeline. The history is allocated on the first frame.
func New(opts ...Option) (*Pipeline, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		pool:    parallel.NewPool(cfg.Workers),
		lists:   worklist.NewLists(0, 0),
		scratch: stage.NewScratch(0, 0),
	}
	if cfg.Device != nil {
		p.initGPU()
	}
	return p, nil
}

// initGPU attaches the compute dispatcher, falling back to the CPU on error.
func (p *Pipeline) initGPU() {
	device, queue, err := gpu.FromProvider(p.cfg.Device)
	if err != nil {
		Logger().Warn("ssr: GPU device unavailable, using CPU", "err", err)
		return
	}
	d := gpu.NewDispatcher(device, queue)
	if err := d.Init(); err != nil {
		Logger().Warn("ssr: GPU pipelines unavailable, using CPU", "err", err)
		return
	}
	p.gpu = d
	Logger().Info("ssr: GPU backend selected")
}

// Backend returns "gpu" or "cpu".
func (p *Pipeline) Backend() string {
	if p.gpu != nil {
		return "gpu"
	}
	return "cpu"
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// HistorySize returns the resolution of the history, or zeros before the
// first processed frame and after invalidation.
func (p *Pipeline) HistorySize() (width, height int) {
	if !p.history.Allocated() {
		return 0, 0
	}
	return p.history.Size()
}

// ReflectiveMask returns the pixels the last processed frame classified as
// reflective (1) or not (0). The plane is reused by the next frame.
func (p *Pipeline) ReflectiveMask() *surface.Mask {
	return p.scratch.Mask
}

// SampleCounts returns the per-pixel accumulated sample count written by
// the last processed frame, or nil while the history is unallocated. The
// plane is reused two frames later.
func (p *Pipeline) SampleCounts() *surface.Scalar {
	if !p.history.Allocated() {
		return nil
	}
	return p.history.Previous().SampleCount
}

// Invalidate drops the history. The next processed frame cold-starts.
func (p *Pipeline) Invalidate() {
	p.history.Invalidate()
}

// Close releases the workers and GPU resources.
func (p *Pipeline) Close() {
	if p.gpu != nil {
		p.gpu.Close()
		p.gpu = nil
	}
	p.pool.Close()
}

// Render processes one frame, adding reflections into f.Color.
//
// A frame missing its sky or previous-frame inputs, or flagged with
// HistoryInvalidated, is skipped: the returned stats say why and nothing is
// written. Errors are returned only for malformed frames, before any write.
func (p *Pipeline) Render(f *Frame) (FrameStats, error) {
	if f == nil {
		return FrameStats{}, ErrNilFrame
	}
	if err := f.validateTarget(); err != nil {
		return FrameStats{}, err
	}

	w, h := f.GBuffer.Size()
	stats := FrameStats{Width: w, Height: h, Backend: p.Backend()}

	if reason := f.skipReason(); reason != SkipNone {
		if reason == SkipHistoryInvalidated {
			p.history.Invalidate()
		}
		stats.Skipped = true
		stats.Reason = reason
		Logger().Debug("ssr: frame skipped", "reason", reason.String())
		return stats, nil
	}
	if err := f.validateInputs(); err != nil {
		return FrameStats{}, err
	}

	hiz := f.HiZ
	if hiz == nil {
		hiz = surface.BuildPyramid(f.GBuffer.Depth)
	}

	stats.ColdStart = p.history.Ensure(w, h)
	if stats.ColdStart {
		Logger().Info("ssr: history cold start", "width", w, "height", h)
	}
	p.lists.Ensure(w, h)
	p.scratch.Ensure(w, h)
	p.frameIndex++

	sf := &stage.Frame{
		Width:      w,
		Height:     h,
		GBuffer:    f.GBuffer,
		HiZ:        hiz,
		AO:         f.AO,
		PrevDepth:  f.PrevDepth,
		PrevNormal: f.PrevNormal,
		PrevColor:  f.PrevColor,
		Color:      f.Color,
		Camera:     f.Camera,
		Sky:        f.Sky,
		Probes:     f.Probes,
		History:    &p.history,
		Lists:      p.lists,
		Scratch:    p.scratch,
		Pool:       p.pool,
		Params:     p.cfg.params(),
		FrameIndex: p.frameIndex,
	}

	start := time.Now()
	if p.gpu != nil {
		if err := p.runGPU(sf, &stats); err != nil {
			Logger().Warn("ssr: GPU frame failed, falling back to CPU", "err", err)
			p.gpu.Close()
			p.gpu = nil
			stats.Backend = "cpu"
			stats.Timings = [StageCount]time.Duration{}
			runCPU(sf, &stats)
		}
	} else {
		runCPU(sf, &stats)
	}
	stats.Total = time.Since(start)

	p.history.Swap()

	stats.RayCount = p.lists.Rays()
	stats.TileCount = p.lists.Tiles()
	stats.RayArgs = dispatchArgs(p.lists.RayArgs)
	stats.TileArgs = dispatchArgs(p.lists.TileArgs)

	Logger().Debug("ssr: frame",
		"backend", stats.Backend,
		"rays", stats.RayCount,
		"tiles", stats.TileCount,
		"total", stats.Total)
	return stats, nil
}

// runCPU runs the stages on the pool, timing each one.
func runCPU(f *stage.Frame, stats *FrameStats) {
	stages := [StageCount]func(*stage.Frame){
		StageClassify:   stage.Classify,
		StageBuildArgs:  stage.BuildArgs,
		StageIntersect:  stage.Intersect,
		StageReproject:  stage.Reproject,
		StagePrefilter:  stage.Prefilter,
		StageAccumulate: stage.Accumulate,
		StageApply:      stage.Apply,
	}
	for s, run := range stages {
		t := time.Now()
		run(f)
		stats.Timings[s] = time.Since(t)
	}
}

// runGPU runs the frame on the compute dispatcher. The counters and the
// indirect arguments in f.Lists are the ones the GPU produced. Without pass
// timestamps the whole submission is reported under StageIntersect.
func (p *Pipeline) runGPU(f *stage.Frame, stats *FrameStats) error {
	t := time.Now()
	if err := p.gpu.Run(f); err != nil {
		return err
	}
	elapsed := time.Since(t)

	timings, ok := p.gpu.Timings()
	if !ok {
		stats.Timings[StageIntersect] = elapsed
		return nil
	}
	for s := range StageCount {
		stats.Timings[s] = timings[s]
	}
	return nil
}

func dispatchArgs(a worklist.IndirectArgs) DispatchArgs {
	return DispatchArgs{X: a.GroupsX, Y: a.GroupsY, Z: a.GroupsZ}
}
