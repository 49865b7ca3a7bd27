// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/ssr"
	"github.com/gogpu/ssr/internal/debugview"
	"github.com/gogpu/ssr/internal/gpu"
	"github.com/gogpu/ssr/internal/parallel"
	"github.com/gogpu/ssr/internal/synth"
	"github.com/gogpu/ssr/surface"
)

// Orbit of the demo camera around the scene.
var (
	orbitTarget = mgl32.Vec3{0, 0.75, -1.5}
	orbitRadius = float32(6)
	orbitHeight = float32(2.5)
)

// orbit holds the result of the last rendered frame.
type orbit struct {
	input  *surface.Color
	output *surface.Color
	mask   *surface.Mask
	counts *surface.Scalar
	stats  []ssr.FrameStats
}

func pipelineOptions(ctx *cli.Context) []ssr.Option {
	return []ssr.Option{
		ssr.WithWorkers(ctx.Int("workers")),
		ssr.WithSamplesPerQuad(ctx.Int("spq")),
		ssr.WithRoughnessThreshold(float32(ctx.Float64("roughness-threshold"))),
		ssr.WithMaxSampleCount(float32(ctx.Float64("max-samples"))),
	}
}

func renderOrbit(ctx *cli.Context) error {
	setupLogging(ctx)

	w, h, frames := ctx.Int("width"), ctx.Int("height"), ctx.Int("frames")
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	if frames <= 0 {
		return errors.New("at least one frame is required")
	}

	opts := pipelineOptions(ctx)
	if ctx.Bool("gpu") {
		dev, err := gpu.Open(gputypes.BackendVulkan)
		if err != nil {
			logger.Warn("GPU unavailable, rendering on the CPU", "err", err)
		} else {
			defer dev.Close()
			logger.Info("using GPU adapter", "name", dev.AdapterInfo().Name)
			opts = append(opts, ssr.WithDevice(dev))
		}
	}
	p, err := ssr.New(opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	pool := parallel.NewPool(ctx.Int("workers"))
	defer pool.Close()

	res, err := runOrbit(p, pool, w, h, frames, float32(ctx.Float64("step")))
	if err != nil {
		return err
	}

	printFrameStats(ctx.App.Writer, res.stats)
	printStageTimings(ctx.App.Writer, res.stats)

	panels, err := buildPanels(res, float32(ctx.Float64("exposure")), p.Config().MaxSampleCount)
	if err != nil {
		return err
	}
	if dir := ctx.String("panels"); dir != "" {
		if err := writePanels(dir, panels); err != nil {
			return err
		}
	}
	mosaic, err := debugview.Mosaic(panels, 3)
	if err != nil {
		return err
	}
	out := ctx.String("out")
	if err := writePNG(out, mosaic); err != nil {
		return err
	}
	logger.Info("mosaic written", "path", out)
	return nil
}

// runOrbit renders frames along the orbit. Each frame's previous inputs are
// the G-buffer and lit color of the frame before it.
func runOrbit(p *ssr.Pipeline, pool *parallel.Pool, w, h, frames int, stepDeg float32) (*orbit, error) {
	scene := synth.DefaultScene()
	aspect := float32(w) / float32(h)
	res := &orbit{stats: make([]ssr.FrameStats, 0, frames)}

	var prev *synth.Output
	var prevCam surface.Camera
	for i := range frames {
		cam := synth.OrbitCamera(orbitTarget, orbitRadius, orbitHeight, mgl32.DegToRad(stepDeg*float32(i)), aspect)
		if prev != nil {
			cam = cam.WithPrevious(prevCam)
		}
		out := scene.Render(pool, cam, w, h)

		f := &ssr.Frame{
			GBuffer: out.GBuffer,
			HiZ:     out.HiZ,
			AO:      out.AO,
			Color:   out.Color,
			Camera:  cam,
			Sky:     scene.Sky,
		}
		if prev != nil {
			f.PrevDepth = prev.GBuffer.Depth
			f.PrevNormal = prev.GBuffer.Normal
			f.PrevColor = prev.Color
		}

		input := out.Color.Clone()
		stats, err := p.Render(f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		res.stats = append(res.stats, stats)
		res.input, res.output = input, out.Color
		prev, prevCam = out, cam
	}

	res.mask = p.ReflectiveMask().Clone()
	if counts := p.SampleCounts(); counts != nil {
		res.counts = counts.Clone()
	} else {
		res.counts = surface.NewPlane[float32](w, h)
	}
	return res, nil
}

// buildPanels converts the last frame's buffers into images concurrently.
func buildPanels(res *orbit, exposure, maxSamples float32) ([]debugview.Panel, error) {
	panels := []debugview.Panel{
		{Title: "input"},
		{Title: "reflections"},
		{Title: "difference"},
		{Title: "tiles"},
		{Title: "samples"},
	}
	build := []func() image.Image{
		func() image.Image { return debugview.ToneMap(res.input, exposure) },
		func() image.Image { return debugview.ToneMap(res.output, exposure) },
		func() image.Image { return debugview.Difference(res.output, res.input, 4*exposure) },
		func() image.Image { return debugview.TileHeatMap(res.mask) },
		func() image.Image { return debugview.SampleCountMap(res.counts, maxSamples) },
	}

	var g errgroup.Group
	for i, fn := range build {
		g.Go(func() error {
			panels[i].Image = fn()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return panels, nil
}

func writePanels(dir string, panels []debugview.Panel) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var g errgroup.Group
	g.SetLimit(4)
	for _, p := range panels {
		g.Go(func() error {
			return writePNG(filepath.Join(dir, p.Title+".png"), p.Image)
		})
	}
	return g.Wait()
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
