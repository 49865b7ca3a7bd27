// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command ssrdemo renders an orbiting synthetic scene through the
// reflection pipeline and reports per-frame statistics.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ssrdemo:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ssrdemo"
	app.Usage = "screen-space reflections on a synthetic scene"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable per-frame debug logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render an orbit of frames and write a debug mosaic",
			Description: `
Render the default scene from a camera circling it. Every frame after the
first reuses the previous frame's depth, normals and lit color, so the
temporal history converges over the orbit.

The last frame is written as a PNG mosaic of the input color, the color with
reflections, their difference, the per-tile classification heat map and the
accumulated sample counts.`,
			Flags:  renderFlags(),
			Action: renderOrbit,
		},
		{
			Name:   "shaders",
			Usage:  "compile the stage shaders to SPIR-V and report their sizes",
			Action: compileShaders,
		},
		{
			Name:   "devices",
			Usage:  "list the registered GPU backends and their adapters",
			Action: listDevices,
		},
	}
	return app
}

func renderFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{Name: "width", Value: 320, Usage: "frame width"},
		cli.IntFlag{Name: "height", Value: 180, Usage: "frame height"},
		cli.IntFlag{Name: "frames", Value: 16, Usage: "number of frames to render"},
		cli.Float64Flag{Name: "step", Value: 1, Usage: "orbit step per frame in degrees"},
		cli.IntFlag{Name: "workers", Value: 0, Usage: "worker goroutines (0 uses GOMAXPROCS)"},
		cli.IntFlag{Name: "spq", Value: 4, Usage: "rays per 2x2 quad: 1, 2 or 4"},
		cli.Float64Flag{Name: "roughness-threshold", Value: 0.2, Usage: "roughness above which pixels are not traced"},
		cli.Float64Flag{Name: "max-samples", Value: 32, Usage: "temporal sample count limit"},
		cli.Float64Flag{Name: "exposure", Value: 1, Usage: "exposure for tone-mapping"},
		cli.BoolFlag{Name: "gpu", Usage: "run the stages on a Vulkan device"},
		cli.StringFlag{Name: "out, o", Value: "ssr.png", Usage: "mosaic filename"},
		cli.StringFlag{Name: "panels", Usage: "also write each panel as a PNG into this directory"},
	}
}
