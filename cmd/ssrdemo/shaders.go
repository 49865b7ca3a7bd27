// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gogpu/ssr/internal/gpu"
)

func compileShaders(ctx *cli.Context) error {
	setupLogging(ctx)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Stage", "WGSL", "SPIR-V", "Status"})
	var failed int
	for s := range gpu.StageCount {
		src, err := gpu.Source(s)
		if err != nil {
			return err
		}
		row := []string{s.String(), printer.Sprintf("%d B", len(src)), "", "ok"}
		spirv, err := gpu.CompileStage(s)
		if err != nil {
			failed++
			row[3] = err.Error()
		} else {
			row[2] = printer.Sprintf("%d B", len(spirv))
		}
		table.Append(row)
	}
	table.Render()
	if failed > 0 {
		return fmt.Errorf("%d of %d stages failed to compile", failed, int(gpu.StageCount))
	}
	return nil
}

func listDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Backend", "Adapter", "Type", "Status"})
	for _, b := range hal.AvailableBackends() {
		dev, err := gpu.Open(b)
		if err != nil {
			table.Append([]string{b.String(), "", "", err.Error()})
			continue
		}
		info := dev.AdapterInfo()
		table.Append([]string{b.String(), info.Name, info.Type.String(), "ok"})
		dev.Close()
	}
	table.Render()
	return nil
}
