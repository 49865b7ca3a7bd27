// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/ssr"
)

var printer = message.NewPrinter(language.English)

func frameStatus(s ssr.FrameStats) string {
	switch {
	case s.Skipped:
		return "skipped: " + s.Reason.String()
	case s.ColdStart:
		return "cold start"
	default:
		return "ok"
	}
}

func printFrameStats(w io.Writer, stats []ssr.FrameStats) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"Frame", "Backend", "Status", "Rays", "Tiles", "Ray groups", "Hit", "Filter", "Total"})

	var rays, tiles uint64
	var total time.Duration
	for i, s := range stats {
		rays += uint64(s.RayCount)
		tiles += uint64(s.TileCount)
		total += s.Total
		table.Append([]string{
			printer.Sprintf("%d", i),
			s.Backend,
			frameStatus(s),
			printer.Sprintf("%d", s.RayCount),
			printer.Sprintf("%d", s.TileCount),
			printer.Sprintf("%d", s.RayArgs.X),
			formatDuration(s.HitTime()),
			formatDuration(s.FilterTime()),
			formatDuration(s.Total),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL",
		printer.Sprintf("%d", rays), printer.Sprintf("%d", tiles), "", "", "", formatDuration(total)})
	table.Render()
}

// printStageTimings prints the mean time of each stage over the frames that
// were processed.
func printStageTimings(w io.Writer, stats []ssr.FrameStats) {
	var sums [ssr.StageCount]time.Duration
	var n int
	for _, s := range stats {
		if s.Skipped {
			continue
		}
		n++
		for i, d := range s.Timings {
			sums[i] += d
		}
	}
	if n == 0 {
		fmt.Fprintln(w, "no frames were processed")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Stage", "Mean", "% of frame"})
	var all time.Duration
	for _, d := range sums {
		all += d
	}
	for i, d := range sums {
		share := 0.0
		if all > 0 {
			share = 100 * float64(d) / float64(all)
		}
		table.Append([]string{
			ssr.Stage(i).String(), //nolint:gosec // small index
			formatDuration(d / time.Duration(n)),
			printer.Sprintf("%.1f %%", share),
		})
	}
	table.SetFooter([]string{"TOTAL", formatDuration(all / time.Duration(n)), ""})
	table.Render()
}

func formatDuration(d time.Duration) string {
	return printer.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}
