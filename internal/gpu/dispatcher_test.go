// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/ssr/internal/history"
	"github.com/gogpu/ssr/internal/worklist"
)

// createNoopDevice creates a noop device and queue for testing.
// The noop backend keeps buffer contents in memory but runs no shaders.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newNoopDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	device, queue := createNoopDevice(t)
	d := NewDispatcher(device, queue)
	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestDispatcher_NotInitialized(t *testing.T) {
	device, queue := createNoopDevice(t)
	d := NewDispatcher(device, queue)
	if err := d.Run(testFrame(t, 8, 8)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Run before Init = %v, want ErrNotInitialized", err)
	}

	if err := d.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := d.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	d.Close()
	if err := d.Run(testFrame(t, 8, 8)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Run after Close = %v, want ErrNotInitialized", err)
	}
}

func TestDispatcher_InitNilDevice(t *testing.T) {
	if err := NewDispatcher(nil, nil).Init(); err == nil {
		t.Error("Init with nil device succeeded")
	}
}

func TestDispatcher_Init(t *testing.T) {
	d := newNoopDispatcher(t)
	if d.bgLayout == nil || d.pipelineLayout == nil {
		t.Fatal("layouts not created")
	}
	for s := range StageCount {
		if d.modules[s] == nil || d.pipelines[s] == nil {
			t.Errorf("stage %s not created", s)
		}
	}
}

func TestDispatcher_Run(t *testing.T) {
	d := newNoopDispatcher(t)
	f := testFrame(t, 20, 12)
	if err := d.Run(f); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.bufs == nil {
		t.Fatal("buffers not allocated")
	}
	if d.bufs.layout.width != 20 || d.bufs.layout.height != 12 {
		t.Errorf("buffers sized %dx%d, want 20x12", d.bufs.layout.width, d.bufs.layout.height)
	}
	// Nothing executes on the noop device, so the counters read back zero.
	if f.Lists.Rays() != 0 || f.Lists.Tiles() != 0 {
		t.Errorf("counters = %d, %d, want 0, 0", f.Lists.Rays(), f.Lists.Tiles())
	}
}

func TestDispatcher_BuffersFollowFrameSize(t *testing.T) {
	d := newNoopDispatcher(t)
	if err := d.Run(testFrame(t, 16, 16)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := d.bufs
	if err := d.Run(testFrame(t, 16, 16)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.bufs != first {
		t.Error("buffers reallocated for an unchanged frame size")
	}
	if err := d.Run(testFrame(t, 24, 8)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.bufs == first {
		t.Error("buffers not reallocated after a resize")
	}
	if got := d.bufs.layout.tiles(); got != 3 {
		t.Errorf("tiles = %d, want 3", got)
	}
}

// TestDispatcher_Readback fills the staging buffer by hand and checks that
// readback decodes every section into the frame.
func TestDispatcher_Readback(t *testing.T) {
	d := newNoopDispatcher(t)
	f := testFrame(t, 4, 2)
	l := newFrameLayout(f)
	if err := d.ensureBuffers(l); err != nil {
		t.Fatalf("ensureBuffers: %v", err)
	}

	staging := make([]byte, l.stagingBytes())

	color := f.Color.Clone()
	for i := range color.Pix {
		color.Pix[i] = mgl32.Vec3{float32(i), 1, 2}
	}
	copy(staging[l.stagingColor():], packColor(color))

	var src history.Set
	src.Ensure(4, 2)
	hist := src.Current()
	for i := range hist.Radiance.Pix {
		hist.Radiance.Pix[i] = mgl32.Vec3{0.5, 0.25, float32(i)}
		hist.Variance.Pix[i] = 0.125
		hist.Roughness.Pix[i] = 0.5
		hist.SampleCount.Pix[i] = float32(i + 1)
	}
	packHistory(staging[l.stagingHistory():], hist)

	le := binary.LittleEndian
	reflective := map[int]bool{1: true, 6: true}
	for i := range 8 {
		var w uint32
		if reflective[i] {
			w = 1
		}
		le.PutUint32(staging[l.stagingMask()+uint64(4*i):], w)
	}
	le.PutUint32(staging[l.stagingCounters():], 5)
	le.PutUint32(staging[l.stagingCounters()+4:], 1)
	copy(staging[l.stagingArgs():], worklist.IndirectArgs{GroupsX: 1, GroupsY: 1, GroupsZ: 1}.Bytes())
	copy(staging[l.stagingArgs()+worklist.IndirectArgsSize:], worklist.IndirectArgs{GroupsX: 1, GroupsY: 1, GroupsZ: 1}.Bytes())

	if err := d.queue.WriteBuffer(d.bufs.staging, 0, staging); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if err := d.readback(f, d.bufs); err != nil {
		t.Fatalf("readback: %v", err)
	}

	for i, c := range f.Color.Pix {
		if c != color.Pix[i] {
			t.Errorf("color[%d] = %v, want %v", i, c, color.Pix[i])
		}
	}
	cur := f.History.Current()
	for i := range cur.Radiance.Pix {
		if cur.Radiance.Pix[i] != hist.Radiance.Pix[i] || cur.SampleCount.Pix[i] != hist.SampleCount.Pix[i] {
			t.Errorf("history[%d] = %v n=%v, want %v n=%v", i,
				cur.Radiance.Pix[i], cur.SampleCount.Pix[i], hist.Radiance.Pix[i], hist.SampleCount.Pix[i])
		}
	}
	for i, m := range f.Scratch.Mask.Pix {
		if want := reflective[i]; (m == 1) != want {
			t.Errorf("mask[%d] = %d, want reflective=%v", i, m, want)
		}
	}
	if f.Lists.Rays() != 5 || f.Lists.Tiles() != 1 {
		t.Errorf("counters = %d, %d, want 5, 1", f.Lists.Rays(), f.Lists.Tiles())
	}
	want := worklist.IndirectArgs{GroupsX: 1, GroupsY: 1, GroupsZ: 1}
	if f.Lists.RayArgs != want || f.Lists.TileArgs != want {
		t.Errorf("args = %+v, %+v, want %+v", f.Lists.RayArgs, f.Lists.TileArgs, want)
	}
	if _, ok := d.Timings(); ok {
		t.Error("Timings() ok on a device without timestamp queries")
	}
}

func TestUnpackTimings(t *testing.T) {
	le := binary.LittleEndian
	raw := make([]byte, timestampBytes)
	for s := range StageCount {
		begin := uint64(1000 * (int(s) + 1))
		le.PutUint64(raw[16*int(s):], begin)
		le.PutUint64(raw[16*int(s)+8:], begin+uint64(10*(int(s)+1)))
	}
	// A pass whose counter wrapped reads as zero.
	le.PutUint64(raw[16*int(StageApply)+8:], 0)

	got := unpackTimings(raw, 2)
	for s := range StageCount {
		want := time.Duration(20 * (int(s) + 1))
		if s == StageApply {
			want = 0
		}
		if got[s] != want {
			t.Errorf("%s = %v, want %v", s, got[s], want)
		}
	}
}
