// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ssr/internal/stage"
	"github.com/gogpu/ssr/internal/worklist"
)

const (
	// submitTimeout bounds the wait for one frame's command buffer.
	submitTimeout = 5 * time.Second

	pollInterval = 100 * time.Microsecond

	// bindingCount is the uniform plus eight storage buffers.
	bindingCount = 9

	// timestampCount is a begin and an end query per pass.
	timestampCount = 2 * uint32(StageCount)
	timestampBytes = 8 * uint64(timestampCount)
)

// ErrNotInitialized is returned by Run before Init or after Close.
var ErrNotInitialized = errors.New("ssr gpu: dispatcher not initialized")

// frameBuffers holds the GPU buffers of one resolution. The bind group
// references all of them and is rebuilt with them.
type frameBuffers struct {
	uniforms hal.Buffer
	inputs   hal.Buffer
	color    hal.Buffer
	histPrev hal.Buffer
	histCur  hal.Buffer
	counters hal.Buffer
	lists    hal.Buffer
	scratch  hal.Buffer
	args     hal.Buffer

	// timestamps is nil when the device has no timestamp queries.
	timestamps hal.Buffer

	// staging receives color, current history, mask, counters, args and
	// pass timestamps.
	staging hal.Buffer

	bindGroup hal.BindGroup
	layout    frameLayout
}

// Staging offsets, in bytes.
func (l *frameLayout) stagingColor() uint64    { return 0 }
func (l *frameLayout) stagingHistory() uint64  { return l.colorBytes() }
func (l *frameLayout) stagingMask() uint64     { return l.stagingHistory() + l.historyBytes() }
func (l *frameLayout) stagingCounters() uint64 { return l.stagingMask() + l.maskBytes() }
func (l *frameLayout) stagingArgs() uint64     { return l.stagingCounters() + countersSize }
func (l *frameLayout) stagingTimestamps() uint64 { return l.stagingArgs() + argsSize }
func (l *frameLayout) stagingBytes() uint64      { return l.stagingTimestamps() + timestampBytes }

// Dispatcher runs the reflection stages on a HAL device. It compiles one
// compute pipeline per stage, all sharing a single bind group layout, and
// reallocates its buffers when the frame layout changes.
//
// A Dispatcher is safe for use from one goroutine at a time; the mutex
// only guards Close against a concurrent Run.
type Dispatcher struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	bgLayout       hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	modules        [StageCount]hal.ShaderModule
	pipelines      [StageCount]hal.ComputePipeline

	// queries holds the pass timestamps; nil without timestamp support.
	queries hal.QuerySet
	period  float32

	bufs        *frameBuffers
	initialized bool

	timings [StageCount]time.Duration
	timed   bool
}

// NewDispatcher creates a dispatcher for the given device and queue. Init
// must be called before Run.
func NewDispatcher(device hal.Device, queue hal.Queue) *Dispatcher {
	return &Dispatcher{device: device, queue: queue}
}

// bindGroupLayoutEntries matches the @binding annotations of common.wgsl.
func bindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	entry := func(binding uint32, t gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}
	return []gputypes.BindGroupLayoutEntry{
		entry(0, gputypes.BufferBindingTypeUniform),
		entry(1, gputypes.BufferBindingTypeReadOnlyStorage), // inputs
		entry(2, gputypes.BufferBindingTypeStorage),         // color
		entry(3, gputypes.BufferBindingTypeReadOnlyStorage), // hist_prev
		entry(4, gputypes.BufferBindingTypeStorage),         // hist_cur
		entry(5, gputypes.BufferBindingTypeStorage),         // counters
		entry(6, gputypes.BufferBindingTypeStorage),         // lists
		entry(7, gputypes.BufferBindingTypeStorage),         // scratch
		entry(8, gputypes.BufferBindingTypeStorage),         // args
	}
}

// Init creates the shared layouts and compiles every stage. Calling Init
// again after success is a no-op.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}
	if d.device == nil || d.queue == nil {
		return errors.New("ssr gpu: nil device or queue")
	}

	bgl, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "ssr_bgl",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("ssr gpu: create bind group layout: %w", err)
	}
	d.bgLayout = bgl

	pl, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "ssr_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		d.destroyPipelines()
		return fmt.Errorf("ssr gpu: create pipeline layout: %w", err)
	}
	d.pipelineLayout = pl

	for s := range StageCount {
		if err := d.createPipeline(s); err != nil {
			d.destroyPipelines()
			return err
		}
	}

	d.createQueries()

	slogger().Info("ssr gpu: pipelines initialized",
		"stages", int(StageCount),
		"timestamps", d.queries != nil)
	d.initialized = true
	return nil
}

func (d *Dispatcher) createPipeline(s Stage) error {
	src, err := Source(s)
	if err != nil {
		return err
	}
	label := "ssr_" + s.String()

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return fmt.Errorf("ssr gpu: create shader module for %s: %w", s, err)
	}
	d.modules[s] = module

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: d.pipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("ssr gpu: create compute pipeline for %s: %w", s, err)
	}
	d.pipelines[s] = pipeline

	slogger().Debug("ssr gpu: pipeline created", "stage", s.String(), "shader_bytes", len(src))
	return nil
}

// createQueries sets up per-pass timestamps. Devices without timestamp
// support run untimed.
func (d *Dispatcher) createQueries() {
	qs, err := d.device.CreateQuerySet(&hal.QuerySetDescriptor{
		Label: "ssr_timestamps",
		Type:  hal.QueryTypeTimestamp,
		Count: timestampCount,
	})
	if err != nil {
		slogger().Debug("ssr gpu: pass timestamps unavailable", "err", err)
		return
	}
	d.queries = qs
	d.period = d.queue.GetTimestampPeriod()
}

// Timings returns the per-pass GPU durations of the last Run. ok is false
// when the device has no timestamp queries or no frame has run.
func (d *Dispatcher) Timings() (timings [StageCount]time.Duration, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timings, d.timed
}

// destroyPipelines releases whatever Init created so far.
func (d *Dispatcher) destroyPipelines() {
	if d.queries != nil {
		d.device.DestroyQuerySet(d.queries)
		d.queries = nil
	}
	for s := range StageCount {
		if d.pipelines[s] != nil {
			d.device.DestroyComputePipeline(d.pipelines[s])
			d.pipelines[s] = nil
		}
		if d.modules[s] != nil {
			d.device.DestroyShaderModule(d.modules[s])
			d.modules[s] = nil
		}
	}
	if d.pipelineLayout != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayout)
		d.pipelineLayout = nil
	}
	if d.bgLayout != nil {
		d.device.DestroyBindGroupLayout(d.bgLayout)
		d.bgLayout = nil
	}
}

// Close releases all GPU resources. The device itself is not destroyed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyBuffers()
	d.destroyPipelines()
	d.initialized = false
	d.timed = false
}

// ensureBuffers (re)allocates the frame buffers when the layout changes.
func (d *Dispatcher) ensureBuffers(l frameLayout) error {
	if d.bufs != nil && d.bufs.layout == l {
		return nil
	}
	d.destroyBuffers()

	b := &frameBuffers{layout: l}
	storage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	readback := storage | gputypes.BufferUsageCopySrc

	specs := []struct {
		target *hal.Buffer
		label  string
		size   uint64
		usage  gputypes.BufferUsage
	}{
		{&b.uniforms, "ssr_params", uniformSize, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{&b.inputs, "ssr_inputs", l.inputBytes(), storage},
		{&b.color, "ssr_color", l.colorBytes(), readback},
		{&b.histPrev, "ssr_hist_prev", l.historyBytes(), storage},
		{&b.histCur, "ssr_hist_cur", l.historyBytes(), readback},
		{&b.counters, "ssr_counters", countersSize, readback},
		{&b.lists, "ssr_lists", l.listsBytes(), readback},
		{&b.scratch, "ssr_scratch", l.scratchBytes(), storage},
		{&b.args, "ssr_args", argsSize, readback | gputypes.BufferUsageIndirect},
		{&b.staging, "ssr_staging", l.stagingBytes(), gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
	}
	if d.queries != nil {
		specs = append(specs, struct {
			target *hal.Buffer
			label  string
			size   uint64
			usage  gputypes.BufferUsage
		}{&b.timestamps, "ssr_timestamps", timestampBytes, gputypes.BufferUsageQueryResolve | gputypes.BufferUsageCopySrc})
	}
	for _, s := range specs {
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: s.label,
			Size:  max(s.size, 4),
			Usage: s.usage,
		})
		if err != nil {
			d.bufs = b
			d.destroyBuffers()
			return fmt.Errorf("ssr gpu: create %s buffer: %w", s.label, err)
		}
		*s.target = buf
	}

	bound := [bindingCount]hal.Buffer{
		b.uniforms, b.inputs, b.color, b.histPrev, b.histCur,
		b.counters, b.lists, b.scratch, b.args,
	}
	entries := make([]gputypes.BindGroupEntry, len(bound))
	for i, buf := range bound {
		entries[i] = gputypes.BindGroupEntry{
			Binding: uint32(i), //nolint:gosec // fixed small count
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Size:   0, // whole buffer
			},
		}
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "ssr_bg",
		Layout:  d.bgLayout,
		Entries: entries,
	})
	if err != nil {
		d.bufs = b
		d.destroyBuffers()
		return fmt.Errorf("ssr gpu: create bind group: %w", err)
	}
	b.bindGroup = bg
	d.bufs = b

	slogger().Debug("ssr gpu: buffers allocated",
		"size", fmt.Sprintf("%dx%d", l.width, l.height),
		"tiles", l.tiles(),
		"input_bytes", l.inputBytes(),
		"staging_bytes", l.stagingBytes())
	return nil
}

func (d *Dispatcher) destroyBuffers() {
	b := d.bufs
	if b == nil {
		return
	}
	if b.bindGroup != nil {
		d.device.DestroyBindGroup(b.bindGroup)
	}
	for _, buf := range []hal.Buffer{
		b.uniforms, b.inputs, b.color, b.histPrev, b.histCur,
		b.counters, b.lists, b.scratch, b.args, b.staging, b.timestamps,
	} {
		if buf != nil {
			d.device.DestroyBuffer(buf)
		}
	}
	d.bufs = nil
}

// Run executes all seven stages for one frame and reads the results back
// into f: the color target, the current history role, the reflective mask
// and the two counters.
func (d *Dispatcher) Run(f *stage.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return ErrNotInitialized
	}

	l := newFrameLayout(f)
	if err := d.ensureBuffers(l); err != nil {
		return err
	}
	b := d.bufs

	hist := make([]byte, l.historyBytes())
	packHistory(hist, f.History.Previous())
	uploads := []struct {
		name string
		buf  hal.Buffer
		data []byte
	}{
		{"params", b.uniforms, encodeUniforms(f, &l)},
		{"inputs", b.inputs, packInputs(f, &l)},
		{"color", b.color, packColor(f.Color)},
		{"history", b.histPrev, hist},
	}
	for _, u := range uploads {
		if err := d.queue.WriteBuffer(u.buf, 0, u.data); err != nil {
			return fmt.Errorf("ssr gpu: upload %s: %w", u.name, err)
		}
	}

	cmd, err := d.encode(b)
	if err != nil {
		return err
	}
	defer d.device.FreeCommandBuffer(cmd)

	idx, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		return fmt.Errorf("ssr gpu: submit: %w", err)
	}
	if err := d.wait(idx); err != nil {
		return err
	}
	return d.readback(f, b)
}

// encode records the counter clear, the seven passes and the copies into
// the staging buffer.
func (d *Dispatcher) encode(b *frameBuffers) (hal.CommandBuffer, error) {
	l := &b.layout
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "ssr_frame"})
	if err != nil {
		return nil, fmt.Errorf("ssr gpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("ssr_frame"); err != nil {
		return nil, fmt.Errorf("ssr gpu: begin encoding: %w", err)
	}

	enc.ClearBuffer(b.counters, 0, countersSize)

	tileGroups := uint32((l.tiles() + worklist.GroupSize - 1) / worklist.GroupSize) //nolint:gosec // bounded by frame size
	for s := range StageCount {
		desc := &hal.ComputePassDescriptor{Label: "ssr_" + s.String()}
		if d.queries != nil {
			begin, end := 2*uint32(s), 2*uint32(s)+1 //nolint:gosec // s < StageCount
			desc.TimestampWrites = &hal.ComputePassTimestampWrites{
				QuerySet:                  d.queries,
				BeginningOfPassWriteIndex: &begin,
				EndOfPassWriteIndex:       &end,
			}
		}
		pass := enc.BeginComputePass(desc)
		pass.SetPipeline(d.pipelines[s])
		pass.SetBindGroup(0, b.bindGroup, nil)
		switch s {
		case StageClassify, StageApply:
			pass.Dispatch(tileGroups, 1, 1)
		case StageBuildArgs:
			pass.Dispatch(1, 1, 1)
		case StageIntersect:
			pass.DispatchIndirect(b.args, 0)
		default:
			pass.DispatchIndirect(b.args, worklist.IndirectArgsSize)
		}
		pass.End()
	}

	enc.CopyBufferToBuffer(b.color, b.staging, []hal.BufferCopy{{DstOffset: l.stagingColor(), Size: l.colorBytes()}})
	enc.CopyBufferToBuffer(b.histCur, b.staging, []hal.BufferCopy{{DstOffset: l.stagingHistory(), Size: l.historyBytes()}})
	enc.CopyBufferToBuffer(b.lists, b.staging, []hal.BufferCopy{{DstOffset: l.stagingMask(), Size: l.maskBytes()}})
	enc.CopyBufferToBuffer(b.counters, b.staging, []hal.BufferCopy{{DstOffset: l.stagingCounters(), Size: countersSize}})
	enc.CopyBufferToBuffer(b.args, b.staging, []hal.BufferCopy{{DstOffset: l.stagingArgs(), Size: argsSize}})
	if d.queries != nil && b.timestamps != nil {
		enc.ResolveQuerySet(d.queries, 0, timestampCount, b.timestamps, 0)
		enc.CopyBufferToBuffer(b.timestamps, b.staging, []hal.BufferCopy{{DstOffset: l.stagingTimestamps(), Size: timestampBytes}})
	}

	cmd, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("ssr gpu: end encoding: %w", err)
	}
	return cmd, nil
}

// wait polls until submission idx completes or submitTimeout passes.
func (d *Dispatcher) wait(idx uint64) error {
	deadline := time.Now().Add(submitTimeout)
	for d.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("ssr gpu: GPU timeout after %v", submitTimeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

func (d *Dispatcher) readback(f *stage.Frame, b *frameBuffers) error {
	l := &b.layout
	size := l.stagingBytes()
	m, err := d.device.MapBuffer(b.staging, 0, size)
	if err != nil {
		return fmt.Errorf("ssr gpu: map staging: %w", err)
	}
	defer func() {
		if err := d.device.UnmapBuffer(b.staging); err != nil {
			slogger().Warn("ssr gpu: unmap staging", "err", err)
		}
	}()
	raw := unsafe.Slice((*byte)(m.Ptr), size)

	unpackColor(raw[l.stagingColor():], f.Color)
	unpackHistory(raw[l.stagingHistory():], f.History.Current())

	le := binary.LittleEndian
	mask := raw[l.stagingMask():]
	for i := range f.Scratch.Mask.Pix {
		f.Scratch.Mask.Pix[i] = uint8(le.Uint32(mask[4*i:]) & 1)
	}

	c := l.stagingCounters()
	rays, tiles := le.Uint32(raw[c:]), le.Uint32(raw[c+4:])
	f.Lists.Store(rays, tiles)

	a := raw[l.stagingArgs():]
	f.Lists.RayArgs = unpackArgs(a)
	f.Lists.TileArgs = unpackArgs(a[worklist.IndirectArgsSize:])

	d.timed = d.queries != nil
	if d.timed {
		d.timings = unpackTimings(raw[l.stagingTimestamps():], d.period)
	}

	slogger().Debug("ssr gpu: frame complete",
		"rays", rays,
		"tiles", tiles,
		"ray_groups", f.Lists.RayArgs.GroupsX,
		"tile_groups", f.Lists.TileArgs.GroupsX,
		"coherent", m.IsCoherent)
	return nil
}

// unpackArgs reads one indirect dispatch triple as the GPU wrote it.
func unpackArgs(b []byte) worklist.IndirectArgs {
	le := binary.LittleEndian
	return worklist.IndirectArgs{
		GroupsX: le.Uint32(b[0:]),
		GroupsY: le.Uint32(b[4:]),
		GroupsZ: le.Uint32(b[8:]),
	}
}

// unpackTimings converts resolved begin/end tick pairs into pass durations.
// period is nanoseconds per tick. A pass whose end precedes its begin reads
// as zero.
func unpackTimings(b []byte, period float32) [StageCount]time.Duration {
	le := binary.LittleEndian
	var out [StageCount]time.Duration
	for s := range StageCount {
		begin := le.Uint64(b[16*int(s):])
		end := le.Uint64(b[16*int(s)+8:])
		if end <= begin {
			continue
		}
		out[s] = time.Duration(float64(end-begin) * float64(period))
	}
	return out
}
