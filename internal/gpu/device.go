// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoHAL is returned when a device provider does not expose HAL handles.
var ErrNoHAL = errors.New("ssr gpu: provider does not expose HAL types")

// halProvider is implemented by providers that share their HAL device.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider extracts the HAL device and queue from a provider
// implementing HalDevice() any and HalQueue() any.
func FromProvider(provider any) (hal.Device, hal.Queue, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return device, queue, nil
}

// Device is a standalone headless device. It implements
// gpucontext.DeviceProvider together with HalDevice and HalQueue, so it can
// be passed wherever a shared device is accepted.
type Device struct {
	instance hal.Instance
	adapter  hal.ExposedAdapter
	device   hal.Device
	queue    hal.Queue
}

var _ gpucontext.DeviceProvider = (*Device)(nil)

// Open creates a device on the given backend, preferring a discrete or
// integrated GPU over other adapters.
func Open(backend gputypes.Backend) (*Device, error) {
	api, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("ssr gpu: backend %v not available", backend)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("ssr gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("ssr gpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("ssr gpu: open device: %w", err)
	}
	slogger().Info("ssr gpu: device opened",
		"adapter", selected.Info.Name,
		"type", selected.Info.DeviceType.String())
	return &Device{
		instance: instance,
		adapter:  *selected,
		device:   open.Device,
		queue:    open.Queue,
	}, nil
}

// Close destroys the device and its instance.
func (d *Device) Close() {
	if d.device != nil {
		if err := d.device.WaitIdle(); err != nil {
			slogger().Warn("ssr gpu: wait idle", "err", err)
		}
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// HalDevice returns the hal.Device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

func (d *Device) Device() gpucontext.Device   { return d.device }
func (d *Device) Queue() gpucontext.Queue     { return d.queue }
func (d *Device) Adapter() gpucontext.Adapter { return d.adapter.Adapter }

// SurfaceFormat is undefined: the device is headless.
func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports the adapter name and its coarse type.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	info := gpucontext.AdapterInfo{Name: d.adapter.Info.Name, Type: gpucontext.AdapterTypeUnknown}
	switch d.adapter.Info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		info.Type = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		info.Type = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		info.Type = gpucontext.AdapterTypeSoftware
	}
	return info
}
