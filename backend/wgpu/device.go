// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Backend errors.
var (
	// ErrNilDevice is returned when a Device is created without a HAL device.
	ErrNilDevice = errors.New("wgpu: HAL device is nil")

	// ErrNotHALProvider is returned when a provider does not expose HAL types.
	ErrNotHALProvider = errors.New("wgpu: provider does not expose HAL device and queue")

	// ErrUnsupported is returned for resource kinds HAL cannot create.
	ErrUnsupported = errors.New("wgpu: resource kind not supported")

	// ErrNoQueue is returned by Submit on a device created without a queue.
	ErrNoQueue = errors.New("wgpu: device has no queue")

	// ErrGPUTimeout is returned by Submit when the GPU did not finish in time.
	ErrGPUTimeout = errors.New("wgpu: timed out waiting for GPU")
)

// DeviceStats contains allocation counters.
type DeviceStats struct {
	Textures int
	Buffers  int

	// TextureBarriers and BufferBarriers count recorded transitions.
	TextureBarriers uint64
	BufferBarriers  uint64
}

// String returns a human-readable summary.
func (s DeviceStats) String() string {
	return fmt.Sprintf("Device[%d textures, %d buffers, %d texture barriers, %d buffer barriers]",
		s.Textures, s.Buffers, s.TextureBarriers, s.BufferBarriers)
}

// Device implements framegraph.Device on a HAL device.
//
// Device is safe for concurrent use.
type Device struct {
	device hal.Device
	queue  hal.Queue

	surfaceFormat gputypes.TextureFormat

	mu    sync.Mutex
	stats DeviceStats
}

// NewDevice wraps a HAL device and queue. queue may be nil if Submit is
// never used.
func NewDevice(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Device{
		device:        device,
		queue:         queue,
		surfaceFormat: gputypes.TextureFormatBGRA8Unorm,
	}, nil
}

// FromProvider returns a Device sharing the HAL device of a gpucontext
// provider, such as the one from gogpu.App.GPUContextProvider(). The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNotHALProvider, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNotHALProvider, hp.HalQueue())
	}

	d, err := NewDevice(device, queue)
	if err != nil {
		return nil, err
	}
	d.surfaceFormat = provider.SurfaceFormat()
	return d, nil
}

// Raw returns the HAL device.
func (d *Device) Raw() hal.Device { return d.device }

// SurfaceFormat returns the provider's surface format, BGRA8Unorm for
// devices not created from a provider.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.surfaceFormat }

// SurfaceDesc returns the descriptor of a width x height surface texture,
// for importing it into a graph.
func (d *Device) SurfaceDesc(width, height uint32) framegraph.ImageDesc {
	return framegraph.NewImage2D(d.surfaceFormat, width, height).
		WithUsage(gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst)
}

// CreateResource implements framegraph.Device.
func (d *Device) CreateResource(desc framegraph.Descriptor, label string) (framegraph.Resource, error) {
	switch desc.Kind {
	case framegraph.KindImage:
		return d.createTexture(desc.Image, label)
	case framegraph.KindBuffer:
		return d.createBuffer(desc.Buffer, label)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, desc.Kind)
	}
}

func (d *Device) createTexture(desc framegraph.ImageDesc, label string) (*Texture, error) {
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.DepthOrArrayLayers,
		},
		MipLevelCount: desc.MipLevelCount,
		SampleCount:   desc.SampleCount,
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}

	d.mu.Lock()
	d.stats.Textures++
	d.mu.Unlock()

	return &Texture{tex: tex, view: view, desc: desc, label: label}, nil
}

func (d *Device) createBuffer(desc framegraph.BufferDesc, label string) (*Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}

	d.mu.Lock()
	d.stats.Buffers++
	d.mu.Unlock()

	return &Buffer{buf: buf, desc: desc, label: label}, nil
}

// DestroyResource implements framegraph.Device.
func (d *Device) DestroyResource(res framegraph.Resource) {
	switch r := res.(type) {
	case *Texture:
		if r.external || r.tex == nil {
			return
		}
		if r.view != nil {
			d.device.DestroyTextureView(r.view)
			r.view = nil
		}
		d.device.DestroyTexture(r.tex)
		r.tex = nil

		d.mu.Lock()
		d.stats.Textures--
		d.mu.Unlock()

	case *Buffer:
		if r.buf == nil {
			return
		}
		d.device.DestroyBuffer(r.buf)
		r.buf = nil

		d.mu.Lock()
		d.stats.Buffers--
		d.mu.Unlock()

	default:
		framegraph.Logger().Warn("wgpu: destroying foreign resource", "type", fmt.Sprintf("%T", res))
	}
}

// RecordBarriers implements framegraph.Device. rec must be a
// hal.CommandEncoder in the encoding state.
func (d *Device) RecordBarriers(rec framegraph.CommandRecorder, barriers []framegraph.ResourceBarrier) {
	encoder, ok := rec.(hal.CommandEncoder)
	if !ok {
		framegraph.Logger().Error("wgpu: command recorder is not a hal.CommandEncoder",
			"type", fmt.Sprintf("%T", rec), "barriers", len(barriers))
		return
	}

	texBarriers, bufBarriers := transitions(barriers)
	if len(texBarriers) > 0 {
		encoder.TransitionTextures(texBarriers)
	}
	if len(bufBarriers) > 0 {
		encoder.TransitionBuffers(bufBarriers)
	}

	d.mu.Lock()
	d.stats.TextureBarriers += uint64(len(texBarriers))
	d.stats.BufferBarriers += uint64(len(bufBarriers))
	d.mu.Unlock()
}

// transitions maps framegraph barriers to HAL usage transitions. Relative
// order is kept within each resource kind.
func transitions(barriers []framegraph.ResourceBarrier) ([]hal.TextureBarrier, []hal.BufferBarrier) {
	var texBarriers []hal.TextureBarrier
	var bufBarriers []hal.BufferBarrier
	for _, b := range barriers {
		switch r := b.Resource.(type) {
		case *Texture:
			texBarriers = append(texBarriers, hal.TextureBarrier{
				Texture: r.tex,
				Usage: hal.TextureUsageTransition{
					OldUsage: b.Prev.TextureUsage(),
					NewUsage: b.Next.TextureUsage(),
				},
			})
		case *Buffer:
			bufBarriers = append(bufBarriers, hal.BufferBarrier{
				Buffer: r.buf,
				Usage: hal.BufferUsageTransition{
					OldUsage: b.Prev.BufferUsage(),
					NewUsage: b.Next.BufferUsage(),
				},
			})
		default:
			framegraph.Logger().Warn("wgpu: skipping barrier on foreign resource",
				"barrier", b.Barrier, "type", fmt.Sprintf("%T", b.Resource))
		}
	}
	return texBarriers, bufBarriers
}

// BeginFrame creates a command encoder and begins encoding.
func (d *Device) BeginFrame(label string) (hal.CommandEncoder, error) {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label + "_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return encoder, nil
}

// Submit ends encoding, submits the commands and waits up to timeout for
// the GPU to finish them. After Submit returns nil the frame's graph can be
// retired.
func (d *Device) Submit(encoder hal.CommandEncoder, timeout time.Duration) error {
	if d.queue == nil {
		encoder.DiscardEncoding()
		return ErrNoQueue
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, timeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrGPUTimeout, timeout)
	}
	return nil
}

// WriteBuffer uploads data into buf at offset through the queue.
func (d *Device) WriteBuffer(buf *Buffer, offset uint64, data []byte) error {
	if d.queue == nil {
		return ErrNoQueue
	}
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("write %d bytes at %d into %s: out of range", len(data), offset, buf)
	}
	if len(data) > 0 {
		d.queue.WriteBuffer(buf.buf, offset, data)
	}
	return nil
}

// Stats returns allocation counters.
func (d *Device) Stats() DeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
