// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop HAL device and queue for testing.
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

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	device, queue := createNoopDevice(t)
	dev, err := NewDevice(device, queue)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	return dev
}

func TestNewDeviceNil(t *testing.T) {
	if _, err := NewDevice(nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewDevice(nil) error = %v, want ErrNilDevice", err)
	}
}

// mockProvider implements gpucontext.DeviceProvider without HAL access.
type mockProvider struct{}

func (mockProvider) Device() gpucontext.Device             { return nil }
func (mockProvider) Queue() gpucontext.Queue               { return nil }
func (mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// halMockProvider adds HalDevice and HalQueue.
type halMockProvider struct {
	mockProvider
	device hal.Device
	queue  hal.Queue
}

func (p halMockProvider) HalDevice() any { return p.device }
func (p halMockProvider) HalQueue() any  { return p.queue }

func TestFromProvider(t *testing.T) {
	if _, err := FromProvider(mockProvider{}); !errors.Is(err, ErrNotHALProvider) {
		t.Errorf("FromProvider(no HAL) error = %v, want ErrNotHALProvider", err)
	}

	device, queue := createNoopDevice(t)
	dev, err := FromProvider(halMockProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if dev.Raw() != device {
		t.Error("device not stored correctly")
	}
	if got := dev.SurfaceFormat(); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want RGBA8Unorm", got)
	}
	if got := dev.SurfaceDesc(640, 480); got.Width != 640 || got.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("SurfaceDesc() = %+v", got)
	}
}

func TestCreateDestroyResources(t *testing.T) {
	dev := newTestDevice(t)

	img := framegraph.NewImage2D(gputypes.TextureFormatRGBA8Unorm, 64, 32)
	res, err := dev.CreateResource(framegraph.Describe(img), "color")
	if err != nil {
		t.Fatalf("CreateResource(image): %v", err)
	}
	tex, ok := res.(*Texture)
	if !ok {
		t.Fatalf("CreateResource(image) returned %T, want *Texture", res)
	}
	if tex.Raw() == nil || tex.View() == nil {
		t.Error("texture or view is nil")
	}
	if tex.Descriptor() != framegraph.Describe(img) {
		t.Errorf("Descriptor() = %v, want %v", tex.Descriptor(), framegraph.Describe(img))
	}

	bufDesc := framegraph.NewBuffer(1024, gputypes.BufferUsageStorage)
	res, err = dev.CreateResource(framegraph.Describe(bufDesc), "data")
	if err != nil {
		t.Fatalf("CreateResource(buffer): %v", err)
	}
	buf := res.(*Buffer)
	if buf.Size() != 1024 {
		t.Errorf("Size() = %d, want 1024", buf.Size())
	}

	if s := dev.Stats(); s.Textures != 1 || s.Buffers != 1 {
		t.Errorf("Stats() = %v, want 1 texture and 1 buffer", s)
	}

	dev.DestroyResource(tex)
	dev.DestroyResource(tex) // second destroy is a no-op
	dev.DestroyResource(buf)
	if s := dev.Stats(); s.Textures != 0 || s.Buffers != 0 {
		t.Errorf("Stats() after destroy = %v, want none live", s)
	}
}

func TestCreateAccelStructUnsupported(t *testing.T) {
	dev := newTestDevice(t)
	desc := framegraph.Describe(framegraph.AccelStructDesc{Kind: framegraph.AccelStructTopLevel, Size: 4096})
	if _, err := dev.CreateResource(desc, "tlas"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CreateResource(accel) error = %v, want ErrUnsupported", err)
	}
}

func TestExternalTextureNotDestroyed(t *testing.T) {
	dev := newTestDevice(t)
	ext := External(nil, nil, framegraph.NewImage2D(gputypes.TextureFormatBGRA8Unorm, 8, 8), "surface")
	dev.DestroyResource(ext) // must not call into HAL with a nil texture
}

func TestTransitions(t *testing.T) {
	tex := &Texture{desc: framegraph.NewImage2D(gputypes.TextureFormatRGBA8Unorm, 4, 4)}
	buf := &Buffer{desc: framegraph.NewBuffer(16, gputypes.BufferUsageStorage)}

	texBarriers, bufBarriers := transitions([]framegraph.ResourceBarrier{
		{
			Barrier:  framegraph.Barrier{Prev: framegraph.AccessComputeShaderWrite, Next: framegraph.AccessFragmentShaderReadSampledImage},
			Resource: tex,
		},
		{
			Barrier:  framegraph.Barrier{Prev: framegraph.AccessTransferWrite, Next: framegraph.AccessComputeShaderReadStorage},
			Resource: buf,
		},
	})

	if len(texBarriers) != 1 || len(bufBarriers) != 1 {
		t.Fatalf("got %d texture and %d buffer barriers, want 1 and 1", len(texBarriers), len(bufBarriers))
	}
	if got := texBarriers[0].Usage; got.OldUsage != gputypes.TextureUsageStorageBinding ||
		got.NewUsage != gputypes.TextureUsageTextureBinding {
		t.Errorf("texture transition = %+v", got)
	}
	if got := bufBarriers[0].Usage; got.OldUsage != gputypes.BufferUsageCopyDst ||
		got.NewUsage != gputypes.BufferUsageStorage {
		t.Errorf("buffer transition = %+v", got)
	}
}

func TestRecordBarriersWrongRecorder(t *testing.T) {
	dev := newTestDevice(t)
	// Logged and ignored.
	dev.RecordBarriers("not an encoder", []framegraph.ResourceBarrier{{}})
	if s := dev.Stats(); s.TextureBarriers != 0 || s.BufferBarriers != 0 {
		t.Errorf("Stats() = %v, want no barriers", s)
	}
}

func TestSubmitWithoutQueue(t *testing.T) {
	device, _ := createNoopDevice(t)
	dev, err := NewDevice(device, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := dev.BeginFrame("frame")
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := dev.Submit(enc, time.Second); !errors.Is(err, ErrNoQueue) {
		t.Errorf("Submit() error = %v, want ErrNoQueue", err)
	}
}

func TestWriteBuffer(t *testing.T) {
	dev := newTestDevice(t)
	res, err := dev.CreateResource(framegraph.Describe(framegraph.NewBuffer(16, gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)), "upload")
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	buf := res.(*Buffer)
	defer dev.DestroyResource(buf)

	if err := dev.WriteBuffer(buf, 0, make([]byte, 16)); err != nil {
		t.Errorf("WriteBuffer(16 bytes) = %v", err)
	}
	if err := dev.WriteBuffer(buf, 8, make([]byte, 16)); err == nil {
		t.Error("WriteBuffer past the end should fail")
	}

	device, _ := createNoopDevice(t)
	noQueue, err := NewDevice(device, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := noQueue.WriteBuffer(buf, 0, []byte{1}); !errors.Is(err, ErrNoQueue) {
		t.Errorf("WriteBuffer() without queue = %v, want ErrNoQueue", err)
	}
}

// TestFrameOnNoopDevice drives two frames through a framegraph.Driver on a
// noop device and checks that the second frame reuses the first frame's
// transient texture.
func TestFrameOnNoopDevice(t *testing.T) {
	dev := newTestDevice(t)
	drv := framegraph.NewDriver(dev)

	desc := framegraph.NewImage2D(gputypes.TextureFormatRGBA8Unorm, 32, 32)
	for frame := 0; frame < 2; frame++ {
		g := drv.NewGraph()

		var img framegraph.Handle[framegraph.ImageDesc]
		var rendered bool
		g.AddPass("produce", func(pb *framegraph.PassBuilder) {
			img = framegraph.Create(pb, desc)
			out := framegraph.Write(pb, &img, framegraph.AccessComputeShaderWrite)
			pb.Render(func(pc *framegraph.PassContext) error {
				tex, err := framegraph.ResolveAs[*Texture](pc, out)
				if err != nil {
					return err
				}
				rendered = tex.Raw() != nil
				return nil
			})
		})
		g.AddPass("consume", func(pb *framegraph.PassBuilder) {
			framegraph.Read(pb, img, framegraph.AccessFragmentShaderReadSampledImage)
		})

		enc, err := dev.BeginFrame("frame")
		if err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		retired, err := g.CompileAndExecute(enc)
		if err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		if err := dev.Submit(enc, time.Second); err != nil {
			t.Fatalf("frame %d: Submit: %v", frame, err)
		}
		if err := retired.Retire(); err != nil {
			t.Fatalf("frame %d: Retire: %v", frame, err)
		}
		if !rendered {
			t.Errorf("frame %d: render function did not see a texture", frame)
		}
	}

	if s := dev.Stats(); s.Textures != 1 {
		t.Errorf("live textures = %d, want 1 (reused across frames)", s.Textures)
	}
	if s := dev.Stats(); s.TextureBarriers != 4 {
		t.Errorf("texture barriers = %d, want 4 (two per frame)", s.TextureBarriers)
	}

	if err := drv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s := dev.Stats(); s.Textures != 0 {
		t.Errorf("live textures after Close = %d, want 0", s.Textures)
	}
}
