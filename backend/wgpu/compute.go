// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrBindingCount is returned when Dispatch gets the wrong number of buffers.
var ErrBindingCount = errors.New("wgpu: buffer count does not match kernel bindings")

// BindingKind is the type of one buffer binding of a ComputeKernel.
type BindingKind uint8

const (
	// BindingUniform is a uniform buffer.
	BindingUniform BindingKind = iota

	// BindingStorageRead is a read-only storage buffer.
	BindingStorageRead

	// BindingStorage is a read-write storage buffer.
	BindingStorage
)

func (k BindingKind) bufferType() gputypes.BufferBindingType {
	switch k {
	case BindingUniform:
		return gputypes.BufferBindingTypeUniform
	case BindingStorageRead:
		return gputypes.BufferBindingTypeReadOnlyStorage
	default:
		return gputypes.BufferBindingTypeStorage
	}
}

// ComputeKernel is a compute pipeline whose group 0 binds buffers in
// declaration order, @binding(0) to @binding(n-1).
//
// Bind groups created by Dispatch stay alive until ReleaseBindGroups,
// which must be called after the GPU finished the dispatches.
type ComputeKernel struct {
	device   hal.Device
	label    string
	bindings []BindingKind

	bgLayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.ComputePipeline

	mu      sync.Mutex
	pending []hal.BindGroup
}

// NewComputeKernel compiles source through lib and builds the pipeline.
func NewComputeKernel(dev *Device, lib *ShaderLibrary, label, source, entryPoint string, bindings ...BindingKind) (*ComputeKernel, error) {
	module, err := lib.Module(label, source)
	if err != nil {
		return nil, err
	}

	k := &ComputeKernel{
		device:   dev.device,
		label:    label,
		bindings: bindings,
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i), //nolint:gosec // G115: binding count is tiny
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: b.bufferType()},
		}
	}
	k.bgLayout, err = k.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bgl",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel %s: create bind group layout: %w", label, err)
	}

	k.layout, err = k.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{k.bgLayout},
	})
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("kernel %s: create pipeline layout: %w", label, err)
	}

	k.pipeline, err = k.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: k.layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("kernel %s: create compute pipeline: %w", label, err)
	}
	return k, nil
}

// Dispatch records one compute pass binding buffers and dispatching
// x*y*z workgroups.
func (k *ComputeKernel) Dispatch(encoder hal.CommandEncoder, buffers []*Buffer, x, y, z uint32) error {
	if len(buffers) != len(k.bindings) {
		return fmt.Errorf("kernel %s: %w: got %d, want %d", k.label, ErrBindingCount, len(buffers), len(k.bindings))
	}

	entries := make([]gputypes.BindGroupEntry, len(buffers))
	for i, b := range buffers {
		entries[i] = gputypes.BindGroupEntry{
			Binding: uint32(i), //nolint:gosec // G115: binding count is tiny
			Resource: gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}
	bg, err := k.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   k.label + "_bg",
		Layout:  k.bgLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("kernel %s: create bind group: %w", k.label, err)
	}

	k.mu.Lock()
	k.pending = append(k.pending, bg)
	k.mu.Unlock()

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: k.label})
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(x, y, z)
	pass.End()
	return nil
}

// ReleaseBindGroups destroys the bind groups of finished dispatches.
func (k *ComputeKernel) ReleaseBindGroups() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, bg := range k.pending {
		k.device.DestroyBindGroup(bg)
	}
	k.pending = nil
}

// Destroy releases the pipeline objects. The shader module belongs to the
// ShaderLibrary.
func (k *ComputeKernel) Destroy() {
	k.ReleaseBindGroups()
	if k.pipeline != nil {
		k.device.DestroyComputePipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.layout != nil {
		k.device.DestroyPipelineLayout(k.layout)
		k.layout = nil
	}
	if k.bgLayout != nil {
		k.device.DestroyBindGroupLayout(k.bgLayout)
		k.bgLayout = nil
	}
}
