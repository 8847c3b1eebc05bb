// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu adapts a gogpu/wgpu HAL device to framegraph.
//
// Device implements framegraph.Device: images become hal.Texture with a
// default view, buffers become hal.Buffer, and synthesized barriers are
// recorded with hal.CommandEncoder transitions. The framegraph access type
// of each barrier is mapped to WebGPU usage flags.
//
//	dev, err := wgpu.FromProvider(provider)
//	drv := framegraph.NewDriver(dev)
//
//	enc, err := dev.BeginFrame("frame")
//	retired, err := g.CompileAndExecute(enc)
//	err = dev.Submit(enc, time.Second)
//	err = retired.Retire()
//
// ShaderLibrary compiles WGSL with naga and caches shader modules;
// ComputeKernel builds a storage-buffer compute pipeline on top of it for
// use inside pass render functions.
package wgpu
