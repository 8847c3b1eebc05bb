// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirv, nil
}

// ShaderLibrary compiles WGSL once per label and keeps the resulting
// shader modules until Destroy.
//
// ShaderLibrary is safe for concurrent use.
type ShaderLibrary struct {
	device hal.Device

	mu      sync.Mutex
	modules map[string]hal.ShaderModule
}

// NewShaderLibrary creates an empty library on device.
func NewShaderLibrary(device *Device) *ShaderLibrary {
	return &ShaderLibrary{
		device:  device.device,
		modules: make(map[string]hal.ShaderModule),
	}
}

// Module returns the shader module for label, compiling source on first use.
// A label always maps to the source it was first compiled from.
func (l *ShaderLibrary) Module(label, source string) (hal.ShaderModule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.modules[label]; ok {
		return m, nil
	}

	spirv, err := CompileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", label, err)
	}
	m, err := l.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("shader %s: create module: %w", label, err)
	}
	l.modules[label] = m

	framegraph.Logger().Debug("wgpu: shader compiled", "label", label, "words", len(spirv))
	return m, nil
}

// Len returns the number of cached modules.
func (l *ShaderLibrary) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.modules)
}

// Destroy releases every cached module.
func (l *ShaderLibrary) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for label, m := range l.modules {
		l.device.DestroyShaderModule(m)
		delete(l.modules, label)
	}
}
