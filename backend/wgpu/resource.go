// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/wgpu/hal"
)

// Texture is a framegraph image backed by a HAL texture and its default view.
type Texture struct {
	tex      hal.Texture
	view     hal.TextureView
	desc     framegraph.ImageDesc
	label    string
	external bool
}

// Descriptor implements framegraph.Resource.
func (t *Texture) Descriptor() framegraph.Descriptor { return framegraph.Describe(t.desc) }

// Raw returns the HAL texture.
func (t *Texture) Raw() hal.Texture { return t.tex }

// View returns the default texture view.
func (t *Texture) View() hal.TextureView { return t.view }

// Desc returns the image descriptor.
func (t *Texture) Desc() framegraph.ImageDesc { return t.desc }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// String formats the texture for logs.
func (t *Texture) String() string {
	return fmt.Sprintf("Texture(%s %dx%d)", t.label, t.desc.Width, t.desc.Height)
}

// Buffer is a framegraph buffer backed by a HAL buffer.
type Buffer struct {
	buf   hal.Buffer
	desc  framegraph.BufferDesc
	label string
}

// Descriptor implements framegraph.Resource.
func (b *Buffer) Descriptor() framegraph.Descriptor { return framegraph.Describe(b.desc) }

// Raw returns the HAL buffer.
func (b *Buffer) Raw() hal.Buffer { return b.buf }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// String formats the buffer for logs.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(%s %d bytes)", b.label, b.desc.Size)
}

// External wraps a texture the caller owns, such as a surface texture, so
// it can be passed to framegraph.Import. Device.DestroyResource ignores
// external textures.
func External(tex hal.Texture, view hal.TextureView, desc framegraph.ImageDesc, label string) *Texture {
	return &Texture{tex: tex, view: view, desc: desc, label: label, external: true}
}
