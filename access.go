package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// AccessType is the pipeline stage and read/write mode a resource is used
// in. Barriers are synthesized whenever consecutive uses of a resource
// declare different access types.
type AccessType uint8

const (
	// AccessNone is the state of freshly allocated resources. Contents are
	// undefined.
	AccessNone AccessType = iota

	// Reads.
	AccessIndirectBuffer
	AccessIndexBuffer
	AccessVertexBuffer
	AccessVertexShaderReadUniformBuffer
	AccessVertexShaderReadSampledImage
	AccessFragmentShaderReadUniformBuffer
	AccessFragmentShaderReadSampledImage
	AccessFragmentShaderReadStorage
	AccessColorAttachmentRead
	AccessDepthStencilAttachmentRead
	AccessComputeShaderReadUniformBuffer
	AccessComputeShaderReadSampledImage
	AccessComputeShaderReadStorage
	AccessAnyShaderRead
	AccessRayTracingShaderReadSampledImage
	AccessRayTracingShaderReadStorage
	AccessRayTracingShaderReadAccelStruct
	AccessTransferRead
	AccessHostRead
	AccessPresent

	// Writes.
	AccessVertexShaderWrite
	AccessFragmentShaderWrite
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentWrite
	AccessComputeShaderWrite
	AccessAnyShaderWrite
	AccessRayTracingShaderWrite
	AccessAccelStructBuildWrite
	AccessTransferWrite
	AccessHostWrite

	// AccessGeneral permits any use; it is both a read and a write.
	AccessGeneral

	accessTypeCount
)

type accessInfo struct {
	name    string
	read    bool
	write   bool
	texture gputypes.TextureUsage
	buffer  gputypes.BufferUsage
}

var accessTable = [accessTypeCount]accessInfo{
	AccessNone:                             {name: "None"},
	AccessIndirectBuffer:                   {name: "IndirectBuffer", read: true, buffer: gputypes.BufferUsageIndirect},
	AccessIndexBuffer:                      {name: "IndexBuffer", read: true, buffer: gputypes.BufferUsageIndex},
	AccessVertexBuffer:                     {name: "VertexBuffer", read: true, buffer: gputypes.BufferUsageVertex},
	AccessVertexShaderReadUniformBuffer:    {name: "VertexShaderReadUniformBuffer", read: true, buffer: gputypes.BufferUsageUniform},
	AccessVertexShaderReadSampledImage:     {name: "VertexShaderReadSampledImage", read: true, texture: gputypes.TextureUsageTextureBinding},
	AccessFragmentShaderReadUniformBuffer:  {name: "FragmentShaderReadUniformBuffer", read: true, buffer: gputypes.BufferUsageUniform},
	AccessFragmentShaderReadSampledImage:   {name: "FragmentShaderReadSampledImage", read: true, texture: gputypes.TextureUsageTextureBinding},
	AccessFragmentShaderReadStorage:        {name: "FragmentShaderReadStorage", read: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessColorAttachmentRead:              {name: "ColorAttachmentRead", read: true, texture: gputypes.TextureUsageRenderAttachment},
	AccessDepthStencilAttachmentRead:       {name: "DepthStencilAttachmentRead", read: true, texture: gputypes.TextureUsageRenderAttachment},
	AccessComputeShaderReadUniformBuffer:   {name: "ComputeShaderReadUniformBuffer", read: true, buffer: gputypes.BufferUsageUniform},
	AccessComputeShaderReadSampledImage:    {name: "ComputeShaderReadSampledImage", read: true, texture: gputypes.TextureUsageTextureBinding},
	AccessComputeShaderReadStorage:         {name: "ComputeShaderReadStorage", read: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessAnyShaderRead:                    {name: "AnyShaderRead", read: true, texture: gputypes.TextureUsageTextureBinding, buffer: gputypes.BufferUsageStorage},
	AccessRayTracingShaderReadSampledImage: {name: "RayTracingShaderReadSampledImage", read: true, texture: gputypes.TextureUsageTextureBinding},
	AccessRayTracingShaderReadStorage:      {name: "RayTracingShaderReadStorage", read: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessRayTracingShaderReadAccelStruct:  {name: "RayTracingShaderReadAccelStruct", read: true, buffer: gputypes.BufferUsageStorage},
	AccessTransferRead:                     {name: "TransferRead", read: true, texture: gputypes.TextureUsageCopySrc, buffer: gputypes.BufferUsageCopySrc},
	AccessHostRead:                         {name: "HostRead", read: true, buffer: gputypes.BufferUsageMapRead},
	// Surfaces are presented from the attachment state.
	AccessPresent: {name: "Present", read: true, texture: gputypes.TextureUsageRenderAttachment},

	AccessVertexShaderWrite:           {name: "VertexShaderWrite", write: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessFragmentShaderWrite:         {name: "FragmentShaderWrite", write: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessColorAttachmentWrite:        {name: "ColorAttachmentWrite", write: true, texture: gputypes.TextureUsageRenderAttachment},
	AccessDepthStencilAttachmentWrite: {name: "DepthStencilAttachmentWrite", write: true, texture: gputypes.TextureUsageRenderAttachment},
	AccessComputeShaderWrite:          {name: "ComputeShaderWrite", write: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessAnyShaderWrite:              {name: "AnyShaderWrite", write: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessRayTracingShaderWrite:       {name: "RayTracingShaderWrite", write: true, texture: gputypes.TextureUsageStorageBinding, buffer: gputypes.BufferUsageStorage},
	AccessAccelStructBuildWrite:       {name: "AccelStructBuildWrite", write: true, buffer: gputypes.BufferUsageStorage},
	AccessTransferWrite:               {name: "TransferWrite", write: true, texture: gputypes.TextureUsageCopyDst, buffer: gputypes.BufferUsageCopyDst},
	AccessHostWrite:                   {name: "HostWrite", write: true, buffer: gputypes.BufferUsageMapWrite},

	AccessGeneral: {
		name:    "General",
		read:    true,
		write:   true,
		texture: gputypes.TextureUsageStorageBinding,
		buffer:  gputypes.BufferUsageStorage,
	},
}

func (a AccessType) info() accessInfo {
	if a >= accessTypeCount {
		return accessInfo{name: fmt.Sprintf("Unknown(%d)", uint8(a))}
	}
	return accessTable[a]
}

// String returns the access type name.
func (a AccessType) String() string { return a.info().name }

// IsRead reports whether the access reads the resource.
func (a AccessType) IsRead() bool { return a.info().read }

// IsWrite reports whether the access writes the resource.
func (a AccessType) IsWrite() bool { return a.info().write }

// IsAttachment reports whether the access uses the resource as a render
// pass attachment.
func (a AccessType) IsAttachment() bool {
	switch a {
	case AccessColorAttachmentRead, AccessColorAttachmentWrite,
		AccessDepthStencilAttachmentRead, AccessDepthStencilAttachmentWrite:
		return true
	}
	return false
}

// TextureUsage returns the texture usage a backend must transition an
// image into for this access. AccessNone maps to zero (undefined contents).
func (a AccessType) TextureUsage() gputypes.TextureUsage { return a.info().texture }

// BufferUsage returns the buffer usage a backend must transition a buffer
// into for this access.
func (a AccessType) BufferUsage() gputypes.BufferUsage { return a.info().buffer }

// AccessMode tags a Ref with the capability it was declared for. It is a
// usage hint consumed by validation and barrier synthesis, never ownership.
type AccessMode uint8

const (
	// ModeRead is a shader or transfer read.
	ModeRead AccessMode = iota + 1

	// ModeWrite is a shader or transfer write.
	ModeWrite

	// ModeRenderTarget is a render pass attachment write.
	ModeRenderTarget
)

// String returns the mode name.
func (m AccessMode) String() string {
	switch m {
	case ModeRead:
		return "Read"
	case ModeWrite:
		return "Write"
	case ModeRenderTarget:
		return "RenderTarget"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// accepts reports whether access may be declared with mode m.
func (m AccessMode) accepts(a AccessType) bool {
	switch m {
	case ModeRead:
		return a.IsRead() && !a.IsWrite()
	case ModeWrite:
		return a.IsWrite()
	case ModeRenderTarget:
		return a == AccessColorAttachmentWrite || a == AccessDepthStencilAttachmentWrite
	}
	return false
}
