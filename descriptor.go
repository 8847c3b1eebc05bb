package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ResourceKind identifies which variant a Descriptor holds.
type ResourceKind uint8

const (
	// KindImage is a texture resource.
	KindImage ResourceKind = iota + 1

	// KindBuffer is a linear buffer resource.
	KindBuffer

	// KindAccelStruct is a ray tracing acceleration structure.
	KindAccelStruct
)

// String returns the kind name.
func (k ResourceKind) String() string {
	switch k {
	case KindImage:
		return "Image"
	case KindBuffer:
		return "Buffer"
	case KindAccelStruct:
		return "AccelStruct"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// ImageDesc describes the shape of an image independently of any
// allocation. Two images with equal descriptors are interchangeable.
type ImageDesc struct {
	Format    gputypes.TextureFormat
	Dimension gputypes.TextureDimension

	Width              uint32
	Height             uint32
	DepthOrArrayLayers uint32

	MipLevelCount uint32
	SampleCount   uint32

	Usage gputypes.TextureUsage
}

// NewImage2D returns a single-mip, single-sample 2D image descriptor.
// Usage defaults to sampling and storage access; use WithUsage to change it.
func NewImage2D(format gputypes.TextureFormat, width, height uint32) ImageDesc {
	return ImageDesc{
		Format:             format,
		Dimension:          gputypes.TextureDimension2D,
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: 1,
		MipLevelCount:      1,
		SampleCount:        1,
		Usage:              gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding,
	}
}

// NewImage3D returns a single-mip 3D image descriptor.
func NewImage3D(format gputypes.TextureFormat, width, height, depth uint32) ImageDesc {
	d := NewImage2D(format, width, height)
	d.Dimension = gputypes.TextureDimension3D
	d.DepthOrArrayLayers = depth
	return d
}

// WithUsage returns a copy of d with the given usage flags.
func (d ImageDesc) WithUsage(usage gputypes.TextureUsage) ImageDesc {
	d.Usage = usage
	return d
}

// WithMipLevels returns a copy of d with the given mip level count.
func (d ImageDesc) WithMipLevels(n uint32) ImageDesc {
	d.MipLevelCount = n
	return d
}

// WithArrayLayers returns a copy of d with the given array layer count.
func (d ImageDesc) WithArrayLayers(n uint32) ImageDesc {
	d.DepthOrArrayLayers = n
	return d
}

// WithSampleCount returns a copy of d with the given sample count.
func (d ImageDesc) WithSampleCount(n uint32) ImageDesc {
	d.SampleCount = n
	return d
}

// HalfResolution returns a copy of d with width and height halved,
// clamped to one texel.
func (d ImageDesc) HalfResolution() ImageDesc {
	d.Width = max(d.Width/2, 1)
	d.Height = max(d.Height/2, 1)
	return d
}

func (d ImageDesc) validate() error {
	switch {
	case d.Format == gputypes.TextureFormatUndefined:
		return fmt.Errorf("%w: image format undefined", ErrInvalidDescriptor)
	case d.Width == 0 || d.Height == 0 || d.DepthOrArrayLayers == 0:
		return fmt.Errorf("%w: image extent %dx%dx%d", ErrInvalidDescriptor,
			d.Width, d.Height, d.DepthOrArrayLayers)
	case d.MipLevelCount == 0:
		return fmt.Errorf("%w: image needs at least one mip level", ErrInvalidDescriptor)
	case d.SampleCount == 0:
		return fmt.Errorf("%w: image needs at least one sample", ErrInvalidDescriptor)
	case d.Usage == 0:
		return fmt.Errorf("%w: image usage is empty", ErrInvalidDescriptor)
	}
	return nil
}

// BufferDesc describes a linear buffer.
type BufferDesc struct {
	Size  uint64
	Usage gputypes.BufferUsage
}

// NewBuffer returns a buffer descriptor.
func NewBuffer(size uint64, usage gputypes.BufferUsage) BufferDesc {
	return BufferDesc{Size: size, Usage: usage}
}

func (d BufferDesc) validate() error {
	if d.Size == 0 {
		return fmt.Errorf("%w: buffer size is zero", ErrInvalidDescriptor)
	}
	if d.Usage == 0 {
		return fmt.Errorf("%w: buffer usage is empty", ErrInvalidDescriptor)
	}
	return nil
}

// AccelStructKind distinguishes top and bottom level acceleration structures.
type AccelStructKind uint8

const (
	AccelStructTopLevel AccelStructKind = iota + 1
	AccelStructBottomLevel
)

// String returns the acceleration structure level name.
func (k AccelStructKind) String() string {
	switch k {
	case AccelStructTopLevel:
		return "TopLevel"
	case AccelStructBottomLevel:
		return "BottomLevel"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// AccelStructDesc describes an acceleration structure by level and backing size.
type AccelStructDesc struct {
	Kind AccelStructKind
	Size uint64
}

func (d AccelStructDesc) validate() error {
	if d.Kind != AccelStructTopLevel && d.Kind != AccelStructBottomLevel {
		return fmt.Errorf("%w: acceleration structure kind %v", ErrInvalidDescriptor, d.Kind)
	}
	if d.Size == 0 {
		return fmt.Errorf("%w: acceleration structure size is zero", ErrInvalidDescriptor)
	}
	return nil
}

// ResourceDesc is the set of descriptor types a Handle can carry.
type ResourceDesc interface {
	ImageDesc | BufferDesc | AccelStructDesc
}

// Descriptor is the comparable union of all descriptor variants. Only the
// field selected by Kind is meaningful; the others are zero so that == is
// structural equality of the active variant. Descriptor keys the
// TransientCache.
type Descriptor struct {
	Kind        ResourceKind
	Image       ImageDesc
	Buffer      BufferDesc
	AccelStruct AccelStructDesc
}

// Describe converts a typed descriptor into a Descriptor.
func Describe[D ResourceDesc](d D) Descriptor {
	switch v := any(d).(type) {
	case ImageDesc:
		return Descriptor{Kind: KindImage, Image: v}
	case BufferDesc:
		return Descriptor{Kind: KindBuffer, Buffer: v}
	case AccelStructDesc:
		return Descriptor{Kind: KindAccelStruct, AccelStruct: v}
	}
	panic("unreachable")
}

// descriptorAs extracts the typed variant D from d.
func descriptorAs[D ResourceDesc](d Descriptor) (D, bool) {
	var out D
	var v any
	switch any(out).(type) {
	case ImageDesc:
		if d.Kind != KindImage {
			return out, false
		}
		v = d.Image
	case BufferDesc:
		if d.Kind != KindBuffer {
			return out, false
		}
		v = d.Buffer
	case AccelStructDesc:
		if d.Kind != KindAccelStruct {
			return out, false
		}
		v = d.AccelStruct
	}
	return v.(D), true
}

// Validate reports whether the descriptor can back a physical resource.
func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindImage:
		return d.Image.validate()
	case KindBuffer:
		return d.Buffer.validate()
	case KindAccelStruct:
		return d.AccelStruct.validate()
	default:
		return fmt.Errorf("%w: kind %v", ErrInvalidDescriptor, d.Kind)
	}
}

// String returns a compact description for logs.
func (d Descriptor) String() string {
	switch d.Kind {
	case KindImage:
		im := d.Image
		return fmt.Sprintf("Image[%v %dx%dx%d mips=%d samples=%d usage=%#x]",
			im.Format, im.Width, im.Height, im.DepthOrArrayLayers,
			im.MipLevelCount, im.SampleCount, uint32(im.Usage))
	case KindBuffer:
		return fmt.Sprintf("Buffer[%d bytes usage=%#x]", d.Buffer.Size, uint32(d.Buffer.Usage))
	case KindAccelStruct:
		return fmt.Sprintf("AccelStruct[%v %d bytes]", d.AccelStruct.Kind, d.AccelStruct.Size)
	default:
		return fmt.Sprintf("Descriptor[%v]", d.Kind)
	}
}
