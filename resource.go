package framegraph

import "fmt"

// Resource is a physical GPU allocation created by a Device.
type Resource interface {
	// Descriptor returns the descriptor the resource was created with.
	Descriptor() Descriptor
}

// CommandRecorder is the device's command recording handle. framegraph
// never inspects it; it is handed to the Device for barriers and to render
// functions through PassContext.
type CommandRecorder any

// Barrier is a synthesized access transition for one resource.
type Barrier struct {
	// Handle is the resource version the transition happens on.
	Handle RawHandle
	Prev   AccessType
	Next   AccessType
}

// String formats the barrier as handle: prev -> next.
func (b Barrier) String() string {
	return fmt.Sprintf("%v: %v -> %v", b.Handle, b.Prev, b.Next)
}

// ResourceBarrier is a Barrier bound to its physical resource.
type ResourceBarrier struct {
	Barrier
	Resource Resource
}

// Device is the contract framegraph consumes from the GPU abstraction.
//
// Implementations: backend/wgpu adapts a wgpu/hal device.
type Device interface {
	// CreateResource allocates a physical resource matching desc.
	CreateResource(desc Descriptor, label string) (Resource, error)

	// DestroyResource releases a resource previously created by CreateResource.
	DestroyResource(res Resource)

	// RecordBarriers records the transitions, in order, into rec. Barrier
	// recording cannot fail.
	RecordBarriers(rec CommandRecorder, barriers []ResourceBarrier)
}

// owner is the component holding a physical resource. A resource has
// exactly one owner at a time.
type owner uint8

const (
	ownerNone owner = iota
	ownerGraph
	ownerCache
	ownerTemporal
	ownerExternal
)

func (o owner) String() string {
	switch o {
	case ownerNone:
		return "none"
	case ownerGraph:
		return "graph"
	case ownerCache:
		return "cache"
	case ownerTemporal:
		return "temporal"
	case ownerExternal:
		return "external"
	default:
		return fmt.Sprintf("owner(%d)", uint8(o))
	}
}

// PhysicalResource wraps a device Resource with the bookkeeping framegraph
// needs to move it between the executing graph, the TransientCache and the
// TemporalRegistry.
type PhysicalResource struct {
	res    Resource
	desc   Descriptor
	serial uint64
	owner  owner
}

func newPhysicalResource(res Resource, desc Descriptor, serial uint64, o owner) *PhysicalResource {
	return &PhysicalResource{res: res, desc: desc, serial: serial, owner: o}
}

// Resource returns the device resource.
func (p *PhysicalResource) Resource() Resource { return p.res }

// Descriptor returns the descriptor the resource was allocated for.
func (p *PhysicalResource) Descriptor() Descriptor { return p.desc }

// Serial returns a driver-unique allocation number, stable for the
// lifetime of the resource.
func (p *PhysicalResource) Serial() uint64 { return p.serial }

// String formats the resource for logs.
func (p *PhysicalResource) String() string {
	return fmt.Sprintf("phys#%d(%v, %v)", p.serial, p.desc, p.owner)
}

// transfer moves ownership from one component to another.
func (p *PhysicalResource) transfer(from, to owner) error {
	if p.owner != from {
		return fmt.Errorf("%w: %v owned by %v, expected %v (moving to %v)",
			ErrOwnership, p, p.owner, from, to)
	}
	p.owner = to
	return nil
}
