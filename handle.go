package framegraph

import "fmt"

// RawHandle identifies one version of a logical resource inside a single
// graph. ID names the logical slot; Version increments on every write.
// Two handles are equal only if both fields match.
type RawHandle struct {
	ID      uint32
	Version uint32
}

// String formats the handle as #id@vN.
func (h RawHandle) String() string {
	return fmt.Sprintf("#%d@v%d", h.ID, h.Version)
}

func (h RawHandle) next() RawHandle {
	return RawHandle{ID: h.ID, Version: h.Version + 1}
}

// Handle is the current value of a logical resource. It is passed between
// pass declarations: Write replaces the caller's Handle with the next
// version, so later passes reference the post-write value. Copies of the
// previous value are stale and rejected by Read and Write.
type Handle[D ResourceDesc] struct {
	raw   RawHandle
	desc  D
	graph *Graph
}

// Raw returns the versioned identifier.
func (h Handle[D]) Raw() RawHandle { return h.raw }

// Desc returns the resource descriptor.
func (h Handle[D]) Desc() D { return h.desc }

// IsValid reports whether h was produced by a graph.
func (h Handle[D]) IsValid() bool { return h.graph != nil }

// String formats the handle for logs.
func (h Handle[D]) String() string {
	return fmt.Sprintf("Handle%v", h.raw)
}

// Ref is a capability to use one version of a resource inside a single
// pass's render function. It carries the declared access type and mode.
type Ref[D ResourceDesc] struct {
	raw    RawHandle
	desc   D
	mode   AccessMode
	access AccessType
}

// Raw returns the versioned identifier the ref is bound to.
func (r Ref[D]) Raw() RawHandle { return r.raw }

// Desc returns the resource descriptor.
func (r Ref[D]) Desc() D { return r.desc }

// Mode returns the capability the ref was declared with.
func (r Ref[D]) Mode() AccessMode { return r.mode }

// Access returns the declared access type.
func (r Ref[D]) Access() AccessType { return r.access }

// IsValid reports whether the ref was produced by a successful declaration.
func (r Ref[D]) IsValid() bool { return r.mode != 0 }

// Resolve returns the physical resource bound to r for the pass that
// pc belongs to.
func (r Ref[D]) Resolve(pc *PassContext) (Resource, error) {
	return pc.resolve(r.raw)
}
