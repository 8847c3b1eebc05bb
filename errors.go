package framegraph

import "errors"

// Usage errors. They are detected while passes are declared or while the
// graph compiles, and abort the frame before any barrier is recorded.
var (
	// ErrDoubleWrite is returned when a pass writes the same resource twice.
	ErrDoubleWrite = errors.New("framegraph: resource written twice in one pass")

	// ErrReadWriteConflict is returned when a pass both reads and writes a resource.
	ErrReadWriteConflict = errors.New("framegraph: resource both read and written in one pass")

	// ErrStaleHandle is returned when a handle refers to a superseded version.
	ErrStaleHandle = errors.New("framegraph: stale resource handle")

	// ErrInvalidHandle is returned for zero-value handles.
	ErrInvalidHandle = errors.New("framegraph: invalid resource handle")

	// ErrForeignHandle is returned when a handle from another graph is used.
	ErrForeignHandle = errors.New("framegraph: handle belongs to another graph")

	// ErrAccessMismatch is returned when an access type does not fit the
	// declared use (a write access passed to Read, a read access to Write).
	ErrAccessMismatch = errors.New("framegraph: access type does not match declared use")

	// ErrRenderAlreadySet is returned when Render is called twice for a pass.
	ErrRenderAlreadySet = errors.New("framegraph: pass already has a render function")

	// ErrPassCommitted is returned when a PassBuilder is used after its
	// declaration callback returned.
	ErrPassCommitted = errors.New("framegraph: pass builder used after commit")

	// ErrNestedPass is returned when AddPass is called while another pass
	// is being declared.
	ErrNestedPass = errors.New("framegraph: nested pass declaration")

	// ErrUseAfterExport is returned when an exported resource is used again.
	ErrUseAfterExport = errors.New("framegraph: resource used after export")

	// ErrAlreadyExported is returned when a resource is exported twice.
	ErrAlreadyExported = errors.New("framegraph: resource already exported")

	// ErrInvalidDescriptor is returned for descriptors that cannot back a resource.
	ErrInvalidDescriptor = errors.New("framegraph: invalid resource descriptor")

	// ErrDescriptorKind is returned when a resource's descriptor kind does not
	// match the requested handle type.
	ErrDescriptorKind = errors.New("framegraph: descriptor kind mismatch")

	// ErrInvalidState is returned when an operation does not fit the graph's
	// current lifecycle state.
	ErrInvalidState = errors.New("framegraph: invalid graph state")

	// ErrUndeclaredResource is returned when a render function resolves a
	// resource its pass did not declare.
	ErrUndeclaredResource = errors.New("framegraph: resource not declared by pass")

	// ErrPingPongKeys is returned when a ping-pong pair uses one key twice.
	ErrPingPongKeys = errors.New("framegraph: ping-pong keys must differ")
)

// Temporal registry errors.
var (
	// ErrTemporalAlreadyImported is returned when a key is imported twice
	// without an intervening export.
	ErrTemporalAlreadyImported = errors.New("framegraph: temporal resource already imported")

	// ErrTemporalNotImported is returned when a key is exported without a
	// preceding import.
	ErrTemporalNotImported = errors.New("framegraph: temporal resource not imported")

	// ErrTemporalNotExported is returned when a key is retired while not exported.
	ErrTemporalNotExported = errors.New("framegraph: temporal resource not exported")

	// ErrTemporalNotRetired is returned when a key is imported while its
	// previous export has not been retired yet.
	ErrTemporalNotRetired = errors.New("framegraph: temporal resource exported but not retired")

	// ErrTemporalLeaked is reported at retirement for keys that were imported
	// but never exported.
	ErrTemporalLeaked = errors.New("framegraph: temporal resource imported but never exported")

	// ErrTemporalDescriptorMismatch is returned when a key is imported with a
	// descriptor different from the one it was created with.
	ErrTemporalDescriptorMismatch = errors.New("framegraph: temporal resource descriptor mismatch")

	// ErrTemporalUnknown is returned for keys the registry does not hold.
	ErrTemporalUnknown = errors.New("framegraph: unknown temporal resource")

	// ErrTemporalInUse is returned when removing a key that is part of a graph.
	ErrTemporalInUse = errors.New("framegraph: temporal resource in use")
)

// Resource lifetime errors.
var (
	// ErrAllocation wraps device failures while creating physical resources.
	ErrAllocation = errors.New("framegraph: resource allocation failed")

	// ErrOwnership is returned when a physical resource changes hands in a
	// way that would give it two owners.
	ErrOwnership = errors.New("framegraph: physical resource ownership violation")

	// ErrAlreadyRetired is returned when a retired graph is retired again.
	ErrAlreadyRetired = errors.New("framegraph: graph already retired")

	// ErrPassFailed wraps errors returned by render functions.
	ErrPassFailed = errors.New("framegraph: pass render function failed")

	// ErrGraphsInFlight is returned when closing a driver with unretired graphs.
	ErrGraphsInFlight = errors.New("framegraph: graphs still in flight")

	// ErrDriverClosed is returned when using a closed driver.
	ErrDriverClosed = errors.New("framegraph: driver closed")
)
