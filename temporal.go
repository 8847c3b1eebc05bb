package framegraph

import (
	"fmt"
	"slices"
)

// TemporalState is the lifecycle state of a temporal registry entry.
type TemporalState uint8

const (
	// TemporalDefault is the steady state between frames.
	TemporalDefault TemporalState = iota

	// TemporalImported means a graph imported the entry and has not exported it.
	TemporalImported

	// TemporalExported means the graph exported the entry; Retire has not run yet.
	TemporalExported
)

// String returns the state name.
func (s TemporalState) String() string {
	switch s {
	case TemporalDefault:
		return "Default"
	case TemporalImported:
		return "Imported"
	case TemporalExported:
		return "Exported"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// temporalEntry is one persistent resource. phys is nil until the first
// graph that imports the entry executes.
type temporalEntry struct {
	key    string
	desc   Descriptor
	phys   *PhysicalResource
	access AccessType
	state  TemporalState

	// Set while imported or exported.
	graph    *Graph
	handleID uint32
}

// TemporalRegistry maps stable string keys to physical resources that
// survive across frames. Each frame a graph imports an entry at its last
// known access type, threads it through passes, and exports it; retiring
// the graph records the access type the graph left it in.
//
// A TemporalRegistry is owned by a Driver and is not safe for concurrent use.
type TemporalRegistry struct {
	entries map[string]*temporalEntry
}

// NewTemporalRegistry creates an empty registry.
func NewTemporalRegistry() *TemporalRegistry {
	return &TemporalRegistry{entries: make(map[string]*temporalEntry)}
}

// Len returns the number of registered keys.
func (r *TemporalRegistry) Len() int { return len(r.entries) }

// Keys returns the registered keys in sorted order.
func (r *TemporalRegistry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// State returns the lifecycle state of key.
func (r *TemporalRegistry) State(key string) (TemporalState, bool) {
	e, ok := r.entries[key]
	if !ok {
		return TemporalDefault, false
	}
	return e.state, true
}

// AccessType returns the access type key will be imported at next.
func (r *TemporalRegistry) AccessType(key string) (AccessType, bool) {
	e, ok := r.entries[key]
	if !ok {
		return AccessNone, false
	}
	return e.access, true
}

// Resource returns the physical resource behind key, or nil if it has not
// been allocated yet.
func (r *TemporalRegistry) Resource(key string) (*PhysicalResource, bool) {
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.phys, true
}

// Descriptor returns the descriptor key was created with.
func (r *TemporalRegistry) Descriptor(key string) (Descriptor, bool) {
	e, ok := r.entries[key]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// importEntry moves key into the Imported state for graph g, creating the
// entry on first use.
func (r *TemporalRegistry) importEntry(key string, desc Descriptor, g *Graph) (*temporalEntry, error) {
	e, ok := r.entries[key]
	if !ok {
		e = &temporalEntry{key: key, desc: desc, access: AccessNone}
		r.entries[key] = e
	}

	switch e.state {
	case TemporalImported:
		return nil, fmt.Errorf("import %q: %w", key, ErrTemporalAlreadyImported)
	case TemporalExported:
		return nil, fmt.Errorf("import %q: %w", key, ErrTemporalNotRetired)
	}
	if e.desc != desc {
		return nil, fmt.Errorf("import %q: %w: registered %v, requested %v",
			key, ErrTemporalDescriptorMismatch, e.desc, desc)
	}

	e.state = TemporalImported
	e.graph = g
	return e, nil
}

// exportEntry moves key from Imported to Exported. h must be a version of
// the slot the key was imported into.
func (r *TemporalRegistry) exportEntry(key string, g *Graph, h RawHandle) (*temporalEntry, error) {
	e, ok := r.entries[key]
	if !ok {
		return nil, fmt.Errorf("export %q: %w", key, ErrTemporalNotImported)
	}
	if e.state != TemporalImported || e.graph != g {
		return nil, fmt.Errorf("export %q (state %v): %w", key, e.state, ErrTemporalNotImported)
	}
	if h.ID != e.handleID {
		return nil, fmt.Errorf("export %q: handle %v does not belong to this key: %w",
			key, h, ErrForeignHandle)
	}

	e.state = TemporalExported
	return e, nil
}

// Retire records the access type the graph left key in and returns the
// entry to TemporalDefault, ready for the next frame's import. It is called
// by RetiredGraph.Retire for every exported key.
func (r *TemporalRegistry) Retire(key string, finalAccess AccessType) error {
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("retire %q: %w", key, ErrTemporalUnknown)
	}
	if e.state != TemporalExported {
		return fmt.Errorf("retire %q (state %v): %w", key, e.state, ErrTemporalNotExported)
	}
	e.access = finalAccess
	e.reset()
	return nil
}

// release returns an imported or exported entry to TemporalDefault.
// recordAccess stores finalAccess as the next import state; aborted
// frames leave the previous access untouched.
func (r *TemporalRegistry) release(key string, finalAccess AccessType, recordAccess bool) {
	e, ok := r.entries[key]
	if !ok {
		return
	}
	if recordAccess {
		e.access = finalAccess
	}
	e.reset()
}

// remove deletes key and returns its physical resource, if allocated.
func (r *TemporalRegistry) remove(key string) (*PhysicalResource, error) {
	e, ok := r.entries[key]
	if !ok {
		return nil, fmt.Errorf("remove %q: %w", key, ErrTemporalUnknown)
	}
	if e.state != TemporalDefault {
		return nil, fmt.Errorf("remove %q (state %v): %w", key, e.state, ErrTemporalInUse)
	}
	delete(r.entries, key)
	return e.phys, nil
}

// drain removes every entry and returns the allocated resources.
func (r *TemporalRegistry) drain() []*PhysicalResource {
	var out []*PhysicalResource
	for _, key := range r.Keys() {
		if p := r.entries[key].phys; p != nil {
			out = append(out, p)
		}
	}
	r.entries = make(map[string]*temporalEntry)
	return out
}

func (e *temporalEntry) reset() {
	e.state = TemporalDefault
	e.graph = nil
}
