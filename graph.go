package framegraph

import (
	"fmt"
)

// GraphState is the lifecycle state of a Graph.
type GraphState uint8

const (
	// StateBuilding accepts pass and resource declarations.
	StateBuilding GraphState = iota

	// StateCompiling means Compile produced a barrier plan awaiting Execute.
	StateCompiling

	// StateExecuting means Execute is running or has finished and the
	// RetiredGraph has not been retired yet.
	StateExecuting

	// StateRetired means resources were handed back to the driver.
	StateRetired
)

// String returns the state name.
func (s GraphState) String() string {
	switch s {
	case StateBuilding:
		return "Building"
	case StateCompiling:
		return "Compiling"
	case StateExecuting:
		return "Executing"
	case StateRetired:
		return "Retired"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// resourceOrigin records where a logical resource's backing comes from.
type resourceOrigin uint8

const (
	originCreated  resourceOrigin = iota // transient, from the cache or the device
	originImported                       // external, owned by the caller
	originTemporal                       // persistent, owned by the TemporalRegistry
)

// graphResource is one logical resource slot. For created resources
// createPass is the index of the pass that declared it; its physical
// resource is bound right before that pass.
type graphResource struct {
	name       string
	desc       Descriptor
	origin     resourceOrigin
	createPass int
	version    uint32

	initAccess AccessType
	external   *PhysicalResource
	temporal   *temporalEntry

	exported     bool
	exportAccess AccessType
}

// Graph is one frame's ordered list of passes and the registry of logical
// resources they use. Graphs are created by Driver.NewGraph and go through
// Building -> Compiling -> Executing -> Retired exactly once.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	driver    *Driver
	frame     uint64
	state     GraphState
	passes    []*recordedPass
	resources []*graphResource
	temporals []*temporalEntry
	building  *PassBuilder

	err      error
	errCount int
}

// State returns the graph's lifecycle state.
func (g *Graph) State() GraphState { return g.state }

// Frame returns the driver frame number of this graph.
func (g *Graph) Frame() uint64 { return g.frame }

// PassCount returns the number of declared passes.
func (g *Graph) PassCount() int { return len(g.passes) }

// ResourceCount returns the number of logical resources.
func (g *Graph) ResourceCount() int { return len(g.resources) }

// Err returns the first usage error recorded while declaring passes.
// A graph with an error cannot be compiled.
func (g *Graph) Err() error { return g.err }

// fail records a usage error. The first one is kept; all are logged.
func (g *Graph) fail(err error) {
	Logger().Error("framegraph: usage error", "frame", g.frame, "err", err)
	g.errCount++
	if g.err == nil {
		g.err = err
	}
}

func (g *Graph) addResource(r *graphResource) uint32 {
	id := uint32(len(g.resources)) //nolint:gosec // G115: resource count bounded by memory
	g.resources = append(g.resources, r)
	return id
}

// lookup validates a handle against the graph and returns its slot.
func (g *Graph) lookup(hg *Graph, raw RawHandle) (*graphResource, error) {
	switch {
	case hg == nil:
		return nil, ErrInvalidHandle
	case hg != g:
		return nil, fmt.Errorf("%v: %w", raw, ErrForeignHandle)
	case int(raw.ID) >= len(g.resources):
		return nil, fmt.Errorf("%v: %w", raw, ErrInvalidHandle)
	}

	r := g.resources[raw.ID]
	if r.exported {
		return nil, fmt.Errorf("%v (%s): %w", raw, r.name, ErrUseAfterExport)
	}
	if raw.Version != r.version {
		return nil, fmt.Errorf("%v (%s) superseded by version %d: %w",
			raw, r.name, r.version, ErrStaleHandle)
	}
	return r, nil
}

// declaring rejects graph-level operations made from inside an AddPass
// callback. The pass being declared commits only when its callback
// returns, so a compile or import from inside it would not see the pass.
// The error is also recorded so the frame cannot execute.
func (g *Graph) declaring(op string) error {
	if g.building == nil {
		return nil
	}
	err := fmt.Errorf("%s inside pass %q: %w", op, g.building.pass.name, ErrNestedPass)
	g.fail(err)
	return err
}

// exportedTwice reports whether raw names a resource of g that has already
// been exported.
func (g *Graph) exportedTwice(hg *Graph, raw RawHandle) bool {
	return hg == g && int(raw.ID) < len(g.resources) && g.resources[raw.ID].exported
}

// Import brings an externally owned resource, such as a swapchain image,
// into the graph at the given access type. framegraph never destroys or
// pools imported resources.
func Import[D ResourceDesc](g *Graph, name string, res Resource, access AccessType) (Handle[D], error) {
	if g.state != StateBuilding {
		return Handle[D]{}, fmt.Errorf("import %q: %w (state %v)", name, ErrInvalidState, g.state)
	}
	if err := g.declaring(fmt.Sprintf("import %q", name)); err != nil {
		return Handle[D]{}, err
	}
	if res == nil {
		return Handle[D]{}, fmt.Errorf("import %q: nil resource: %w", name, ErrInvalidHandle)
	}
	desc := res.Descriptor()
	typed, ok := descriptorAs[D](desc)
	if !ok {
		return Handle[D]{}, fmt.Errorf("import %q: %v: %w", name, desc, ErrDescriptorKind)
	}

	phys := newPhysicalResource(res, desc, g.driver.nextSerial(), ownerExternal)
	id := g.addResource(&graphResource{
		name:       name,
		desc:       desc,
		origin:     originImported,
		createPass: -1,
		initAccess: access,
		external:   phys,
	})
	return Handle[D]{raw: RawHandle{ID: id}, desc: typed, graph: g}, nil
}

// Export marks h as the graph's final version of the resource. If access is
// not AccessNone the resource is transitioned to it after the last pass,
// e.g. AccessPresent for a swapchain image. The resource cannot be used by
// passes declared after Export.
func Export[D ResourceDesc](g *Graph, h Handle[D], access AccessType) error {
	if g.state != StateBuilding {
		return fmt.Errorf("export: %w (state %v)", ErrInvalidState, g.state)
	}
	if err := g.declaring("export"); err != nil {
		return err
	}
	if g.exportedTwice(h.graph, h.raw) {
		return fmt.Errorf("export %v (%s): %w", h.raw, g.resources[h.raw.ID].name, ErrAlreadyExported)
	}
	r, err := g.lookup(h.graph, h.raw)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if r.origin == originTemporal {
		return fmt.Errorf("export %s: temporal resources are exported with ExportTemporal: %w",
			r.name, ErrInvalidState)
	}
	r.exported = true
	r.exportAccess = access
	return nil
}

// ImportTemporal imports the persistent resource registered under key. The
// first import of a key registers it; its physical resource is allocated
// when the graph executes, starting at AccessNone. Later imports start at
// the access type the previous frame left the resource in.
//
// A key must be exported with ExportTemporal before the graph is retired.
func ImportTemporal[D ResourceDesc](g *Graph, key string, desc D) (Handle[D], error) {
	if g.state != StateBuilding {
		return Handle[D]{}, fmt.Errorf("import %q: %w (state %v)", key, ErrInvalidState, g.state)
	}
	if err := g.declaring(fmt.Sprintf("import %q", key)); err != nil {
		return Handle[D]{}, err
	}
	d := Describe(desc)
	if err := d.Validate(); err != nil {
		return Handle[D]{}, fmt.Errorf("import %q: %w", key, err)
	}

	e, err := g.driver.temporal.importEntry(key, d, g)
	if err != nil {
		return Handle[D]{}, err
	}

	id := g.addResource(&graphResource{
		name:       key,
		desc:       d,
		origin:     originTemporal,
		createPass: -1,
		initAccess: e.access,
		temporal:   e,
	})
	e.handleID = id
	g.temporals = append(g.temporals, e)

	return Handle[D]{raw: RawHandle{ID: id}, desc: desc, graph: g}, nil
}

// ExportTemporal hands the final version of a temporal resource back to
// the registry under key. Retiring the graph records the access type the
// graph left it in for the next import.
func ExportTemporal[D ResourceDesc](g *Graph, h Handle[D], key string) error {
	if g.state != StateBuilding {
		return fmt.Errorf("export %q: %w (state %v)", key, ErrInvalidState, g.state)
	}
	if err := g.declaring(fmt.Sprintf("export %q", key)); err != nil {
		return err
	}
	if g.exportedTwice(h.graph, h.raw) {
		return fmt.Errorf("export %q: %w", key, ErrAlreadyExported)
	}
	r, err := g.lookup(h.graph, h.raw)
	if err != nil {
		return fmt.Errorf("export %q: %w", key, err)
	}
	if r.origin != originTemporal {
		return fmt.Errorf("export %q: %s is not temporal: %w", key, r.name, ErrTemporalNotImported)
	}
	if _, err := g.driver.temporal.exportEntry(key, g, h.raw); err != nil {
		return err
	}
	r.exported = true
	return nil
}

// abort ends a graph that will not execute. Temporal entries go back to
// Default with their previous access type.
func (g *Graph) abort() {
	for _, e := range g.temporals {
		if e.graph == g {
			g.driver.temporal.release(e.key, AccessNone, false)
		}
	}
	g.state = StateRetired
	g.driver.graphDone(g, FrameStats{Frame: g.frame, Passes: len(g.passes), Failed: true})
}

// Discard abandons a graph that has not executed. Its temporal imports go
// back to the registry unchanged. Discarding an executing or retired graph
// is a no-op.
func (g *Graph) Discard() {
	if g.state == StateBuilding || g.state == StateCompiling {
		g.abort()
	}
}
