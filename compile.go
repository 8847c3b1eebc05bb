package framegraph

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// compiledPass is a pass with its barrier plan. acquire lists the
// resources that get their physical backing right before the pass: the
// ones it created, and temporal ones on first use.
type compiledPass struct {
	pass     *recordedPass
	acquire  []uint32
	barriers []Barrier
}

// CompiledGraph is a graph with a complete barrier plan. Passes keep their
// declaration order.
type CompiledGraph struct {
	graph        *Graph
	passes       []compiledPass
	exitBarriers []Barrier
	finalAccess  []AccessType
	barrierCount int
}

// Compile synthesizes barriers for every resource use. For each pass, reads
// then writes, the declared access is compared with the resource's previous
// access (AccessNone for created resources, the import access for imported
// and temporal ones, otherwise the last pass that touched it). A barrier is
// emitted only when they differ.
//
// Compile fails if any usage error was recorded while declaring passes; the
// graph is then retired and its temporal imports are released.
func (g *Graph) Compile() (*CompiledGraph, error) {
	if g.state != StateBuilding {
		return nil, fmt.Errorf("compile: %w (state %v)", ErrInvalidState, g.state)
	}
	if err := g.declaring("compile"); err != nil {
		return nil, err
	}
	if g.err != nil {
		g.abort()
		return nil, fmt.Errorf("compile frame %d: %d usage error(s), first: %w", g.frame, g.errCount, g.err)
	}
	g.state = StateCompiling

	last := make([]AccessType, len(g.resources))
	bound := make([]bool, len(g.resources))
	for id, r := range g.resources {
		last[id] = r.initAccess
		bound[id] = r.origin == originImported
	}

	cg := &CompiledGraph{
		graph:  g,
		passes: make([]compiledPass, len(g.passes)),
	}

	// Created resources are backed right before the pass that created them.
	// Resources no pass or export ever uses are never backed.
	used := make([]bool, len(g.resources))
	for _, p := range g.passes {
		for _, ref := range p.reads {
			used[ref.handle.ID] = true
		}
		for _, ref := range p.writes {
			used[ref.handle.ID] = true
		}
	}
	for id, r := range g.resources {
		if r.origin != originCreated {
			continue
		}
		if used[id] || (r.exported && r.exportAccess != AccessNone) {
			//nolint:gosec // G115: id < len(g.resources), which fits in uint32
			cg.passes[r.createPass].acquire = append(cg.passes[r.createPass].acquire, uint32(id))
			bound[id] = true
		}
	}

	for i, p := range g.passes {
		cp := &cg.passes[i]
		cp.pass = p

		use := func(ref passResourceRef) {
			id := ref.handle.ID
			if !bound[id] {
				cp.acquire = append(cp.acquire, id)
				bound[id] = true
			}
			if last[id] != ref.access {
				cp.barriers = append(cp.barriers, Barrier{Handle: ref.handle, Prev: last[id], Next: ref.access})
				last[id] = ref.access
			}
		}
		for _, ref := range p.reads {
			use(ref)
		}
		for _, ref := range p.writes {
			use(ref)
		}
		cg.barrierCount += len(cp.barriers)
	}

	for id, r := range g.resources {
		if !r.exported || r.origin == originTemporal || r.exportAccess == AccessNone {
			continue
		}
		//nolint:gosec // G115: id < len(g.resources), which fits in uint32
		uid := uint32(id)
		if last[id] != r.exportAccess {
			cg.exitBarriers = append(cg.exitBarriers, Barrier{
				Handle: RawHandle{ID: uid, Version: r.version},
				Prev:   last[id],
				Next:   r.exportAccess,
			})
			last[id] = r.exportAccess
		}
	}
	cg.barrierCount += len(cg.exitBarriers)
	cg.finalAccess = last

	Logger().Debug("framegraph: compiled",
		"frame", g.frame,
		"passes", len(g.passes),
		"resources", len(g.resources),
		"barriers", cg.barrierCount)

	return cg, nil
}

// PassCount returns the number of passes.
func (cg *CompiledGraph) PassCount() int { return len(cg.passes) }

// PassName returns the name of pass i.
func (cg *CompiledGraph) PassName(i int) string { return cg.passes[i].pass.name }

// Barriers returns the barriers recorded before pass i, in order.
func (cg *CompiledGraph) Barriers(i int) []Barrier {
	return append([]Barrier(nil), cg.passes[i].barriers...)
}

// ExitBarriers returns the transitions recorded after the last pass for
// resources exported with a final access type.
func (cg *CompiledGraph) ExitBarriers() []Barrier {
	return append([]Barrier(nil), cg.exitBarriers...)
}

// BarrierCount returns the total number of synthesized barriers.
func (cg *CompiledGraph) BarrierCount() int { return cg.barrierCount }

// FinalAccess returns the access type the graph leaves resource id in.
func (cg *CompiledGraph) FinalAccess(h RawHandle) AccessType {
	if int(h.ID) >= len(cg.finalAccess) {
		return AccessNone
	}
	return cg.finalAccess[h.ID]
}

// String dumps the plan, one pass per line, for debug logs.
func (cg *CompiledGraph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "frame %d: %d passes, %d barriers\n", cg.graph.frame, len(cg.passes), cg.barrierCount)
	for i, cp := range cg.passes {
		fmt.Fprintf(&sb, "  [%d] %s", i, cp.pass.name)
		for _, id := range cp.acquire {
			fmt.Fprintf(&sb, " +%s", cg.graph.resources[id].name)
		}
		for _, b := range cp.barriers {
			fmt.Fprintf(&sb, " {%v}", b)
		}
		sb.WriteByte('\n')
	}
	for _, b := range cg.exitBarriers {
		fmt.Fprintf(&sb, "  [exit] {%v}\n", b)
	}
	return sb.String()
}

// Execute binds physical resources, records barriers and runs every pass's
// render function in declaration order. Transient resources come from the
// driver's TransientCache by descriptor, or are allocated from the Device.
//
// On any failure nothing of the frame should be submitted: transient
// resources go back to the cache, temporal imports are released at their
// previous access type, and the error is returned.
func (cg *CompiledGraph) Execute(rec CommandRecorder) (*RetiredGraph, error) {
	g := cg.graph
	if g.state != StateCompiling {
		return nil, fmt.Errorf("execute: %w (state %v)", ErrInvalidState, g.state)
	}
	g.state = StateExecuting

	ex := &execution{
		cg:    cg,
		rec:   rec,
		bound: make([]*PhysicalResource, len(g.resources)),
		start: time.Now(),
	}
	for id, r := range g.resources {
		if r.origin == originImported {
			ex.bound[id] = r.external
		}
	}

	for i := range cg.passes {
		cp := &cg.passes[i]
		if err := ex.acquire(cp.acquire); err != nil {
			return nil, ex.abort(err)
		}
		ex.recordBarriers(cp.barriers)
		if err := ex.run(cp); err != nil {
			return nil, ex.abort(err)
		}
	}
	ex.recordBarriers(cg.exitBarriers)

	ex.stats.Frame = g.frame
	ex.stats.Passes = len(cg.passes)
	ex.stats.Barriers = cg.barrierCount
	ex.stats.ExecuteDuration = time.Since(ex.start)

	return &RetiredGraph{
		graph:       g,
		bound:       ex.bound,
		transients:  ex.transients,
		finalAccess: cg.finalAccess,
		stats:       ex.stats,
	}, nil
}

// CompileAndExecute compiles the graph and executes it into rec.
func (g *Graph) CompileAndExecute(rec CommandRecorder) (*RetiredGraph, error) {
	cg, err := g.Compile()
	if err != nil {
		return nil, err
	}
	return cg.Execute(rec)
}

// execution is the per-frame state of Execute.
type execution struct {
	cg         *CompiledGraph
	rec        CommandRecorder
	bound      []*PhysicalResource
	transients []*PhysicalResource
	stats      FrameStats
	start      time.Time
}

func (ex *execution) acquire(ids []uint32) error {
	g := ex.cg.graph
	d := g.driver
	for _, id := range ids {
		r := g.resources[id]
		switch r.origin {
		case originCreated:
			p, hit, err := d.acquireTransient(r.desc, r.name)
			if err != nil {
				return err
			}
			if hit {
				ex.stats.CacheHits++
			} else {
				ex.stats.TransientAllocations++
			}
			ex.transients = append(ex.transients, p)
			ex.bound[id] = p

		case originTemporal:
			e := r.temporal
			if e.phys == nil {
				p, err := d.allocate(e.desc, "temporal:"+e.key, ownerTemporal)
				if err != nil {
					return err
				}
				e.phys = p
				ex.stats.TemporalAllocations++
			}
			ex.bound[id] = e.phys

		case originImported:
			// Bound before the first pass.
		}
	}
	return nil
}

func (ex *execution) recordBarriers(barriers []Barrier) {
	if len(barriers) == 0 {
		return
	}
	rbs := make([]ResourceBarrier, len(barriers))
	for i, b := range barriers {
		rbs[i] = ResourceBarrier{Barrier: b, Resource: ex.bound[b.Handle.ID].res}
	}
	ex.cg.graph.driver.device.RecordBarriers(ex.rec, rbs)
}

func (ex *execution) run(cp *compiledPass) error {
	p := cp.pass
	pc := &PassContext{
		name:     p.name,
		index:    p.index,
		frame:    ex.cg.graph.frame,
		recorder: ex.rec,
		bound:    make(map[RawHandle]Resource, len(p.reads)+len(p.writes)),
	}
	for _, ref := range p.reads {
		pc.bound[ref.handle] = ex.bound[ref.handle.ID].res
	}
	for _, ref := range p.writes {
		pc.bound[ref.handle] = ex.bound[ref.handle.ID].res
	}

	Logger().Debug("framegraph: pass",
		"frame", pc.frame,
		"index", p.index,
		"name", p.name,
		"barriers", len(cp.barriers))

	if p.render == nil {
		return nil
	}
	if err := p.render(pc); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrPassFailed, p.name, err)
	}
	return nil
}

// abort undoes a partially executed frame and returns err.
func (ex *execution) abort(err error) error {
	g := ex.cg.graph
	d := g.driver
	for _, p := range ex.transients {
		if ierr := d.cache.Insert(p); ierr != nil {
			err = errors.Join(err, ierr)
		}
	}
	ex.transients = nil
	g.abort()
	return fmt.Errorf("execute frame %d: %w", g.frame, err)
}

// RetiredGraph is an executed graph whose resources are still in use by
// the recorded commands. Call Retire once the frame's GPU work no longer
// needs them.
type RetiredGraph struct {
	graph       *Graph
	bound       []*PhysicalResource
	transients  []*PhysicalResource
	finalAccess []AccessType
	stats       FrameStats
	retired     bool
}

// Stats returns the frame statistics.
func (rt *RetiredGraph) Stats() FrameStats { return rt.stats }

// ExportedResource returns the physical resource behind h, a resource
// exported with Export, and the access type the graph left it in. h must be
// the exported version. The resource stays valid until Retire; after that a
// created resource belongs to the TransientCache again.
//
// Temporal resources are reached through the TemporalRegistry instead.
func (rt *RetiredGraph) ExportedResource(h RawHandle) (Resource, AccessType, bool) {
	g := rt.graph
	if rt.retired || int(h.ID) >= len(g.resources) {
		return nil, AccessNone, false
	}
	r := g.resources[h.ID]
	if !r.exported || r.origin == originTemporal || h.Version != r.version {
		return nil, AccessNone, false
	}
	p := rt.bound[h.ID]
	if p == nil {
		return nil, AccessNone, false
	}
	return p.res, rt.finalAccess[h.ID], true
}

// Retire returns transient resources to the TransientCache and records the
// final access type of every exported temporal resource in the registry.
// Temporal resources imported but never exported are still released, and
// reported as ErrTemporalLeaked.
func (rt *RetiredGraph) Retire() error {
	if rt.retired {
		return ErrAlreadyRetired
	}
	rt.retired = true

	g := rt.graph
	d := g.driver
	var errs []error

	for _, p := range rt.transients {
		if err := d.cache.Insert(p); err != nil {
			errs = append(errs, err)
		}
	}
	rt.transients = nil
	rt.bound = nil

	for _, e := range g.temporals {
		if e.graph != g {
			continue
		}
		final := rt.finalAccess[e.handleID]
		switch e.state {
		case TemporalExported:
			if err := d.temporal.Retire(e.key, final); err != nil {
				errs = append(errs, err)
			}
		case TemporalImported:
			Logger().Warn("framegraph: temporal resource imported but never exported",
				"frame", g.frame, "key", e.key)
			d.temporal.release(e.key, final, true)
			errs = append(errs, fmt.Errorf("retire %q: %w", e.key, ErrTemporalLeaked))
		}
	}

	rt.stats.Evictions = d.cache.endFrame()
	g.state = StateRetired
	d.graphDone(g, rt.stats)

	return errors.Join(errs...)
}
