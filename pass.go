package framegraph

import "fmt"

// RenderFunc records a pass's GPU work. It runs during execution, after
// the barriers for the pass have been recorded.
type RenderFunc func(pc *PassContext) error

// passResourceRef pairs a resource version with the access a pass needs.
type passResourceRef struct {
	handle RawHandle
	access AccessType
	mode   AccessMode
}

// recordedPass is a committed pass declaration.
type recordedPass struct {
	name   string
	index  int
	reads  []passResourceRef
	writes []passResourceRef
	render RenderFunc
}

func containsID(refs []passResourceRef, id uint32) bool {
	_, ok := findID(refs, id)
	return ok
}

func findID(refs []passResourceRef, id uint32) (passResourceRef, bool) {
	for _, r := range refs {
		if r.handle.ID == id {
			return r, true
		}
	}
	return passResourceRef{}, false
}

// PassBuilder records one pass's resource declarations. It is only valid
// inside the callback given to Graph.AddPass.
type PassBuilder struct {
	g         *Graph
	pass      *recordedPass
	committed bool
}

// AddPass declares a pass. declare runs immediately and records the
// pass's reads, writes and render function through pb. The pass is
// committed to the graph when declare returns, including early returns and
// panics, so a declared pass is never lost.
//
// Passes execute in the order they are added.
func (g *Graph) AddPass(name string, declare func(pb *PassBuilder)) {
	if g.state != StateBuilding {
		g.fail(fmt.Errorf("add pass %q: %w (state %v)", name, ErrInvalidState, g.state))
		return
	}
	if g.building != nil {
		g.fail(fmt.Errorf("add pass %q inside %q: %w", name, g.building.pass.name, ErrNestedPass))
		return
	}

	pb := &PassBuilder{
		g:    g,
		pass: &recordedPass{name: name, index: len(g.passes)},
	}
	g.building = pb
	defer pb.commit()

	if declare != nil {
		declare(pb)
	}
}

func (pb *PassBuilder) commit() {
	pb.committed = true
	pb.g.building = nil
	pb.g.passes = append(pb.g.passes, pb.pass)
}

// Name returns the pass name.
func (pb *PassBuilder) Name() string { return pb.pass.name }

// Index returns the pass's position in execution order.
func (pb *PassBuilder) Index() int { return pb.pass.index }

func (pb *PassBuilder) fail(err error) {
	pb.g.fail(fmt.Errorf("pass %q: %w", pb.pass.name, err))
}

func (pb *PassBuilder) usable() bool {
	if pb.committed {
		pb.fail(ErrPassCommitted)
		return false
	}
	return true
}

// Render attaches the pass's render function. A pass has at most one.
func (pb *PassBuilder) Render(fn RenderFunc) {
	if !pb.usable() {
		return
	}
	if pb.pass.render != nil {
		pb.fail(ErrRenderAlreadySet)
		return
	}
	pb.pass.render = fn
}

// Create declares a new logical resource. The returned handle is version 0
// and is backed by a physical resource from the driver's TransientCache (or
// a fresh allocation) before the first pass that uses it.
func Create[D ResourceDesc](pb *PassBuilder, desc D) Handle[D] {
	if !pb.usable() {
		return Handle[D]{}
	}
	d := Describe(desc)
	if err := d.Validate(); err != nil {
		pb.fail(fmt.Errorf("create: %w", err))
		return Handle[D]{}
	}

	g := pb.g
	id := g.addResource(&graphResource{
		desc:       d,
		origin:     originCreated,
		createPass: pb.pass.index,
	})
	g.resources[id].name = fmt.Sprintf("%s#%d", pb.pass.name, id)

	return Handle[D]{raw: RawHandle{ID: id}, desc: desc, graph: g}
}

// Read declares that the pass reads h with the given access type.
// Reading a resource the pass also writes is ErrReadWriteConflict. A
// resource is in one state for the whole pass: reading it again with the
// same access returns the same Ref, with another access ErrAccessMismatch.
func Read[D ResourceDesc](pb *PassBuilder, h Handle[D], access AccessType) Ref[D] {
	if !pb.usable() {
		return Ref[D]{}
	}
	if _, err := pb.g.lookup(h.graph, h.raw); err != nil {
		pb.fail(fmt.Errorf("read: %w", err))
		return Ref[D]{}
	}
	if !ModeRead.accepts(access) {
		pb.fail(fmt.Errorf("read %v as %v: %w", h.raw, access, ErrAccessMismatch))
		return Ref[D]{}
	}
	if containsID(pb.pass.writes, h.raw.ID) {
		pb.fail(fmt.Errorf("read %v: %w", h.raw, ErrReadWriteConflict))
		return Ref[D]{}
	}
	if prev, ok := findID(pb.pass.reads, h.raw.ID); ok {
		if prev.access != access {
			pb.fail(fmt.Errorf("read %v as %v, already read as %v: %w", h.raw, access, prev.access, ErrAccessMismatch))
			return Ref[D]{}
		}
		return Ref[D]{raw: h.raw, desc: h.desc, mode: ModeRead, access: access}
	}

	pb.pass.reads = append(pb.pass.reads, passResourceRef{handle: h.raw, access: access, mode: ModeRead})
	return Ref[D]{raw: h.raw, desc: h.desc, mode: ModeRead, access: access}
}

// Write declares that the pass writes h with the given access type and
// advances *h to the next version. Later passes must use the updated
// handle; the previous value is stale.
func Write[D ResourceDesc](pb *PassBuilder, h *Handle[D], access AccessType) Ref[D] {
	return write(pb, h, access, ModeWrite)
}

// WriteRenderTarget is Write for render pass attachments. access must be
// AccessColorAttachmentWrite or AccessDepthStencilAttachmentWrite.
func WriteRenderTarget[D ResourceDesc](pb *PassBuilder, h *Handle[D], access AccessType) Ref[D] {
	return write(pb, h, access, ModeRenderTarget)
}

func write[D ResourceDesc](pb *PassBuilder, h *Handle[D], access AccessType, mode AccessMode) Ref[D] {
	if !pb.usable() {
		return Ref[D]{}
	}
	if h == nil {
		pb.fail(fmt.Errorf("write: %w", ErrInvalidHandle))
		return Ref[D]{}
	}
	r, err := pb.g.lookup(h.graph, h.raw)
	if err != nil {
		pb.fail(fmt.Errorf("write: %w", err))
		return Ref[D]{}
	}
	if !mode.accepts(access) {
		pb.fail(fmt.Errorf("write %v as %v (%v): %w", h.raw, access, mode, ErrAccessMismatch))
		return Ref[D]{}
	}
	if containsID(pb.pass.writes, h.raw.ID) {
		pb.fail(fmt.Errorf("write %v: %w", h.raw, ErrDoubleWrite))
		return Ref[D]{}
	}
	if containsID(pb.pass.reads, h.raw.ID) {
		pb.fail(fmt.Errorf("write %v: %w", h.raw, ErrReadWriteConflict))
		return Ref[D]{}
	}

	pb.pass.writes = append(pb.pass.writes, passResourceRef{handle: h.raw, access: access, mode: mode})
	ref := Ref[D]{raw: h.raw, desc: h.desc, mode: mode, access: access}

	r.version++
	h.raw = h.raw.next()
	return ref
}

// PassContext is handed to a RenderFunc. It resolves only the resources
// the pass declared.
type PassContext struct {
	name     string
	index    int
	frame    uint64
	recorder CommandRecorder
	bound    map[RawHandle]Resource
}

// Name returns the pass name.
func (pc *PassContext) Name() string { return pc.name }

// Index returns the pass's position in execution order.
func (pc *PassContext) Index() int { return pc.index }

// Frame returns the driver frame number the pass executes in.
func (pc *PassContext) Frame() uint64 { return pc.frame }

// Recorder returns the command recorder given to Execute.
func (pc *PassContext) Recorder() CommandRecorder { return pc.recorder }

func (pc *PassContext) resolve(raw RawHandle) (Resource, error) {
	res, ok := pc.bound[raw]
	if !ok {
		return nil, fmt.Errorf("pass %q resolving %v: %w", pc.name, raw, ErrUndeclaredResource)
	}
	return res, nil
}

// ResolveAs resolves ref and asserts the backend resource type, e.g.
//
//	tex, err := framegraph.ResolveAs[*wgpu.Texture](pc, colorRef)
func ResolveAs[T Resource, D ResourceDesc](pc *PassContext, ref Ref[D]) (T, error) {
	var zero T
	res, err := ref.Resolve(pc)
	if err != nil {
		return zero, err
	}
	t, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("pass %q resolving %v: resource is %T, not %T",
			pc.name, ref.raw, res, zero)
	}
	return t, nil
}
