package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

var (
	testImage  = NewImage2D(gputypes.TextureFormatRGBA8Unorm, 256, 256)
	testBuffer = NewBuffer(4096, gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
)

var errDeviceFull = errors.New("device out of memory")

// fakeResource is a physical resource created by fakeDevice.
type fakeResource struct {
	id        int
	desc      Descriptor
	label     string
	destroyed bool
}

func (r *fakeResource) Descriptor() Descriptor { return r.desc }

func (r *fakeResource) String() string { return fmt.Sprintf("fake#%d(%s)", r.id, r.label) }

// fakeDevice records every call framegraph makes.
type fakeDevice struct {
	nextID    int
	created   []*fakeResource
	destroyed []*fakeResource
	recorded  []ResourceBarrier

	// failOn makes CreateResource fail for descriptors of this kind.
	failOn ResourceKind
}

func newFakeDevice() *fakeDevice { return &fakeDevice{} }

func (d *fakeDevice) CreateResource(desc Descriptor, label string) (Resource, error) {
	if d.failOn != 0 && desc.Kind == d.failOn {
		return nil, errDeviceFull
	}
	d.nextID++
	r := &fakeResource{id: d.nextID, desc: desc, label: label}
	d.created = append(d.created, r)
	return r, nil
}

func (d *fakeDevice) DestroyResource(res Resource) {
	r := res.(*fakeResource)
	if r.destroyed {
		panic(fmt.Sprintf("%v destroyed twice", r))
	}
	r.destroyed = true
	d.destroyed = append(d.destroyed, r)
}

func (d *fakeDevice) RecordBarriers(rec CommandRecorder, barriers []ResourceBarrier) {
	d.recorded = append(d.recorded, barriers...)
	if r, ok := rec.(*fakeRecorder); ok {
		for _, b := range barriers {
			r.log = append(r.log, "barrier "+b.Barrier.String())
		}
	}
}

func (d *fakeDevice) live() int { return len(d.created) - len(d.destroyed) }

// fakeRecorder collects barriers and pass executions in order.
type fakeRecorder struct {
	log []string
}

func (r *fakeRecorder) pass(name string) { r.log = append(r.log, "pass "+name) }

// recordPass returns a render function that logs the pass into the recorder.
func recordPass(pc *PassContext) error {
	pc.Recorder().(*fakeRecorder).pass(pc.Name())
	return nil
}

// runFrame compiles, executes and retires g.
func runFrame(g *Graph) (*RetiredGraph, error) {
	rt, err := g.CompileAndExecute(&fakeRecorder{})
	if err != nil {
		return nil, err
	}
	return rt, rt.Retire()
}
