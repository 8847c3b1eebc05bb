package framegraph

import (
	"errors"
	"fmt"
)

// DriverStats contains cumulative driver statistics.
type DriverStats struct {
	// Frames is the number of graphs created.
	Frames uint64

	// Retired counts graphs that executed and retired.
	Retired uint64

	// Failed counts graphs that failed to compile or execute.
	Failed uint64

	// InFlight is the number of graphs not yet retired or aborted.
	InFlight int

	// Allocations counts physical resources created on the device.
	Allocations uint64

	// Live is the number of physical resources created and not yet destroyed.
	Live int

	Cache     CacheStats
	Temporals int
}

// String returns a human-readable summary.
func (s DriverStats) String() string {
	return fmt.Sprintf("Driver[%d frames (%d retired, %d failed, %d in flight), %d live of %d allocated, %d temporal, %v]",
		s.Frames, s.Retired, s.Failed, s.InFlight, s.Live, s.Allocations, s.Temporals, s.Cache)
}

// Driver owns the long-lived state shared by a sequence of frame graphs:
// the Device, the TransientCache and the TemporalRegistry. Create one per
// device and call NewGraph each frame.
//
// A Driver and its graphs are not safe for concurrent use. Several graphs
// may be in flight at once, e.g. one executing while the previous one
// waits for its GPU work, but they must be driven from one goroutine.
type Driver struct {
	device   Device
	cache    *TransientCache
	temporal *TemporalRegistry
	opts     driverOptions

	frame    uint64
	serial   uint64
	inFlight int
	closed   bool

	retired     uint64
	failed      uint64
	allocations uint64
	live        int
}

// NewDriver creates a driver allocating from dev.
func NewDriver(dev Device, opts ...DriverOption) *Driver {
	o := defaultDriverOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Driver{
		device:   dev,
		temporal: NewTemporalRegistry(),
		opts:     o,
	}
	d.cache = newTransientCache(o.maxIdlePerDescriptor, o.maxIdleFrames, d.destroy)
	return d
}

// NewGraph starts the next frame's graph.
func (d *Driver) NewGraph() *Graph {
	d.frame++
	d.inFlight++
	g := &Graph{driver: d, frame: d.frame}
	if d.closed {
		g.fail(ErrDriverClosed)
	}
	return g
}

// Device returns the driver's device.
func (d *Driver) Device() Device { return d.device }

// Cache returns the transient resource cache.
func (d *Driver) Cache() *TransientCache { return d.cache }

// Temporal returns the temporal resource registry.
func (d *Driver) Temporal() *TemporalRegistry { return d.temporal }

// Frame returns the number of the most recently created graph.
func (d *Driver) Frame() uint64 { return d.frame }

func (d *Driver) nextSerial() uint64 {
	d.serial++
	return d.serial
}

// allocate creates a physical resource on the device.
func (d *Driver) allocate(desc Descriptor, name string, o owner) (*PhysicalResource, error) {
	label := d.opts.labelPrefix + ":" + name
	res, err := d.device.CreateResource(desc, label)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %v: %w", ErrAllocation, label, desc, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s %v: device returned nil", ErrAllocation, label, desc)
	}
	d.allocations++
	d.live++
	p := newPhysicalResource(res, desc, d.nextSerial(), o)
	Logger().Debug("framegraph: allocated", "resource", p, "label", label)
	return p, nil
}

// acquireTransient returns a graph-owned resource for desc, reusing an idle
// one when possible. hit reports whether it came from the cache.
func (d *Driver) acquireTransient(desc Descriptor, name string) (p *PhysicalResource, hit bool, err error) {
	if p, ok := d.cache.Get(desc); ok {
		return p, true, nil
	}
	p, err = d.allocate(desc, name, ownerGraph)
	return p, false, err
}

func (d *Driver) destroy(p *PhysicalResource) {
	d.live--
	d.device.DestroyResource(p.res)
}

// graphDone is called exactly once per graph, on retire or abort.
func (d *Driver) graphDone(g *Graph, stats FrameStats) {
	d.inFlight--
	if stats.Failed {
		d.failed++
	} else {
		d.retired++
	}
	if d.opts.observer != nil {
		d.opts.observer.ObserveFrame(stats)
	}
	Logger().Debug("framegraph: frame done", "frame", g.frame, "stats", stats)
}

// RemoveTemporal unregisters key and destroys its physical resource. The
// key must not be imported by a live graph. A later ImportTemporal of the
// same key registers it again, possibly with another descriptor.
func (d *Driver) RemoveTemporal(key string) error {
	p, err := d.temporal.remove(key)
	if err != nil {
		return err
	}
	if p != nil {
		p.owner = ownerNone
		d.destroy(p)
	}
	return nil
}

// Stats returns cumulative driver statistics.
func (d *Driver) Stats() DriverStats {
	return DriverStats{
		Frames:      d.frame,
		Retired:     d.retired,
		Failed:      d.failed,
		InFlight:    d.inFlight,
		Allocations: d.allocations,
		Live:        d.live,
		Cache:       d.cache.Stats(),
		Temporals:   d.temporal.Len(),
	}
}

// Close destroys every idle transient and every temporal resource. All
// graphs must be retired first. Graphs created after Close fail to compile
// with ErrDriverClosed.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	if d.inFlight > 0 {
		return fmt.Errorf("close: %d graph(s): %w", d.inFlight, ErrGraphsInFlight)
	}
	d.closed = true

	d.cache.purge()
	for _, p := range d.temporal.drain() {
		p.owner = ownerNone
		d.destroy(p)
	}
	if d.live != 0 {
		return errors.New("framegraph: close: resources still alive after purge")
	}
	Logger().Debug("framegraph: driver closed", "allocations", d.allocations)
	return nil
}
