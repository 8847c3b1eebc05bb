package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/internal/pool"
)

// CacheStats contains transient cache statistics.
type CacheStats struct {
	// Idle is the number of physical resources waiting for reuse.
	Idle int

	// Descriptors is the number of distinct descriptors with idle resources.
	Descriptors int

	// Hits counts Get calls that returned an idle resource.
	Hits uint64

	// Misses counts Get calls that found nothing.
	Misses uint64

	// Evictions counts idle resources destroyed by trimming or per-descriptor limits.
	Evictions uint64
}

// String returns a human-readable summary.
func (s CacheStats) String() string {
	var rate float64
	if total := s.Hits + s.Misses; total > 0 {
		rate = float64(s.Hits) / float64(total)
	}
	return fmt.Sprintf("TransientCache[%d idle, %d descriptors, %.1f%% hits, %d evictions]",
		s.Idle, s.Descriptors, rate*100, s.Evictions)
}

// TransientCache pools physical resources between frames, keyed by
// Descriptor. Resources are only ever matched by descriptor equality:
// similar but different descriptors (another mip count, another usage) are
// never aliased.
//
// A TransientCache is owned by a Driver and is not safe for concurrent use
// with the graphs of that driver.
type TransientCache struct {
	idle          *pool.Pool[Descriptor, *PhysicalResource]
	maxIdleFrames int64
	destroy       func(*PhysicalResource)

	hits      uint64
	misses    uint64
	evictions uint64
}

func newTransientCache(maxPerDescriptor, maxIdleFrames int, destroy func(*PhysicalResource)) *TransientCache {
	return &TransientCache{
		idle:          pool.New[Descriptor, *PhysicalResource](maxPerDescriptor),
		maxIdleFrames: int64(maxIdleFrames),
		destroy:       destroy,
	}
}

// Get pops any idle resource whose descriptor equals desc. Ownership moves
// to the caller's graph.
func (c *TransientCache) Get(desc Descriptor) (*PhysicalResource, bool) {
	p, ok := c.idle.Get(desc)
	if !ok {
		c.misses++
		return nil, false
	}
	if err := p.transfer(ownerCache, ownerGraph); err != nil {
		// The pool no longer references p, so it is not handed out again.
		Logger().Error("framegraph: dropping idle resource", "resource", p, "err", err)
		c.misses++
		return nil, false
	}
	c.hits++
	return p, true
}

// Insert returns a retired resource to the pool under its own descriptor.
// The resource must be held by a graph; temporal and external resources are
// rejected with ErrOwnership.
func (c *TransientCache) Insert(p *PhysicalResource) error {
	if err := p.transfer(ownerGraph, ownerCache); err != nil {
		return err
	}
	for _, ev := range c.idle.Put(p.desc, p) {
		c.evict(ev)
	}
	return nil
}

// Len returns the number of idle resources.
func (c *TransientCache) Len() int { return c.idle.Len() }

// Stats returns cache statistics.
func (c *TransientCache) Stats() CacheStats {
	ps := c.idle.Stats()
	return CacheStats{
		Idle:        ps.Idle,
		Descriptors: ps.Keys,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
	}
}

// endFrame ages idle resources by one frame and destroys the ones that
// stayed idle longer than the configured limit.
func (c *TransientCache) endFrame() int {
	c.idle.Advance()
	trimmed := c.idle.Trim(c.maxIdleFrames)
	for _, p := range trimmed {
		c.evict(p)
	}
	return len(trimmed)
}

// purge destroys every idle resource.
func (c *TransientCache) purge() {
	for _, p := range c.idle.Drain() {
		c.evict(p)
	}
}

func (c *TransientCache) evict(p *PhysicalResource) {
	c.evictions++
	p.owner = ownerNone
	Logger().Debug("framegraph: evicting idle resource", "resource", p)
	if c.destroy != nil {
		c.destroy(p)
	}
}
