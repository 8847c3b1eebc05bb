// Package pool provides a keyed pool of idle values with tick-based aging.
//
// Unlike a cache, a key maps to any number of interchangeable values. Get
// pops the most recently returned value for a key; Put pushes one back.
// Callers advance a monotonic tick (typically once per frame) and Trim
// removes values that sat idle for too many ticks, handing them back for
// destruction.
//
//	p := pool.New[Descriptor, *Texture](8)
//	p.Put(desc, tex)
//	tex, ok := p.Get(desc)
//	p.Advance()
//	for _, stale := range p.Trim(3) {
//	    stale.Destroy()
//	}
//
// Pool is safe for concurrent use and must not be copied after creation.
package pool
