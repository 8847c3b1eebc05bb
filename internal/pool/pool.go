package pool

import "sync"

// Pool holds idle values grouped by key.
type Pool[K comparable, V any] struct {
	mu        sync.Mutex
	idle      map[K][]pooled[V]
	maxPerKey int
	tick      int64 // Monotonic, advanced by the owner
	len       int
}

// pooled holds an idle value with the tick it was returned at.
// Per key, entries are kept in return order: index 0 is the oldest.
type pooled[V any] struct {
	value V
	atime int64
}

// Stats contains pool statistics.
type Stats struct {
	// Idle is the number of values waiting for reuse.
	Idle int
	// Keys is the number of distinct keys with idle values.
	Keys int
	// MaxPerKey is the per-key idle limit (0 means unlimited).
	MaxPerKey int
	// Tick is the current tick.
	Tick int64
}

// New creates a pool that keeps at most maxPerKey idle values per key.
// A maxPerKey of 0 means unlimited.
func New[K comparable, V any](maxPerKey int) *Pool[K, V] {
	return &Pool[K, V]{
		idle:      make(map[K][]pooled[V]),
		maxPerKey: maxPerKey,
	}
}

// Get pops the most recently returned value for key.
// Returns (value, true) if one was idle, (zero, false) otherwise.
func (p *Pool[K, V]) Get(key K) (V, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.idle[key]
	if len(list) == 0 {
		var zero V
		return zero, false
	}

	last := list[len(list)-1]
	list[len(list)-1] = pooled[V]{} // drop reference
	list = list[:len(list)-1]
	if len(list) == 0 {
		delete(p.idle, key)
	} else {
		p.idle[key] = list
	}
	p.len--

	return last.value, true
}

// Put returns value to the pool under key. If the key is over its limit
// afterwards, the oldest values are removed and returned so the caller can
// release them.
func (p *Pool[K, V]) Put(key K, value V) []V {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := append(p.idle[key], pooled[V]{value: value, atime: p.tick})
	p.len++

	var evicted []V
	if p.maxPerKey > 0 && len(list) > p.maxPerKey {
		drop := len(list) - p.maxPerKey
		for i := 0; i < drop; i++ {
			evicted = append(evicted, list[i].value)
		}
		list = append(list[:0:0], list[drop:]...)
		p.len -= drop
	}
	p.idle[key] = list

	return evicted
}

// Advance moves the pool one tick forward and returns the new tick.
func (p *Pool[K, V]) Advance() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tick++
	return p.tick
}

// Trim removes and returns values that have been idle for more than
// maxAge ticks. A negative maxAge disables trimming.
func (p *Pool[K, V]) Trim(maxAge int64) []V {
	if maxAge < 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var trimmed []V
	for key, list := range p.idle {
		// Entries are in return order, so stale ones form a prefix.
		keep := 0
		for keep < len(list) && p.tick-list[keep].atime > maxAge {
			trimmed = append(trimmed, list[keep].value)
			keep++
		}
		switch {
		case keep == 0:
			continue
		case keep == len(list):
			delete(p.idle, key)
		default:
			p.idle[key] = append(list[:0:0], list[keep:]...)
		}
		p.len -= keep
	}

	return trimmed
}

// Drain removes and returns every idle value.
func (p *Pool[K, V]) Drain() []V {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]V, 0, p.len)
	for _, list := range p.idle {
		for _, e := range list {
			out = append(out, e.value)
		}
	}
	p.idle = make(map[K][]pooled[V])
	p.len = 0

	return out
}

// Len returns the number of idle values.
func (p *Pool[K, V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.len
}

// LenKey returns the number of idle values for key.
func (p *Pool[K, V]) LenKey(key K) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.idle[key])
}

// Stats returns pool statistics.
func (p *Pool[K, V]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Idle:      p.len,
		Keys:      len(p.idle),
		MaxPerKey: p.maxPerKey,
		Tick:      p.tick,
	}
}
