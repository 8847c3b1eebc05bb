package pool

import (
	"slices"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	p := New[string, int](4)
	if p == nil {
		t.Fatal("New returned nil")
	}
	if p.Len() != 0 {
		t.Errorf("expected empty pool, got %d values", p.Len())
	}
	if got := p.Stats().MaxPerKey; got != 4 {
		t.Errorf("expected MaxPerKey 4, got %d", got)
	}
}

func TestPoolGetPut(t *testing.T) {
	p := New[string, int](0)

	if _, ok := p.Get("a"); ok {
		t.Error("expected empty key to miss")
	}

	p.Put("a", 1)
	p.Put("a", 2)
	p.Put("b", 3)

	if p.Len() != 3 {
		t.Errorf("expected 3 idle values, got %d", p.Len())
	}
	if p.LenKey("a") != 2 {
		t.Errorf("expected 2 idle values for a, got %d", p.LenKey("a"))
	}

	// LIFO within a key.
	if v, ok := p.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
	if v, ok := p.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := p.Get("a"); ok {
		t.Error("expected a to be exhausted")
	}

	// Keys never mix.
	if v, ok := p.Get("b"); !ok || v != 3 {
		t.Errorf("Get(b) = %d, %v; want 3, true", v, ok)
	}
	if p.Stats().Keys != 0 {
		t.Errorf("expected no keys left, got %d", p.Stats().Keys)
	}
}

func TestPoolPutEvictsOldest(t *testing.T) {
	p := New[string, int](2)

	if ev := p.Put("a", 1); len(ev) != 0 {
		t.Errorf("unexpected eviction %v", ev)
	}
	p.Put("a", 2)
	ev := p.Put("a", 3)
	if !slices.Equal(ev, []int{1}) {
		t.Errorf("Put evicted %v, want [1]", ev)
	}
	if p.Len() != 2 {
		t.Errorf("expected 2 idle values, got %d", p.Len())
	}
}

func TestPoolTrim(t *testing.T) {
	p := New[string, int](0)

	p.Put("a", 1) // tick 0
	p.Advance()
	p.Put("a", 2) // tick 1
	p.Put("b", 3) // tick 1
	p.Advance()
	p.Advance() // tick 3

	trimmed := p.Trim(2)
	if !slices.Equal(trimmed, []int{1}) {
		t.Errorf("Trim(2) = %v, want [1]", trimmed)
	}
	if p.Len() != 2 {
		t.Errorf("expected 2 idle values, got %d", p.Len())
	}

	trimmed = p.Trim(0)
	slices.Sort(trimmed)
	if !slices.Equal(trimmed, []int{2, 3}) {
		t.Errorf("Trim(0) = %v, want [2 3]", trimmed)
	}
	if p.Len() != 0 {
		t.Errorf("expected empty pool, got %d", p.Len())
	}
}

func TestPoolTrimDisabled(t *testing.T) {
	p := New[string, int](0)
	p.Put("a", 1)
	for i := 0; i < 10; i++ {
		p.Advance()
	}
	if got := p.Trim(-1); got != nil {
		t.Errorf("Trim(-1) = %v, want nil", got)
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 idle value, got %d", p.Len())
	}
}

func TestPoolDrain(t *testing.T) {
	p := New[int, int](0)
	for i := 0; i < 5; i++ {
		p.Put(i%2, i)
	}

	got := p.Drain()
	slices.Sort(got)
	if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("Drain() = %v", got)
	}
	if p.Len() != 0 || p.Stats().Keys != 0 {
		t.Errorf("expected empty pool after Drain, got %+v", p.Stats())
	}
}

func TestPoolConcurrent(t *testing.T) {
	p := New[int, int](0)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				p.Put(g, i)
				p.Get(g)
			}
		}(g)
	}
	wg.Wait()

	if p.Len() != 0 {
		t.Errorf("expected balanced Put/Get to leave pool empty, got %d", p.Len())
	}
}
