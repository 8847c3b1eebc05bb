package framegraph

import (
	"fmt"
	"time"
)

// FrameStats describes one finished frame.
type FrameStats struct {
	Frame    uint64
	Passes   int
	Barriers int

	// TransientAllocations counts transient resources created on the device.
	TransientAllocations int

	// CacheHits counts transient resources reused from the TransientCache.
	CacheHits int

	// TemporalAllocations counts temporal resources created on first use.
	TemporalAllocations int

	// Evictions counts idle resources destroyed when the frame retired.
	Evictions int

	// Failed is set when the frame did not compile or a pass failed.
	Failed bool

	ExecuteDuration time.Duration
}

// String returns a human-readable summary.
func (s FrameStats) String() string {
	result := "ok"
	if s.Failed {
		result = "failed"
	}
	return fmt.Sprintf("Frame[%d %s: %d passes, %d barriers, %d alloc, %d reused, %d temporal, %d evicted, %v]",
		s.Frame, result, s.Passes, s.Barriers, s.TransientAllocations, s.CacheHits,
		s.TemporalAllocations, s.Evictions, s.ExecuteDuration)
}

// Observer is notified when a graph is retired or aborted. It is called on
// the goroutine driving the graph.
type Observer interface {
	ObserveFrame(stats FrameStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(stats FrameStats)

// ObserveFrame calls f(stats).
func (f ObserverFunc) ObserveFrame(stats FrameStats) { f(stats) }
