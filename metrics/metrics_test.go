package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFrame(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	m.MustRegister(registry)

	m.ObserveFrame(framegraph.FrameStats{
		Frame:                1,
		Passes:               3,
		Barriers:             4,
		TransientAllocations: 2,
		TemporalAllocations:  1,
		ExecuteDuration:      200 * time.Microsecond,
	})
	m.ObserveFrame(framegraph.FrameStats{
		Frame:     2,
		Passes:    3,
		Barriers:  4,
		CacheHits: 2,
		Evictions: 1,
	})
	m.ObserveFrame(framegraph.FrameStats{Frame: 3, Passes: 3, Failed: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("error")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.passes))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.barriers))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.allocations.WithLabelValues("transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.allocations.WithLabelValues("temporal")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.lastPasses))
	assert.Equal(t, 1, testutil.CollectAndCount(m.executeTime))
}

func TestMetricNames(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	m.MustRegister(registry)
	m.ObserveFrame(framegraph.FrameStats{Passes: 1})

	expected := `
# HELP framegraph_driver_passes_total Number of executed passes.
# TYPE framegraph_driver_passes_total counter
framegraph_driver_passes_total 1
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "framegraph_driver_passes_total")
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.True(t, strings.HasPrefix(mf.GetName(), "framegraph_driver_"), mf.GetName())
	}
}

func TestDriverIntegration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	m.MustRegister(registry)

	drv := framegraph.NewDriver(nullDevice{}, framegraph.WithObserver(m))
	for range 3 {
		g := drv.NewGraph()
		g.AddPass("clear", func(pb *framegraph.PassBuilder) {
			h := framegraph.Create(pb, framegraph.NewBuffer(256, gputypes.BufferUsageCopyDst))
			framegraph.Write(pb, &h, framegraph.AccessTransferWrite)
		})
		rt, err := g.CompileAndExecute(nil)
		require.NoError(t, err)
		require.NoError(t, rt.Retire())
	}
	require.NoError(t, drv.Close())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.frames.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.allocations.WithLabelValues("transient")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits))
}

// nullDevice allocates placeholder resources and records nothing.
type nullDevice struct{}

type nullResource struct{ desc framegraph.Descriptor }

func (r *nullResource) Descriptor() framegraph.Descriptor { return r.desc }

func (nullDevice) CreateResource(desc framegraph.Descriptor, _ string) (framegraph.Resource, error) {
	return &nullResource{desc: desc}, nil
}

func (nullDevice) DestroyResource(framegraph.Resource) {}

func (nullDevice) RecordBarriers(framegraph.CommandRecorder, []framegraph.ResourceBarrier) {}
