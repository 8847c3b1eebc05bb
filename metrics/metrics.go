// Package metrics exports framegraph frame statistics to Prometheus.
//
//	m := metrics.New()
//	m.MustRegister(prometheus.DefaultRegisterer)
//	drv := framegraph.NewDriver(dev, framegraph.WithObserver(m))
package metrics

import (
	"github.com/gogpu/framegraph"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "framegraph"
	subsystem = "driver"
)

// Metrics holds prometheus metrics for frame graph execution. It
// implements framegraph.Observer.
type Metrics struct {
	frames      *prometheus.CounterVec
	passes      prometheus.Counter
	barriers    prometheus.Counter
	allocations *prometheus.CounterVec
	cacheHits   prometheus.Counter
	evictions   prometheus.Counter
	executeTime *prometheus.HistogramVec
	lastPasses  prometheus.Gauge
}

var _ framegraph.Observer = (*Metrics)(nil)

// New creates unregistered metrics.
func New() *Metrics {
	return &Metrics{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "frames_total",
				Help:      "Number of finished frame graphs.",
			},
			[]string{"result"}, // "success" or "error"
		),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "passes_total",
			Help:      "Number of executed passes.",
		}),
		barriers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "barriers_total",
			Help:      "Number of synthesized barriers.",
		}),
		allocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "allocations_total",
				Help:      "Number of physical resources allocated on the device.",
			},
			[]string{"kind"}, // "transient" or "temporal"
		),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Number of transient resources reused from the cache.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_evictions_total",
			Help:      "Number of idle transient resources destroyed.",
		}),
		executeTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "execute_duration_seconds",
				Help:      "CPU time spent executing a frame graph.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
			},
			[]string{"result"},
		),
		lastPasses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_frame_passes",
			Help:      "Number of passes in the most recent successful frame.",
		}),
	}
}

// ObserveFrame implements framegraph.Observer.
func (m *Metrics) ObserveFrame(s framegraph.FrameStats) {
	result := "success"
	if s.Failed {
		result = "error"
	}
	m.frames.WithLabelValues(result).Inc()
	if s.Failed {
		// Failed frames carry no execution counters.
		return
	}

	m.passes.Add(float64(s.Passes))
	m.barriers.Add(float64(s.Barriers))
	m.allocations.WithLabelValues("transient").Add(float64(s.TransientAllocations))
	m.allocations.WithLabelValues("temporal").Add(float64(s.TemporalAllocations))
	m.cacheHits.Add(float64(s.CacheHits))
	m.evictions.Add(float64(s.Evictions))
	m.executeTime.WithLabelValues(result).Observe(s.ExecuteDuration.Seconds())
	m.lastPasses.Set(float64(s.Passes))
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.frames,
		m.passes,
		m.barriers,
		m.allocations,
		m.cacheHits,
		m.evictions,
		m.executeTime,
		m.lastPasses,
	)
}
