// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command fgdemo runs a temporal accumulation frame graph on the noop GPU
// backend and prints driver, device and Prometheus statistics.
//
// Every frame uploads a fresh sample buffer and blends it into an
// accumulation buffer that ping-pongs between two temporal resources:
//
//	upload:     samples, params   (transient, TransferWrite)
//	accumulate: samples, history  -> accum   (compute)
package main

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/wgpu"
	"github.com/gogpu/framegraph/metrics"
)

//go:embed shaders/accumulate.wgsl
var accumulateWGSL string

const workgroupSize = 64

func main() {
	var (
		frames      = flag.Int("frames", 16, "number of frames to run")
		elements    = flag.Int("elements", 1024, "accumulation buffer length in floats")
		blend       = flag.Float64("blend", 0.1, "weight of each new sample")
		timeout     = flag.Duration("timeout", time.Second, "GPU wait timeout per frame")
		maxIdle     = flag.Int("max-idle", framegraph.DefaultMaxIdleFrames, "frames an unused transient stays cached")
		verbose     = flag.Bool("v", false, "log frame graph activity")
		showMetrics = flag.Bool("metrics", false, "print Prometheus metrics on exit")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *elements <= 0 || *frames <= 0 {
		log.Fatalf("fgdemo: -frames and -elements must be positive")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New()
	m.MustRegister(registry)

	if err := run(config{
		frames:   *frames,
		elements: uint32(*elements), //nolint:gosec // G115: validated above
		blend:    float32(*blend),
		timeout:  *timeout,
		maxIdle:  *maxIdle,
		observer: m,
	}); err != nil {
		log.Fatalf("fgdemo: %v", err)
	}

	if *showMetrics {
		if err := printMetrics(registry); err != nil {
			log.Fatalf("fgdemo: %v", err)
		}
	}
}

type config struct {
	frames   int
	elements uint32
	blend    float32
	timeout  time.Duration
	maxIdle  int
	observer framegraph.Observer
}

// openNoop opens the first adapter of the noop HAL backend.
func openNoop() (hal.Device, hal.Queue, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, errors.New("no adapters")
	}
	opened, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	cleanup := func() {
		opened.Device.Destroy()
		instance.Destroy()
	}
	return opened.Device, opened.Queue, cleanup, nil
}

func run(cfg config) error {
	device, queue, cleanup, err := openNoop()
	if err != nil {
		return err
	}
	defer cleanup()

	dev, err := wgpu.NewDevice(device, queue)
	if err != nil {
		return err
	}
	lib := wgpu.NewShaderLibrary(dev)
	defer lib.Destroy()

	kernel, err := wgpu.NewComputeKernel(dev, lib, "accumulate", accumulateWGSL, "main",
		wgpu.BindingStorageRead, wgpu.BindingStorageRead, wgpu.BindingStorage, wgpu.BindingUniform)
	if err != nil {
		return err
	}
	defer kernel.Destroy()

	pp, err := framegraph.NewPingPong("accum.a", "accum.b")
	if err != nil {
		return err
	}

	drv := framegraph.NewDriver(dev,
		framegraph.WithObserver(cfg.observer),
		framegraph.WithMaxIdleFrames(cfg.maxIdle),
		framegraph.WithLabelPrefix("fgdemo"),
	)

	a := &accumulator{
		cfg:     cfg,
		dev:     dev,
		drv:     drv,
		kernel:  kernel,
		pp:      pp,
		samples: framegraph.NewBuffer(uint64(cfg.elements)*4, gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst),
		params:  framegraph.NewBuffer(16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst),
		accum:   framegraph.NewBuffer(uint64(cfg.elements)*4, gputypes.BufferUsageStorage),
	}

	start := time.Now()
	for i := 0; i < cfg.frames; i++ {
		if err := a.frame(); err != nil {
			_ = drv.Close()
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("%d frames in %v\n", cfg.frames, elapsed)
	fmt.Println(drv.Stats())
	if err := drv.Close(); err != nil {
		return err
	}
	fmt.Println(dev.Stats())
	return nil
}

// accumulator records one accumulation frame per call.
type accumulator struct {
	cfg    config
	dev    *wgpu.Device
	drv    *framegraph.Driver
	kernel *wgpu.ComputeKernel
	pp     *framegraph.PingPong

	samples framegraph.BufferDesc
	params  framegraph.BufferDesc
	accum   framegraph.BufferDesc
}

func (a *accumulator) frame() error {
	// The first frame has no history to blend with.
	blend := a.cfg.blend
	if !a.pp.HistoryValid() {
		blend = 1
	}

	g := a.drv.NewGraph()
	out, hist, err := framegraph.ImportPingPong(g, a.pp, a.accum)
	if err != nil {
		g.Discard()
		return err
	}

	var samples, params framegraph.Handle[framegraph.BufferDesc]
	g.AddPass("upload", func(pb *framegraph.PassBuilder) {
		samples = framegraph.Create(pb, a.samples)
		params = framegraph.Create(pb, a.params)
		sw := framegraph.Write(pb, &samples, framegraph.AccessTransferWrite)
		pw := framegraph.Write(pb, &params, framegraph.AccessTransferWrite)

		pb.Render(func(pc *framegraph.PassContext) error {
			bufs, err := resolveBuffers(pc, sw, pw)
			if err != nil {
				return err
			}
			if err := a.dev.WriteBuffer(bufs[0], 0, sampleData(pc.Frame(), a.cfg.elements)); err != nil {
				return err
			}
			return a.dev.WriteBuffer(bufs[1], 0, paramsData(blend, a.cfg.elements))
		})
	})

	g.AddPass("accumulate", func(pb *framegraph.PassBuilder) {
		sr := framegraph.Read(pb, samples, framegraph.AccessComputeShaderReadStorage)
		hr := framegraph.Read(pb, hist, framegraph.AccessComputeShaderReadStorage)
		pr := framegraph.Read(pb, params, framegraph.AccessComputeShaderReadUniformBuffer)
		ow := framegraph.Write(pb, &out, framegraph.AccessComputeShaderWrite)

		pb.Render(func(pc *framegraph.PassContext) error {
			bufs, err := resolveBuffers(pc, sr, hr, ow, pr)
			if err != nil {
				return err
			}
			encoder, ok := pc.Recorder().(hal.CommandEncoder)
			if !ok {
				return fmt.Errorf("recorder is %T, want hal.CommandEncoder", pc.Recorder())
			}
			groups := (a.cfg.elements + workgroupSize - 1) / workgroupSize
			return a.kernel.Dispatch(encoder, bufs, groups, 1, 1)
		})
	})

	if err := framegraph.ExportPingPong(g, a.pp, out, hist); err != nil {
		g.Discard()
		return err
	}

	encoder, err := a.dev.BeginFrame(fmt.Sprintf("frame%d", g.Frame()))
	if err != nil {
		g.Discard()
		return err
	}
	retired, err := g.CompileAndExecute(encoder)
	if err != nil {
		encoder.DiscardEncoding()
		a.kernel.ReleaseBindGroups()
		return err
	}
	if err := a.dev.Submit(encoder, a.cfg.timeout); err != nil {
		a.kernel.ReleaseBindGroups()
		return errors.Join(err, retired.Retire())
	}
	a.kernel.ReleaseBindGroups()
	return retired.Retire()
}

func resolveBuffers(pc *framegraph.PassContext, refs ...framegraph.Ref[framegraph.BufferDesc]) ([]*wgpu.Buffer, error) {
	bufs := make([]*wgpu.Buffer, len(refs))
	for i, ref := range refs {
		buf, err := framegraph.ResolveAs[*wgpu.Buffer](pc, ref)
		if err != nil {
			return nil, err
		}
		bufs[i] = buf
	}
	return bufs, nil
}

// sampleData returns a sine wave shifted by the frame number.
func sampleData(frame uint64, n uint32) []byte {
	data := make([]byte, int(n)*4)
	phase := float64(frame) * 0.25
	for i := range n {
		v := float32(math.Sin(float64(i)/16 + phase))
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}

// paramsData packs the Params uniform of accumulate.wgsl.
func paramsData(blend float32, count uint32) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(blend))
	binary.LittleEndian.PutUint32(data[4:], count)
	return data
}

func printMetrics(g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}
