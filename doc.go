// Package framegraph schedules a frame's GPU work as a graph of passes.
//
// # Overview
//
// Renderer code declares, each frame, an ordered list of passes that read
// and write logical resources (images, buffers, acceleration structures).
// framegraph synthesizes the barriers between passes, backs logical
// resources with physical allocations recycled across frames, and carries
// temporal resources, such as history buffers, from one frame to the next.
//
// Passes execute in the order they are declared. There is no reordering
// and no cycle detection: a handle can only reference a version produced
// by an earlier declaration, so declaration order is dependency order.
//
// # Quick Start
//
//	drv := framegraph.NewDriver(dev)
//	defer drv.Close()
//
//	g := drv.NewGraph()
//	desc := framegraph.NewImage2D(gputypes.TextureFormatRGBA8Unorm, 1920, 1080)
//
//	var lit framegraph.Handle[framegraph.ImageDesc]
//	g.AddPass("lighting", func(pb *framegraph.PassBuilder) {
//		lit = framegraph.Create(pb, desc)
//		out := framegraph.Write(pb, &lit, framegraph.AccessComputeShaderWrite)
//		pb.Render(func(pc *framegraph.PassContext) error {
//			tex, err := out.Resolve(pc)
//			...
//		})
//	})
//	g.AddPass("tonemap", func(pb *framegraph.PassBuilder) {
//		in := framegraph.Read(pb, lit, framegraph.AccessComputeShaderReadSampledImage)
//		...
//	})
//
//	retired, err := g.CompileAndExecute(encoder)
//	// submit encoder, wait for the GPU
//	err = retired.Retire()
//
// # Handles and versions
//
// A Handle is the current value of a logical resource. Write advances the
// caller's Handle to the next version in place; any copy of the previous
// value is stale and rejected. A Ref is the capability a pass's render
// function uses to resolve the physical resource it declared.
//
// # Errors
//
// Misuse while declaring passes (stale handles, double writes, reading and
// writing the same resource in one pass) is recorded on the Graph and
// reported by Compile, which then refuses to produce a plan. Import and
// export functions return their errors directly.
//
// # Resources
//
// Created resources are transient: they come from the driver's
// TransientCache, matched by Descriptor equality, or are allocated from the
// Device, and go back to the cache when the frame is retired. Imported
// resources belong to the caller. Temporal resources belong to the
// TemporalRegistry and are imported and exported by key every frame;
// PingPong alternates two keys for history buffers.
//
// # Logging
//
// framegraph is silent by default. Use SetLogger to route its log/slog
// output to a handler.
//
// # Backends
//
// Device is the contract framegraph needs from the GPU abstraction. Package
// backend/wgpu adapts a gogpu/wgpu hal.Device.
package framegraph
