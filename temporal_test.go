package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

// TestTemporalRoundTrip: the first import of "hist" allocates a fresh
// resource starting at AccessNone; after one write, export and retire, the
// next frame imports the same physical resource at the written access.
func TestTemporalRoundTrip(t *testing.T) {
	dev := newFakeDevice()
	drv := NewDriver(dev)
	reg := drv.Temporal()

	var first Resource
	frame := func(wantAccess AccessType) Resource {
		t.Helper()
		g := drv.NewGraph()
		h, err := ImportTemporal(g, "hist", testImage)
		if err != nil {
			t.Fatalf("ImportTemporal: %v", err)
		}
		if state, _ := reg.State("hist"); state != TemporalImported {
			t.Errorf("state after import = %v, want Imported", state)
		}
		if got := g.resources[h.Raw().ID].initAccess; got != wantAccess {
			t.Errorf("import access = %v, want %v", got, wantAccess)
		}

		var bound Resource
		g.AddPass("accumulate", func(pb *PassBuilder) {
			ref := Write(pb, &h, AccessComputeShaderWrite)
			pb.Render(func(pc *PassContext) error {
				var err error
				bound, err = ref.Resolve(pc)
				return err
			})
		})
		if err := ExportTemporal(g, h, "hist"); err != nil {
			t.Fatalf("ExportTemporal: %v", err)
		}
		if state, _ := reg.State("hist"); state != TemporalExported {
			t.Errorf("state after export = %v, want Exported", state)
		}
		if _, err := runFrame(g); err != nil {
			t.Fatalf("frame: %v", err)
		}
		if state, _ := reg.State("hist"); state != TemporalDefault {
			t.Errorf("state after retire = %v, want Default", state)
		}
		return bound
	}

	first = frame(AccessNone)
	if len(dev.created) != 1 {
		t.Fatalf("allocations after first frame = %d, want 1", len(dev.created))
	}
	if got, _ := reg.AccessType("hist"); got != AccessComputeShaderWrite {
		t.Errorf("registry access = %v, want ComputeShaderWrite", got)
	}

	second := frame(AccessComputeShaderWrite)
	if second != first {
		t.Errorf("second frame bound %v, want the same resource %v", second, first)
	}
	if len(dev.created) != 1 {
		t.Errorf("allocations after second frame = %d, want 1", len(dev.created))
	}
	if drv.Cache().Len() != 0 {
		t.Errorf("temporal resource leaked into the transient cache")
	}
}

func TestTemporalLifecycleErrors(t *testing.T) {
	drv := NewDriver(newFakeDevice())

	g := drv.NewGraph()
	h, err := ImportTemporal(g, "k", testImage)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ImportTemporal(g, "k", testImage); !errors.Is(err, ErrTemporalAlreadyImported) {
		t.Errorf("double import error = %v, want ErrTemporalAlreadyImported", err)
	}
	if err := ExportTemporal(g, h, "other"); !errors.Is(err, ErrTemporalNotImported) {
		t.Errorf("export of unknown key error = %v, want ErrTemporalNotImported", err)
	}
	if err := ExportTemporal(g, h, "k"); err != nil {
		t.Fatalf("ExportTemporal: %v", err)
	}
	if err := ExportTemporal(g, h, "k"); !errors.Is(err, ErrUseAfterExport) {
		t.Errorf("double export error = %v, want ErrUseAfterExport", err)
	}
	if err := drv.Temporal().Retire("k", AccessNone); err != nil {
		t.Errorf("registry Retire of an exported key: %v", err)
	}
	if err := drv.Temporal().Retire("k", AccessNone); !errors.Is(err, ErrTemporalNotExported) {
		t.Errorf("Retire of a default key error = %v, want ErrTemporalNotExported", err)
	}
	if err := drv.Temporal().Retire("missing", AccessNone); !errors.Is(err, ErrTemporalUnknown) {
		t.Errorf("Retire of a missing key error = %v, want ErrTemporalUnknown", err)
	}
	g.Discard()
}

func TestTemporalExportedNotRetired(t *testing.T) {
	drv := NewDriver(newFakeDevice())

	g1 := drv.NewGraph()
	h, err := ImportTemporal(g1, "k", testImage)
	if err != nil {
		t.Fatal(err)
	}
	if err := ExportTemporal(g1, h, "k"); err != nil {
		t.Fatal(err)
	}
	rt, err := g1.CompileAndExecute(&fakeRecorder{})
	if err != nil {
		t.Fatal(err)
	}

	// The next frame is built while the previous one is still in flight.
	g2 := drv.NewGraph()
	if _, err := ImportTemporal(g2, "k", testImage); !errors.Is(err, ErrTemporalNotRetired) {
		t.Errorf("import before retire error = %v, want ErrTemporalNotRetired", err)
	}
	if err := rt.Retire(); err != nil {
		t.Fatal(err)
	}
	if _, err := ImportTemporal(g2, "k", testImage); err != nil {
		t.Errorf("import after retire: %v", err)
	}
	g2.Discard()
}

func TestTemporalDescriptorMismatch(t *testing.T) {
	drv := NewDriver(newFakeDevice())

	g := drv.NewGraph()
	h, err := ImportTemporal(g, "k", testImage)
	if err != nil {
		t.Fatal(err)
	}
	if err := ExportTemporal(g, h, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := runFrame(g); err != nil {
		t.Fatal(err)
	}

	resized := NewImage2D(gputypes.TextureFormatRGBA8Unorm, 512, 512)
	g = drv.NewGraph()
	if _, err := ImportTemporal(g, "k", resized); !errors.Is(err, ErrTemporalDescriptorMismatch) {
		t.Fatalf("import with new descriptor error = %v, want ErrTemporalDescriptorMismatch", err)
	}

	// Removing the key lets it be registered again with the new shape.
	if err := drv.RemoveTemporal("k"); err != nil {
		t.Fatalf("RemoveTemporal: %v", err)
	}
	if _, err := ImportTemporal(g, "k", resized); err != nil {
		t.Errorf("import after RemoveTemporal: %v", err)
	}
	if err := drv.RemoveTemporal("k"); !errors.Is(err, ErrTemporalInUse) {
		t.Errorf("RemoveTemporal of an imported key error = %v, want ErrTemporalInUse", err)
	}
	g.Discard()
}

func TestTemporalLeakedImport(t *testing.T) {
	drv := NewDriver(newFakeDevice())

	g := drv.NewGraph()
	h, err := ImportTemporal(g, "k", testBuffer)
	if err != nil {
		t.Fatal(err)
	}
	g.AddPass("fill", func(pb *PassBuilder) {
		Write(pb, &h, AccessTransferWrite)
	})
	_, err = runFrame(g)
	if !errors.Is(err, ErrTemporalLeaked) {
		t.Fatalf("retire error = %v, want ErrTemporalLeaked", err)
	}

	// The entry is usable again and remembers the access it was left in.
	if state, _ := drv.Temporal().State("k"); state != TemporalDefault {
		t.Errorf("state = %v, want Default", state)
	}
	if got, _ := drv.Temporal().AccessType("k"); got != AccessTransferWrite {
		t.Errorf("access = %v, want TransferWrite", got)
	}
}

func TestTemporalAbortKeepsAccess(t *testing.T) {
	drv := NewDriver(newFakeDevice())
	reg := drv.Temporal()

	g := drv.NewGraph()
	h, _ := ImportTemporal(g, "k", testImage)
	g.AddPass("w", func(pb *PassBuilder) {
		Write(pb, &h, AccessComputeShaderWrite)
	})
	_ = ExportTemporal(g, h, "k")
	if _, err := runFrame(g); err != nil {
		t.Fatal(err)
	}

	g = drv.NewGraph()
	h, _ = ImportTemporal(g, "k", testImage)
	g.AddPass("r", func(pb *PassBuilder) {
		Read(pb, h, AccessFragmentShaderReadSampledImage)
		pb.Render(func(pc *PassContext) error { return errors.New("device lost") })
	})
	_ = ExportTemporal(g, h, "k")
	if _, err := g.CompileAndExecute(&fakeRecorder{}); err == nil {
		t.Fatal("expected the pass error")
	}

	if state, _ := reg.State("k"); state != TemporalDefault {
		t.Errorf("state after abort = %v, want Default", state)
	}
	if got, _ := reg.AccessType("k"); got != AccessComputeShaderWrite {
		t.Errorf("access after abort = %v, want the previous frame's ComputeShaderWrite", got)
	}
}

func TestTemporalNotRecycled(t *testing.T) {
	drv := NewDriver(newFakeDevice())

	g := drv.NewGraph()
	h, _ := ImportTemporal(g, "k", testImage)
	g.AddPass("w", func(pb *PassBuilder) {
		Write(pb, &h, AccessComputeShaderWrite)
	})
	_ = ExportTemporal(g, h, "k")
	if _, err := runFrame(g); err != nil {
		t.Fatal(err)
	}

	p, ok := drv.Temporal().Resource("k")
	if !ok || p == nil {
		t.Fatal("temporal resource not allocated")
	}
	if err := drv.Cache().Insert(p); !errors.Is(err, ErrOwnership) {
		t.Errorf("cache Insert of a temporal resource error = %v, want ErrOwnership", err)
	}
}

func TestTemporalRegistryKeys(t *testing.T) {
	drv := NewDriver(newFakeDevice())
	g := drv.NewGraph()
	for _, k := range []string{"b", "a", "c"} {
		if _, err := ImportTemporal(g, k, testBuffer); err != nil {
			t.Fatal(err)
		}
	}
	got := drv.Temporal().Keys()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Keys() = %v, want [a b c]", got)
	}
	if d, ok := drv.Temporal().Descriptor("a"); !ok || d != Describe(testBuffer) {
		t.Errorf("Descriptor(a) = %v, %v", d, ok)
	}
	g.Discard()
}
