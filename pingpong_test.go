package framegraph

import (
	"errors"
	"testing"
)

func TestNewPingPongSameKeys(t *testing.T) {
	if _, err := NewPingPong("taa", "taa"); !errors.Is(err, ErrPingPongKeys) {
		t.Errorf("NewPingPong(same keys) error = %v, want ErrPingPongKeys", err)
	}
}

// TestPingPongHistoryIsPreviousOutput runs N frames and checks that each
// frame's history resolves to the previous frame's output and never to its
// own output.
func TestPingPongHistoryIsPreviousOutput(t *testing.T) {
	const frames = 6

	dev := newFakeDevice()
	drv := NewDriver(dev)
	pp, err := NewPingPong("accum.a", "accum.b")
	if err != nil {
		t.Fatal(err)
	}

	var prevOutput Resource
	var outKeys []string
	for i := range frames {
		g := drv.NewGraph()

		wantValid := i > 0
		if pp.HistoryValid() != wantValid {
			t.Errorf("frame %d: HistoryValid() = %v, want %v", i, pp.HistoryValid(), wantValid)
		}
		outKeys = append(outKeys, pp.OutputKey())

		out, hist, err := ImportPingPong(g, pp, testImage)
		if err != nil {
			t.Fatalf("frame %d: ImportPingPong: %v", i, err)
		}

		var outRes, histRes Resource
		g.AddPass("accumulate", func(pb *PassBuilder) {
			histRef := Read(pb, hist, AccessComputeShaderReadSampledImage)
			outRef := Write(pb, &out, AccessComputeShaderWrite)
			pb.Render(func(pc *PassContext) error {
				var err error
				if histRes, err = histRef.Resolve(pc); err != nil {
					return err
				}
				outRes, err = outRef.Resolve(pc)
				return err
			})
		})
		if err := ExportPingPong(g, pp, out, hist); err != nil {
			t.Fatalf("frame %d: ExportPingPong: %v", i, err)
		}
		if _, err := runFrame(g); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}

		if histRes == outRes {
			t.Errorf("frame %d: history and output are the same resource", i)
		}
		if i > 0 && histRes != prevOutput {
			t.Errorf("frame %d: history %v, want previous output %v", i, histRes, prevOutput)
		}
		prevOutput = outRes
	}

	for i := 1; i < len(outKeys); i++ {
		if outKeys[i] == outKeys[i-1] {
			t.Errorf("frames %d and %d both write %q", i-1, i, outKeys[i])
		}
	}
	if len(dev.created) != 2 {
		t.Errorf("allocations = %d, want 2", len(dev.created))
	}
}

func TestPingPongImportFailureKeepsRoles(t *testing.T) {
	drv := NewDriver(newFakeDevice())
	pp, _ := NewPingPong("a", "b")

	g := drv.NewGraph()
	// Occupy the output key so the pair cannot be imported.
	if _, err := ImportTemporal(g, pp.OutputKey(), testImage); err != nil {
		t.Fatal(err)
	}
	before := pp.OutputKey()
	if _, _, err := ImportPingPong(g, pp, testImage); !errors.Is(err, ErrTemporalAlreadyImported) {
		t.Fatalf("ImportPingPong error = %v, want ErrTemporalAlreadyImported", err)
	}
	if pp.OutputKey() != before {
		t.Errorf("roles swapped after a failed import")
	}
	g.Discard()
}
