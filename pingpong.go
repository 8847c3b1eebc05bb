package framegraph

import "fmt"

// PingPong alternates two temporal keys between the roles of history
// (last frame's output, read this frame) and output (written this frame).
// The roles swap on every import, so a pass can accumulate over frames
// without reading and writing the same resource.
//
//	pp, _ := framegraph.NewPingPong("taa.a", "taa.b")
//	// every frame:
//	out, hist, err := framegraph.ImportPingPong(g, pp, desc)
//	... read hist, write &out ...
//	err = framegraph.ExportPingPong(g, pp, out, hist)
type PingPong struct {
	keys    [2]string
	flipped bool
	exports uint64
}

// NewPingPong returns a PingPong over two distinct keys.
func NewPingPong(keyA, keyB string) (*PingPong, error) {
	if keyA == keyB {
		return nil, fmt.Errorf("ping-pong %q: %w", keyA, ErrPingPongKeys)
	}
	return &PingPong{keys: [2]string{keyA, keyB}}, nil
}

// Keys returns the two keys.
func (pp *PingPong) Keys() (string, string) { return pp.keys[0], pp.keys[1] }

// OutputKey returns the key the next import hands out as output.
func (pp *PingPong) OutputKey() string {
	if pp.flipped {
		return pp.keys[1]
	}
	return pp.keys[0]
}

// HistoryKey returns the key the next import hands out as history.
func (pp *PingPong) HistoryKey() string {
	if pp.flipped {
		return pp.keys[0]
	}
	return pp.keys[1]
}

// HistoryValid reports whether the history returned by the next import
// holds a previous frame's output. It is false until one frame has been
// exported.
func (pp *PingPong) HistoryValid() bool { return pp.exports > 0 }

// ImportPingPong imports both keys into g and returns the output and
// history handles. The roles swap for the next frame once both imports
// succeed.
func ImportPingPong[D ResourceDesc](g *Graph, pp *PingPong, desc D) (output, history Handle[D], err error) {
	outKey, histKey := pp.OutputKey(), pp.HistoryKey()

	history, err = ImportTemporal(g, histKey, desc)
	if err != nil {
		return Handle[D]{}, Handle[D]{}, fmt.Errorf("ping-pong history: %w", err)
	}
	output, err = ImportTemporal(g, outKey, desc)
	if err != nil {
		return Handle[D]{}, Handle[D]{}, fmt.Errorf("ping-pong output: %w", err)
	}

	pp.flipped = !pp.flipped
	return output, history, nil
}

// ExportPingPong exports both handles under the keys they were imported
// with. Since the import swapped the roles, this frame's output is under
// the next frame's history key.
func ExportPingPong[D ResourceDesc](g *Graph, pp *PingPong, output, history Handle[D]) error {
	if err := ExportTemporal(g, output, pp.HistoryKey()); err != nil {
		return fmt.Errorf("ping-pong output: %w", err)
	}
	if err := ExportTemporal(g, history, pp.OutputKey()); err != nil {
		return fmt.Errorf("ping-pong history: %w", err)
	}
	pp.exports++
	return nil
}
