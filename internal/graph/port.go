package graph

import (
	"math"
	"sync/atomic"
)

// Unit is a node in the signal graph. Render computes the outputs for the
// next block from the gathered inputs and the unit's own state.
type Unit interface {
	Inputs() []*Input
	Outputs() []*Output
	Render(frames int)
}

// Node carries the input and output terminals of a unit. Units embed it.
type Node struct {
	inputs  []*Input
	outputs []*Output
}

// NewInput declares an input terminal whose manual value starts at def.
func (n *Node) NewInput(name string, def float64) *Input {
	in := &Input{name: name}
	in.Set(def)
	n.inputs = append(n.inputs, in)
	return in
}

// NewOutput declares an output terminal.
func (n *Node) NewOutput(name string) *Output {
	out := &Output{name: name}
	n.outputs = append(n.outputs, out)
	return out
}

func (n *Node) Inputs() []*Input   { return n.inputs }
func (n *Node) Outputs() []*Output { return n.outputs }

// Output is a source terminal producing one sample per frame. The previous
// block is retained for delayed (feedback) readers.
type Output struct {
	name  string
	owner *entry
	buf   []float32
	prev  []float32
}

func (o *Output) Name() string { return o.name }

// Buffer returns the writable block for the current render.
func (o *Output) Buffer(frames int) []float32 {
	if cap(o.buf) < frames {
		o.buf = make([]float32, frames)
	}
	o.buf = o.buf[:frames]
	return o.buf
}

// Last returns the most recently rendered sample, or 0.
func (o *Output) Last() float32 {
	if len(o.buf) == 0 {
		return 0
	}
	return o.buf[len(o.buf)-1]
}

func (o *Output) swap() {
	o.buf, o.prev = o.prev, o.buf
}

func (o *Output) zero() {
	clear(o.buf)
	clear(o.prev)
}

type edge struct {
	src     *Output
	delayed bool
}

// Input is a sink terminal. It sums every connected output; with no
// connection it reads its manual value.
type Input struct {
	name  string
	value atomic.Uint64
	edges []edge
	buf   []float32
}

func (in *Input) Name() string { return in.name }

// Set stores the manual value. It is superseded while the input has
// connections and takes effect again once they are removed.
func (in *Input) Set(v float64) {
	in.value.Store(math.Float64bits(v))
}

// Get returns the manual value.
func (in *Input) Get() float64 {
	return math.Float64frombits(in.value.Load())
}

// Connected reports whether any source is attached. Only meaningful from
// the render path or while holding the graph lock.
func (in *Input) Connected() bool { return len(in.edges) > 0 }

// Values returns the samples gathered for the current block.
func (in *Input) Values() []float32 { return in.buf }

// Value returns the first gathered sample of the block, for control-rate readers.
func (in *Input) Value() float64 {
	if len(in.buf) == 0 {
		return in.Get()
	}
	return float64(in.buf[0])
}

func (in *Input) gather(frames int) {
	if cap(in.buf) < frames {
		in.buf = make([]float32, frames)
	}
	in.buf = in.buf[:frames]
	if len(in.edges) == 0 {
		v := float32(in.Get())
		for i := range in.buf {
			in.buf[i] = v
		}
		return
	}
	clear(in.buf)
	for _, e := range in.edges {
		src := e.src.buf
		if e.delayed {
			src = e.src.prev
		}
		n := min(len(src), frames)
		for i := 0; i < n; i++ {
			in.buf[i] += src[i]
		}
	}
}
