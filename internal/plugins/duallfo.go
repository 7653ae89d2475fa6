package plugins

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/units"
)

// Dual LFO combine modes.
const (
	LFOModeAnd = iota
	LFOModeOr
	LFOModeMin
	LFOModeMax
)

// lfoCombiner merges A and B and folds in the total-feedback signal.
type lfoCombiner struct {
	graph.Node
	A, B     *graph.Input
	Feedback *graph.Input
	Amount   *graph.Input
	Mode     *graph.Input
	Out      *graph.Output

	lastA, lastB atomic.Uint32
}

func newLFOCombiner() *lfoCombiner {
	c := &lfoCombiner{}
	c.A = c.NewInput("a", 0)
	c.B = c.NewInput("b", 0)
	c.Feedback = c.NewInput("feedback", 0)
	c.Amount = c.NewInput("amount", 0)
	c.Mode = c.NewInput("mode", LFOModeAnd)
	c.Out = c.NewOutput("out")
	return c
}

func (c *lfoCombiner) Render(frames int) {
	dst := c.Out.Buffer(frames)
	a, b, fb := c.A.Values(), c.B.Values(), c.Feedback.Values()
	amount := float32(clamp(c.Amount.Value(), 0, 1))
	mode := int(math.Round(c.Mode.Value()))
	for i := range dst {
		ua, ub := (a[i]+1)/2, (b[i]+1)/2
		var u float32
		switch mode {
		case LFOModeOr:
			u = ua + ub - ua*ub
		case LFOModeMin:
			u = min(ua, ub)
		case LFOModeMax:
			u = max(ua, ub)
		default:
			u = ua * ub
		}
		v := u*2 - 1 + fb[i]*amount
		dst[i] = float32(clamp(float64(v), -1, 1))
	}
	if frames > 0 {
		c.lastA.Store(math.Float32bits(a[frames-1]))
		c.lastB.Store(math.Float32bits(b[frames-1]))
	}
}

// DualLFO runs two LFOs and combines them. The combined output can be
// pushed around by the master bus through the feedback input.
type DualLFO struct {
	*plugin.Base
	a, b *units.LFO
	comb *lfoCombiner
}

func NewDualLFO(g *graph.Graph, sampleRate float64) *DualLFO {
	d := &DualLFO{
		Base: plugin.NewBase(g, URIDualLFO, "Dual LFO"),
		a:    units.NewLFO(sampleRate, units.WaveTriangle),
		b:    units.NewLFO(sampleRate, units.WaveSine),
		comb: newLFOCombiner(),
	}
	d.AddUnits(d.a, d.b, d.comb)
	d.AddInput("feedback", d.comb.Feedback)
	d.AddOutput("out", d.comb.Out)
	d.AddOutput("a", d.a.Out)
	d.AddOutput("b", d.b.Out)
	d.AddPorts(
		plugin.FloatPort("freq_a", 0.5, 0.01, 20).OnChange(setter(nil, d.a.Frequency)),
		plugin.FloatPort("freq_b", 0.3, 0.01, 20).OnChange(setter(nil, d.b.Frequency)),
		plugin.IntPort("wave_a", units.WaveTriangle, units.WaveSine, units.WaveRandom).OnChange(func(v plugin.PortValue) {
			d.a.SetWaveform(int(plugin.Float(v)))
		}),
		plugin.IntPort("wave_b", units.WaveSine, units.WaveSine, units.WaveRandom).OnChange(func(v plugin.PortValue) {
			d.b.SetWaveform(int(plugin.Float(v)))
		}),
		plugin.IntPort("mode", LFOModeAnd, LFOModeAnd, LFOModeMax).OnChange(setter(nil, d.comb.Mode)),
		plugin.FloatPort("feedback", 0, 0, 1).OnChange(setter(nil, d.comb.Amount)),
	)
	d.OnInitialize(func(g *graph.Graph) {
		g.Connect(d.a.Out, d.comb.A)
		g.Connect(d.b.Out, d.comb.B)
	})
	return d
}

// FrequencyInput returns the rate input of LFO 0 (A) or 1 (B).
func (d *DualLFO) FrequencyInput(which int) *graph.Input {
	if which == 1 {
		return d.b.Frequency
	}
	return d.a.Frequency
}

// FeedbackInput receives the master bus.
func (d *DualLFO) FeedbackInput() *graph.Input { return d.comb.Feedback }

// Levels returns the last samples of A and B for monitoring.
func (d *DualLFO) Levels() (a, b float32) {
	return math.Float32frombits(d.comb.lastA.Load()), math.Float32frombits(d.comb.lastB.Load())
}
