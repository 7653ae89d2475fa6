package plugins

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/units"
)

// VibratoRange is the peak vibrato excursion in octaves at depth 1.
const VibratoRange = 0.5

// Vibrato is a sine LFO whose output, in octaves, fans into every voice.
type Vibrato struct {
	*plugin.Base
	lfo *units.LFO
}

func NewVibrato(g *graph.Graph, sampleRate float64) *Vibrato {
	v := &Vibrato{
		Base: plugin.NewBase(g, URIVibrato, "Vibrato"),
		lfo:  units.NewLFO(sampleRate, units.WaveSine),
	}
	v.AddUnits(v.lfo)
	v.AddOutput("out", v.lfo.Out)
	v.AddPorts(
		plugin.FloatPort("rate", 5, 0.1, 12).OnChange(setter(nil, v.lfo.Frequency)),
		plugin.FloatPort("depth", 0, 0, 1).OnChange(setter(func(d float64) float64 { return d * VibratoRange }, v.lfo.Amplitude)),
	)
	return v
}

// DepthInput is the LFO amplitude, in octaves.
func (v *Vibrato) DepthInput() *graph.Input { return v.lfo.Amplitude }

// springUnit chases Target with a critically damped spring and outputs
// the position scaled by Range.
type springUnit struct {
	graph.Node
	Target *graph.Input
	Range  *graph.Input
	Out    *graph.Output

	sampleRate float64
	pos, vel   float64
	published  atomic.Uint64
}

func newSpringUnit(sampleRate float64) *springUnit {
	u := &springUnit{sampleRate: sampleRate}
	u.Target = u.NewInput("target", 0)
	u.Range = u.NewInput("range", 2.0/12)
	u.Out = u.NewOutput("out")
	return u
}

const springOmega = 40.0

func (u *springUnit) Render(frames int) {
	dst := u.Out.Buffer(frames)
	target, span := u.Target.Values(), u.Range.Values()
	dt := 1 / u.sampleRate
	for i := range dst {
		acc := springOmega*springOmega*(float64(target[i])-u.pos) - 2*springOmega*u.vel
		u.vel += acc * dt
		u.pos += u.vel * dt
		dst[i] = float32(u.pos) * span[i]
	}
	u.published.Store(math.Float64bits(u.pos))
}

// Bender is a pitch bend with spring-smoothed return. Its output is in
// octaves and fans into every voice's bender input.
type Bender struct {
	*plugin.Base
	spring *springUnit
}

func NewBender(g *graph.Graph, sampleRate float64) *Bender {
	b := &Bender{
		Base:   plugin.NewBase(g, URIBender, "Bender"),
		spring: newSpringUnit(sampleRate),
	}
	b.AddUnits(b.spring)
	b.AddOutput("pitch", b.spring.Out)
	b.AddPorts(
		plugin.FloatPort("bend", 0, -1, 1).OnChange(setter(nil, b.spring.Target)),
		plugin.FloatPort("range", 2, 0, 24).OnChange(setter(func(st float64) float64 { return st / 12 }, b.spring.Range)),
	)
	return b
}

// Position returns the smoothed bend position in -1..1 as of the last block.
func (b *Bender) Position() float32 {
	return float32(math.Float64frombits(b.spring.published.Load()))
}
