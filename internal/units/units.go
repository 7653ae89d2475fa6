// Package units provides the primitive AudioUnits the voices, plugins and
// bus are assembled from.
package units

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/graph"
)

const twoPi = math.Pi * 2

// Sum forwards the linear mix of everything connected to In.
type Sum struct {
	graph.Node
	In  *graph.Input
	Out *graph.Output
}

func NewSum() *Sum {
	s := &Sum{}
	s.In = s.NewInput("in", 0)
	s.Out = s.NewOutput("out")
	return s
}

func (s *Sum) Render(frames int) {
	copy(s.Out.Buffer(frames), s.In.Values())
}

// Gain multiplies In by the audio-rate Gain input.
type Gain struct {
	graph.Node
	In   *graph.Input
	Gain *graph.Input
	Out  *graph.Output
}

func NewGain(gain float64) *Gain {
	g := &Gain{}
	g.In = g.NewInput("in", 0)
	g.Gain = g.NewInput("gain", gain)
	g.Out = g.NewOutput("out")
	return g
}

func (g *Gain) Render(frames int) {
	dst := g.Out.Buffer(frames)
	in, gain := g.In.Values(), g.Gain.Values()
	for i := range dst {
		dst[i] = in[i] * gain[i]
	}
}

// ScaleOffset computes In*Scale + Offset.
type ScaleOffset struct {
	graph.Node
	In     *graph.Input
	Scale  *graph.Input
	Offset *graph.Input
	Out    *graph.Output
}

func NewScaleOffset(scale, offset float64) *ScaleOffset {
	s := &ScaleOffset{}
	s.In = s.NewInput("in", 0)
	s.Scale = s.NewInput("scale", scale)
	s.Offset = s.NewInput("offset", offset)
	s.Out = s.NewOutput("out")
	return s
}

func (s *ScaleOffset) Render(frames int) {
	dst := s.Out.Buffer(frames)
	in, sc, off := s.In.Values(), s.Scale.Values(), s.Offset.Values()
	for i := range dst {
		dst[i] = in[i]*sc[i] + off[i]
	}
}

// Panner splits a mono input into an equal-power stereo pair. Pan is -1..1.
type Panner struct {
	graph.Node
	In    *graph.Input
	Pan   *graph.Input
	Left  *graph.Output
	Right *graph.Output
}

func NewPanner() *Panner {
	p := &Panner{}
	p.In = p.NewInput("in", 0)
	p.Pan = p.NewInput("pan", 0)
	p.Left = p.NewOutput("left")
	p.Right = p.NewOutput("right")
	return p
}

func (p *Panner) Render(frames int) {
	l, r := p.Left.Buffer(frames), p.Right.Buffer(frames)
	in, pan := p.In.Values(), p.Pan.Values()
	lastPan := float32(math.NaN())
	var gl, gr float32
	for i := range l {
		if pan[i] != lastPan {
			lastPan = pan[i]
			pv := clamp(float64(pan[i]), -1, 1)
			angle := (pv + 1) / 2 * (math.Pi / 2)
			gl, gr = float32(math.Cos(angle)), float32(math.Sin(angle))
		}
		l[i] = in[i] * gl
		r[i] = in[i] * gr
	}
}

// Limiter soft-limits In after applying Drive.
type Limiter struct {
	graph.Node
	In    *graph.Input
	Drive *graph.Input
	Out   *graph.Output
}

func NewLimiter(drive float64) *Limiter {
	l := &Limiter{}
	l.In = l.NewInput("in", 0)
	l.Drive = l.NewInput("drive", drive)
	l.Out = l.NewOutput("out")
	return l
}

func (l *Limiter) Render(frames int) {
	dst := l.Out.Buffer(frames)
	in, drive := l.In.Values(), l.Drive.Values()
	for i := range dst {
		dst[i] = float32(math.Tanh(float64(in[i] * drive[i])))
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
