package units

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/graph"
)

// Filter is a two-pole state-variable lowpass in trapezoidal form. The
// prewarped coefficient keeps it stable for any cutoff below Nyquist and
// any positive damping.
type Filter struct {
	graph.Node
	In        *graph.Input
	Cutoff    *graph.Input
	Resonance *graph.Input
	Out       *graph.Output

	sampleRate float64
	ic1, ic2   float64
}

// maxCutoffRatio caps the cutoff as a fraction of the sample rate.
const maxCutoffRatio = 0.45

func NewFilter(sampleRate float64) *Filter {
	f := &Filter{sampleRate: sampleRate}
	f.In = f.NewInput("in", 0)
	f.Cutoff = f.NewInput("cutoff", 8000)
	f.Resonance = f.NewInput("resonance", 0.1)
	f.Out = f.NewOutput("out")
	return f
}

// filterCoefficients maps cutoff in Hz and resonance in 0..1 to the
// prewarped integrator gain g and the damping k = 1/Q. k stays in 0.1..2.
func filterCoefficients(cutoff, resonance, sampleRate float64) (g, k float64) {
	cutoff = clamp(cutoff, 20, sampleRate*maxCutoffRatio)
	g = math.Tan(math.Pi * cutoff / sampleRate)
	k = 2 - 1.9*clamp(resonance, 0, 1)
	return g, k
}

func (f *Filter) Render(frames int) {
	dst := f.Out.Buffer(frames)
	in := f.In.Values()
	g, k := filterCoefficients(f.Cutoff.Value(), f.Resonance.Value(), f.sampleRate)
	a1 := 1 / (1 + g*(g+k))
	a2 := g * a1
	a3 := g * a2
	for i := range dst {
		x := float64(in[i])
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		v3 := x - f.ic2
		v1 := a1*f.ic1 + a2*v3
		v2 := f.ic2 + a2*f.ic1 + a3*v3
		f.ic1 = 2*v1 - f.ic1
		f.ic2 = 2*v2 - f.ic2
		dst[i] = float32(v2)
	}
}

// VCA scales In by the larger of the envelope and the hold floor, then by
// the wobble multiplier and the volume.
type VCA struct {
	graph.Node
	In       *graph.Input
	Envelope *graph.Input
	Hold     *graph.Input
	Wobble   *graph.Input
	Volume   *graph.Input
	Out      *graph.Output
}

func NewVCA() *VCA {
	v := &VCA{}
	v.In = v.NewInput("in", 0)
	v.Envelope = v.NewInput("envelope", 0)
	v.Hold = v.NewInput("hold", 0)
	v.Wobble = v.NewInput("wobble", 1)
	v.Volume = v.NewInput("volume", 1)
	v.Out = v.NewOutput("out")
	return v
}

func (v *VCA) Render(frames int) {
	dst := v.Out.Buffer(frames)
	in, env, hold := v.In.Values(), v.Envelope.Values(), v.Hold.Values()
	wob, vol := v.Wobble.Values(), v.Volume.Values()
	for i := range dst {
		amp := max(env[i], hold[i])
		dst[i] = in[i] * amp * wob[i] * vol[i]
	}
}
