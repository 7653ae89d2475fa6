package units

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/graph"
)

// Oscillator is the voice oscillator. Pitch inputs (bender, CV, vibrato)
// are in octaves; ModInput is phase modulation in cycles scaled by FMDepth.
// Sharpness morphs sine → triangle → saw → square.
type Oscillator struct {
	graph.Node
	Frequency     *graph.Input
	ModInput      *graph.Input
	FMDepth       *graph.Input
	Sharpness     *graph.Input
	CouplingInput *graph.Input
	CouplingDepth *graph.Input
	VibratoInput  *graph.Input
	VibratoDepth  *graph.Input
	BenderInput   *graph.Input
	CVPitchInput  *graph.Input
	Out           *graph.Output

	sampleRate float64
	phase      float64
}

func NewOscillator(sampleRate float64) *Oscillator {
	o := &Oscillator{sampleRate: sampleRate}
	o.Frequency = o.NewInput("frequency", 220)
	o.ModInput = o.NewInput("modInput", 0)
	o.FMDepth = o.NewInput("fmDepth", 0)
	o.Sharpness = o.NewInput("sharpness", 0)
	o.CouplingInput = o.NewInput("couplingInput", 0)
	o.CouplingDepth = o.NewInput("couplingDepth", 0)
	o.VibratoInput = o.NewInput("vibratoInput", 0)
	o.VibratoDepth = o.NewInput("vibratoDepth", 0)
	o.BenderInput = o.NewInput("benderInput", 0)
	o.CVPitchInput = o.NewInput("cvPitchInput", 0)
	o.Out = o.NewOutput("out")
	return o
}

func (o *Oscillator) Render(frames int) {
	dst := o.Out.Buffer(frames)
	freq := o.Frequency.Values()
	mod, fm := o.ModInput.Values(), o.FMDepth.Values()
	cpl, cplDepth := o.CouplingInput.Values(), o.CouplingDepth.Values()
	vib, vibDepth := o.VibratoInput.Values(), o.VibratoDepth.Values()
	bend, cv := o.BenderInput.Values(), o.CVPitchInput.Values()
	sharp := clamp(o.Sharpness.Value(), 0, 1)
	nyquist := o.sampleRate / 2
	for i := range dst {
		octaves := float64(bend[i] + cv[i] + vib[i]*vibDepth[i])
		f := float64(freq[i]) * math.Exp2(octaves) * (1 + float64(cpl[i]*cplDepth[i]))
		f = clamp(f, 0, nyquist)
		dt := f / o.sampleRate
		p := o.phase + float64(mod[i]*fm[i])
		p -= math.Floor(p)
		dst[i] = float32(morph(p, dt, sharp))
		o.phase += dt
		if o.phase >= 1 {
			o.phase -= 1
		}
	}
}

// morph crossfades between adjacent shapes across three segments.
func morph(p, dt, sharpness float64) float64 {
	seg := sharpness * 3
	switch {
	case seg < 1:
		return lerp(math.Sin(twoPi*p), triangle(p), seg)
	case seg < 2:
		return lerp(triangle(p), saw(p, dt), seg-1)
	default:
		return lerp(saw(p, dt), square(p, dt), math.Min(seg-2, 1))
	}
}

func triangle(p float64) float64 { return 2*math.Abs(2*p-1) - 1 }

func saw(p, dt float64) float64 {
	return 2*p - 1 - polyBLEP(p, dt)
}

func square(p, dt float64) float64 {
	out := -1.0
	if p < 0.5 {
		out = 1
	}
	out += polyBLEP(p, dt)
	out -= polyBLEP(math.Mod(p+0.5, 1), dt)
	return out
}

// polyBLEP reduces aliasing at waveform discontinuities.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }
