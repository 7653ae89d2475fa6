package plugins

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/units"
)

const (
	resonatorModes  = 4
	resonatorLowest = 30.0
)

// ResonatorHz maps the normalised frequency control to the fundamental.
func ResonatorHz(x float64) float64 {
	return 40 * math.Exp2(clamp(x, 0, 1)*6)
}

// combBankUnit excites a bank of tuned combs. Structure spreads the mode
// ratios from harmonic to inharmonic, position sets where the body is
// struck, brightness opens the loop filter and damping shortens the decay.
type combBankUnit struct {
	graph.Node
	In         *graph.Input
	Frequency  *graph.Input
	Structure  *graph.Input
	Brightness *graph.Input
	Damping    *graph.Input
	Position   *graph.Input
	OutL, OutR *graph.Output

	sampleRate float64
	combs      [resonatorModes]*effects.Comb
}

func newCombBankUnit(sampleRate float64) *combBankUnit {
	u := &combBankUnit{sampleRate: sampleRate}
	for i := range u.combs {
		u.combs[i] = effects.NewComb(int(sampleRate), resonatorLowest)
	}
	u.In = u.NewInput("in", 0)
	u.Frequency = u.NewInput("frequency", 0.3)
	u.Structure = u.NewInput("structure", 0.25)
	u.Brightness = u.NewInput("brightness", 0.5)
	u.Damping = u.NewInput("damping", 0.5)
	u.Position = u.NewInput("position", 0.3)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *combBankUnit) Render(frames int) {
	l, r := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	in := u.In.Values()
	f0 := ResonatorHz(u.Frequency.Value())
	structure := clamp(u.Structure.Value(), 0, 1)
	loopDamp := float32(1 - clamp(u.Brightness.Value(), 0, 1)*0.95)
	feedback := float32(0.995 - clamp(u.Damping.Value(), 0, 1)*0.4)
	pos := clamp(u.Position.Value(), 0, 1)
	var periods [resonatorModes]float64
	var gains [resonatorModes]float32
	for k := range periods {
		ratio := float64(k+1) * (1 + structure*0.5*float64(k)*0.37)
		periods[k] = u.sampleRate / math.Max(f0*ratio, resonatorLowest)
		gains[k] = float32(math.Abs(math.Sin(math.Pi*float64(k+1)*(0.05+pos*0.9)))) / float32(k+1)
	}
	for i := range l {
		x := in[i] * 0.25
		var sl, sr float32
		for k, c := range u.combs {
			s := c.Process(x*gains[k], periods[k], feedback, loopDamp)
			if k%2 == 0 {
				sl += s
				sr += s * 0.6
			} else {
				sl += s * 0.6
				sr += s
			}
		}
		l[i], r[i] = sl, sr
	}
}

// Resonator runs drums and synth through a comb bank. Three gain stages set
// the blend: drumExcite feeds drums into the bank, mixWet feeds the synth
// into it and mixDry passes the synth around it.
type Resonator struct {
	*plugin.Base
	bank           *combBankUnit
	drumExcite     *units.Gain
	synthL, synthR *units.Sum
	wetL, wetR     *units.Gain
	dryL, dryR     *units.Gain
	outL, outR     *units.Sum
}

func NewResonator(g *graph.Graph, sampleRate float64) *Resonator {
	r := &Resonator{
		Base:       plugin.NewBase(g, URIResonator, "Resonator"),
		bank:       newCombBankUnit(sampleRate),
		drumExcite: units.NewGain(0),
		synthL:     units.NewSum(),
		synthR:     units.NewSum(),
		wetL:       units.NewGain(0),
		wetR:       units.NewGain(0),
		dryL:       units.NewGain(1),
		dryR:       units.NewGain(1),
		outL:       units.NewSum(),
		outR:       units.NewSum(),
	}
	r.AddUnits(r.drumExcite, r.synthL, r.synthR, r.wetL, r.wetR, r.bank, r.dryL, r.dryR, r.outL, r.outR)
	r.AddInput("drums", r.drumExcite.In)
	r.AddInput("synthL", r.synthL.In)
	r.AddInput("synthR", r.synthR.In)
	r.AddOutput("outL", r.outL.Out)
	r.AddOutput("outR", r.outR.Out)
	r.AddPorts(
		plugin.FloatPort("frequency", 0.3, 0, 1).OnChange(setter(nil, r.bank.Frequency)),
		plugin.FloatPort("structure", 0.25, 0, 1).OnChange(setter(nil, r.bank.Structure)),
		plugin.FloatPort("brightness", 0.5, 0, 1).OnChange(setter(nil, r.bank.Brightness)),
		plugin.FloatPort("damping", 0.5, 0, 1).OnChange(setter(nil, r.bank.Damping)),
		plugin.FloatPort("position", 0.3, 0, 1).OnChange(setter(nil, r.bank.Position)),
	)
	r.OnInitialize(func(g *graph.Graph) {
		g.Connect(r.synthL.Out, r.wetL.In)
		g.Connect(r.synthR.Out, r.wetR.In)
		g.Connect(r.synthL.Out, r.dryL.In)
		g.Connect(r.synthR.Out, r.dryR.In)
		g.Connect(r.drumExcite.Out, r.bank.In)
		g.Connect(r.wetL.Out, r.bank.In)
		g.Connect(r.wetR.Out, r.bank.In)
		g.Connect(r.bank.OutL, r.outL.In)
		g.Connect(r.bank.OutR, r.outR.In)
		g.Connect(r.dryL.Out, r.outL.In)
		g.Connect(r.dryR.Out, r.outR.In)
	})
	return r
}

// SetBlend writes the three gain stages.
func (r *Resonator) SetBlend(drumExcite, mixWet, mixDry float64) {
	r.drumExcite.Gain.Set(drumExcite)
	r.wetL.Gain.Set(mixWet)
	r.wetR.Gain.Set(mixWet)
	r.dryL.Gain.Set(mixDry)
	r.dryR.Gain.Set(mixDry)
}

// Blend returns the manual values of the three gain stages.
func (r *Resonator) Blend() (drumExcite, mixWet, mixDry float64) {
	return r.drumExcite.Gain.Get(), r.wetL.Gain.Get(), r.dryL.Gain.Get()
}

func (r *Resonator) DampingInput() *graph.Input    { return r.bank.Damping }
func (r *Resonator) BrightnessInput() *graph.Input { return r.bank.Brightness }
