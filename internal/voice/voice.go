// Package voice holds the twelve synthesis voices and the manager that
// groups them into pairs and quads.
package voice

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/units"
)

const (
	// Count is the fixed number of voices.
	Count = 12
	// Pairs and Quads are the fixed groupings.
	Pairs = Count / 2
	Quads = Count / 4
)

// RegisterMultiplier returns the fixed octave register of voice i: bass
// for 0-3, mid for 4-7 and high for 8-11.
func RegisterMultiplier(i int) float64 {
	switch {
	case i < 4:
		return 0.5
	case i < 8:
		return 1
	default:
		return 2
	}
}

// PairOf and QuadOf are the fixed partitions.
func PairOf(i int) int { return i / 2 }
func QuadOf(i int) int { return i / 4 }

// engineSlot is the alternate engine a voice forwards to.
type engineSlot struct {
	freq *graph.Input
	gate *graph.Input
}

// Voice is one synthesis channel: oscillator, filter, VCA with envelope and
// hold floor, a volume ramp and an output gain. It is built once and only
// its parameters and idle state change afterwards.
type Voice struct {
	index    int
	register float64
	g        *graph.Graph

	gate   *units.Gain
	osc    *units.Oscillator
	env    *units.Envelope
	filter *units.Filter
	vca    *units.VCA
	fade   *units.Ramp
	out    *units.Gain
	meter  *units.Meter

	mu     sync.Mutex
	idle   atomic.Bool
	engine atomic.Pointer[engineSlot]
}

func newVoice(g *graph.Graph, index int, sampleRate float64) *Voice {
	v := &Voice{
		index:    index,
		register: RegisterMultiplier(index),
		g:        g,
		gate:     units.NewGain(1),
		osc:      units.NewOscillator(sampleRate),
		env:      units.NewEnvelope(sampleRate),
		filter:   units.NewFilter(sampleRate),
		vca:      units.NewVCA(),
		fade:     units.NewRamp(sampleRate, 1),
		out:      units.NewGain(1),
		meter:    units.NewMeter(0.9),
	}
	v.osc.VibratoDepth.Set(1)
	v.env.Speed.Set(0.2)
	g.Add(v.units()...)
	g.Connect(v.gate.Out, v.env.Gate)
	g.Connect(v.osc.Out, v.filter.In)
	g.Connect(v.filter.Out, v.vca.In)
	g.Connect(v.env.Out, v.vca.Envelope)
	g.Connect(v.fade.Out, v.vca.Volume)
	g.Connect(v.vca.Out, v.out.In)
	g.Connect(v.out.Out, v.meter.In)
	return v
}

func (v *Voice) units() []graph.Unit {
	return []graph.Unit{v.gate, v.osc, v.env, v.filter, v.vca, v.fade, v.out, v.meter}
}

func (v *Voice) Index() int            { return v.index }
func (v *Voice) Register() float64     { return v.register }
func (v *Voice) Output() *graph.Output { return v.out.Out }

// OscOutput is the raw oscillator, used as an FM and coupling source.
func (v *Voice) OscOutput() *graph.Output { return v.osc.Out }

// SetGate steps the gate input. Gate-on wakes an idle voice first so the
// first trigger is never dropped. Gate-off resets the wobble multiplier.
// The gate fans out to the envelope and to any attached engine.
func (v *Voice) SetGate(active bool) {
	if active {
		v.SetIdle(false)
		v.gate.In.Set(1)
		return
	}
	v.gate.In.Set(0)
	v.ResetWobble()
}

// Gate reports the manual gate value.
func (v *Voice) Gate() bool { return v.gate.In.Get() >= 0.5 }

// SetFrequency writes the computed frequency in Hz.
func (v *Voice) SetFrequency(hz float64) {
	v.osc.Frequency.Set(hz)
	if s := v.engine.Load(); s != nil {
		s.freq.Set(hz)
	}
}

func (v *Voice) Frequency() float64 { return v.osc.Frequency.Get() }

func (v *Voice) SetEnvelopeSpeed(speed float64) { v.env.Speed.Set(clamp(speed, 0, 1)) }
func (v *Voice) EnvelopeSpeed() float64         { return v.env.Speed.Get() }
func (v *Voice) SetEnvelopeMode(mode int)       { v.env.Mode.Set(float64(mode)) }
func (v *Voice) SetSharpness(s float64)         { v.osc.Sharpness.Set(clamp(s, 0, 1)) }
func (v *Voice) Sharpness() float64             { return v.osc.Sharpness.Get() }
func (v *Voice) SetFMDepth(d float64)           { v.osc.FMDepth.Set(clamp(d, 0, 1)) }
func (v *Voice) FMDepth() float64               { return v.osc.FMDepth.Get() }
func (v *Voice) SetCouplingDepth(d float64)     { v.osc.CouplingDepth.Set(clamp(d, -1, 1)) }
func (v *Voice) CouplingDepth() float64         { return v.osc.CouplingDepth.Get() }
func (v *Voice) SetVibratoDepth(d float64)      { v.osc.VibratoDepth.Set(clamp(d, 0, 1)) }
func (v *Voice) VibratoDepth() float64          { return v.osc.VibratoDepth.Get() }

// SetHoldLevel sets the VCA floor. A positive hold wakes an idle voice.
func (v *Voice) SetHoldLevel(level float64) {
	level = clamp(level, 0, 1)
	if level > 0 {
		v.SetIdle(false)
	}
	v.vca.Hold.Set(level)
}

func (v *Voice) HoldLevel() float64 { return v.vca.Hold.Get() }
func (v *Voice) IsHolding() bool    { return v.HoldLevel() > 0 }

// SetWobbleMultiplier layers a transient gain in 0..2 over the voice.
func (v *Voice) SetWobbleMultiplier(m float64) { v.vca.Wobble.Set(clamp(m, 0, 2)) }
func (v *Voice) WobbleMultiplier() float64     { return v.vca.Wobble.Get() }
func (v *Voice) ResetWobble()                  { v.vca.Wobble.Set(1) }

// FadeVolume ramps the voice volume to target over seconds.
func (v *Voice) FadeVolume(target, seconds float64) {
	v.fade.RampTo(clamp(target, 0, 1), seconds)
}

func (v *Voice) Volume() float64 { return v.fade.Target() }

func (v *Voice) setOutputGain(g float64) { v.out.Gain.Set(clamp(g, 0, 1)) }
func (v *Voice) outputGain() float64     { return v.out.Gain.Get() }

// SetIdle removes the voice from the render set or restores it. Parameter
// state is untouched. Repeating the current state is a no-op.
func (v *Voice) SetIdle(idle bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.idle.Load() == idle {
		return
	}
	for _, u := range v.units() {
		v.g.SetEnabled(u, !idle)
	}
	if idle {
		v.meter.Reset()
	}
	v.idle.Store(idle)
}

func (v *Voice) IsIdle() bool { return v.idle.Load() }

// Level is the output peak as of the last rendered block.
func (v *Voice) Level() float32 { return v.meter.Level() }

// Audio-rate modulation inputs.
func (v *Voice) ModInput() *graph.Input      { return v.osc.ModInput }
func (v *Voice) CouplingInput() *graph.Input { return v.osc.CouplingInput }
func (v *Voice) VibratoInput() *graph.Input  { return v.osc.VibratoInput }
func (v *Voice) BenderInput() *graph.Input   { return v.osc.BenderInput }
func (v *Voice) CVPitchInput() *graph.Input  { return v.osc.CVPitchInput }
func (v *Voice) TriggerInput() *graph.Input  { return v.env.Trigger }

// Automation targets.
func (v *Voice) GateInput() *graph.Input    { return v.gate.In }
func (v *Voice) FMDepthInput() *graph.Input { return v.osc.FMDepth }
func (v *Voice) VolumeInput() *graph.Input  { return v.out.Gain }

// sourceInput is where the oscillator or an alternate engine feeds the voice.
func (v *Voice) sourceInput() *graph.Input { return v.filter.In }

// attachEngine feeds the voice gate into the engine through a graph edge,
// so automated and manual gates both reach it.
func (v *Voice) attachEngine(freq, gate *graph.Input) {
	freq.Set(v.Frequency())
	v.g.Connect(v.gate.Out, gate)
	v.engine.Store(&engineSlot{freq: freq, gate: gate})
}

func (v *Voice) detachEngine() {
	if s := v.engine.Swap(nil); s != nil {
		v.g.Disconnect(v.gate.Out, s.gate)
	}
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
