package plugins

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

// Drum voices.
const (
	DrumKick = iota
	DrumSnare
	DrumHat
	DrumVoices
)

var drumNames = [DrumVoices]string{"kick", "snare", "hat"}

type drumVoice struct {
	Trigger *graph.Input
	Pitch   *graph.Input
	Freq    *graph.Input
	Decay   *graph.Input

	pending atomic.Bool
	high    bool
	amp     float64
	sweep   float64
	phase   float64
	accent  float64
	lfsr    uint16
	hp      float64
}

// drumUnit renders kick, snare and hat. A voice strikes on a rising edge of
// its trigger input or on a pending manual trigger.
type drumUnit struct {
	graph.Node
	Accent     *graph.Input
	Level      *graph.Input
	OutL, OutR *graph.Output

	sampleRate float64
	voices     [DrumVoices]*drumVoice
	comp       *effects.Compressor
}

func newDrumUnit(sampleRate float64) *drumUnit {
	u := &drumUnit{
		sampleRate: sampleRate,
		comp:       effects.NewCompressor(int(sampleRate), -12, 4, 2, 80, 4),
	}
	defaults := [DrumVoices][2]float64{{50, 0.4}, {180, 0.25}, {7000, 0.08}}
	for i := range u.voices {
		v := &drumVoice{lfsr: 0xACE1 + uint16(i)*0x101}
		v.Trigger = u.NewInput(drumNames[i]+"Trigger", 0)
		v.Pitch = u.NewInput(drumNames[i]+"Pitch", 0)
		v.Freq = u.NewInput(drumNames[i]+"Freq", defaults[i][0])
		v.Decay = u.NewInput(drumNames[i]+"Decay", defaults[i][1])
		u.voices[i] = v
	}
	u.Accent = u.NewInput("accent", 0.5)
	u.Level = u.NewInput("level", 0.8)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *drumUnit) Render(frames int) {
	l, r := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	accent := clamp(u.Accent.Value(), 0, 1)
	level := float32(u.Level.Value())
	var decayMul [DrumVoices]float64
	for k, v := range u.voices {
		decayMul[k] = math.Exp(-1 / (clamp(v.Decay.Value(), 0.01, 2) * u.sampleRate))
		if v.pending.Swap(false) {
			u.strike(v, accent)
		}
	}
	sweepMul := math.Exp(-1 / (0.04 * u.sampleRate))
	for i := range l {
		var mix float64
		for k, v := range u.voices {
			high := v.Trigger.Values()[i] > 0.5
			if high && !v.high {
				u.strike(v, accent)
			}
			v.high = high
			if v.amp < 1e-5 {
				continue
			}
			f := float64(v.Freq.Values()[i]) * math.Exp2(float64(v.Pitch.Values()[i]))
			var s float64
			switch k {
			case DrumKick:
				f *= 1 + 3*v.sweep
				v.phase += f / u.sampleRate
				v.phase -= math.Floor(v.phase)
				s = math.Sin(twoPi * v.phase)
			case DrumSnare:
				v.phase += f / u.sampleRate
				v.phase -= math.Floor(v.phase)
				s = 0.5*math.Sin(twoPi*v.phase) + 0.5*v.noise()
			default:
				n := v.noise()
				// one-pole highpass opens the hat up
				v.hp += (n - v.hp) * clamp(1-f/u.sampleRate, 0, 1)
				s = (n - v.hp) * 0.6
			}
			mix += s * v.amp * (0.5 + 0.5*v.accent)
			v.amp *= decayMul[k]
			v.sweep *= sweepMul
		}
		cl, cr := u.comp.Process(float32(mix)*level, float32(mix)*level)
		l[i], r[i] = cl, cr
	}
}

func (u *drumUnit) strike(v *drumVoice, accent float64) {
	v.amp = 1
	v.sweep = 1
	v.phase = 0
	v.accent = accent
}

func (v *drumVoice) noise() float64 {
	bit := (v.lfsr ^ (v.lfsr >> 1)) & 1
	v.lfsr = (v.lfsr >> 1) | (bit << 15)
	if v.lfsr&1 == 1 {
		return 1
	}
	return -1
}

// Drum is a three-voice drum machine: kick, snare and hat, each with a
// trigger and a pitch input, through a bus compressor.
type Drum struct {
	*plugin.Base
	unit *drumUnit
}

func NewDrum(g *graph.Graph, sampleRate float64) *Drum {
	d := &Drum{
		Base: plugin.NewBase(g, URIDrum, "Drum"),
		unit: newDrumUnit(sampleRate),
	}
	d.AddUnits(d.unit)
	d.AddOutput("outL", d.unit.OutL)
	d.AddOutput("outR", d.unit.OutR)
	freqRanges := [DrumVoices][3]float32{{50, 30, 120}, {180, 100, 400}, {7000, 2000, 12000}}
	decays := [DrumVoices]float32{0.4, 0.25, 0.08}
	for i, v := range d.unit.voices {
		name := drumNames[i]
		d.AddInput(name+"Trigger", v.Trigger)
		d.AddInput(name+"Pitch", v.Pitch)
		fr := freqRanges[i]
		d.AddPorts(
			plugin.FloatPort(name+"_freq", fr[0], fr[1], fr[2]).OnChange(setter(nil, v.Freq)),
			plugin.FloatPort(name+"_decay", decays[i], 0.01, 2).OnChange(setter(nil, v.Decay)),
		)
	}
	d.AddPorts(
		plugin.FloatPort("accent", 0.5, 0, 1).OnChange(setter(nil, d.unit.Accent)),
		plugin.FloatPort("level", 0.8, 0, 1).OnChange(setter(nil, d.unit.Level)),
	)
	return d
}

// Trigger strikes voice on the next block. Unknown voices are ignored.
func (d *Drum) Trigger(voice int) {
	if voice < 0 || voice >= DrumVoices {
		return
	}
	d.unit.voices[voice].pending.Store(true)
}

// TriggerInput returns the gate input of voice or nil.
func (d *Drum) TriggerInput(voice int) *graph.Input {
	if voice < 0 || voice >= DrumVoices {
		return nil
	}
	return d.unit.voices[voice].Trigger
}

// PitchInput returns the pitch input, in octaves, of voice or nil.
func (d *Drum) PitchInput(voice int) *graph.Input {
	if voice < 0 || voice >= DrumVoices {
		return nil
	}
	return d.unit.voices[voice].Pitch
}
