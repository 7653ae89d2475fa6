package plugins

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

const (
	maxGrains      = 16
	grainBufferSec = 2.0
)

type grain struct {
	active bool
	read   float64
	rate   float64
	age    int
	length int
	panL   float32
	panR   float32
}

// grainsUnit records its input into a ring buffer and plays overlapping
// Hann-windowed grains out of it.
type grainsUnit struct {
	graph.Node
	InL, InR   *graph.Input
	Position   *graph.Input
	Size       *graph.Input
	Pitch      *graph.Input
	Density    *graph.Input
	Texture    *graph.Input
	Mix        *graph.Input
	OutL, OutR *graph.Output

	sampleRate float64
	buf        *effects.DelayLine
	grains     [maxGrains]grain
	untilNext  float64
	rand       rng
}

func newGrainsUnit(sampleRate float64) *grainsUnit {
	u := &grainsUnit{
		sampleRate: sampleRate,
		buf:        effects.NewDelayLine(int(sampleRate), grainBufferSec),
		rand:       rng(0x2545F491),
	}
	u.InL = u.NewInput("inL", 0)
	u.InR = u.NewInput("inR", 0)
	u.Position = u.NewInput("position", 0.5)
	u.Size = u.NewInput("size", 0.5)
	u.Pitch = u.NewInput("pitch", 0)
	u.Density = u.NewInput("density", 0.5)
	u.Texture = u.NewInput("texture", 0.5)
	u.Mix = u.NewInput("mix", 0)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *grainsUnit) Render(frames int) {
	l, r := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	inL, inR := u.InL.Values(), u.InR.Values()
	mix := float32(clamp(u.Mix.Value(), 0, 1))
	length := int((0.02 + clamp(u.Size.Value(), 0, 1)*0.48) * u.sampleRate)
	back := clamp(u.Position.Value(), 0, 1)*(float64(u.buf.Len())-float64(length)*2) + float64(length)
	rate := math.Exp2(clamp(u.Pitch.Value(), -2, 2))
	interval := u.sampleRate / (1 + clamp(u.Density.Value(), 0, 1)*60)
	texture := clamp(u.Texture.Value(), 0, 1)
	for i := range l {
		u.buf.Write((inL[i] + inR[i]) * 0.5)
		u.untilNext--
		if u.untilNext <= 0 {
			u.untilNext = interval * (1 + (u.rand.float()-0.5)*texture)
			u.spawn(back, rate, length, texture)
		}
		var wl, wr float32
		for k := range u.grains {
			gr := &u.grains[k]
			if !gr.active {
				continue
			}
			w := float32(0.5 - 0.5*math.Cos(twoPi*float64(gr.age)/float64(gr.length)))
			s := u.buf.Read(gr.read) * w
			wl += s * gr.panL
			wr += s * gr.panR
			gr.read -= gr.rate - 1
			gr.age++
			if gr.age >= gr.length {
				gr.active = false
			}
		}
		l[i] = inL[i]*(1-mix) + wl*mix*0.5
		r[i] = inR[i]*(1-mix) + wr*mix*0.5
	}
}

func (u *grainsUnit) spawn(back, rate float64, length int, texture float64) {
	for k := range u.grains {
		gr := &u.grains[k]
		if gr.active {
			continue
		}
		pan := (u.rand.float() - 0.5) * texture
		angle := (pan + 0.5) * math.Pi / 2
		*gr = grain{
			active: true,
			read:   back + u.rand.float()*texture*float64(length),
			rate:   rate,
			length: max(length, 1),
			panL:   float32(math.Cos(angle)),
			panR:   float32(math.Sin(angle)),
		}
		return
	}
}

// Grains is a granular cloud over the last two seconds of its input.
type Grains struct {
	*plugin.Base
	unit *grainsUnit
}

func NewGrains(g *graph.Graph, sampleRate float64) *Grains {
	gr := &Grains{
		Base: plugin.NewBase(g, URIGrains, "Grains"),
		unit: newGrainsUnit(sampleRate),
	}
	u := gr.unit
	gr.AddUnits(u)
	gr.AddInput("inL", u.InL)
	gr.AddInput("inR", u.InR)
	gr.AddOutput("outL", u.OutL)
	gr.AddOutput("outR", u.OutR)
	gr.AddPorts(
		plugin.FloatPort("position", 0.5, 0, 1).OnChange(setter(nil, u.Position)),
		plugin.FloatPort("size", 0.5, 0, 1).OnChange(setter(nil, u.Size)),
		plugin.FloatPort("pitch", 0, -2, 2).OnChange(setter(nil, u.Pitch)),
		plugin.FloatPort("density", 0.5, 0, 1).OnChange(setter(nil, u.Density)),
		plugin.FloatPort("texture", 0.5, 0, 1).OnChange(setter(nil, u.Texture)),
		plugin.FloatPort("mix", 0, 0, 1).OnChange(setter(nil, u.Mix)),
	)
	return gr
}
