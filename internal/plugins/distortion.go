package plugins

import (
	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/units"
)

// MaxDrive is the shaper drive at drive 1.
const MaxDrive = 24.0

type shaperUnit struct {
	graph.Node
	InL, InR   *graph.Input
	Drive      *graph.Input
	OutL, OutR *graph.Output

	left, right *effects.Shaper
}

func newShaperUnit(sampleRate float64) *shaperUnit {
	u := &shaperUnit{
		left:  effects.NewShaper(int(sampleRate), 6000),
		right: effects.NewShaper(int(sampleRate), 6000),
	}
	u.InL = u.NewInput("inL", 0)
	u.InR = u.NewInput("inR", 0)
	u.Drive = u.NewInput("drive", 1)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *shaperUnit) Render(frames int) {
	l, r := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	inL, inR, drive := u.InL.Values(), u.InR.Values(), u.Drive.Values()
	for i := range l {
		l[i] = u.left.Process(inL[i], drive[i])
		r[i] = u.right.Process(inR[i], drive[i])
	}
}

// Distortion crossfades a driven copy of its input against the clean
// signal. A separate dry input, scaled by the dry-level gains, is summed in
// ahead of the shaper.
type Distortion struct {
	*plugin.Base
	dryL, dryR     *units.Gain
	sumL, sumR     *units.Sum
	shaper         *shaperUnit
	distL, distR   *units.Gain
	cleanL, cleanR *units.Gain
	outL, outR     *units.Sum
}

func NewDistortion(g *graph.Graph, sampleRate float64) *Distortion {
	d := &Distortion{
		Base:   plugin.NewBase(g, URIDistortion, "Distortion"),
		dryL:   units.NewGain(1),
		dryR:   units.NewGain(1),
		sumL:   units.NewSum(),
		sumR:   units.NewSum(),
		shaper: newShaperUnit(sampleRate),
		distL:  units.NewGain(0),
		distR:  units.NewGain(0),
		cleanL: units.NewGain(1),
		cleanR: units.NewGain(1),
		outL:   units.NewSum(),
		outR:   units.NewSum(),
	}
	d.AddUnits(d.dryL, d.dryR, d.sumL, d.sumR, d.shaper, d.distL, d.distR, d.cleanL, d.cleanR, d.outL, d.outR)
	d.AddInput("inL", d.sumL.In)
	d.AddInput("inR", d.sumR.In)
	d.AddInput("dryL", d.dryL.In)
	d.AddInput("dryR", d.dryR.In)
	d.AddOutput("outL", d.outL.Out)
	d.AddOutput("outR", d.outR.Out)
	d.AddPorts(
		plugin.FloatPort("drive", 0.2, 0, 1).OnChange(setter(func(x float64) float64 { return 1 + x*MaxDrive }, d.shaper.Drive)),
		plugin.FloatPort("mix", 0, 0, 1).OnChange(func(v plugin.PortValue) {
			m := float64(plugin.Float(v))
			d.distL.Gain.Set(m)
			d.distR.Gain.Set(m)
			d.cleanL.Gain.Set(1 - m)
			d.cleanR.Gain.Set(1 - m)
		}),
		plugin.FloatPort("dryLevel", 1, 0, 1).OnChange(setter(nil, d.dryL.Gain, d.dryR.Gain)),
	)
	d.OnInitialize(func(g *graph.Graph) {
		g.Connect(d.dryL.Out, d.sumL.In)
		g.Connect(d.dryR.Out, d.sumR.In)
		g.Connect(d.sumL.Out, d.shaper.InL)
		g.Connect(d.sumR.Out, d.shaper.InR)
		g.Connect(d.shaper.OutL, d.distL.In)
		g.Connect(d.shaper.OutR, d.distR.In)
		g.Connect(d.sumL.Out, d.cleanL.In)
		g.Connect(d.sumR.Out, d.cleanR.In)
		g.Connect(d.distL.Out, d.outL.In)
		g.Connect(d.cleanL.Out, d.outL.In)
		g.Connect(d.distR.Out, d.outR.In)
		g.Connect(d.cleanR.Out, d.outR.In)
	})
	return d
}

func (d *Distortion) DistGains() []*graph.Input  { return []*graph.Input{d.distL.Gain, d.distR.Gain} }
func (d *Distortion) CleanGains() []*graph.Input { return []*graph.Input{d.cleanL.Gain, d.cleanR.Gain} }
func (d *Distortion) DryGains() []*graph.Input   { return []*graph.Input{d.dryL.Gain, d.dryR.Gain} }
func (d *Distortion) DriveInput() *graph.Input   { return d.shaper.Drive }
