package plugins

import (
	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/units"
)

// DelayWetScale is the wet gain at mix 1.
const DelayWetScale = 0.75

const maxDelaySeconds = 2.0

// echoUnit runs two independent feedback delay lines, one per channel.
type echoUnit struct {
	graph.Node
	InL, InR     *graph.Input
	Time1, Time2 *graph.Input
	Feedback     *graph.Input
	OutL, OutR   *graph.Output

	left, right *effects.Echo
}

func newEchoUnit(sampleRate float64) *echoUnit {
	u := &echoUnit{
		left:  effects.NewEcho(int(sampleRate), maxDelaySeconds),
		right: effects.NewEcho(int(sampleRate), maxDelaySeconds),
	}
	u.InL = u.NewInput("inL", 0)
	u.InR = u.NewInput("inR", 0)
	u.Time1 = u.NewInput("time1", 0.3)
	u.Time2 = u.NewInput("time2", 0.45)
	u.Feedback = u.NewInput("feedback", 0.4)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *echoUnit) Render(frames int) {
	l, r := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	inL, inR := u.InL.Values(), u.InR.Values()
	t1, t2, fb := u.Time1.Values(), u.Time2.Values(), u.Feedback.Values()
	for i := range l {
		l[i] = u.left.Process(inL[i], clamp(float64(t1[i]), 0.001, maxDelaySeconds), fb[i])
		r[i] = u.right.Process(inR[i], clamp(float64(t2[i]), 0.001, maxDelaySeconds), fb[i])
	}
}

// Delay is a stereo echo whose wet gains are the delay-mix automation targets.
type Delay struct {
	*plugin.Base
	echo       *echoUnit
	wetL, wetR *units.Gain
}

func NewDelay(g *graph.Graph, sampleRate float64) *Delay {
	d := &Delay{
		Base: plugin.NewBase(g, URIDelay, "Delay"),
		echo: newEchoUnit(sampleRate),
		wetL: units.NewGain(0),
		wetR: units.NewGain(0),
	}
	d.AddUnits(d.echo, d.wetL, d.wetR)
	d.AddInput("inL", d.echo.InL)
	d.AddInput("inR", d.echo.InR)
	d.AddOutput("outL", d.wetL.Out)
	d.AddOutput("outR", d.wetR.Out)
	d.AddPorts(
		plugin.FloatPort("time1", 0.3, 0.01, maxDelaySeconds).OnChange(setter(nil, d.echo.Time1)),
		plugin.FloatPort("time2", 0.45, 0.01, maxDelaySeconds).OnChange(setter(nil, d.echo.Time2)),
		plugin.FloatPort("feedback", 0.4, 0, 0.95).OnChange(setter(nil, d.echo.Feedback)),
		plugin.FloatPort("mix", 0.3, 0, 1).OnChange(setter(func(m float64) float64 { return m * DelayWetScale }, d.wetL.Gain, d.wetR.Gain)),
	)
	d.OnInitialize(func(g *graph.Graph) {
		g.Connect(d.echo.OutL, d.wetL.In)
		g.Connect(d.echo.OutR, d.wetR.In)
	})
	return d
}

// WetGains are the gain inputs scaled by the mix port.
func (d *Delay) WetGains() []*graph.Input { return []*graph.Input{d.wetL.Gain, d.wetR.Gain} }

// TimeInput returns the delay time input of line 1 or 2.
func (d *Delay) TimeInput(line int) *graph.Input {
	if line == 2 {
		return d.echo.Time2
	}
	return d.echo.Time1
}

func (d *Delay) FeedbackInput() *graph.Input { return d.echo.Feedback }
