package plugins

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

// Warps algorithms.
const (
	WarpsXfade = iota
	WarpsRing
	WarpsFold
)

type warpsUnit struct {
	graph.Node
	Carrier        *graph.Input
	Modulator      *graph.Input
	Algorithm      *graph.Input
	Timbre         *graph.Input
	CarrierLevel   *graph.Input
	ModulatorLevel *graph.Input
	Mix            *graph.Input
	OutL, OutR     *graph.Output
}

func newWarpsUnit() *warpsUnit {
	u := &warpsUnit{}
	u.Carrier = u.NewInput("carrier", 0)
	u.Modulator = u.NewInput("modulator", 0)
	u.Algorithm = u.NewInput("algorithm", WarpsXfade)
	u.Timbre = u.NewInput("timbre", 0.5)
	u.CarrierLevel = u.NewInput("carrierLevel", 1)
	u.ModulatorLevel = u.NewInput("modulatorLevel", 1)
	u.Mix = u.NewInput("mix", 0.5)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *warpsUnit) Render(frames int) {
	l, r := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	car, mod := u.Carrier.Values(), u.Modulator.Values()
	algo := int(math.Round(clamp(u.Algorithm.Value(), WarpsXfade, WarpsFold)))
	timbre := clamp(u.Timbre.Value(), 0, 1)
	cl, ml := float32(u.CarrierLevel.Value()), float32(u.ModulatorLevel.Value())
	mix := float32(clamp(u.Mix.Value(), 0, 1))
	for i := range l {
		c, m := float64(car[i]*cl), float64(mod[i]*ml)
		var y float64
		switch algo {
		case WarpsRing:
			y = lerp(c*m, math.Tanh(3*c*m), timbre)
		case WarpsFold:
			y = math.Sin((c + m) * (1 + timbre*6) * math.Pi / 2)
		default:
			y = lerp(c, m, timbre)
		}
		out := float32(y)*mix + float32(c)*(1-mix)
		l[i], r[i] = out, out
	}
}

// Warps is a signal combiner: carrier and modulator meet in one of three
// algorithms and the result is blended with the carrier.
type Warps struct {
	*plugin.Base
	unit *warpsUnit
}

func NewWarps(g *graph.Graph) *Warps {
	w := &Warps{
		Base: plugin.NewBase(g, URIWarps, "Warps"),
		unit: newWarpsUnit(),
	}
	u := w.unit
	w.AddUnits(u)
	w.AddInput("carrier", u.Carrier)
	w.AddInput("modulator", u.Modulator)
	w.AddOutput("outL", u.OutL)
	w.AddOutput("outR", u.OutR)
	w.AddPorts(
		plugin.IntPort("algorithm", WarpsXfade, WarpsXfade, WarpsFold).OnChange(setter(nil, u.Algorithm)),
		plugin.FloatPort("timbre", 0.5, 0, 1).OnChange(setter(nil, u.Timbre)),
		plugin.FloatPort("carrier_level", 1, 0, 1).OnChange(setter(nil, u.CarrierLevel)),
		plugin.FloatPort("modulator_level", 1, 0, 1).OnChange(setter(nil, u.ModulatorLevel)),
		plugin.FloatPort("mix", 0.5, 0, 1).OnChange(setter(nil, u.Mix)),
	)
	return w
}

func (w *Warps) CarrierInput() *graph.Input   { return w.unit.Carrier }
func (w *Warps) ModulatorInput() *graph.Input { return w.unit.Modulator }
