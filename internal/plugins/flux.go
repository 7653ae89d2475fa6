package plugins

import (
	"math"
	"strconv"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

// FluxChannels is the number of gate/CV output pairs.
const FluxChannels = 3

const fluxMaxSteps = 16

// fluxUnit is a random step sequencer. Each clock tick draws a new gate and
// CV per channel, or replays from its loop memory with probability déjà vu.
// With nothing connected to Clock it runs from its own rate.
type fluxUnit struct {
	graph.Node
	Clock  *graph.Input
	Rate   *graph.Input
	Spread *graph.Input
	Bias   *graph.Input
	Steps  *graph.Input
	DejaVu *graph.Input
	Gates  [FluxChannels]*graph.Output
	CVs    [FluxChannels]*graph.Output

	sampleRate float64
	rand       rng
	phase      float64
	clockHigh  bool
	step       int
	memGate    [FluxChannels][fluxMaxSteps]bool
	memCV      [FluxChannels][fluxMaxSteps]float32
	gate       [FluxChannels]bool
	cv         [FluxChannels]float32
	gateLeft   int
	lastPeriod int
	sinceTick  int
}

func newFluxUnit(sampleRate float64) *fluxUnit {
	u := &fluxUnit{sampleRate: sampleRate, rand: rng(0x6C8E9CF5), lastPeriod: int(sampleRate / 2)}
	u.Clock = u.NewInput("clock", 0)
	u.Rate = u.NewInput("rate", 2)
	u.Spread = u.NewInput("spread", 0.5)
	u.Bias = u.NewInput("bias", 0.5)
	u.Steps = u.NewInput("steps", 8)
	u.DejaVu = u.NewInput("dejavu", 0)
	for i := 0; i < FluxChannels; i++ {
		u.Gates[i] = u.NewOutput("gate_" + strconv.Itoa(i))
		u.CVs[i] = u.NewOutput("cv_" + strconv.Itoa(i))
	}
	return u
}

func (u *fluxUnit) Render(frames int) {
	var gates, cvs [FluxChannels][]float32
	for c := 0; c < FluxChannels; c++ {
		gates[c] = u.Gates[c].Buffer(frames)
		cvs[c] = u.CVs[c].Buffer(frames)
	}
	external := u.Clock.Connected()
	clock := u.Clock.Values()
	inc := clamp(u.Rate.Value(), 0.01, 50) / u.sampleRate
	for i := 0; i < frames; i++ {
		tick := false
		if external {
			high := clock[i] > 0.5
			tick = high && !u.clockHigh
			u.clockHigh = high
		} else {
			u.phase += inc
			if u.phase >= 1 {
				u.phase -= 1
				tick = true
			}
		}
		u.sinceTick++
		if tick {
			if u.sinceTick > 1 {
				u.lastPeriod = u.sinceTick
			}
			u.sinceTick = 0
			u.advance()
		}
		if u.gateLeft > 0 {
			u.gateLeft--
			if u.gateLeft == 0 {
				u.gate = [FluxChannels]bool{}
			}
		}
		for c := 0; c < FluxChannels; c++ {
			gates[c][i] = 0
			if u.gate[c] {
				gates[c][i] = 1
			}
			cvs[c][i] = u.cv[c]
		}
	}
}

func (u *fluxUnit) advance() {
	steps := int(clamp(math.Round(u.Steps.Value()), 1, fluxMaxSteps))
	u.step = (u.step + 1) % steps
	dejaVu := clamp(u.DejaVu.Value(), 0, 1)
	bias := clamp(u.Bias.Value(), 0, 1)
	spread := clamp(u.Spread.Value(), 0, 1)
	for c := 0; c < FluxChannels; c++ {
		if u.rand.float() >= dejaVu {
			u.memGate[c][u.step] = u.rand.float() < bias
			// spread widens the CV range up to two octaves
			u.memCV[c][u.step] = float32((u.rand.float()*2 - 1) * spread * 2)
		}
		u.gate[c] = u.memGate[c][u.step]
		u.cv[c] = u.memCV[c][u.step]
	}
	u.gateLeft = max(u.lastPeriod/2, 1)
}

// Flux is a three-channel random sequencer with gate and CV outputs.
type Flux struct {
	*plugin.Base
	unit *fluxUnit
}

func NewFlux(g *graph.Graph, sampleRate float64) *Flux {
	f := &Flux{
		Base: plugin.NewBase(g, URIFlux, "Flux"),
		unit: newFluxUnit(sampleRate),
	}
	u := f.unit
	f.AddUnits(u)
	f.AddInput("clock", u.Clock)
	for i := 0; i < FluxChannels; i++ {
		f.AddOutput("gate_"+strconv.Itoa(i), u.Gates[i])
		f.AddOutput("cv_"+strconv.Itoa(i), u.CVs[i])
	}
	f.AddPorts(
		plugin.FloatPort("rate", 2, 0.05, 20).OnChange(setter(nil, u.Rate)),
		plugin.FloatPort("spread", 0.5, 0, 1).OnChange(setter(nil, u.Spread)),
		plugin.FloatPort("bias", 0.5, 0, 1).OnChange(setter(nil, u.Bias)),
		plugin.IntPort("steps", 8, 1, fluxMaxSteps).OnChange(setter(nil, u.Steps)),
		plugin.FloatPort("dejavu", 0, 0, 1).OnChange(setter(nil, u.DejaVu)),
	)
	return f
}

// Gate returns gate output ch or nil.
func (f *Flux) Gate(ch int) *graph.Output {
	if ch < 0 || ch >= FluxChannels {
		return nil
	}
	return f.unit.Gates[ch]
}

// CV returns CV output ch, in octaves, or nil.
func (f *Flux) CV(ch int) *graph.Output {
	if ch < 0 || ch >= FluxChannels {
		return nil
	}
	return f.unit.CVs[ch]
}

func (f *Flux) ClockInput() *graph.Input { return f.unit.Clock }
