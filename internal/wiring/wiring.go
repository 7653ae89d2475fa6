// Package wiring assembles the fixed signal topology of the synthesizer:
// voices into the mixer, through delay, distortion and resonator to the
// synth bus, the parallel drum and fx paths through their direct limiters,
// and the master chain. It also owns the source selectors that re-patch a
// single input from a fixed table of outputs.
package wiring

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/plugins"
	"github.com/cbegin/polysynth-go/internal/units"
	"github.com/cbegin/polysynth-go/internal/voice"
)

// ErrPluginMissing reports a plugin type the provider did not supply.
var ErrPluginMissing = errors.New("plugin missing")

// DefaultMasterVolume is the master gain at construction.
const DefaultMasterVolume = 0.8

// Patch is the assembled topology. It is built once and never rebuilt.
type Patch struct {
	g   *graph.Graph
	log *slog.Logger

	Mixer      *plugins.StereoMixer
	Delay      *plugins.Delay
	Distortion *plugins.Distortion
	Vibrato    *plugins.Vibrato
	Bender     *plugins.Bender
	Drum       *plugins.Drum
	Resonator  *plugins.Resonator
	Grains     *plugins.Grains
	Looper     *plugins.Looper
	Warps      *plugins.Warps
	Flux       *plugins.Flux
	LFO        *plugins.DualLFO
	Macro      *plugins.VoiceMacro

	busL, busR     *units.Sum
	drumLim        [2]*units.Limiter
	fxLim          [2]*units.Limiter
	master         *masterUnit
	meterL, meterR *units.Meter

	mu        sync.Mutex
	selection map[selector]int
}

// Build resolves every plugin from r, initializes it and wires the topology
// around the voices of m.
func Build(g *graph.Graph, r *plugin.Registry, m *voice.Manager, sampleRate float64, logger *slog.Logger) (*Patch, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Patch{g: g, log: logger, selection: make(map[selector]int)}
	var err error
	if p.Mixer, err = find[*plugins.StereoMixer](r); err != nil {
		return nil, err
	}
	if p.Delay, err = find[*plugins.Delay](r); err != nil {
		return nil, err
	}
	if p.Distortion, err = find[*plugins.Distortion](r); err != nil {
		return nil, err
	}
	if p.Vibrato, err = find[*plugins.Vibrato](r); err != nil {
		return nil, err
	}
	if p.Bender, err = find[*plugins.Bender](r); err != nil {
		return nil, err
	}
	if p.Drum, err = find[*plugins.Drum](r); err != nil {
		return nil, err
	}
	if p.Resonator, err = find[*plugins.Resonator](r); err != nil {
		return nil, err
	}
	if p.Grains, err = find[*plugins.Grains](r); err != nil {
		return nil, err
	}
	if p.Looper, err = find[*plugins.Looper](r); err != nil {
		return nil, err
	}
	if p.Warps, err = find[*plugins.Warps](r); err != nil {
		return nil, err
	}
	if p.Flux, err = find[*plugins.Flux](r); err != nil {
		return nil, err
	}
	if p.LFO, err = find[*plugins.DualLFO](r); err != nil {
		return nil, err
	}
	if p.Macro, err = find[*plugins.VoiceMacro](r); err != nil {
		return nil, err
	}
	for _, pl := range r.All() {
		pl.Initialize()
	}

	p.busL, p.busR = units.NewSum(), units.NewSum()
	for i := range p.drumLim {
		p.drumLim[i] = units.NewLimiter(1)
		p.fxLim[i] = units.NewLimiter(1)
	}
	p.master = newMasterUnit(int(sampleRate))
	p.meterL, p.meterR = units.NewMeter(0.9), units.NewMeter(0.9)
	g.Add(p.busL, p.busR, p.drumLim[0], p.drumLim[1], p.fxLim[0], p.fxLim[1], p.master, p.meterL, p.meterR)

	p.wireVoices(m)
	p.wireSynthChain()
	p.wireParallelPaths()
	p.wireMaster()

	m.SetSources(voice.Sources{
		LFO:      p.LFO.Output("out"),
		FluxGate: [3]*graph.Output{p.Flux.Gate(0), p.Flux.Gate(1), p.Flux.Gate(2)},
		FluxCV:   [3]*graph.Output{p.Flux.CV(0), p.Flux.CV(1), p.Flux.CV(2)},
	})
	logger.Debug("wiring: built", "plugins", len(r.All()), "units", g.Len())
	return p, nil
}

func find[T plugin.Plugin](r *plugin.Registry) (T, error) {
	t, err := plugin.MustFind[T](r)
	if err != nil {
		return t, fmt.Errorf("wiring: %w: %w", ErrPluginMissing, err)
	}
	return t, nil
}

func (p *Patch) wireVoices(m *voice.Manager) {
	vib, bend := p.Vibrato.Output("out"), p.Bender.Output("pitch")
	for i, v := range m.Voices() {
		p.g.Connect(v.Output(), p.Mixer.VoiceInput(i))
		p.g.Connect(vib, v.VibratoInput())
		p.g.Connect(bend, v.BenderInput())
	}
}

// wireSynthChain: mixer feeds the delay and the distortion dry path, the
// delay feeds the distortion, the distortion feeds the resonator's synth
// paths and the resonator lands on the synth bus.
func (p *Patch) wireSynthChain() {
	g := p.g
	for _, ch := range []string{"L", "R"} {
		mix := p.Mixer.Output("out" + ch)
		g.Connect(mix, p.Delay.Input("in"+ch))
		g.Connect(mix, p.Distortion.Input("dry"+ch))
		g.Connect(p.Delay.Output("out"+ch), p.Distortion.Input("in"+ch))
		g.Connect(p.Distortion.Output("out"+ch), p.Resonator.Input("synth"+ch))
	}
	g.Connect(p.Resonator.Output("outL"), p.busL.In)
	g.Connect(p.Resonator.Output("outR"), p.busR.In)
}

// wireParallelPaths: drums excite the resonator and reach the master through
// their own limiter; grains, looper and warps share the fx limiter. Grains
// and the looper listen to the synth bus.
func (p *Patch) wireParallelPaths() {
	g := p.g
	g.Connect(p.Drum.Output("outL"), p.Resonator.Input("drums"))
	g.Connect(p.Drum.Output("outL"), p.drumLim[0].In)
	g.Connect(p.Drum.Output("outR"), p.drumLim[1].In)
	for i, ch := range []string{"L", "R"} {
		bus := p.busL.Out
		if i == 1 {
			bus = p.busR.Out
		}
		g.Connect(bus, p.Grains.Input("in"+ch))
		g.Connect(bus, p.Looper.Input("in"+ch))
		g.Connect(p.Grains.Output("out"+ch), p.fxLim[i].In)
		g.Connect(p.Looper.Output("out"+ch), p.fxLim[i].In)
		g.Connect(p.Warps.Output("out"+ch), p.fxLim[i].In)
	}
}

func (p *Patch) wireMaster() {
	g := p.g
	g.Connect(p.busL.Out, p.master.InL)
	g.Connect(p.busR.Out, p.master.InR)
	g.Connect(p.drumLim[0].Out, p.master.InL)
	g.Connect(p.drumLim[1].Out, p.master.InR)
	g.Connect(p.fxLim[0].Out, p.master.InL)
	g.Connect(p.fxLim[1].Out, p.master.InR)
	g.Connect(p.master.OutL, p.meterL.In)
	g.Connect(p.master.OutR, p.meterR.In)
	// The LFO reads the master through the previous block.
	g.ConnectDelayed(p.master.OutL, p.LFO.FeedbackInput())
}

// Outputs are the final master outputs.
func (p *Patch) Outputs() (l, r *graph.Output) { return p.master.OutL, p.master.OutR }

// Peak returns the master meter levels.
func (p *Patch) Peak() (l, r float32) { return p.meterL.Level(), p.meterR.Level() }

// MasterVolumeInput is the master gain, also an automation target.
func (p *Patch) MasterVolumeInput() *graph.Input { return p.master.Volume }

// SetEQGain sets a master EQ band's linear gain.
func (p *Patch) SetEQGain(band int, gain float64) { p.master.eq.SetGain(band, float32(gain)) }

func (p *Patch) EQGain(band int) float64 { return float64(p.master.eq.Gain(band)) }

// SetMasterCompressor enables or bypasses the master glue compressor.
func (p *Patch) SetMasterCompressor(on bool) { p.master.chain.SetBypass(masterCompStage, !on) }

func (p *Patch) MasterCompressor() bool { return !p.master.chain.Bypassed(masterCompStage) }

// EQBands is the number of master EQ bands.
const EQBands = effects.EQBands

// SetDirectDrive sets the drive of the drum and fx direct limiters.
func (p *Patch) SetDirectDrive(drum, fx float64) {
	for i := range p.drumLim {
		p.drumLim[i].Drive.Set(drum)
		p.fxLim[i].Drive.Set(fx)
	}
}

// DirectDrive returns the drum and fx limiter drives.
func (p *Patch) DirectDrive() (drum, fx float64) {
	return p.drumLim[0].Drive.Get(), p.fxLim[0].Drive.Get()
}
