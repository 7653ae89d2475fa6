package wiring

import (
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugins"
)

// Warps carrier and modulator sources.
const (
	WarpsSourceNone = iota
	WarpsSourceSynth
	WarpsSourceDrums
	WarpsSourceLFO
	WarpsSourceGrains
	WarpsSourceLooper
)

// Flux clock sources. Internal leaves the clock input unconnected so the
// sequencer runs on its own rate.
const (
	ClockInternal = iota
	ClockLFO
	ClockLFOA
	ClockLFOB
	ClockVibrato
)

// DrumTriggerManual leaves a drum voice to Trigger calls; 1-3 select a
// flux gate.
const DrumTriggerManual = 0

// Drum pitch sources: 0 none, 1-3 flux CVs, 4 LFO.
const (
	DrumPitchNone = 0
	DrumPitchLFO  = 4
)

type selectorKind int

const (
	selWarpsCarrier selectorKind = iota
	selWarpsModulator
	selFluxClock
	selDrumTrigger
	selDrumPitch
)

type selector struct {
	kind  selectorKind
	index int
}

func (p *Patch) warpsTable() []*graph.Output {
	return []*graph.Output{
		WarpsSourceNone:   nil,
		WarpsSourceSynth:  p.Mixer.Output("outL"),
		WarpsSourceDrums:  p.Drum.Output("outL"),
		WarpsSourceLFO:    p.LFO.Output("out"),
		WarpsSourceGrains: p.Grains.Output("outL"),
		WarpsSourceLooper: p.Looper.Output("outL"),
	}
}

func (p *Patch) clockTable() []*graph.Output {
	return []*graph.Output{
		ClockInternal: nil,
		ClockLFO:      p.LFO.Output("out"),
		ClockLFOA:     p.LFO.Output("a"),
		ClockLFOB:     p.LFO.Output("b"),
		ClockVibrato:  p.Vibrato.Output("out"),
	}
}

func (p *Patch) triggerTable() []*graph.Output {
	return []*graph.Output{nil, p.Flux.Gate(0), p.Flux.Gate(1), p.Flux.Gate(2)}
}

func (p *Patch) pitchTable() []*graph.Output {
	return []*graph.Output{nil, p.Flux.CV(0), p.Flux.CV(1), p.Flux.CV(2), p.LFO.Output("out")}
}

// route disconnects in, looks src up in table and connects it. Out-of-range
// sources and missing targets are ignored.
func (p *Patch) route(sel selector, in *graph.Input, table []*graph.Output, src int) {
	if in == nil || src < 0 || src >= len(table) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.g.DisconnectAll(in)
	p.g.Connect(table[src], in)
	p.selection[sel] = src
	p.log.Debug("wiring: route", "target", in.Name(), "source", src)
}

func (p *Patch) selected(sel selector) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selection[sel]
}

func (p *Patch) SetWarpsCarrierSource(src int) {
	p.route(selector{kind: selWarpsCarrier}, p.Warps.CarrierInput(), p.warpsTable(), src)
}

func (p *Patch) WarpsCarrierSource() int { return p.selected(selector{kind: selWarpsCarrier}) }

func (p *Patch) SetWarpsModulatorSource(src int) {
	p.route(selector{kind: selWarpsModulator}, p.Warps.ModulatorInput(), p.warpsTable(), src)
}

func (p *Patch) WarpsModulatorSource() int { return p.selected(selector{kind: selWarpsModulator}) }

// SetFluxClockSource selects the sequencer clock.
func (p *Patch) SetFluxClockSource(src int) {
	p.route(selector{kind: selFluxClock}, p.Flux.ClockInput(), p.clockTable(), src)
}

func (p *Patch) FluxClockSource() int { return p.selected(selector{kind: selFluxClock}) }

// SetDrumTriggerSource routes a flux gate into the trigger of drum voice v.
func (p *Patch) SetDrumTriggerSource(v, src int) {
	p.route(selector{kind: selDrumTrigger, index: v}, p.Drum.TriggerInput(v), p.triggerTable(), src)
}

func (p *Patch) DrumTriggerSource(v int) int {
	return p.selected(selector{kind: selDrumTrigger, index: v})
}

// SetDrumPitchSource routes a flux CV or the LFO into the pitch of drum voice v.
func (p *Patch) SetDrumPitchSource(v, src int) {
	p.route(selector{kind: selDrumPitch, index: v}, p.Drum.PitchInput(v), p.pitchTable(), src)
}

func (p *Patch) DrumPitchSource(v int) int {
	return p.selected(selector{kind: selDrumPitch, index: v})
}

// DrumVoices is re-exported for callers addressing drum selectors.
const DrumVoices = plugins.DrumVoices
