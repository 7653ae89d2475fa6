package main

import (
	"context"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/midibridge"
)

// applyDemoPatch sets up a patch that sounds reasonable out of the box.
func applyDemoPatch(e *polysynth.Engine) {
	e.SetDelayMix(0.25)
	e.SetDelayFeedback(0.45)
	e.SetDrive(0.15)
	e.SetResonatorMix(0.2)
	e.SetResonatorTargetMix(0.3)
	e.SetVibratoDepth(0.05)
	e.SetPairModSource(1, polysynth.ModLFO)
	e.SetPairEngine(2, polysynth.EngineFM)
	e.SetPairTimbre(2, 0.4)
	e.SetFluxRate(4)
	for i := 0; i < 8; i++ {
		e.SetVoicePan(i, float64(i%4)/1.5-1)
		e.SetVoiceEnvelopeSpeed(i, 0.35)
	}
	e.SetParameterAutomation("hyper_lfo_a", []float32{0, 4, 8}, []float32{0.2, 3, 0.2}, 3, 8, polysynth.AutomationLoop)
}

// demoPattern is a sixteen-step groove sent through the MIDI bridge.
type demoPattern struct {
	bridge *midibridge.Bridge
	step   time.Duration
	pos    int
	held   []uint8
}

var (
	demoBass   = [16]uint8{45, 0, 45, 0, 48, 0, 45, 0, 43, 0, 43, 0, 47, 0, 48, 0}
	demoChords = [2][3]uint8{{57, 60, 64}, {55, 59, 62}}
)

func newDemoPattern(b *midibridge.Bridge, bpm float64) *demoPattern {
	if bpm <= 0 {
		bpm = 112
	}
	return &demoPattern{bridge: b, step: time.Duration(float64(time.Minute) / bpm / 4)}
}

func (p *demoPattern) send(msg midi.Message) { p.bridge.Handle(msg, 0) }

// advance plays the next step.
func (p *demoPattern) advance() {
	for _, k := range p.held {
		p.send(midi.NoteOff(0, k))
	}
	p.held = p.held[:0]
	s := p.pos % 16
	if k := demoBass[s]; k != 0 {
		p.send(midi.NoteOn(0, k, 100))
		p.held = append(p.held, k)
	}
	if s%8 == 0 {
		for _, k := range demoChords[(p.pos/8)%2] {
			p.send(midi.NoteOn(0, k, 80))
			p.held = append(p.held, k)
		}
	}
	if s%4 == 0 {
		p.send(midi.NoteOn(midibridge.DrumChannel, 36, 110))
	}
	if s%8 == 4 {
		p.send(midi.NoteOn(midibridge.DrumChannel, 38, 100))
	}
	if s%2 == 1 {
		p.send(midi.NoteOn(midibridge.DrumChannel, 42, 70))
	}
	p.pos++
}

func (p *demoPattern) run(ctx context.Context) error {
	t := time.NewTicker(p.step)
	defer t.Stop()
	p.advance()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.advance()
		}
	}
}
