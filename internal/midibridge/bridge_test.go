package midibridge

import (
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

type fakeTarget struct {
	tune   map[int]float64
	gate   map[int]bool
	drums  []int
	bend   float64
	vib    float64
	volume float64
	delay  float64
	reso   float64
}

func newFake() *fakeTarget {
	return &fakeTarget{tune: map[int]float64{}, gate: map[int]bool{}}
}

func (f *fakeTarget) SetVoiceTune(i int, t float64) { f.tune[i] = t }
func (f *fakeTarget) SetVoiceGate(i int, on bool)   { f.gate[i] = on }
func (f *fakeTarget) SetBend(x float64)             { f.bend = x }
func (f *fakeTarget) TriggerDrum(v int)             { f.drums = append(f.drums, v) }
func (f *fakeTarget) SetVibratoDepth(d float64)     { f.vib = d }
func (f *fakeTarget) SetMasterVolume(v float64)     { f.volume = v }
func (f *fakeTarget) SetDelayMix(m float64)         { f.delay = m }
func (f *fakeTarget) SetResonatorMix(m float64)     { f.reso = m }

func TestNoteOnTunesAndGates(t *testing.T) {
	f := newFake()
	b := New(f, []int{4, 5}, nil)
	b.Handle(midi.NoteOn(0, 69, 100), 0)
	if !f.gate[4] {
		t.Fatal("first free voice should be gated")
	}
	// A4 on a mid voice is 55·2^(4t) = 440, t = 0.75.
	if math.Abs(f.tune[4]-0.75) > 1e-9 {
		t.Fatalf("tune = %f, want 0.75", f.tune[4])
	}
	b.Handle(midi.NoteOn(0, 72, 100), 0)
	if !f.gate[5] {
		t.Fatal("second note should take the other voice")
	}
	b.Handle(midi.NoteOff(0, 69), 0)
	if f.gate[4] || !f.gate[5] {
		t.Fatalf("note off released the wrong voice: %v", f.gate)
	}
	b.Handle(midi.NoteOn(0, 72, 0), 0)
	if f.gate[5] {
		t.Fatal("velocity 0 should release")
	}
}

func TestStealsOldestNote(t *testing.T) {
	f := newFake()
	b := New(f, []int{4, 5}, nil)
	b.Handle(midi.NoteOn(0, 60, 100), 0)
	b.Handle(midi.NoteOn(0, 62, 100), 0)
	b.Handle(midi.NoteOn(0, 64, 100), 0)
	want := 0.75 + (64.0-69)/48
	if math.Abs(f.tune[4]-want) > 1e-9 {
		t.Fatalf("voice 4 tune = %f, want the stolen note %f", f.tune[4], want)
	}
}

func TestOutOfRangeKeyIsDropped(t *testing.T) {
	f := newFake()
	b := New(f, []int{0}, nil)
	b.Handle(midi.NoteOn(0, 100, 100), 0)
	if len(f.gate) != 0 {
		t.Fatal("a key above the bass register should not play voice 0")
	}
}

func TestDrumChannel(t *testing.T) {
	f := newFake()
	b := New(f, nil, nil)
	b.Handle(midi.NoteOn(DrumChannel, 36, 100), 0)
	b.Handle(midi.NoteOn(DrumChannel, 42, 100), 0)
	b.Handle(midi.NoteOn(DrumChannel, 50, 100), 0)
	if len(f.drums) != 2 || f.drums[0] != 0 || f.drums[1] != 2 {
		t.Fatalf("drums = %v", f.drums)
	}
	if len(f.gate) != 0 {
		t.Fatal("drum notes must not gate voices")
	}
}

func TestControls(t *testing.T) {
	f := newFake()
	b := New(f, nil, nil)
	b.Handle(midi.Pitchbend(0, 8191), 0)
	if math.Abs(f.bend-8191.0/8192) > 1e-9 {
		t.Fatalf("bend = %f", f.bend)
	}
	b.Handle(midi.ControlChange(0, 7, 127), 0)
	b.Handle(midi.ControlChange(0, 1, 0), 0)
	if f.volume != 1 || f.vib != 0 {
		t.Fatalf("volume=%f vib=%f", f.volume, f.vib)
	}
}

func TestPanicReleasesAll(t *testing.T) {
	f := newFake()
	b := New(f, nil, nil)
	b.Handle(midi.NoteOn(0, 60, 100), 0)
	b.Handle(midi.NoteOn(0, 67, 100), 0)
	b.Panic()
	for v, on := range f.gate {
		if on {
			t.Fatalf("voice %d still gated", v)
		}
	}
}
