// Package midibridge maps decoded MIDI messages onto engine controls. It
// does no device I/O: Handle has the signature of a gomidi listener
// callback, so callers attach it to whatever input port they open.
package midibridge

import (
	"log/slog"
	"math"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/polysynth-go/internal/voice"
)

// Target is the part of the engine control surface the bridge drives.
type Target interface {
	SetVoiceTune(i int, tune float64)
	SetVoiceGate(i int, on bool)
	SetBend(x float64)
	TriggerDrum(v int)
	SetVibratoDepth(d float64)
	SetMasterVolume(v float64)
	SetDelayMix(m float64)
	SetResonatorMix(m float64)
}

// DrumChannel is the zero-based General MIDI percussion channel.
const DrumChannel = 9

// DrumNotes maps GM percussion keys to drum voices.
var DrumNotes = map[uint8]int{
	35: 0, 36: 0, // kick
	38: 1, 40: 1, // snare
	42: 2, 44: 2, 46: 2, // hat
}

// Controllers maps CC numbers to the normalized controls they drive.
var Controllers = map[uint8]func(Target, float64){
	1:  Target.SetVibratoDepth,
	7:  Target.SetMasterVolume,
	91: Target.SetDelayMix,
	93: Target.SetResonatorMix,
}

type slot struct {
	key   uint8
	on    bool
	stamp uint64
}

// Bridge allocates incoming notes to voices and forwards controls.
type Bridge struct {
	mu     sync.Mutex
	target Target
	log    *slog.Logger
	voices []int
	slots  map[int]*slot
	clock  uint64
}

// New returns a bridge playing notes on voices; nil uses all twelve.
func New(target Target, voices []int, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(voices) == 0 {
		for i := 0; i < voice.Count; i++ {
			voices = append(voices, i)
		}
	}
	b := &Bridge{target: target, log: logger, voices: voices, slots: make(map[int]*slot)}
	for _, v := range voices {
		b.slots[v] = &slot{}
	}
	return b
}

// Handle processes one message. Unknown messages are ignored.
func (b *Bridge) Handle(msg midi.Message, _ int32) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if ch == DrumChannel {
			if v, ok := DrumNotes[key]; ok {
				b.target.TriggerDrum(v)
			}
			return
		}
		b.noteOn(key)
	case msg.GetNoteEnd(&ch, &key):
		if ch != DrumChannel {
			b.noteOff(key)
		}
	case msg.GetPitchBend(&ch, &rel, &abs):
		b.target.SetBend(float64(rel) / 8192)
	case msg.GetControlChange(&ch, &cc, &val):
		if fn, ok := Controllers[cc]; ok {
			fn(b.target, float64(val)/127)
		}
	default:
		b.log.Debug("midi: ignored", "msg", msg.String())
	}
}

// NoteFrequency is the equal-tempered frequency of a MIDI key.
func NoteFrequency(key uint8) float64 {
	return 440 * math.Exp2((float64(key)-69)/12)
}

// TuneFor returns the tune that plays hz on voice i at the neutral quad
// pitch, and whether it lies in the voice's range.
func TuneFor(i int, hz float64) (float64, bool) {
	t := math.Log2(hz/(55*voice.RegisterMultiplier(i))) / 4
	return t, t >= 0 && t <= 1
}

func (b *Bridge) noteOn(key uint8) {
	hz := NoteFrequency(key)
	b.mu.Lock()
	b.clock++
	best, bestTune := -1, 0.0
	var bestStamp uint64
	for _, v := range b.voices {
		t, ok := TuneFor(v, hz)
		if !ok {
			continue
		}
		s := b.slots[v]
		// Prefer free voices, then the oldest note.
		score := s.stamp
		if s.on {
			score += 1 << 62
		}
		if best < 0 || score < bestStamp {
			best, bestTune, bestStamp = v, t, score
		}
	}
	if best < 0 {
		b.mu.Unlock()
		b.log.Debug("midi: key out of range", "key", key)
		return
	}
	s := b.slots[best]
	*s = slot{key: key, on: true, stamp: b.clock}
	b.mu.Unlock()

	b.target.SetVoiceTune(best, bestTune)
	b.target.SetVoiceGate(best, true)
}

func (b *Bridge) noteOff(key uint8) {
	b.mu.Lock()
	var off []int
	for _, v := range b.voices {
		if s := b.slots[v]; s.on && s.key == key {
			s.on = false
			off = append(off, v)
		}
	}
	b.mu.Unlock()
	for _, v := range off {
		b.target.SetVoiceGate(v, false)
	}
}

// Panic releases every voice the bridge holds.
func (b *Bridge) Panic() {
	b.mu.Lock()
	var off []int
	for _, v := range b.voices {
		if s := b.slots[v]; s.on {
			s.on = false
			off = append(off, v)
		}
	}
	b.mu.Unlock()
	for _, v := range off {
		b.target.SetVoiceGate(v, false)
	}
}
