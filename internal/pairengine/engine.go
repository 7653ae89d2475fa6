// Package pairengine provides the alternate synthesis engines a voice pair
// can swap in place of its own oscillators. Each engine renders both voices
// of the pair: it has two frequency and gate inputs and two outputs.
package pairengine

import (
	"math"
	"strings"

	"github.com/cbegin/polysynth-go/internal/graph"
)

const twoPi = math.Pi * 2

// Kind identifies an engine model.
type Kind int

const (
	KindNone Kind = iota
	KindFM
	KindWavetable
	KindChip
	KindDrum
)

var kindNames = [...]string{"none", "fm", "wavetable", "chip", "drum"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind resolves an engine name; unknown names map to KindNone.
func ParseKind(name string) Kind {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == name {
			return Kind(i)
		}
	}
	return KindNone
}

// Engine is a pair synthesis engine living in the graph.
type Engine interface {
	graph.Unit
	Kind() Kind
	// Percussive engines carry their own amplitude envelope.
	Percussive() bool
	Frequency(slot int) *graph.Input
	Gate(slot int) *graph.Input
	Output(slot int) *graph.Output
	ModInput() *graph.Input
	SetTimbre(v float64)
	SetMorph(v float64)
	SetHarmonics(v float64)
	SetFeedback(v float64)
	SetTimbreModAmount(v float64)
	Feedback() float64
	TimbreModAmount() float64
}

// Factory builds a new engine instance for kind.
type Factory func(kind Kind, sampleRate float64) Engine

// New is the default Factory. KindNone returns nil.
func New(kind Kind, sampleRate float64) Engine {
	switch kind {
	case KindFM:
		return newFM(sampleRate)
	case KindWavetable:
		return newWavetable(sampleRate)
	case KindChip:
		return newChip(sampleRate)
	case KindDrum:
		return newDrum(sampleRate)
	}
	return nil
}

// core holds the terminals and parameter inputs shared by every engine.
type core struct {
	graph.Node
	kind       Kind
	sampleRate float64
	freq       [2]*graph.Input
	gate       [2]*graph.Input
	out        [2]*graph.Output
	mod        *graph.Input
	timbre     *graph.Input
	morph      *graph.Input
	harmonics  *graph.Input
	feedback   *graph.Input
	timbreMod  *graph.Input
}

func newCore(kind Kind, sampleRate float64) core {
	c := core{kind: kind, sampleRate: sampleRate}
	c.freq[0] = c.NewInput("frequencyA", 220)
	c.freq[1] = c.NewInput("frequencyB", 220)
	c.gate[0] = c.NewInput("gateA", 0)
	c.gate[1] = c.NewInput("gateB", 0)
	c.mod = c.NewInput("modInput", 0)
	c.timbre = c.NewInput("timbre", 0.5)
	c.morph = c.NewInput("morph", 0.5)
	c.harmonics = c.NewInput("harmonics", 0.5)
	c.feedback = c.NewInput("feedback", 0)
	c.timbreMod = c.NewInput("timbreMod", 0)
	c.out[0] = c.NewOutput("outA")
	c.out[1] = c.NewOutput("outB")
	return c
}

func (c *core) Kind() Kind       { return c.kind }
func (c *core) Percussive() bool { return false }

func (c *core) Frequency(slot int) *graph.Input {
	if slot < 0 || slot > 1 {
		return nil
	}
	return c.freq[slot]
}

func (c *core) Gate(slot int) *graph.Input {
	if slot < 0 || slot > 1 {
		return nil
	}
	return c.gate[slot]
}

func (c *core) Output(slot int) *graph.Output {
	if slot < 0 || slot > 1 {
		return nil
	}
	return c.out[slot]
}

func (c *core) ModInput() *graph.Input { return c.mod }

func (c *core) SetTimbre(v float64)          { c.timbre.Set(clamp(v, 0, 1)) }
func (c *core) SetMorph(v float64)           { c.morph.Set(clamp(v, 0, 1)) }
func (c *core) SetHarmonics(v float64)       { c.harmonics.Set(clamp(v, 0, 1)) }
func (c *core) SetFeedback(v float64)        { c.feedback.Set(clamp(v, 0, 1)) }
func (c *core) SetTimbreModAmount(v float64) { c.timbreMod.Set(clamp(v, -1, 1)) }
func (c *core) Feedback() float64            { return c.feedback.Get() }
func (c *core) TimbreModAmount() float64     { return c.timbreMod.Get() }

// modulatedTimbre is the block's timbre after the modulation input.
func (c *core) modulatedTimbre() float64 {
	return clamp(c.timbre.Value()+c.mod.Value()*c.timbreMod.Value(), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
