package units

import (
	"github.com/cbegin/polysynth-go/internal/graph"
)

// Envelope trigger modes.
const (
	EnvelopeGate    = 0 // attack, hold while gated, release
	EnvelopeTrigger = 1 // attack then release regardless of gate length
)

type envStage int

const (
	stageIdle envStage = iota
	stageAttack
	stageSustain
	stageRelease
)

// Envelope is an attack/release contour driven by the sum of Gate and
// Trigger. Speed (0..1) stretches both stages from snappy to slow.
type Envelope struct {
	graph.Node
	Gate    *graph.Input
	Trigger *graph.Input
	Speed   *graph.Input
	Mode    *graph.Input
	Out     *graph.Output

	sampleRate float64
	stage      envStage
	level      float64
	high       bool
}

func NewEnvelope(sampleRate float64) *Envelope {
	e := &Envelope{sampleRate: sampleRate}
	e.Gate = e.NewInput("gate", 0)
	e.Trigger = e.NewInput("trigger", 0)
	e.Speed = e.NewInput("speed", 0)
	e.Mode = e.NewInput("mode", EnvelopeGate)
	e.Out = e.NewOutput("out")
	return e
}

// AttackSeconds and ReleaseSeconds map the speed control to stage lengths.
func AttackSeconds(speed float64) float64  { return 0.002 + clamp(speed, 0, 1)*1.5 }
func ReleaseSeconds(speed float64) float64 { return 0.02 + clamp(speed, 0, 1)*3.0 }

func (e *Envelope) Render(frames int) {
	dst := e.Out.Buffer(frames)
	gate, trig := e.Gate.Values(), e.Trigger.Values()
	speed := e.Speed.Value()
	triggerMode := e.Mode.Value() >= 0.5
	attack := 1 / (AttackSeconds(speed) * e.sampleRate)
	release := 1 / (ReleaseSeconds(speed) * e.sampleRate)
	for i := range dst {
		high := gate[i]+trig[i] > 0.5
		if high && !e.high {
			e.stage = stageAttack
		} else if !high && e.high && !triggerMode && e.stage != stageIdle {
			e.stage = stageRelease
		}
		e.high = high
		switch e.stage {
		case stageAttack:
			e.level += attack
			if e.level >= 1 {
				e.level = 1
				if triggerMode {
					e.stage = stageRelease
				} else {
					e.stage = stageSustain
				}
			}
		case stageRelease:
			e.level -= release
			if e.level <= 0 {
				e.level = 0
				e.stage = stageIdle
			}
		}
		dst[i] = float32(e.level)
	}
}
