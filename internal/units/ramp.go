package units

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
)

type rampCommand struct {
	target  float64
	seconds float64
}

// Ramp glides its output linearly to a target, one step per sample, so
// volume changes never click.
type Ramp struct {
	graph.Node
	Out *graph.Output

	sampleRate float64
	pending    atomic.Pointer[rampCommand]
	level      atomic.Uint64

	current   float64
	target    float64
	step      float64
	remaining int
}

func NewRamp(sampleRate, initial float64) *Ramp {
	r := &Ramp{sampleRate: sampleRate, current: initial, target: initial}
	r.Out = r.NewOutput("out")
	r.level.Store(math.Float64bits(initial))
	return r
}

// RampTo schedules a glide to target over seconds. A non-positive duration jumps.
func (r *Ramp) RampTo(target, seconds float64) {
	r.pending.Store(&rampCommand{target: target, seconds: seconds})
	r.level.Store(math.Float64bits(target))
}

// Jump sets the output immediately on the next block.
func (r *Ramp) Jump(v float64) { r.RampTo(v, 0) }

// Target returns the most recently requested value.
func (r *Ramp) Target() float64 {
	return math.Float64frombits(r.level.Load())
}

func (r *Ramp) Render(frames int) {
	if cmd := r.pending.Swap(nil); cmd != nil {
		r.target = cmd.target
		r.remaining = int(cmd.seconds * r.sampleRate)
		if r.remaining <= 0 {
			r.current = cmd.target
			r.remaining = 0
		} else {
			r.step = (r.target - r.current) / float64(r.remaining)
		}
	}
	dst := r.Out.Buffer(frames)
	for i := range dst {
		if r.remaining > 0 {
			r.current += r.step
			r.remaining--
			if r.remaining == 0 {
				r.current = r.target
			}
		}
		dst[i] = float32(r.current)
	}
}
