package units

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
)

// Meter follows the peak of its input. The level is published atomically so
// the monitor loop can read it without touching the render path.
type Meter struct {
	graph.Node
	In *graph.Input

	decay float32
	peak  float32
	level atomic.Uint32
}

// NewMeter creates a peak follower whose level falls by decay per block.
func NewMeter(decay float32) *Meter {
	m := &Meter{decay: decay}
	m.In = m.NewInput("in", 0)
	return m
}

func (m *Meter) Render(frames int) {
	peak := m.peak * m.decay
	for _, s := range m.In.Values() {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	m.peak = peak
	m.level.Store(math.Float32bits(peak))
}

// Level returns the latest peak level.
func (m *Meter) Level() float32 {
	return math.Float32frombits(m.level.Load())
}

// Reset publishes silence. Used when the metered unit is taken offline.
func (m *Meter) Reset() {
	m.level.Store(0)
}
