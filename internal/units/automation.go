package units

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
)

// Playback modes for AutomationPlayer.
const (
	PlayOnce = iota
	PlayLoop
	PlayPingPong
)

// Path is a breakpoint curve. Times are in seconds from the start of the
// curve and must be ascending; values are interpolated linearly.
type Path struct {
	Times    []float32
	Values   []float32
	Duration float32
	Mode     int
}

// NewPath copies the first count points. count is clamped to the shorter
// of the two slices; duration defaults to the last time.
func NewPath(times, values []float32, count int, duration float32, mode int) *Path {
	count = min(count, len(times), len(values))
	if count < 0 {
		count = 0
	}
	p := &Path{
		Times:    append([]float32(nil), times[:count]...),
		Values:   append([]float32(nil), values[:count]...),
		Duration: duration,
		Mode:     mode,
	}
	if p.Duration <= 0 && count > 0 {
		p.Duration = p.Times[count-1]
	}
	if p.Mode < PlayOnce || p.Mode > PlayPingPong {
		p.Mode = PlayOnce
	}
	return p
}

// At evaluates the curve at t seconds.
func (p *Path) At(t float32) float32 {
	n := len(p.Times)
	if n == 0 {
		return 0
	}
	if t <= p.Times[0] {
		return p.Values[0]
	}
	for i := 1; i < n; i++ {
		if t < p.Times[i] {
			t0, t1 := p.Times[i-1], p.Times[i]
			if t1 <= t0 {
				return p.Values[i]
			}
			f := (t - t0) / (t1 - t0)
			return p.Values[i-1] + (p.Values[i]-p.Values[i-1])*f
		}
	}
	return p.Values[n-1]
}

// AutomationPlayer replays a Path at audio rate. It lives in the graph like
// any other unit, so playback is sample-accurate without a timer thread.
type AutomationPlayer struct {
	graph.Node
	Out *graph.Output

	sampleRate float64
	path       atomic.Pointer[Path]
	playing    atomic.Bool
	restart    atomic.Bool
	position   atomic.Uint32

	t       float64
	forward bool
	last    float32
}

func NewAutomationPlayer(sampleRate float64) *AutomationPlayer {
	a := &AutomationPlayer{sampleRate: sampleRate, forward: true}
	a.Out = a.NewOutput("out")
	return a
}

// Load replaces the curve; playback restarts from the beginning.
func (a *AutomationPlayer) Load(p *Path) {
	a.path.Store(p)
	a.restart.Store(true)
}

func (a *AutomationPlayer) Start() {
	a.restart.Store(true)
	a.playing.Store(true)
}

func (a *AutomationPlayer) Stop() { a.playing.Store(false) }

func (a *AutomationPlayer) Playing() bool { return a.playing.Load() }

// Position returns the playback position in seconds as of the last block.
func (a *AutomationPlayer) Position() float32 {
	return math.Float32frombits(a.position.Load())
}

func (a *AutomationPlayer) Render(frames int) {
	dst := a.Out.Buffer(frames)
	p := a.path.Load()
	if p == nil || len(p.Times) == 0 || !a.playing.Load() {
		for i := range dst {
			dst[i] = a.last
		}
		return
	}
	if a.restart.Swap(false) {
		a.t = 0
		a.forward = true
	}
	dt := 1 / a.sampleRate
	dur := float64(p.Duration)
	for i := range dst {
		a.last = p.At(float32(a.t))
		dst[i] = a.last
		if dur <= 0 {
			continue
		}
		if a.forward {
			a.t += dt
		} else {
			a.t -= dt
		}
		switch p.Mode {
		case PlayLoop:
			for a.t >= dur {
				a.t -= dur
			}
		case PlayPingPong:
			if a.t >= dur {
				a.t = dur
				a.forward = false
			} else if a.t <= 0 {
				a.t = 0
				a.forward = true
			}
		default:
			if a.t > dur {
				a.t = dur
			}
		}
	}
	a.position.Store(math.Float32bits(float32(a.t)))
}
