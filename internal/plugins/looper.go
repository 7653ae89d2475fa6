package plugins

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

const maxLoopSeconds = 16.0

// looperUnit records a stereo loop. The first recording pass sets the loop
// length; later passes with overdub enabled layer on top.
type looperUnit struct {
	graph.Node
	InL, InR   *graph.Input
	Level      *graph.Input
	OutL, OutR *graph.Output

	recording atomic.Bool
	playing   atomic.Bool
	overdub   atomic.Bool
	clearReq  atomic.Bool
	position  atomic.Uint64

	bufL, bufR []float32
	length     int
	head       int
}

func newLooperUnit(sampleRate float64) *looperUnit {
	n := int(sampleRate * maxLoopSeconds)
	u := &looperUnit{bufL: make([]float32, n), bufR: make([]float32, n)}
	u.InL = u.NewInput("inL", 0)
	u.InR = u.NewInput("inR", 0)
	u.Level = u.NewInput("level", 0.8)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *looperUnit) Render(frames int) {
	l, r := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	if u.clearReq.Swap(false) {
		clear(u.bufL)
		clear(u.bufR)
		u.length = 0
		u.head = 0
	}
	inL, inR := u.InL.Values(), u.InR.Values()
	level := float32(clamp(u.Level.Value(), 0, 1))
	rec, play, dub := u.recording.Load(), u.playing.Load(), u.overdub.Load()
	for i := range l {
		l[i], r[i] = 0, 0
		switch {
		case rec && !play && u.head < len(u.bufL):
			// first pass grows the loop
			u.bufL[u.head] = inL[i]
			u.bufR[u.head] = inR[i]
			u.head++
			u.length = max(u.length, u.head)
		case play && u.length > 0:
			if u.head >= u.length {
				u.head = 0
			}
			l[i] = u.bufL[u.head] * level
			r[i] = u.bufR[u.head] * level
			if dub || rec {
				u.bufL[u.head] += inL[i]
				u.bufR[u.head] += inR[i]
			}
			u.head++
		}
	}
	pos := 0.0
	if u.length > 0 {
		pos = float64(u.head%u.length) / float64(u.length)
	}
	u.position.Store(math.Float64bits(pos))
}

// Looper records, plays and overdubs a loop of up to 16 seconds.
type Looper struct {
	*plugin.Base
	unit *looperUnit
}

func NewLooper(g *graph.Graph, sampleRate float64) *Looper {
	lp := &Looper{
		Base: plugin.NewBase(g, URILooper, "Looper"),
		unit: newLooperUnit(sampleRate),
	}
	u := lp.unit
	lp.AddUnits(u)
	lp.AddInput("inL", u.InL)
	lp.AddInput("inR", u.InR)
	lp.AddOutput("outL", u.OutL)
	lp.AddOutput("outR", u.OutR)
	lp.AddPorts(
		plugin.BoolPort("record", false).OnChange(func(v plugin.PortValue) {
			on := plugin.Float(v) != 0
			if !on && u.recording.Load() && !u.playing.Load() {
				// closing the first pass starts playback
				u.playing.Store(true)
			}
			u.recording.Store(on)
		}),
		plugin.BoolPort("play", false).OnChange(func(v plugin.PortValue) { u.playing.Store(plugin.Float(v) != 0) }),
		plugin.BoolPort("overdub", false).OnChange(func(v plugin.PortValue) { u.overdub.Store(plugin.Float(v) != 0) }),
		plugin.BoolPort("clear", false).OnChange(func(v plugin.PortValue) {
			if plugin.Float(v) != 0 {
				u.clearReq.Store(true)
				u.playing.Store(false)
			}
		}),
		plugin.FloatPort("level", 0.8, 0, 1).OnChange(setter(nil, u.Level)),
	)
	return lp
}

// Position returns the playback position in the loop, 0..1.
func (lp *Looper) Position() float64 {
	return math.Float64frombits(lp.unit.position.Load())
}

// Recording and Playing report the transport state.
func (lp *Looper) Recording() bool { return lp.unit.recording.Load() }
func (lp *Looper) Playing() bool   { return lp.unit.playing.Load() }
