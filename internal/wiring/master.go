package wiring

import (
	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/graph"
)

// masterUnit runs the summed bus through the master chain (5-band EQ then
// a glue compressor) and applies the master volume.
type masterUnit struct {
	graph.Node
	InL, InR   *graph.Input
	Volume     *graph.Input
	OutL, OutR *graph.Output

	eq    *effects.EQ5Band
	chain *effects.Chain
}

// Stages of the master chain.
const (
	masterEQStage = iota
	masterCompStage
)

func newMasterUnit(sampleRate int) *masterUnit {
	u := &masterUnit{eq: effects.NewEQ5Band(sampleRate)}
	u.chain = effects.NewChain(u.eq, effects.NewCompressor(sampleRate, -6, 3, 10, 120, 2))
	u.InL = u.NewInput("inL", 0)
	u.InR = u.NewInput("inR", 0)
	u.Volume = u.NewInput("volume", DefaultMasterVolume)
	u.OutL = u.NewOutput("outL")
	u.OutR = u.NewOutput("outR")
	return u
}

func (u *masterUnit) Render(frames int) {
	dstL, dstR := u.OutL.Buffer(frames), u.OutR.Buffer(frames)
	inL, inR, vol := u.InL.Values(), u.InR.Values(), u.Volume.Values()
	for i := range dstL {
		l, r := u.chain.Process(inL[i], inR[i])
		dstL[i] = l * vol[i]
		dstR[i] = r * vol[i]
	}
}
