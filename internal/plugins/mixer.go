package plugins

import (
	"strconv"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/units"
)

// MixerChannels is the number of panned inputs, one per voice.
const MixerChannels = 12

// StereoMixer pans each voice and sums the result onto a stereo pair.
type StereoMixer struct {
	*plugin.Base
	pans       [MixerChannels]*units.Panner
	sumL, sumR *units.Sum
}

func NewStereoMixer(g *graph.Graph) *StereoMixer {
	m := &StereoMixer{
		Base: plugin.NewBase(g, URIStereoMixer, "Stereo Mixer"),
		sumL: units.NewSum(),
		sumR: units.NewSum(),
	}
	for i := range m.pans {
		p := units.NewPanner()
		m.pans[i] = p
		m.AddUnits(p)
		m.AddInput("in_"+strconv.Itoa(i), p.In)
		m.AddPorts(plugin.FloatPort("pan_"+strconv.Itoa(i), 0, -1, 1).OnChange(setter(nil, p.Pan)))
	}
	m.AddUnits(m.sumL, m.sumR)
	m.AddOutput("outL", m.sumL.Out)
	m.AddOutput("outR", m.sumR.Out)
	m.OnInitialize(func(g *graph.Graph) {
		for _, p := range m.pans {
			g.Connect(p.Left, m.sumL.In)
			g.Connect(p.Right, m.sumR.In)
		}
	})
	return m
}

// VoiceInput returns channel i's input or nil.
func (m *StereoMixer) VoiceInput(i int) *graph.Input {
	if i < 0 || i >= MixerChannels {
		return nil
	}
	return m.pans[i].In
}

// SetPan sets channel i's pan position in -1..1.
func (m *StereoMixer) SetPan(i int, pan float32) {
	m.SetFloat("pan_"+strconv.Itoa(i), pan)
}

// Pan returns channel i's pan position.
func (m *StereoMixer) Pan(i int) float32 {
	return m.Float("pan_" + strconv.Itoa(i))
}
