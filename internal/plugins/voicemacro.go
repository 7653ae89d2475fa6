package plugins

import (
	"strconv"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

// MacroHandler receives every accepted voice macro port write.
type MacroHandler func(symbol string, v plugin.PortValue)

// VoiceMacro owns no audio. Its ports mirror the voice manager controls so
// collaborators that only speak (uri, symbol) can still address voices;
// writes are forwarded to the installed handler.
type VoiceMacro struct {
	*plugin.Base
	handler atomic.Pointer[MacroHandler]
}

func NewVoiceMacro(g *graph.Graph) *VoiceMacro {
	m := &VoiceMacro{Base: plugin.NewBase(g, URIVoiceMacro, "Voice Macro")}
	for i := 0; i < 12; i++ {
		n := strconv.Itoa(i)
		m.AddPorts(
			m.forward(plugin.FloatPort("tune_"+n, 0.5, 0, 1)),
			m.forward(plugin.BoolPort("gate_"+n, false)),
			m.forward(plugin.FloatPort("fm_depth_"+n, 0, 0, 1)),
			m.forward(plugin.FloatPort("env_speed_"+n, 0.2, 0, 1)),
		)
	}
	for p := 0; p < 6; p++ {
		n := strconv.Itoa(p)
		m.AddPorts(
			m.forward(plugin.FloatPort("sharpness_"+n, 0, 0, 1)),
			m.forward(plugin.IntPort("mod_source_"+n, 0, 0, 3)),
			m.forward(plugin.IntPort("engine_"+n, 0, 0, 4)),
		)
	}
	for q := 0; q < 3; q++ {
		n := strconv.Itoa(q)
		m.AddPorts(
			m.forward(plugin.FloatPort("quad_pitch_"+n, 0.5, 0, 1)),
			m.forward(plugin.FloatPort("quad_hold_"+n, 0, 0, 1)),
			m.forward(plugin.FloatPort("quad_volume_"+n, 1, 0, 1)),
		)
	}
	return m
}

func (m *VoiceMacro) forward(p *plugin.Port) *plugin.Port {
	sym := p.Symbol
	return p.OnChange(func(v plugin.PortValue) {
		if h := m.handler.Load(); h != nil {
			(*h)(sym, v)
		}
	})
}

// SetHandler installs the receiver of port writes. nil detaches it.
func (m *VoiceMacro) SetHandler(h MacroHandler) {
	if h == nil {
		m.handler.Store(nil)
		return
	}
	m.handler.Store(&h)
}

// Mirror records a value applied elsewhere without calling the handler.
func (m *VoiceMacro) Mirror(symbol string, v plugin.PortValue) {
	if p := m.Port(symbol); p != nil {
		p.Sync(v)
	}
}
