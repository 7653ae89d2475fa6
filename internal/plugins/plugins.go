// Package plugins contains the concrete plugin types the engine is patched
// from. Each type is built on plugin.Base; its control ports forward to the
// manual values of unit inputs, so automation can take an input over by
// connecting to it and hand it back by disconnecting.
package plugins

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

const twoPi = math.Pi * 2

// URIs of the built-in plugins.
const (
	URIDelay       = "polysynth:delay"
	URIDistortion  = "polysynth:distortion"
	URIStereoMixer = "polysynth:stereo_mixer"
	URIVibrato     = "polysynth:vibrato"
	URIBender      = "polysynth:bender"
	URIDrum        = "polysynth:drum"
	URIResonator   = "polysynth:resonator"
	URIGrains      = "polysynth:grains"
	URILooper      = "polysynth:looper"
	URIWarps       = "polysynth:warps"
	URIFlux        = "polysynth:flux"
	URIDualLFO     = "polysynth:dual_lfo"
	URIVoiceMacro  = "polysynth:voice_macro"
)

// NewProvider returns a provider that builds one instance of every plugin
// type for graph g.
func NewProvider(g *graph.Graph, sampleRate float64) plugin.Provider {
	return plugin.ProviderFunc(func() []plugin.Plugin {
		return []plugin.Plugin{
			NewDelay(g, sampleRate),
			NewDistortion(g, sampleRate),
			NewStereoMixer(g),
			NewVibrato(g, sampleRate),
			NewBender(g, sampleRate),
			NewDrum(g, sampleRate),
			NewResonator(g, sampleRate),
			NewGrains(g, sampleRate),
			NewLooper(g, sampleRate),
			NewWarps(g),
			NewFlux(g, sampleRate),
			NewDualLFO(g, sampleRate),
			NewVoiceMacro(g),
		}
	})
}

// setter returns a port callback that writes the port value, mapped by fn,
// into every input.
func setter(fn func(float64) float64, ins ...*graph.Input) func(plugin.PortValue) {
	return func(v plugin.PortValue) {
		x := float64(plugin.Float(v))
		if fn != nil {
			x = fn(x)
		}
		for _, in := range ins {
			in.Set(x)
		}
	}
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

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

// rng is a xorshift generator owned by one render path.
type rng uint32

func (r *rng) next() uint32 {
	x := uint32(*r)
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*r = rng(x)
	return x
}

// float returns a value in [0, 1).
func (r *rng) float() float64 {
	return float64(r.next()) / (1 << 32)
}
