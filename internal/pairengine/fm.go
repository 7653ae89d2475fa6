package pairengine

import "math"

type fmOperator struct {
	carrier float64
	mod     float64
	prevOut float64
}

// fmEngine is a two-operator FM pair. Harmonics picks the modulator ratio,
// timbre the modulation index, morph blends the carrier from sine toward
// a square-ish fold and feedback drives the modulator into itself.
type fmEngine struct {
	core
	ops [2]fmOperator
}

var fmRatios = [...]float64{0.5, 1, 1.5, 2, 3, 4, 5, 7}

func newFM(sampleRate float64) *fmEngine {
	return &fmEngine{core: newCore(KindFM, sampleRate)}
}

func (e *fmEngine) Render(frames int) {
	index := e.modulatedTimbre() * 4
	ratio := fmRatios[int(clamp(e.harmonics.Value(), 0, 1)*float64(len(fmRatios)-1)+0.5)]
	fb := e.feedback.Value()
	morph := clamp(e.morph.Value(), 0, 1)
	for slot := range e.ops {
		op := &e.ops[slot]
		dst := e.out[slot].Buffer(frames)
		freq := e.freq[slot].Values()
		for i := range dst {
			f := clamp(float64(freq[i]), 0, e.sampleRate/2)
			dt := f / e.sampleRate
			m := math.Sin(twoPi*op.mod + op.prevOut*fb*math.Pi)
			op.prevOut = m
			s := math.Sin(twoPi*op.carrier + m*index)
			if morph > 0 {
				s = lerp(s, math.Tanh(s*(1+morph*6)), morph)
			}
			dst[i] = float32(s)
			op.carrier += dt
			op.carrier -= math.Floor(op.carrier)
			op.mod += dt * ratio
			op.mod -= math.Floor(op.mod)
		}
	}
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }
