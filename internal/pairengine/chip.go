package pairengine

import "math"

// chipEngine is a band-limited pulse with quantised output. Timbre sets
// the duty cycle, harmonics the bit depth and morph blends in a triangle.
type chipEngine struct {
	core
	phase [2]float64
	dcIn  [2]float64
	dcOut [2]float64
}

func newChip(sampleRate float64) *chipEngine {
	return &chipEngine{core: newCore(KindChip, sampleRate)}
}

func (e *chipEngine) Render(frames int) {
	duty := 0.125 + e.modulatedTimbre()*0.375
	steps := 4 + int(e.harmonics.Value()*12)
	tri := clamp(e.morph.Value(), 0, 1)
	for slot := 0; slot < 2; slot++ {
		dst := e.out[slot].Buffer(frames)
		freq := e.freq[slot].Values()
		for i := range dst {
			dt := clamp(float64(freq[i]), 0, e.sampleRate/2) / e.sampleRate
			e.phase[slot] += dt
			if e.phase[slot] >= 1 {
				e.phase[slot] -= 1
			}
			p := e.phase[slot]
			v := -1.0
			if p < duty {
				v = 1
			}
			v += polyBLEP(p, dt)
			v -= polyBLEP(math.Mod(p-duty+1, 1), dt)
			v = lerp(v, 2*math.Abs(2*p-1)-1, tri)
			v = quantize(v, steps)
			dst[i] = float32(e.dcBlock(slot, v))
		}
	}
}

func (e *chipEngine) dcBlock(slot int, x float64) float64 {
	const r = 0.995
	y := x - e.dcIn[slot] + r*e.dcOut[slot]
	e.dcIn[slot] = x
	e.dcOut[slot] = y
	return y
}

// polyBLEP reduces aliasing at waveform discontinuities.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// quantize maps a bipolar sample onto steps levels.
func quantize(v float64, steps int) float64 {
	if steps <= 1 {
		return clamp(v, -1, 1)
	}
	u := (clamp(v, -1, 1) + 1) / 2
	u = math.Round(u*float64(steps-1)) / float64(steps-1)
	return u*2 - 1
}
