package pairengine

import "math"

type drumSlot struct {
	phase float64
	amp   float64
	pitch float64
	lfsr  uint16
	high  bool
}

// drumEngine is percussive: each gate rising edge strikes a pitched body
// with a falling pitch sweep plus LFSR noise. Timbre blends body and noise,
// morph sets the decay and harmonics the sweep depth.
type drumEngine struct {
	core
	slots [2]drumSlot
}

func newDrum(sampleRate float64) *drumEngine {
	e := &drumEngine{core: newCore(KindDrum, sampleRate)}
	e.slots[0].lfsr = 0xACE1
	e.slots[1].lfsr = 0x1D2B
	return e
}

func (e *drumEngine) Percussive() bool { return true }

func (e *drumEngine) Render(frames int) {
	noiseMix := e.modulatedTimbre()
	decay := 0.02 + e.morph.Value()*0.8
	decayMul := math.Exp(-1 / (decay * e.sampleRate))
	sweep := 1 + e.harmonics.Value()*4
	sweepMul := math.Exp(-1 / (0.03 * e.sampleRate))
	for slot := range e.slots {
		d := &e.slots[slot]
		dst := e.out[slot].Buffer(frames)
		freq, gate := e.freq[slot].Values(), e.gate[slot].Values()
		for i := range dst {
			high := gate[i] > 0.5
			if high && !d.high {
				d.amp = 1
				d.pitch = sweep
				d.phase = 0
			}
			d.high = high
			f := clamp(float64(freq[i])*d.pitch, 0, e.sampleRate/2)
			d.phase += f / e.sampleRate
			d.phase -= math.Floor(d.phase)
			bit := (d.lfsr ^ (d.lfsr >> 1)) & 1
			d.lfsr = (d.lfsr >> 1) | (bit << 15)
			noise := -1.0
			if d.lfsr&1 == 1 {
				noise = 1
			}
			body := math.Sin(twoPi * d.phase)
			dst[i] = float32(lerp(body, noise, noiseMix) * d.amp)
			d.amp *= decayMul
			d.pitch = 1 + (d.pitch-1)*sweepMul
		}
	}
}
