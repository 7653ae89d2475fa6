package pairengine

import "math"

const tableLen = 256

// Morph scans across these tables; each is built once from partials.
var wavetables = buildTables()

func buildTables() [4][tableLen]float64 {
	var t [4][tableLen]float64
	for i := 0; i < tableLen; i++ {
		p := float64(i) / tableLen
		t[0][i] = math.Sin(twoPi * p)
		for h := 1; h <= 16; h++ {
			hf := float64(h)
			t[1][i] += math.Sin(twoPi*p*hf) / hf
			if h%2 == 1 {
				t[2][i] += math.Sin(twoPi*p*hf) / hf
			}
			t[3][i] += math.Sin(twoPi*p*hf) / (hf * hf) * math.Cos(hf)
		}
	}
	for k := 1; k < 4; k++ {
		peak := 0.0
		for _, v := range t[k] {
			peak = math.Max(peak, math.Abs(v))
		}
		for i := range t[k] {
			t[k][i] /= peak
		}
	}
	return t
}

// wavetableEngine reads interpolated tables. Morph scans the table set,
// timbre sets a lowpass, harmonics detunes a second table reader.
type wavetableEngine struct {
	core
	phase [2][2]float64
	lowL  [2]float64
}

func newWavetable(sampleRate float64) *wavetableEngine {
	return &wavetableEngine{core: newCore(KindWavetable, sampleRate)}
}

func readTable(phase, pos float64) float64 {
	pos = clamp(pos, 0, 1) * 3
	a := int(pos)
	if a >= 3 {
		a = 2
	}
	frac := pos - float64(a)
	idx := phase * tableLen
	i0 := int(idx) % tableLen
	i1 := (i0 + 1) % tableLen
	f := idx - math.Floor(idx)
	s0 := wavetables[a][i0]*(1-f) + wavetables[a][i1]*f
	s1 := wavetables[a+1][i0]*(1-f) + wavetables[a+1][i1]*f
	return lerp(s0, s1, frac)
}

func (e *wavetableEngine) Render(frames int) {
	pos := clamp(e.morph.Value()+e.mod.Value()*e.timbreMod.Value(), 0, 1)
	cutoff := 200 + e.timbre.Value()*e.timbre.Value()*12000
	rc := 1.0 / (twoPi * cutoff)
	dt := 1.0 / e.sampleRate
	alpha := dt / (rc + dt)
	detune := 1 + e.harmonics.Value()*0.01
	for slot := 0; slot < 2; slot++ {
		dst := e.out[slot].Buffer(frames)
		freq := e.freq[slot].Values()
		ph := &e.phase[slot]
		for i := range dst {
			inc := clamp(float64(freq[i]), 0, e.sampleRate/2) / e.sampleRate
			s := (readTable(ph[0], pos) + readTable(ph[1], pos)) * 0.5
			e.lowL[slot] += alpha * (s - e.lowL[slot])
			dst[i] = float32(e.lowL[slot])
			ph[0] += inc
			ph[0] -= math.Floor(ph[0])
			ph[1] += inc * detune
			ph[1] -= math.Floor(ph[1])
		}
	}
}
