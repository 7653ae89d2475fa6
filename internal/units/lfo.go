package units

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/graph"
)

// LFO waveforms.
const (
	WaveSine = iota
	WaveTriangle
	WaveSaw
	WaveSquare
	WaveRandom
)

// LFO is a low-frequency oscillator with a bipolar output scaled by
// Amplitude. Frequency is read per sample so it can itself be modulated.
type LFO struct {
	graph.Node
	Frequency *graph.Input
	Amplitude *graph.Input
	Out       *graph.Output

	sampleRate float64
	waveform   atomic.Int32
	phase      float64
	held       float64
	seed       uint32
}

func NewLFO(sampleRate float64, waveform int) *LFO {
	l := &LFO{sampleRate: sampleRate, seed: 0x9E3779B9}
	l.Frequency = l.NewInput("frequency", 1)
	l.Amplitude = l.NewInput("amplitude", 1)
	l.Out = l.NewOutput("out")
	l.SetWaveform(waveform)
	return l
}

// SetWaveform selects the shape; unknown values fall back to triangle.
func (l *LFO) SetWaveform(w int) {
	if w < WaveSine || w > WaveRandom {
		w = WaveTriangle
	}
	l.waveform.Store(int32(w))
}

func (l *LFO) Waveform() int { return int(l.waveform.Load()) }

func (l *LFO) Render(frames int) {
	dst := l.Out.Buffer(frames)
	freq, amp := l.Frequency.Values(), l.Amplitude.Values()
	wave := int(l.waveform.Load())
	for i := range dst {
		dst[i] = float32(l.shape(wave)) * amp[i]
		l.phase += math.Abs(float64(freq[i])) / l.sampleRate
		for l.phase >= 1 {
			l.phase -= 1
			l.held = l.nextRandom()
		}
	}
}

func (l *LFO) shape(wave int) float64 {
	p := l.phase
	switch wave {
	case WaveSine:
		return math.Sin(twoPi * p)
	case WaveSaw:
		return 1 - 2*p
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveRandom:
		return l.held
	default:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	}
}

// nextRandom is a xorshift step mapped to [-1, 1).
func (l *LFO) nextRandom() float64 {
	l.seed ^= l.seed << 13
	l.seed ^= l.seed >> 17
	l.seed ^= l.seed << 5
	return float64(l.seed)/float64(math.MaxUint32)*2 - 1
}
