package units

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cbegin/polysynth-go/internal/graph"
)

func render(t *testing.T, frames int, us ...graph.Unit) *graph.Graph {
	t.Helper()
	g := graph.New(frames)
	g.Add(us...)
	g.Render(frames)
	return g
}

func TestLFOTriangleBasicShape(t *testing.T) {
	l := NewLFO(100, WaveTriangle)
	render(t, 100, l)
	samples := l.Out.Buffer(100)
	if math.Abs(float64(samples[0])+1) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want -1.0", samples[0])
	}
	if math.Abs(float64(samples[25])) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	if math.Abs(float64(samples[50])-1) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want 1.0", samples[50])
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := NewLFO(100, WaveSquare)
	l.Amplitude.Set(2)
	render(t, 100, l)
	samples := l.Out.Buffer(100)
	if samples[0] != 2 {
		t.Errorf("square first half: got %f, want 2.0", samples[0])
	}
	if samples[60] != -2 {
		t.Errorf("square second half: got %f, want -2.0", samples[60])
	}
}

func TestLFOZeroAmplitudeIsSilent(t *testing.T) {
	l := NewLFO(44100, WaveSine)
	l.Amplitude.Set(0)
	l.Frequency.Set(5)
	render(t, 64, l)
	for i, s := range l.Out.Buffer(64) {
		if s != 0 {
			t.Fatalf("sample %d = %f, want 0", i, s)
		}
	}
}

func TestLFORandomStaysInRange(t *testing.T) {
	l := NewLFO(1000, WaveRandom)
	l.Frequency.Set(50)
	g := graph.New(200)
	g.Add(l)
	var changed bool
	for b := 0; b < 5; b++ {
		g.Render(200)
		for _, s := range l.Out.Buffer(200) {
			if math.Abs(float64(s)) > 1 {
				t.Fatalf("random sample %f exceeds amplitude", s)
			}
			if s != 0 {
				changed = true
			}
		}
	}
	if !changed {
		t.Fatal("random LFO never left zero")
	}
}

func TestRampIsLinearAndLands(t *testing.T) {
	r := NewRamp(1000, 0)
	g := graph.New(100)
	g.Add(r)
	r.RampTo(1, 0.1) // 100 samples
	g.Render(100)
	out := r.Out.Buffer(100)
	if math.Abs(float64(out[49])-0.5) > 0.02 {
		t.Errorf("midpoint = %f, want ~0.5", out[49])
	}
	if out[99] != 1 {
		t.Errorf("end = %f, want 1", out[99])
	}
	r.Jump(0.25)
	g.Render(100)
	if got := r.Out.Buffer(100)[0]; got != 0.25 {
		t.Errorf("jump = %f, want 0.25", got)
	}
	if r.Target() != 0.25 {
		t.Errorf("target = %f, want 0.25", r.Target())
	}
}

func TestAutomationPlayerFollowsPath(t *testing.T) {
	a := NewAutomationPlayer(100)
	a.Load(NewPath([]float32{0, 1}, []float32{0, 1}, 2, 1, PlayOnce))
	a.Start()
	g := graph.New(100)
	g.Add(a)
	g.Render(100)
	out := a.Out.Buffer(100)
	if math.Abs(float64(out[50])-0.5) > 0.02 {
		t.Errorf("value at 0.5s = %f, want ~0.5", out[50])
	}
	g.Render(100)
	if got := a.Out.Last(); got != 1 {
		t.Errorf("held end value = %f, want 1", got)
	}
}

func TestAutomationPlayerLoops(t *testing.T) {
	a := NewAutomationPlayer(100)
	a.Load(NewPath([]float32{0, 0.5}, []float32{0, 1}, 2, 0.5, PlayLoop))
	a.Start()
	g := graph.New(75)
	g.Add(a)
	g.Render(75)
	// 0.74s into a 0.5s loop is 0.24s into the second pass.
	if got := a.Out.Last(); math.Abs(float64(got)-0.48) > 0.03 {
		t.Errorf("looped value = %f, want ~0.48", got)
	}
}

func TestPathClampsCount(t *testing.T) {
	p := NewPath([]float32{0, 1, 2}, []float32{1, 2}, 10, 0, 99)
	if len(p.Times) != 2 || p.Duration != 1 || p.Mode != PlayOnce {
		t.Fatalf("path = %+v", p)
	}
	if got := p.At(5); got != 2 {
		t.Fatalf("At past end = %f, want 2", got)
	}
}

func TestEnvelopeGateModeSustains(t *testing.T) {
	e := NewEnvelope(1000)
	e.Gate.Set(1)
	g := graph.New(500)
	g.Add(e)
	g.Render(500)
	if got := e.Out.Last(); got != 1 {
		t.Fatalf("sustain level = %f, want 1", got)
	}
	e.Gate.Set(0)
	for i := 0; i < 10; i++ {
		g.Render(500)
	}
	if got := e.Out.Last(); got != 0 {
		t.Fatalf("released level = %f, want 0", got)
	}
}

func TestEnvelopeTriggerModeReleasesWhileGated(t *testing.T) {
	e := NewEnvelope(1000)
	e.Mode.Set(EnvelopeTrigger)
	e.Gate.Set(1)
	g := graph.New(500)
	g.Add(e)
	for i := 0; i < 4; i++ {
		g.Render(500)
	}
	if got := e.Out.Last(); got != 0 {
		t.Fatalf("trigger mode level = %f, want 0 after the contour", got)
	}
}

func TestFilterStaysBoundedAcrossRange(t *testing.T) {
	const sr, frames, blocks = 48000, 256, 200
	rng := rand.New(rand.NewPCG(1, 2))
	for _, cutoff := range []float64{0, 20, 440, 8000, 18000, 23999, 96000, math.NaN()} {
		for _, res := range []float64{-1, 0, 0.1, 0.5, 0.9, 1, 4} {
			f := NewFilter(sr)
			f.Cutoff.Set(cutoff)
			f.Resonance.Set(res)
			g := graph.New(frames)
			g.Add(f)
			for b := 0; b < blocks; b++ {
				x := 1.0
				if b >= blocks/2 {
					x = rng.Float64()*2 - 1
				}
				f.In.Set(x)
				g.Render(frames)
				for i, s := range f.Out.Buffer(frames) {
					if v := float64(s); math.IsNaN(v) || math.Abs(v) > 25 {
						t.Fatalf("cutoff %v res %v: block %d sample %d = %v", cutoff, res, b, i, v)
					}
				}
			}
		}
	}
}

func TestFilterPassesDCAndRecoversFromNaN(t *testing.T) {
	f := NewFilter(48000)
	g := graph.New(256)
	g.Add(f)
	f.In.Set(math.NaN())
	g.Render(256)
	f.In.Set(1)
	for b := 0; b < 40; b++ {
		g.Render(256)
	}
	if got := f.Out.Last(); math.Abs(float64(got)-1) > 1e-3 {
		t.Fatalf("DC step settles at %f, want 1", got)
	}
}

func TestVCAHoldFloorIgnoresEnvelope(t *testing.T) {
	v := NewVCA()
	v.In.Set(1)
	v.Envelope.Set(0)
	v.Hold.Set(0.5)
	v.Wobble.Set(2)
	render(t, 8, v)
	if got := v.Out.Last(); got != 1 {
		t.Fatalf("held output = %f, want 1", got)
	}
}

func TestPannerEqualPower(t *testing.T) {
	p := NewPanner()
	p.In.Set(1)
	render(t, 4, p)
	l, r := p.Left.Last(), p.Right.Last()
	if math.Abs(float64(l*l+r*r)-1) > 1e-5 {
		t.Fatalf("center power = %f, want 1", l*l+r*r)
	}
	p.Pan.Set(-1)
	render(t, 4, p)
	if p.Right.Last() > 1e-6 {
		t.Fatalf("hard left leaks %f into right", p.Right.Last())
	}
}

func TestOscillatorSharpnessExtremes(t *testing.T) {
	for _, sharp := range []float64{0, 0.5, 1} {
		o := NewOscillator(48000)
		o.Sharpness.Set(sharp)
		o.Frequency.Set(440)
		render(t, 512, o)
		var peak float64
		for _, s := range o.Out.Buffer(512) {
			peak = math.Max(peak, math.Abs(float64(s)))
		}
		if peak < 0.5 || peak > 1.6 {
			t.Errorf("sharpness %v: peak %f out of range", sharp, peak)
		}
	}
}

func TestMeterTracksPeak(t *testing.T) {
	m := NewMeter(0.5)
	m.In.Set(-0.8)
	render(t, 16, m)
	if got := m.Level(); math.Abs(float64(got)-0.8) > 1e-6 {
		t.Fatalf("level = %f, want 0.8", got)
	}
	m.Reset()
	if m.Level() != 0 {
		t.Fatal("reset should publish silence")
	}
}

func TestScaleOffset(t *testing.T) {
	s := NewScaleOffset(-1, 1)
	s.In.Set(0.25)
	render(t, 4, s)
	if got := s.Out.Last(); got != 0.75 {
		t.Fatalf("scale/offset = %f, want 0.75", got)
	}
}
