package effects

import (
	"math"
	"testing"
)

func TestEchoProducesDelayedOutput(t *testing.T) {
	e := NewEcho(44100, 1)
	e.Process(1, 0.1, 0.5)
	var got float32
	for i := 1; i <= 4410; i++ {
		got = e.Process(0, 0.1, 0.5)
	}
	if math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("expected the impulse after 100ms, got %f", got)
	}
}

func TestDelayLineReadsLatestWrite(t *testing.T) {
	d := NewDelayLine(1000, 0.1)
	d.Write(0.25)
	if got := d.Read(1); got != 0.25 {
		t.Fatalf("Read(1) = %f, want 0.25", got)
	}
	d.Write(0.5)
	if got := d.Read(1.5); math.Abs(float64(got)-0.375) > 1e-6 {
		t.Fatalf("Read(1.5) = %f, want 0.375", got)
	}
}

func TestShaperIsBounded(t *testing.T) {
	s := NewShaper(44100, 0)
	for _, x := range []float32{-4, -0.5, 0.5, 4} {
		y := s.Process(x, 10)
		if math.Abs(float64(y)) > 1.0001 {
			t.Errorf("shaper(%f) = %f, want |y| <= 1", x, y)
		}
	}
	if y := s.Process(0.01, 1); math.Abs(float64(y)) < 0.005 {
		t.Errorf("unity drive should pass small signals, got %f", y)
	}
}

func TestCombRings(t *testing.T) {
	c := NewComb(48000, 20)
	c.Process(1, 100, 0.9, 0)
	var tail float32
	for i := 0; i < 1000; i++ {
		tail = float32(math.Max(float64(tail), math.Abs(float64(c.Process(0, 100, 0.9, 0)))))
	}
	if tail < 0.5 {
		t.Errorf("expected a ringing tail, peak %f", tail)
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	eq := NewEQ5Band(44100)
	c := NewChain(eq, NewCompressor(44100, -10, 4, 1, 50, 0))
	if c.Len() != 2 {
		t.Fatalf("chain length = %d", c.Len())
	}
	l, r := c.Process(0.5, 0.5)
	if l == 0 || r == 0 {
		t.Error("chain should produce output")
	}
}

func TestChainBypassSkipsStage(t *testing.T) {
	comp := NewCompressor(44100, -20, 10, 1, 50, 0)
	c := NewChain(comp)
	c.SetBypass(0, true)
	if !c.Bypassed(0) {
		t.Fatal("stage 0 should be bypassed")
	}
	for i := 0; i < 1000; i++ {
		if l, _ := c.Process(1, 1); l != 1 {
			t.Fatalf("bypassed chain changed the signal: %f", l)
		}
	}
	c.SetBypass(0, false)
	c.SetBypass(5, true)
	var l float32
	for i := 0; i < 1000; i++ {
		l, _ = c.Process(1, 1)
	}
	if l >= 1 {
		t.Fatalf("compressor should be active again, got %f", l)
	}
}

func TestEQ5BandUnityGainPassesSignal(t *testing.T) {
	eq := NewEQ5Band(44100)
	var l float32
	for i := 0; i < 2000; i++ {
		l, _ = eq.Process(0.5, 0.5)
	}
	if math.Abs(float64(l)-0.5) > 0.01 {
		t.Errorf("unity EQ = %f, want 0.5", l)
	}
	eq.SetGain(7, 0)
	eq.SetGain(0, 9)
	if eq.Gain(0) != 4 || eq.Gain(7) != 1 {
		t.Errorf("gain clamp: band0=%f band7=%f", eq.Gain(0), eq.Gain(7))
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(1.0, 1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
}
