package voice

import (
	"math"
	"testing"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/pairengine"
	"github.com/cbegin/polysynth-go/internal/units"
)

func newTestManager() (*Manager, *graph.Graph) {
	g := graph.New(0)
	return NewManager(g, 48000, nil), g
}

func TestHighVoicesStartIdle(t *testing.T) {
	m, _ := newTestManager()
	for i := 0; i < Count; i++ {
		if got, want := m.IsIdle(i), i >= 8; got != want {
			t.Fatalf("voice %d idle=%v, want %v", i, got, want)
		}
	}
}

func TestGateOnIdleVoiceReachesTheFirstBlock(t *testing.T) {
	m, g := newTestManager()
	for i := 8; i < Count; i++ {
		m.SetGate(i, true)
		if !m.Voice(i).Gate() || m.IsIdle(i) {
			t.Fatalf("voice %d: gate=%v idle=%v", i, m.Voice(i).Gate(), m.IsIdle(i))
		}
	}
	g.Render(64)
	for i := 8; i < Count; i++ {
		v := m.Voice(i)
		for n, x := range v.env.Gate.Values() {
			if x != 1 {
				t.Fatalf("voice %d: envelope gate[%d] = %f, want 1", i, n, x)
			}
		}
		if v.env.Out.Last() <= 0 {
			t.Fatalf("voice %d: envelope did not start", i)
		}
	}
}

func TestGateReleaseResetsWobble(t *testing.T) {
	m, _ := newTestManager()
	v := m.Voice(2)
	m.SetGate(2, true)
	v.SetWobbleMultiplier(1.7)
	m.SetGate(2, true)
	if v.WobbleMultiplier() != 1.7 {
		t.Fatal("gate-on should leave the wobble alone")
	}
	m.SetGate(2, false)
	if v.WobbleMultiplier() != 1 {
		t.Fatalf("wobble after release = %f, want 1", v.WobbleMultiplier())
	}
}

func TestEngineGateFollowsConnectedGate(t *testing.T) {
	m, g := newTestManager()
	m.SetPairEngine(0, pairengine.KindDrum)
	eng := m.Engine(0)
	src := units.NewGain(1)
	src.In.Set(1)
	g.Add(src)
	g.Connect(src.Out, m.Voice(0).GateInput())
	for b := 0; b < 4; b++ {
		g.Render(256)
	}
	if got := eng.Gate(0).Value(); got != 1 {
		t.Fatalf("engine gate = %f, want 1 from the connected source", got)
	}
	if eng.Gate(1).Value() != 0 {
		t.Fatal("slot 1 should stay closed")
	}
	if lv := m.Levels()[0]; lv <= 0 || math.IsInf(float64(lv), 0) || math.IsNaN(float64(lv)) {
		t.Fatalf("struck voice level = %v, want finite and positive", lv)
	}

	m.SetPairEngine(0, pairengine.KindNone)
	if n := g.Connections(eng.Gate(0)); n != 0 {
		t.Fatalf("detached engine gate has %d connections", n)
	}
}

func TestSetIdleIsIdempotent(t *testing.T) {
	m, g := newTestManager()
	v := m.Voice(0)
	v.SetIdle(true)
	v.SetIdle(true)
	if g.Enabled(v.osc) {
		t.Fatal("idle voice should not render")
	}
	v.SetIdle(false)
	v.SetIdle(false)
	if !g.Enabled(v.osc) {
		t.Fatal("woken voice should render")
	}
}

func TestQuadHoldTouchesOnlyItsVoices(t *testing.T) {
	for q := 0; q < Quads; q++ {
		m, _ := newTestManager()
		m.SetQuadHold(q, 0.6)
		for i := 0; i < Count; i++ {
			want := 0.0
			if QuadOf(i) == q {
				want = 0.6
			}
			if got := m.Voice(i).HoldLevel(); math.Abs(got-want) > 1e-9 {
				t.Fatalf("quad %d: voice %d hold=%f, want %f", q, i, got, want)
			}
		}
	}
}

func TestFrequencyFormula(t *testing.T) {
	cases := []struct {
		tune, pitch, reg, want float64
	}{
		{0, 0.5, 1, 55},
		{0.5, 0.5, 1, 220},
		{0.25, 0.5, 0.5, 55},
		{0.5, 1, 2, 1760},
		{0.5, 0, 1, 110},
	}
	for _, tc := range cases {
		if got := Frequency(tc.tune, tc.pitch, tc.reg); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Frequency(%v,%v,%v)=%f, want %f", tc.tune, tc.pitch, tc.reg, got, tc.want)
		}
	}
}

func TestTuneAndQuadPitchRecompute(t *testing.T) {
	m, _ := newTestManager()
	m.SetTune(5, 0.5)
	m.SetQuadPitch(1, 1)
	if got := m.Voice(5).Frequency(); math.Abs(got-440) > 1e-9 {
		t.Fatalf("voice 5 freq = %f, want 440", got)
	}
	if got := m.Voice(0).Frequency(); math.Abs(got-110) > 1e-9 {
		t.Fatalf("voice 0 untouched freq = %f, want 110", got)
	}
	if got := m.Voice(9).Register(); got != 2 {
		t.Fatalf("voice 9 register = %f", got)
	}
}

func TestVoiceFMUsesDelayedCrossEdges(t *testing.T) {
	m, g := newTestManager()
	m.SetModSource(1, ModVoiceFM)
	if !g.IsConnected(m.Voice(3).OscOutput(), m.Voice(2).ModInput()) {
		t.Fatal("voice 2 should be modulated by voice 3")
	}
	m.SetCrossQuad(true)
	if g.IsConnected(m.Voice(3).OscOutput(), m.Voice(2).ModInput()) {
		t.Fatal("in-pair route should be replaced")
	}
	if !g.IsConnected(m.Voice(6).OscOutput(), m.Voice(2).ModInput()) {
		t.Fatal("pair 1 should be modulated by pair 3 in cross-quad")
	}
	m.SetModSource(1, ModOff)
	if g.Connections(m.Voice(2).ModInput()) != 0 {
		t.Fatal("OFF should leave the mod input unconnected")
	}
	// a render with the feedback routes must not deadlock or panic
	g.Render(64)
}

func TestLFORouteNeverStacks(t *testing.T) {
	m, g := newTestManager()
	lfo := units.NewLFO(48000, units.WaveSine)
	g.Add(lfo)
	m.SetSources(Sources{LFO: lfo.Out})
	m.SetModSource(0, ModLFO)
	m.SetModSource(0, ModLFO)
	if n := g.Connections(m.Voice(0).ModInput()); n != 1 {
		t.Fatalf("mod input has %d connections, want 1", n)
	}
	m.SetQuadPitchSource(2, PitchLFO)
	m.SetQuadPitchSource(2, PitchLFO)
	if n := g.Connections(m.Voice(10).CVPitchInput()); n != 1 {
		t.Fatalf("pitch input has %d connections, want 1", n)
	}
	m.SetQuadPitchSource(2, PitchNone)
	if n := g.Connections(m.Voice(10).CVPitchInput()); n != 0 {
		t.Fatalf("pitch input has %d connections, want 0", n)
	}
}

func TestEngineSwap(t *testing.T) {
	m, g := newTestManager()
	m.SetQuadHold(0, 0.3)
	m.SetPairTimbre(0, 0.8)
	m.SetPairEngine(0, pairengine.KindDrum)
	eng := m.Engine(0)
	if eng == nil || eng.Kind() != pairengine.KindDrum {
		t.Fatal("drum engine not active")
	}
	if m.Voice(0).HoldLevel() != 1 || m.Voice(1).HoldLevel() != 1 {
		t.Fatal("percussive engine should force hold to 1")
	}
	if !g.IsConnected(eng.Output(0), m.Voice(0).sourceInput()) {
		t.Fatal("engine should feed voice 0")
	}
	if g.IsConnected(m.Voice(0).OscOutput(), m.Voice(0).sourceInput()) {
		t.Fatal("oscillator should be disconnected while an engine plays")
	}
	if got := eng.Frequency(1).Get(); math.Abs(got-m.Voice(1).Frequency()) > 1e-9 {
		t.Fatalf("engine frequency %f not synced", got)
	}

	m.SetPairEngine(0, pairengine.KindFM)
	if g.Enabled(eng) {
		t.Fatal("swapped-out engine should be disabled")
	}
	if m.Voice(0).HoldLevel() != 0.3 {
		t.Fatalf("pitched engine should restore quad hold, got %f", m.Voice(0).HoldLevel())
	}

	m.SetPairEngine(0, pairengine.KindDrum)
	if m.Engine(0) != eng {
		t.Fatal("engines should be pooled per pair and kind")
	}

	m.SetPairEngine(0, pairengine.KindNone)
	if !g.IsConnected(m.Voice(0).OscOutput(), m.Voice(0).sourceInput()) {
		t.Fatal("oscillator should be reconnected")
	}
	if n := g.Connections(m.Voice(0).sourceInput()); n != 1 {
		t.Fatalf("source input has %d connections, want 1", n)
	}
}

func TestEngineSwapClearsFeedback(t *testing.T) {
	m, _ := newTestManager()
	m.SetPairEngine(2, pairengine.KindFM)
	m.SetVoiceFeedback(4, 0.9)
	if m.Engine(2).Feedback() != 0.9 {
		t.Fatal("feedback not applied")
	}
	m.SetPairEngine(2, pairengine.KindNone)
	m.SetPairEngine(2, pairengine.KindFM)
	if m.Engine(2).Feedback() != 0 {
		t.Fatal("feedback should be cleared on swap-in")
	}
}

func TestModOffZeroesEngineTimbreMod(t *testing.T) {
	m, _ := newTestManager()
	m.SetModSource(0, ModLFO)
	m.SetPairEngine(0, pairengine.KindWavetable)
	if m.Engine(0).TimbreModAmount() == 0 {
		t.Fatal("LFO routing should apply the cached timbre mod amount")
	}
	m.SetModSource(0, ModOff)
	if m.Engine(0).TimbreModAmount() != 0 {
		t.Fatal("OFF should zero the engine timbre mod")
	}
}

func TestWobbleClamps(t *testing.T) {
	m, _ := newTestManager()
	v := m.Voice(1)
	v.SetWobbleMultiplier(5)
	if v.WobbleMultiplier() != 2 {
		t.Fatalf("wobble = %f, want 2", v.WobbleMultiplier())
	}
	v.ResetWobble()
	if v.WobbleMultiplier() != 1 {
		t.Fatal("reset should restore 1")
	}
}

func TestHeldVoiceSounds(t *testing.T) {
	m, g := newTestManager()
	m.SetQuadHold(1, 1)
	for i := 0; i < 8; i++ {
		g.Render(256)
	}
	if lv := m.Levels()[4]; lv == 0 || lv > 4 || math.IsNaN(float64(lv)) {
		t.Fatalf("held voice level = %v, want finite and nonzero", lv)
	}
	if m.Levels()[9] != 0 {
		t.Fatal("idle voice should meter silence")
	}
}
