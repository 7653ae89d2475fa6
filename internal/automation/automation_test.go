package automation

import (
	"math"
	"testing"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/units"
)

type knob struct {
	value float64
	gain  *units.Gain
}

func (k *knob) set(v float64) {
	k.value = v
	k.gain.Gain.Set(v)
}

func (k *knob) capture() func() {
	v := k.value
	return func() { k.set(v) }
}

func newKnob(g *graph.Graph) *knob {
	k := &knob{gain: units.NewGain(0)}
	g.Add(k.gain)
	return k
}

func TestRestoresManualValueExactly(t *testing.T) {
	g := graph.New(64)
	m := NewManager(g, 48000, nil)
	k := newKnob(g)
	if err := m.Register("level", Target{Scale: 1, Inputs: []*graph.Input{k.gain.Gain}, Capture: k.capture}); err != nil {
		t.Fatal(err)
	}
	k.set(0.3)
	if !m.Set("level", []float32{0, 0.01}, []float32{0.9, 0.1}, 2, 0.01, units.PlayLoop) {
		t.Fatal("set failed")
	}
	if !m.IsActive("level") {
		t.Fatal("automation should be active")
	}
	for i := 0; i < 8; i++ {
		g.Render(64)
	}
	if k.gain.Gain.Value() == 0.3 {
		t.Fatal("automation should own the gain input while active")
	}
	m.Clear("level")
	if m.IsActive("level") {
		t.Fatal("automation should be inactive")
	}
	if g.Connections(k.gain.Gain) != 0 {
		t.Fatal("targets should be disconnected")
	}
	g.Render(64)
	if got := k.gain.Gain.Get(); got != 0.3 {
		t.Fatalf("restored value = %v, want exactly 0.3", got)
	}
}

func TestCompositeSharesOnePlayer(t *testing.T) {
	g := graph.New(64)
	m := NewManager(g, 48000, nil)
	wet, dry := newKnob(g), newKnob(g)
	err := m.Register("mix",
		Target{Scale: 0.75, Inputs: []*graph.Input{wet.gain.Gain}, Capture: wet.capture},
		Target{Scale: -1, Offset: 1, Inputs: []*graph.Input{dry.gain.Gain}, Capture: dry.capture},
	)
	if err != nil {
		t.Fatal(err)
	}
	setups := m.Setups("mix")
	if len(setups) != 2 || setups[0].Player != setups[1].Player {
		t.Fatal("composite branches should share a player")
	}
	src := units.NewRamp(48000, 1)
	g.Add(src)
	g.Connect(src.Out, wet.gain.In)
	g.Connect(src.Out, dry.gain.In)

	m.Set("mix", []float32{0}, []float32{0.4}, 1, 1, units.PlayOnce)
	g.Render(64)
	if got := wet.gain.Out.Last(); math.Abs(float64(got)-0.3) > 1e-6 {
		t.Fatalf("wet = %f, want 0.3", got)
	}
	if got := dry.gain.Out.Last(); math.Abs(float64(got)-0.6) > 1e-6 {
		t.Fatalf("dry = %f, want 0.6", got)
	}
}

func TestResetKeepsFirstCapture(t *testing.T) {
	g := graph.New(64)
	m := NewManager(g, 48000, nil)
	k := newKnob(g)
	m.Register("x", Target{Scale: 1, Inputs: []*graph.Input{k.gain.Gain}, Capture: k.capture})
	k.set(0.2)
	m.Set("x", []float32{0}, []float32{1}, 1, 1, units.PlayOnce)
	k.value = 0.9
	m.Set("x", []float32{0}, []float32{0.5}, 1, 1, units.PlayOnce)
	if n := g.Connections(k.gain.Gain); n != 1 {
		t.Fatalf("target has %d connections, want 1", n)
	}
	m.Clear("x")
	if got := k.gain.Gain.Get(); got != 0.2 {
		t.Fatalf("restored %v, want 0.2", got)
	}
}

func TestUnknownAndRedundantCalls(t *testing.T) {
	g := graph.New(64)
	m := NewManager(g, 48000, nil)
	if m.Set("nope", nil, nil, 0, 0, 0) {
		t.Fatal("unknown id should report false")
	}
	m.Clear("nope")
	k := newKnob(g)
	m.Register("y", Target{Scale: 1, Inputs: []*graph.Input{k.gain.Gain}})
	m.Clear("y")
	if err := m.Register("y", Target{Scale: 1}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if err := m.Register("z"); err == nil {
		t.Fatal("registration without targets should fail")
	}
}

func TestActiveIsSorted(t *testing.T) {
	g := graph.New(64)
	m := NewManager(g, 48000, nil)
	for _, id := range []string{"b", "a", "c"} {
		k := newKnob(g)
		m.Register(id, Target{Scale: 1, Inputs: []*graph.Input{k.gain.Gain}, Capture: k.capture})
	}
	m.Set("c", []float32{0}, []float32{1}, 1, 1, units.PlayOnce)
	m.Set("a", []float32{0}, []float32{1}, 1, 1, units.PlayOnce)
	got := m.Active()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("active = %v", got)
	}
	m.ClearAll()
	if len(m.Active()) != 0 {
		t.Fatal("ClearAll should deactivate everything")
	}
	if ids := m.IDs(); len(ids) != 3 {
		t.Fatalf("ids = %v", ids)
	}
}
