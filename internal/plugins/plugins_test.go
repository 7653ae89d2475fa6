package plugins

import (
	"math"
	"testing"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/units"
)

const sr = 48000

func energy(buf []float32) float64 {
	var e float64
	for _, s := range buf {
		e += math.Abs(float64(s))
	}
	return e
}

func initAll(ps ...plugin.Plugin) {
	for _, p := range ps {
		p.Initialize()
	}
}

func TestProviderSuppliesEveryType(t *testing.T) {
	g := graph.New(0)
	r := plugin.NewRegistry(NewProvider(g, sr))
	if len(r.All()) != 13 {
		t.Fatalf("expected 13 plugins, got %d", len(r.All()))
	}
	if _, ok := plugin.Find[*Resonator](r); !ok {
		t.Fatal("resonator missing")
	}
	if _, ok := plugin.Find[*VoiceMacro](r); !ok {
		t.Fatal("voice macro missing")
	}
	for _, uri := range []string{URIDelay, URIDistortion, URIStereoMixer, URIVibrato, URIBender, URIDrum,
		URIResonator, URIGrains, URILooper, URIWarps, URIFlux, URIDualLFO, URIVoiceMacro} {
		if _, ok := r.ByURI(uri); !ok {
			t.Fatalf("%s not registered", uri)
		}
	}
}

func TestDelayMixScalesWetGains(t *testing.T) {
	d := NewDelay(graph.New(0), sr)
	d.Initialize()
	d.SetFloat("mix", 1)
	for _, in := range d.WetGains() {
		if in.Get() != DelayWetScale {
			t.Fatalf("wet gain = %f, want %f", in.Get(), DelayWetScale)
		}
	}
	d.SetFloat("mix", 0)
	for _, in := range d.WetGains() {
		if in.Get() != 0 {
			t.Fatalf("wet gain = %f, want 0", in.Get())
		}
	}
}

func TestDelayEchoesInput(t *testing.T) {
	g := graph.New(0)
	d := NewDelay(g, sr)
	src := units.NewRamp(sr, 1)
	g.Add(src)
	d.Initialize()
	d.SetFloat("time1", 0.01)
	d.SetFloat("mix", 1)
	g.Connect(src.Out, d.Input("inL"))
	for i := 0; i < 4; i++ {
		g.Render(256)
	}
	if energy(d.Output("outL").Buffer(256)) == 0 {
		t.Fatal("expected echo on the left channel")
	}
}

func TestDistortionMixCrossfades(t *testing.T) {
	d := NewDistortion(graph.New(0), sr)
	d.Initialize()
	d.SetFloat("mix", 0.25)
	if got := d.DistGains()[0].Get(); math.Abs(got-0.25) > 1e-6 {
		t.Fatalf("dist gain = %f", got)
	}
	if got := d.CleanGains()[1].Get(); math.Abs(got-0.75) > 1e-6 {
		t.Fatalf("clean gain = %f", got)
	}
	d.SetFloat("drive", 1)
	if got := d.DriveInput().Get(); got != 1+MaxDrive {
		t.Fatalf("drive = %f", got)
	}
}

func TestMixerPansHardLeft(t *testing.T) {
	g := graph.New(0)
	m := NewStereoMixer(g)
	src := units.NewRamp(sr, 0.5)
	g.Add(src)
	m.Initialize()
	g.Connect(src.Out, m.VoiceInput(3))
	m.SetPan(3, -1)
	g.Render(64)
	l, r := m.Output("outL").Buffer(64), m.Output("outR").Buffer(64)
	if math.Abs(float64(l[10])-0.5) > 1e-5 || math.Abs(float64(r[10])) > 1e-5 {
		t.Fatalf("hard left pan: l=%f r=%f", l[10], r[10])
	}
	if m.VoiceInput(12) != nil {
		t.Fatal("out of range channel should be nil")
	}
}

func TestResonatorPortsClamp(t *testing.T) {
	r := NewResonator(graph.New(0), sr)
	r.Initialize()
	r.SetPortValue("damping", plugin.FloatValue(-5))
	if v, _ := r.PortValue("damping"); v != plugin.FloatValue(0) {
		t.Fatalf("damping = %v, want 0", v)
	}
	if r.DampingInput().Get() != 0 {
		t.Fatal("damping not forwarded")
	}
	r.SetPortValue("damping", plugin.FloatValue(5))
	if v, _ := r.PortValue("damping"); v != plugin.FloatValue(1) {
		t.Fatalf("damping = %v, want 1", v)
	}
}

func TestResonatorRingsFromDrums(t *testing.T) {
	g := graph.New(0)
	r := NewResonator(g, sr)
	d := NewDrum(g, sr)
	initAll(r, d)
	g.Connect(d.Output("outL"), r.Input("drums"))
	r.SetBlend(1, 0, 1)
	d.Trigger(DrumKick)
	var e float64
	for i := 0; i < 8; i++ {
		g.Render(256)
		e += energy(r.Output("outL").Buffer(256))
	}
	if e == 0 {
		t.Fatal("resonator silent")
	}
}

func TestDrumTriggerInputStrikes(t *testing.T) {
	g := graph.New(0)
	d := NewDrum(g, sr)
	d.Initialize()
	g.Render(256)
	if energy(d.Output("outL").Buffer(256)) != 0 {
		t.Fatal("expected silence before any trigger")
	}
	d.TriggerInput(DrumSnare).Set(1)
	g.Render(256)
	if energy(d.Output("outL").Buffer(256)) == 0 {
		t.Fatal("rising trigger should strike the snare")
	}
	if d.TriggerInput(7) != nil {
		t.Fatal("unknown voice should be nil")
	}
}

func TestFluxInternalClockEmitsGates(t *testing.T) {
	g := graph.New(0)
	f := NewFlux(g, sr)
	f.Initialize()
	f.SetFloat("rate", 20)
	f.SetFloat("bias", 1)
	var highs int
	for i := 0; i < sr/256; i++ {
		g.Render(256)
		for _, s := range f.Gate(0).Buffer(256) {
			if s > 0.5 {
				highs++
			}
		}
	}
	if highs == 0 {
		t.Fatal("expected gates from the internal clock")
	}
}

func TestFluxDejaVuRepeats(t *testing.T) {
	g := graph.New(0)
	f := NewFlux(g, sr)
	f.Initialize()
	f.SetFloat("rate", 50)
	f.SetPortValue("steps", plugin.IntValue(2))
	f.SetFloat("spread", 1)
	for i := 0; i < 20; i++ {
		g.Render(256)
	}
	f.SetFloat("dejavu", 1)
	seen := map[float32]bool{}
	for i := 0; i < 40; i++ {
		g.Render(256)
		seen[f.CV(0).Last()] = true
	}
	if len(seen) > 2 {
		t.Fatalf("locked two-step loop produced %d distinct CVs", len(seen))
	}
}

func TestLooperRecordsThenPlays(t *testing.T) {
	g := graph.New(0)
	lp := NewLooper(g, sr)
	src := units.NewRamp(sr, 0.5)
	g.Add(src)
	lp.Initialize()
	g.Connect(src.Out, lp.Input("inL"))
	lp.SetPortValue("record", plugin.BoolValue(true))
	for i := 0; i < 4; i++ {
		g.Render(256)
	}
	lp.SetPortValue("record", plugin.BoolValue(false))
	if !lp.Playing() {
		t.Fatal("closing the first pass should start playback")
	}
	src.Jump(0)
	g.Render(256)
	if energy(lp.Output("outL").Buffer(256)) == 0 {
		t.Fatal("expected the recorded loop")
	}
	lp.SetPortValue("clear", plugin.BoolValue(true))
	g.Render(256)
	if energy(lp.Output("outL").Buffer(256)) != 0 {
		t.Fatal("clear should silence the loop")
	}
}

func TestWarpsRingModulates(t *testing.T) {
	g := graph.New(0)
	w := NewWarps(g)
	c, m := units.NewRamp(sr, 0.5), units.NewRamp(sr, 0.5)
	g.Add(c, m)
	w.Initialize()
	g.Connect(c.Out, w.CarrierInput())
	g.Connect(m.Out, w.ModulatorInput())
	w.SetPortValue("algorithm", plugin.IntValue(WarpsRing))
	w.SetFloat("timbre", 0)
	w.SetFloat("mix", 1)
	g.Render(16)
	if got := w.Output("outL").Buffer(16)[0]; math.Abs(float64(got)-0.25) > 1e-6 {
		t.Fatalf("ring = %f, want 0.25", got)
	}
}

func TestDualLFOModes(t *testing.T) {
	g := graph.New(0)
	d := NewDualLFO(g, sr)
	d.Initialize()
	d.SetPortValue("wave_a", plugin.IntValue(units.WaveSquare))
	d.SetPortValue("wave_b", plugin.IntValue(units.WaveSquare))
	d.SetPortValue("mode", plugin.IntValue(LFOModeMax))
	g.Render(16)
	if got := d.Output("out").Buffer(16)[0]; got != 1 {
		t.Fatalf("max of two high squares = %f", got)
	}
	a, b := d.Levels()
	if a != 1 || b != 1 {
		t.Fatalf("levels = %f %f", a, b)
	}
}

func TestBenderSpringsTowardTarget(t *testing.T) {
	g := graph.New(0)
	b := NewBender(g, sr)
	b.Initialize()
	b.SetFloat("bend", 1)
	for i := 0; i < 40; i++ {
		g.Render(256)
	}
	if pos := b.Position(); math.Abs(float64(pos)-1) > 0.01 {
		t.Fatalf("position = %f, want ~1", pos)
	}
	want := float32(2.0 / 12)
	if got := b.Output("pitch").Last(); math.Abs(float64(got-want)) > 0.01 {
		t.Fatalf("pitch = %f, want ~%f", got, want)
	}
}

func TestVoiceMacroForwardsToHandler(t *testing.T) {
	m := NewVoiceMacro(graph.New(0))
	m.Initialize()
	var gotSym string
	var gotVal plugin.PortValue
	m.SetHandler(func(sym string, v plugin.PortValue) { gotSym, gotVal = sym, v })
	m.SetPortValue("quad_hold_1", plugin.FloatValue(0.7))
	if gotSym != "quad_hold_1" || gotVal != plugin.FloatValue(0.7) {
		t.Fatalf("handler got %q %v", gotSym, gotVal)
	}
	gotSym = ""
	m.Mirror("tune_2", plugin.FloatValue(0.1))
	if gotSym != "" {
		t.Fatal("Mirror should not notify")
	}
	if v, _ := m.PortValue("tune_2"); v != plugin.FloatValue(0.1) {
		t.Fatalf("mirrored value = %v", v)
	}
}
