package polysynth

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/plugins"
)

func newTestEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(append([]Option{WithOutput(OutputNone)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewEngineDefaults(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < Voices; i++ {
		if got, want := e.IsVoiceIdle(i), i >= 8; got != want {
			t.Fatalf("voice %d idle = %v, want %v", i, got, want)
		}
	}
	if got := e.MasterVolume(); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("master volume = %f, want 0.8", got)
	}
	if got := e.DelayMix(); math.Abs(got-0.3) > 1e-6 {
		t.Fatalf("delay mix = %f, want 0.3", got)
	}
	if d, w, dry := e.ResonatorBlend(); d != 0 || w != 0 || dry != 1 {
		t.Fatalf("resonator blend = %f %f %f, want 0 0 1", d, w, dry)
	}
	if e.ID() == "" {
		t.Fatal("engine id is empty")
	}
}

func TestInvalidSampleRate(t *testing.T) {
	if _, err := NewEngine(WithOutput(OutputNone), WithSampleRate(0)); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestMissingPluginFailsConstruction(t *testing.T) {
	empty := func(*Engine) PluginProvider {
		return plugin.ProviderFunc(func() []plugin.Plugin { return nil })
	}
	_, err := NewEngine(WithOutput(OutputNone), WithProvider(empty))
	if !errors.Is(err, ErrPluginMissing) {
		t.Fatalf("err = %v, want ErrPluginMissing", err)
	}
}

func TestDelayMixCrossfade(t *testing.T) {
	e := newTestEngine(t)
	cases := []struct {
		mix, wet, dry float64
	}{
		{0, 0, 1},
		{0.5, 0.375, 0.5},
		{1, 0.75, 0},
	}
	for _, tc := range cases {
		e.SetDelayMix(tc.mix)
		for _, in := range e.patch.Delay.WetGains() {
			if math.Abs(in.Get()-tc.wet) > 1e-6 {
				t.Fatalf("mix %.2f: wet gain = %f, want %f", tc.mix, in.Get(), tc.wet)
			}
		}
		for _, in := range e.patch.Distortion.DryGains() {
			if math.Abs(in.Get()-tc.dry) > 1e-6 {
				t.Fatalf("mix %.2f: dry gain = %f, want %f", tc.mix, in.Get(), tc.dry)
			}
		}
	}
}

func TestSettersClamp(t *testing.T) {
	e := newTestEngine(t)
	e.SetResonatorDamping(-5)
	if got := e.ResonatorDamping(); got != 0 {
		t.Fatalf("damping = %f, want 0", got)
	}
	e.SetResonatorDamping(5)
	if got := e.ResonatorDamping(); got != 1 {
		t.Fatalf("damping = %f, want 1", got)
	}
	e.SetMasterVolume(2)
	if got := e.MasterVolume(); got != 1 {
		t.Fatalf("master volume = %f, want 1", got)
	}
	e.SetDrive(math.NaN())
	if got := e.Drive(); got != 0 {
		t.Fatalf("drive = %f, want 0", got)
	}
	e.SetVoicePan(0, 3)
	if got := e.VoicePan(0); got != 1 {
		t.Fatalf("pan = %f, want 1", got)
	}
	e.SetDelayFeedback(2)
	if got := e.DelayFeedback(); math.Abs(got-0.95) > 1e-6 {
		t.Fatalf("feedback = %f, want 0.95", got)
	}
}

func TestDriveMovesDirectLimiters(t *testing.T) {
	e := newTestEngine(t)
	e.SetDrive(1)
	drum, fx := e.patch.DirectDrive()
	if math.Abs(drum-4) > 1e-9 || math.Abs(fx-2.5) > 1e-9 {
		t.Fatalf("direct drive = %f %f, want 4 2.5", drum, fx)
	}
}

func TestResonatorBlend(t *testing.T) {
	e := newTestEngine(t)
	e.SetResonatorMix(1)
	cases := []struct {
		target, drums, wet, dry float64
	}{
		{0, 1, 0, 1},
		{0.5, 1, 1, 0},
		{1, 0, 1, 0},
		{0.75, 0.5, 1, 0},
	}
	for _, tc := range cases {
		e.SetResonatorTargetMix(tc.target)
		d, w, dry := e.ResonatorBlend()
		if math.Abs(d-tc.drums) > 1e-9 || math.Abs(w-tc.wet) > 1e-9 || math.Abs(dry-tc.dry) > 1e-9 {
			t.Fatalf("target %.2f: blend = %f %f %f, want %f %f %f", tc.target, d, w, dry, tc.drums, tc.wet, tc.dry)
		}
	}
}

func TestStartStopIdempotent(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 3; i++ {
		if err := e.Start(); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	if got := e.monitorStarts.Load(); got != 1 {
		t.Fatalf("monitor started %d times, want 1", got)
	}
	if !e.IsRunning() {
		t.Fatal("engine should be running")
	}
	for i := 0; i < 2; i++ {
		if err := e.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}
	if e.IsRunning() {
		t.Fatal("engine should be stopped")
	}
	if err := e.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := e.monitorStarts.Load(); got != 2 {
		t.Fatalf("monitor started %d times after restart, want 2", got)
	}
}

func TestAutomationRestoresManualValue(t *testing.T) {
	ids := []struct {
		id  string
		set func(e *Engine, v float64)
		get func(e *Engine) float64
	}{
		{"delay_mix", (*Engine).SetDelayMix, (*Engine).DelayMix},
		{"distortion_mix", (*Engine).SetDistortionMix, (*Engine).DistortionMix},
		{"master_volume", (*Engine).SetMasterVolume, (*Engine).MasterVolume},
		{"resonator_damping", (*Engine).SetResonatorDamping, (*Engine).ResonatorDamping},
		{"quad_volume_1",
			func(e *Engine, v float64) { e.SetQuadVolume(1, v) },
			func(e *Engine) float64 { return e.QuadVolume(1) }},
	}
	for _, tc := range ids {
		t.Run(tc.id, func(t *testing.T) {
			e := newTestEngine(t)
			tc.set(e, 0.3)
			want := tc.get(e)
			ok := e.SetParameterAutomation(tc.id, []float32{0, 0.01}, []float32{1, 0}, 2, 0.01, AutomationLoop)
			if !ok {
				t.Fatal("automation not accepted")
			}
			if !e.IsAutomationActive(tc.id) {
				t.Fatal("automation should be active")
			}
			e.RenderSamples(0.02)
			e.ClearParameterAutomation(tc.id)
			if got := tc.get(e); got != want {
				t.Fatalf("restored %f, want %f", got, want)
			}
			if e.IsAutomationActive(tc.id) {
				t.Fatal("automation should be inactive")
			}
		})
	}
}

func TestDelayMixAutomationOwnsBothPaths(t *testing.T) {
	e := newTestEngine(t)
	e.SetDelayMix(0.3)
	e.SetParameterAutomation("delay_mix", []float32{0, 1}, []float32{1, 1}, 2, 1, AutomationOnce)
	e.RenderSamples(0.01)
	wet := e.patch.Delay.WetGains()[0]
	dry := e.patch.Distortion.DryGains()[0]
	if !wet.Connected() || !dry.Connected() {
		t.Fatal("automation should own both crossfade paths")
	}
	if math.Abs(wet.Value()-0.75) > 1e-6 || math.Abs(dry.Value()) > 1e-6 {
		t.Fatalf("wet=%f dry=%f, want 0.75 0", wet.Value(), dry.Value())
	}
	e.ClearParameterAutomation("delay_mix")
	if wet.Connected() || dry.Connected() {
		t.Fatal("clearing should hand the gains back")
	}
	if math.Abs(dry.Get()-0.7) > 1e-6 {
		t.Fatalf("dry = %f, want 0.7", dry.Get())
	}
}

func TestVoiceGateAutomationWakesVoice(t *testing.T) {
	e := newTestEngine(t)
	if !e.IsVoiceIdle(9) {
		t.Fatal("voice 9 should start idle")
	}
	if !e.SetParameterAutomation("voice_gate_9", []float32{0, 0.1}, []float32{1, 0}, 2, 0.1, AutomationOnce) {
		t.Fatal("voice gate automation not accepted")
	}
	if e.IsVoiceIdle(9) {
		t.Fatal("automating a gate should wake the voice")
	}
	e.ClearParameterAutomation("voice_gate_9")
	if e.VoiceGate(9) {
		t.Fatal("gate should be restored closed")
	}
}

func TestUnknownAutomationIsRejected(t *testing.T) {
	e := newTestEngine(t)
	if e.SetParameterAutomation("nope", []float32{0}, []float32{1}, 1, 1, AutomationOnce) {
		t.Fatal("unknown id accepted")
	}
	e.ClearParameterAutomation("nope")
	if len(e.ActiveAutomations()) != 0 {
		t.Fatal("nothing should be active")
	}
	if n := len(e.AutomationIDs()); n != 12+2*Voices+Quads {
		t.Fatalf("registered %d automation ids", n)
	}
}

func TestPortAddressing(t *testing.T) {
	e := newTestEngine(t)
	if !e.SetPortValue(plugins.URIDelay, "feedback", FloatValue(0.5)) {
		t.Fatal("known port rejected")
	}
	if v, ok := e.PortValue(plugins.URIDelay, "feedback"); !ok || plugin.Float(v) != 0.5 {
		t.Fatalf("feedback = %v, %v", v, ok)
	}
	if e.SetPortValue("polysynth:missing", "mix", FloatValue(1)) {
		t.Fatal("unknown plugin accepted")
	}
	if e.SetPortValue(plugins.URIDelay, "missing", FloatValue(1)) {
		t.Fatal("unknown symbol accepted")
	}
	if _, ok := e.PortValue(plugins.URIDelay, "missing"); ok {
		t.Fatal("unknown symbol read")
	}
	if len(e.PluginURIs()) != 13 {
		t.Fatalf("plugins = %v", e.PluginURIs())
	}
}

func TestVoiceMacroRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	e.SetVoiceTune(3, 0.6)
	if v, _ := e.PortValue(plugins.URIVoiceMacro, "tune_3"); math.Abs(float64(plugin.Float(v))-0.6) > 1e-6 {
		t.Fatalf("mirrored tune = %v", v)
	}
	e.SetPortValue(plugins.URIVoiceMacro, "tune_3", FloatValue(0.25))
	if got := e.VoiceTune(3); math.Abs(got-0.25) > 1e-6 {
		t.Fatalf("tune = %f, want 0.25", got)
	}
	e.SetPortValue(plugins.URIVoiceMacro, "gate_10", BoolValue(true))
	if e.IsVoiceIdle(10) || !e.VoiceGate(10) {
		t.Fatal("macro gate should wake and open voice 10")
	}
	e.SetPortValue(plugins.URIVoiceMacro, "engine_2", IntValue(int(EngineFM)))
	if got := e.PairEngine(2); got != EngineFM {
		t.Fatalf("engine = %v, want fm", got)
	}
}

func TestHeldQuadIsAudible(t *testing.T) {
	var tapped int
	e := newTestEngine(t, WithSampleTap(func(buf []float32) { tapped += len(buf) }))
	e.SetQuadHold(1, 1)
	out := e.RenderSamples(0.1)
	if tapped != len(out) {
		t.Fatalf("tap saw %d samples, want %d", tapped, len(out))
	}
	var peak float64
	for _, s := range out {
		peak = max(peak, math.Abs(float64(s)))
	}
	if peak == 0 {
		t.Fatal("a held quad should be audible")
	}
	if s := e.Monitor(); s.PeakL == 0 || s.VoiceLevels[4] == 0 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestGatedVoiceAndHeldQuadStayFinite(t *testing.T) {
	e := newTestEngine(t)
	e.SetVoiceGate(4, true)
	e.SetQuadHold(1, 1)
	out := e.RenderSamples(1.5)
	var peak float64
	for i, s := range out {
		x := float64(s)
		if math.IsNaN(x) || math.Abs(x) > 8 {
			t.Fatalf("sample %d = %v, want finite within 8", i, x)
		}
		peak = max(peak, math.Abs(x))
	}
	if peak == 0 {
		t.Fatal("a gated voice over a held quad should be audible")
	}
	for i, lv := range e.Monitor().VoiceLevels {
		if x := float64(lv); math.IsNaN(x) || x > 4 {
			t.Fatalf("voice %d level = %v", i, x)
		}
	}
}

func TestAutomatedGateStrikesDrumEngine(t *testing.T) {
	e := newTestEngine(t)
	e.SetPairEngine(0, EngineDrum)
	if !e.SetParameterAutomation("voice_gate_0", []float32{0, 1}, []float32{1, 1}, 2, 1, AutomationOnce) {
		t.Fatal("voice gate automation not accepted")
	}
	e.RenderSamples(0.05)
	lv := float64(e.Monitor().VoiceLevels[0])
	if lv <= 0 || math.IsNaN(lv) || math.IsInf(lv, 0) {
		t.Fatalf("automated drum voice level = %v, want finite and positive", lv)
	}
}

func TestStopDoesNotWaitOnListener(t *testing.T) {
	ticked := make(chan struct{}, 1)
	var e *Engine
	e = newTestEngine(t,
		WithMonitorInterval(time.Millisecond),
		WithMonitorListener(func(Snapshot) {
			time.Sleep(5 * time.Millisecond)
			_ = e.IsRunning()
			_ = e.Monitor()
			select {
			case ticked <- struct{}{}:
			default:
			}
		}),
	)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never ran")
	}
	stopped := make(chan error, 1)
	go func() { stopped <- e.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind the monitor listener")
	}
	if e.IsRunning() {
		t.Fatal("engine should be stopped")
	}
}

func TestSilentByDefault(t *testing.T) {
	e := newTestEngine(t)
	for _, s := range e.RenderSamples(0.05) {
		if s != 0 {
			t.Fatal("an untouched engine should be silent")
		}
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0.5, -0.5}, 48000, 2)
	if len(wav) != 52 {
		t.Fatalf("len = %d, want 52", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatal("bad chunk ids")
	}
	if f := binary.LittleEndian.Uint16(wav[20:]); f != 3 {
		t.Fatalf("format = %d, want IEEE float", f)
	}
	if sr := binary.LittleEndian.Uint32(wav[24:]); sr != 48000 {
		t.Fatalf("sample rate = %d", sr)
	}
	if s := math.Float32frombits(binary.LittleEndian.Uint32(wav[44:])); s != 0.5 {
		t.Fatalf("first sample = %f", s)
	}
}

func BenchmarkProcess(b *testing.B) {
	e := newTestEngine(b)
	e.SetQuadHold(0, 1)
	e.SetQuadHold(1, 1)
	buf := make([]float32, 2*256)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Process(buf)
	}
}
