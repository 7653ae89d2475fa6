package polysynth

import (
	"strconv"
	"strings"

	"github.com/cbegin/polysynth-go/internal/pairengine"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/voice"
	"github.com/cbegin/polysynth-go/internal/wiring"
)

// ModSource selects what modulates a voice pair.
type ModSource = voice.ModSource

const (
	ModOff     = voice.ModOff
	ModLFO     = voice.ModLFO
	ModVoiceFM = voice.ModVoiceFM
	ModFlux    = voice.ModFlux
)

// EngineKind selects a pair's alternate synthesis engine.
type EngineKind = pairengine.Kind

const (
	EngineNone      = pairengine.KindNone
	EngineFM        = pairengine.KindFM
	EngineWavetable = pairengine.KindWavetable
	EngineChip      = pairengine.KindChip
	EngineDrum      = pairengine.KindDrum
)

// Drum voices.
const (
	DrumKick  = 0
	DrumSnare = 1
	DrumHat   = 2
)

// Quad routing sources.
const (
	TriggerInternal = voice.TriggerInternal
	PitchNone       = voice.PitchNone
	PitchLFO        = voice.PitchLFO
)

// Source selector tables.
const (
	WarpsSourceNone   = wiring.WarpsSourceNone
	WarpsSourceSynth  = wiring.WarpsSourceSynth
	WarpsSourceDrums  = wiring.WarpsSourceDrums
	WarpsSourceLFO    = wiring.WarpsSourceLFO
	WarpsSourceGrains = wiring.WarpsSourceGrains
	WarpsSourceLooper = wiring.WarpsSourceLooper

	ClockInternal = wiring.ClockInternal
	ClockLFO      = wiring.ClockLFO
	ClockLFOA     = wiring.ClockLFOA
	ClockLFOB     = wiring.ClockLFOB
	ClockVibrato  = wiring.ClockVibrato
)

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func port(p plugin.Plugin, symbol string) float64 {
	v, ok := p.PortValue(symbol)
	if !ok {
		return 0
	}
	return float64(plugin.Float(v))
}

func setPort(p plugin.Plugin, symbol string, v float64) {
	p.SetPortValue(symbol, plugin.FloatValue(v))
}

func (e *Engine) mirror(symbol string, i int, v PortValue) {
	e.patch.Macro.Mirror(symbol+"_"+strconv.Itoa(i), v)
}

// Master.

func (e *Engine) SetMasterVolume(v float64) {
	e.patch.MasterVolumeInput().Set(clamp(v, 0, 1))
}

func (e *Engine) MasterVolume() float64 { return e.patch.MasterVolumeInput().Get() }

// SetEQBand sets a master EQ band gain (0-4, 1 is unity). Band edges are
// 200 Hz, 800 Hz, 2.5 kHz and 8 kHz.
func (e *Engine) SetEQBand(band int, gain float64) { e.patch.SetEQGain(band, gain) }

func (e *Engine) EQBand(band int) float64 { return e.patch.EQGain(band) }

// SetMasterCompressor enables or bypasses the master bus compressor.
func (e *Engine) SetMasterCompressor(on bool) { e.patch.SetMasterCompressor(on) }
func (e *Engine) MasterCompressor() bool      { return e.patch.MasterCompressor() }

// Voices.

func (e *Engine) SetVoiceTune(i int, tune float64) {
	e.voices.SetTune(i, tune)
	e.mirror("tune", i, FloatValue(e.voices.Tune(i)))
}

func (e *Engine) VoiceTune(i int) float64 { return e.voices.Tune(i) }

// VoiceFrequency is the effective frequency of voice i in Hz.
func (e *Engine) VoiceFrequency(i int) float64 {
	if v := e.voices.Voice(i); v != nil {
		return v.Frequency()
	}
	return 0
}

// SetVoiceGate opens or closes the gate of voice i. An idle voice is woken
// before the gate is written. Closing the gate resets the wobble to 1.
func (e *Engine) SetVoiceGate(i int, on bool) {
	e.voices.SetGate(i, on)
	e.mirror("gate", i, BoolValue(on))
}

func (e *Engine) VoiceGate(i int) bool {
	v := e.voices.Voice(i)
	return v != nil && v.Gate()
}

func (e *Engine) SetVoiceHold(i int, level float64) {
	if v := e.voices.Voice(i); v != nil {
		v.SetHoldLevel(level)
	}
}

func (e *Engine) VoiceHold(i int) float64 {
	if v := e.voices.Voice(i); v != nil {
		return v.HoldLevel()
	}
	return 0
}

func (e *Engine) SetVoiceEnvelopeSpeed(i int, speed float64) {
	if v := e.voices.Voice(i); v != nil {
		v.SetEnvelopeSpeed(speed)
		e.mirror("env_speed", i, FloatValue(v.EnvelopeSpeed()))
	}
}

func (e *Engine) VoiceEnvelopeSpeed(i int) float64 {
	if v := e.voices.Voice(i); v != nil {
		return v.EnvelopeSpeed()
	}
	return 0
}

func (e *Engine) SetVoiceFMDepth(i int, depth float64) {
	if v := e.voices.Voice(i); v != nil {
		v.SetFMDepth(depth)
		e.mirror("fm_depth", i, FloatValue(v.FMDepth()))
	}
}

func (e *Engine) VoiceFMDepth(i int) float64 {
	if v := e.voices.Voice(i); v != nil {
		return v.FMDepth()
	}
	return 0
}

// SetVoiceCoupling sets how strongly voice i follows its pair partner.
func (e *Engine) SetVoiceCoupling(i int, depth float64) {
	if v := e.voices.Voice(i); v != nil {
		v.SetCouplingDepth(depth)
	}
}

// SetVoiceWobble layers a transient gain in 0..2 over voice i.
func (e *Engine) SetVoiceWobble(i int, m float64) {
	if v := e.voices.Voice(i); v != nil {
		v.SetWobbleMultiplier(m)
	}
}

func (e *Engine) ResetVoiceWobble(i int) {
	if v := e.voices.Voice(i); v != nil {
		v.ResetWobble()
	}
}

// FadeVoiceVolume ramps the volume of voice i to target over seconds.
func (e *Engine) FadeVoiceVolume(i int, target, seconds float64) {
	if v := e.voices.Voice(i); v != nil {
		v.FadeVolume(target, seconds)
	}
}

func (e *Engine) SetVoicePan(i int, pan float64) {
	e.patch.Mixer.SetPan(i, float32(clamp(pan, -1, 1)))
}

func (e *Engine) VoicePan(i int) float64 { return float64(e.patch.Mixer.Pan(i)) }

func (e *Engine) SetVoiceIdle(i int, idle bool) { e.voices.SetIdle(i, idle) }
func (e *Engine) IsVoiceIdle(i int) bool        { return e.voices.IsIdle(i) }

// SetVoiceFeedback sets the self-feedback of the alternate engine voice i
// plays through. Without one it has no effect.
func (e *Engine) SetVoiceFeedback(i int, amount float64) { e.voices.SetVoiceFeedback(i, amount) }

// Pairs.

func (e *Engine) SetPairSharpness(p int, s float64) {
	e.voices.SetPairSharpness(p, s)
	e.mirror("sharpness", p, FloatValue(e.voices.PairSharpness(p)))
}

func (e *Engine) PairSharpness(p int) float64 { return e.voices.PairSharpness(p) }

func (e *Engine) SetPairModSource(p int, src ModSource) {
	e.voices.SetModSource(p, src)
	e.mirror("mod_source", p, IntValue(e.voices.ModSource(p)))
}

func (e *Engine) PairModSource(p int) ModSource { return e.voices.ModSource(p) }

// SetPairEngine swaps the alternate engine of pair p; EngineNone returns it
// to its own oscillators.
func (e *Engine) SetPairEngine(p int, kind EngineKind) {
	e.voices.SetPairEngine(p, kind)
	e.mirror("engine", p, IntValue(e.voices.PairEngine(p)))
	e.log.Debug("pair engine", "pair", p, "kind", e.voices.PairEngine(p).String())
}

func (e *Engine) PairEngine(p int) EngineKind { return e.voices.PairEngine(p) }

func (e *Engine) SetPairTimbre(p int, x float64)     { e.voices.SetPairTimbre(p, x) }
func (e *Engine) SetPairMorph(p int, x float64)      { e.voices.SetPairMorph(p, x) }
func (e *Engine) SetPairHarmonics(p int, x float64)  { e.voices.SetPairHarmonics(p, x) }
func (e *Engine) SetPairTimbreMod(p int, x float64)  { e.voices.SetPairTimbreMod(p, x) }
func (e *Engine) PairParams(p int) (t, m, h float64) { return e.voices.PairParams(p) }

// SetFMCrossQuad switches voice FM between in-pair and cross-quad routing.
func (e *Engine) SetFMCrossQuad(on bool) { e.voices.SetCrossQuad(on) }
func (e *Engine) FMCrossQuad() bool      { return e.voices.CrossQuad() }

// Quads.

func (e *Engine) SetQuadPitch(q int, pitch float64) {
	e.voices.SetQuadPitch(q, pitch)
	e.mirror("quad_pitch", q, FloatValue(e.voices.QuadPitch(q)))
}

func (e *Engine) QuadPitch(q int) float64 { return e.voices.QuadPitch(q) }

func (e *Engine) SetQuadHold(q int, hold float64) {
	e.voices.SetQuadHold(q, hold)
	e.mirror("quad_hold", q, FloatValue(e.voices.QuadHold(q)))
}

func (e *Engine) QuadHold(q int) float64 { return e.voices.QuadHold(q) }

func (e *Engine) SetQuadVolume(q int, vol float64) {
	e.voices.SetQuadVolume(q, vol)
	e.mirror("quad_volume", q, FloatValue(e.voices.QuadVolume(q)))
}

func (e *Engine) QuadVolume(q int) float64 { return e.voices.QuadVolume(q) }

// SetQuadTriggerSource routes flux gate 1-3 into the envelopes of quad q,
// or none (0).
func (e *Engine) SetQuadTriggerSource(q, src int) { e.voices.SetQuadTriggerSource(q, src) }
func (e *Engine) QuadTriggerSource(q int) int     { return e.voices.QuadTriggerSource(q) }

// SetQuadPitchSource routes flux CV 1-3 or the LFO (4) into the pitch of
// quad q, or none (0).
func (e *Engine) SetQuadPitchSource(q, src int) { e.voices.SetQuadPitchSource(q, src) }
func (e *Engine) QuadPitchSource(q int) int     { return e.voices.QuadPitchSource(q) }

// SetQuadEnvelopeMode selects gate (0) or trigger (1) envelopes for quad q.
func (e *Engine) SetQuadEnvelopeMode(q, mode int) { e.voices.SetQuadEnvelopeMode(q, mode) }
func (e *Engine) QuadEnvelopeMode(q int) int      { return e.voices.QuadEnvelopeMode(q) }

// Effects.

// SetDrive sets the distortion drive in 0..1 and, in lockstep, the drives
// of the drum and fx direct limiters that bypass the distortion.
func (e *Engine) SetDrive(drive float64) {
	drive = clamp(drive, 0, 1)
	setPort(e.patch.Distortion, "drive", drive)
	e.patch.SetDirectDrive(1+drive*3, 1+drive*1.5)
}

func (e *Engine) Drive() float64 { return port(e.patch.Distortion, "drive") }

// SetDelayMix crossfades the delay: the wet gains follow mix and the
// distortion dry level follows 1-mix.
func (e *Engine) SetDelayMix(mix float64) {
	mix = clamp(mix, 0, 1)
	setPort(e.patch.Delay, "mix", mix)
	setPort(e.patch.Distortion, "dryLevel", 1-mix)
}

func (e *Engine) DelayMix() float64 { return port(e.patch.Delay, "mix") }

func (e *Engine) SetDistortionMix(mix float64) { setPort(e.patch.Distortion, "mix", mix) }
func (e *Engine) DistortionMix() float64       { return port(e.patch.Distortion, "mix") }

// SetDelayTime sets line 1 or 2 in seconds.
func (e *Engine) SetDelayTime(line int, seconds float64) {
	setPort(e.patch.Delay, delayTimeSymbol(line), seconds)
}

func (e *Engine) DelayTime(line int) float64 { return port(e.patch.Delay, delayTimeSymbol(line)) }

func delayTimeSymbol(line int) string {
	if line == 2 {
		return "time2"
	}
	return "time1"
}

func (e *Engine) SetDelayFeedback(fb float64) { setPort(e.patch.Delay, "feedback", fb) }
func (e *Engine) DelayFeedback() float64      { return port(e.patch.Delay, "feedback") }

// SetResonatorMix sets how much of the resonator is heard.
func (e *Engine) SetResonatorMix(mix float64) {
	e.mu.Lock()
	e.state.resonatorMix = clamp(mix, 0, 1)
	e.mu.Unlock()
	e.applyResonatorBlend()
}

func (e *Engine) ResonatorMix() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.resonatorMix
}

// SetResonatorTargetMix picks what the resonator affects: 0 drums only,
// 0.5 both, 1 synth only.
func (e *Engine) SetResonatorTargetMix(t float64) {
	e.mu.Lock()
	e.state.resonatorTargetMix = clamp(t, 0, 1)
	e.mu.Unlock()
	e.applyResonatorBlend()
}

func (e *Engine) ResonatorTargetMix() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.resonatorTargetMix
}

// ResonatorBlend returns the drum excite, synth wet and synth dry gains.
func (e *Engine) ResonatorBlend() (drumExcite, mixWet, mixDry float64) {
	return e.patch.Resonator.Blend()
}

func (e *Engine) applyResonatorBlend() {
	e.mu.Lock()
	m, t := e.state.resonatorMix, e.state.resonatorTargetMix
	e.mu.Unlock()
	drums := clamp(2*(1-t), 0, 1)
	synth := clamp(2*t, 0, 1)
	e.patch.Resonator.SetBlend(m*drums, m*synth, 1-m*synth)
}

func (e *Engine) SetResonatorFrequency(x float64)  { setPort(e.patch.Resonator, "frequency", x) }
func (e *Engine) ResonatorFrequency() float64      { return port(e.patch.Resonator, "frequency") }
func (e *Engine) SetResonatorStructure(x float64)  { setPort(e.patch.Resonator, "structure", x) }
func (e *Engine) ResonatorStructure() float64      { return port(e.patch.Resonator, "structure") }
func (e *Engine) SetResonatorBrightness(x float64) { setPort(e.patch.Resonator, "brightness", x) }
func (e *Engine) ResonatorBrightness() float64     { return port(e.patch.Resonator, "brightness") }
func (e *Engine) SetResonatorDamping(x float64)    { setPort(e.patch.Resonator, "damping", x) }
func (e *Engine) ResonatorDamping() float64        { return port(e.patch.Resonator, "damping") }
func (e *Engine) SetResonatorPosition(x float64)   { setPort(e.patch.Resonator, "position", x) }
func (e *Engine) ResonatorPosition() float64       { return port(e.patch.Resonator, "position") }

// Drums.

// TriggerDrum strikes drum voice v on the next block.
func (e *Engine) TriggerDrum(v int) { e.patch.Drum.Trigger(v) }

func (e *Engine) SetDrumAccent(x float64) { setPort(e.patch.Drum, "accent", x) }
func (e *Engine) SetDrumLevel(x float64)  { setPort(e.patch.Drum, "level", x) }

// SetDrumTriggerSource routes flux gate 1-3 into drum voice v, or none (0).
func (e *Engine) SetDrumTriggerSource(v, src int) { e.patch.SetDrumTriggerSource(v, src) }
func (e *Engine) DrumTriggerSource(v int) int     { return e.patch.DrumTriggerSource(v) }

// SetDrumPitchSource routes flux CV 1-3 or the LFO (4) into drum voice v.
func (e *Engine) SetDrumPitchSource(v, src int) { e.patch.SetDrumPitchSource(v, src) }
func (e *Engine) DrumPitchSource(v int) int     { return e.patch.DrumPitchSource(v) }

// Modulation.

func (e *Engine) SetVibratoDepth(d float64) { setPort(e.patch.Vibrato, "depth", d) }
func (e *Engine) VibratoDepth() float64     { return port(e.patch.Vibrato, "depth") }
func (e *Engine) SetVibratoRate(hz float64) { setPort(e.patch.Vibrato, "rate", hz) }

// SetBend moves the bend target in -1..1; the position springs toward it.
func (e *Engine) SetBend(x float64)              { setPort(e.patch.Bender, "bend", x) }
func (e *Engine) SetBendRange(semitones float64) { setPort(e.patch.Bender, "range", semitones) }
func (e *Engine) BendPosition() float64          { return float64(e.patch.Bender.Position()) }
func (e *Engine) SetLFOMode(mode int)            { e.patch.LFO.SetPortValue("mode", IntValue(mode)) }
func (e *Engine) SetLFOFeedback(amount float64)  { setPort(e.patch.LFO, "feedback", amount) }
func (e *Engine) LFOFeedback() float64           { return port(e.patch.LFO, "feedback") }
func (e *Engine) LFOFrequency(which int) float64 { return port(e.patch.LFO, lfoSymbol("freq", which)) }
func (e *Engine) SetLFOWave(which, wave int)     { e.patch.LFO.SetPortValue(lfoSymbol("wave", which), IntValue(wave)) }
func (e *Engine) SetLFOFrequency(which int, hz float64) {
	setPort(e.patch.LFO, lfoSymbol("freq", which), hz)
}

func lfoSymbol(prefix string, which int) string {
	if which == 1 {
		return prefix + "_b"
	}
	return prefix + "_a"
}

// Grains, looper and warps.

func (e *Engine) SetGrainsMix(x float64)      { setPort(e.patch.Grains, "mix", x) }
func (e *Engine) SetGrainsPosition(x float64) { setPort(e.patch.Grains, "position", x) }
func (e *Engine) SetGrainsSize(x float64)     { setPort(e.patch.Grains, "size", x) }
func (e *Engine) SetGrainsPitch(oct float64)  { setPort(e.patch.Grains, "pitch", oct) }
func (e *Engine) SetGrainsDensity(x float64)  { setPort(e.patch.Grains, "density", x) }
func (e *Engine) SetGrainsTexture(x float64)  { setPort(e.patch.Grains, "texture", x) }

func (e *Engine) LooperRecord(on bool)  { e.patch.Looper.SetPortValue("record", BoolValue(on)) }
func (e *Engine) LooperPlay(on bool)    { e.patch.Looper.SetPortValue("play", BoolValue(on)) }
func (e *Engine) LooperOverdub(on bool) { e.patch.Looper.SetPortValue("overdub", BoolValue(on)) }
func (e *Engine) LooperClear()          { e.patch.Looper.SetPortValue("clear", BoolValue(true)) }
func (e *Engine) SetLooperLevel(x float64) {
	setPort(e.patch.Looper, "level", x)
}

// LooperPosition is the playback position within the loop, 0..1.
func (e *Engine) LooperPosition() float64 { return e.patch.Looper.Position() }

func (e *Engine) SetWarpsAlgorithm(a int) { e.patch.Warps.SetPortValue("algorithm", IntValue(a)) }
func (e *Engine) SetWarpsTimbre(x float64) {
	setPort(e.patch.Warps, "timbre", x)
}
func (e *Engine) SetWarpsMix(x float64) { setPort(e.patch.Warps, "mix", x) }

func (e *Engine) SetWarpsCarrierSource(src int)   { e.patch.SetWarpsCarrierSource(src) }
func (e *Engine) WarpsCarrierSource() int         { return e.patch.WarpsCarrierSource() }
func (e *Engine) SetWarpsModulatorSource(src int) { e.patch.SetWarpsModulatorSource(src) }
func (e *Engine) WarpsModulatorSource() int       { return e.patch.WarpsModulatorSource() }

// Flux.

func (e *Engine) SetFluxRate(hz float64)  { setPort(e.patch.Flux, "rate", hz) }
func (e *Engine) SetFluxSpread(x float64) { setPort(e.patch.Flux, "spread", x) }
func (e *Engine) SetFluxBias(x float64)   { setPort(e.patch.Flux, "bias", x) }
func (e *Engine) SetFluxSteps(n int)      { e.patch.Flux.SetPortValue("steps", IntValue(n)) }
func (e *Engine) SetFluxDejaVu(x float64) { setPort(e.patch.Flux, "dejavu", x) }
func (e *Engine) SetFluxClockSource(src int) {
	e.patch.SetFluxClockSource(src)
}
func (e *Engine) FluxClockSource() int { return e.patch.FluxClockSource() }

// handleMacro applies a write to a voice macro port. Symbols are
// "<control>_<index>".
func (e *Engine) handleMacro(symbol string, v PortValue) {
	cut := strings.LastIndexByte(symbol, '_')
	if cut < 0 {
		return
	}
	i, err := strconv.Atoi(symbol[cut+1:])
	if err != nil {
		return
	}
	x := float64(plugin.Float(v))
	switch symbol[:cut] {
	case "tune":
		e.voices.SetTune(i, x)
	case "gate":
		e.voices.SetGate(i, x != 0)
	case "fm_depth":
		e.SetVoiceFMDepth(i, x)
	case "env_speed":
		e.SetVoiceEnvelopeSpeed(i, x)
	case "sharpness":
		e.voices.SetPairSharpness(i, x)
	case "mod_source":
		e.voices.SetModSource(i, ModSource(int(x)))
	case "engine":
		e.SetPairEngine(i, EngineKind(int(x)))
	case "quad_pitch":
		e.voices.SetQuadPitch(i, x)
	case "quad_hold":
		e.voices.SetQuadHold(i, x)
	case "quad_volume":
		e.voices.SetQuadVolume(i, x)
	default:
		e.log.Debug("unknown macro", "symbol", symbol)
	}
}
