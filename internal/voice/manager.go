package voice

import (
	"math"
	"sync"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/pairengine"
)

// ModSource selects what drives a pair's modulation inputs.
type ModSource int

const (
	ModOff ModSource = iota
	ModLFO
	ModVoiceFM
	ModFlux
)

var modSourceNames = [...]string{"off", "lfo", "voice_fm", "flux"}

func (m ModSource) String() string {
	if m < 0 || int(m) >= len(modSourceNames) {
		return "unknown"
	}
	return modSourceNames[m]
}

// Quad trigger and pitch sources. Trigger 1-3 and pitch 1-3 select a flux
// channel; pitch 4 is the LFO.
const (
	TriggerInternal = 0
	PitchNone       = 0
	PitchLFO        = 4
)

// crossQuadFM maps a pair to the pair that modulates it when the FM
// structure is cross-quad.
var crossQuadFM = [Pairs]int{2, 3, 4, 5, 0, 1}

// Sources are the outputs of other plugins the manager routes into voices.
// Nil entries leave the route unconnected.
type Sources struct {
	LFO      *graph.Output
	FluxGate [3]*graph.Output
	FluxCV   [3]*graph.Output
}

type pairState struct {
	sharpness float64
	modSource ModSource
	kind      pairengine.Kind
	engines   map[pairengine.Kind]pairengine.Engine
	timbre    float64
	morph     float64
	harmonics float64
	timbreMod float64
}

type quadState struct {
	pitch         float64
	hold          float64
	volume        float64
	triggerSource int
	pitchSource   int
	envMode       int
}

// Manager owns the voices and is the only place a voice frequency is
// computed. Control methods may be called from any goroutine.
type Manager struct {
	mu         sync.Mutex
	g          *graph.Graph
	sampleRate float64
	factory    pairengine.Factory
	voices     [Count]*Voice
	tune       [Count]float64
	pairs      [Pairs]pairState
	quads      [Quads]quadState
	crossQuad  bool
	src        Sources
}

// NewManager builds the twelve voices in g. Voices 8-11 start idle. A nil
// factory uses pairengine.New.
func NewManager(g *graph.Graph, sampleRate float64, factory pairengine.Factory) *Manager {
	if factory == nil {
		factory = pairengine.New
	}
	m := &Manager{g: g, sampleRate: sampleRate, factory: factory}
	for i := range m.voices {
		m.voices[i] = newVoice(g, i, sampleRate)
		m.tune[i] = 0.5
	}
	for p := range m.pairs {
		m.pairs[p] = pairState{
			engines:   make(map[pairengine.Kind]pairengine.Engine),
			timbre:    0.5,
			morph:     0.5,
			harmonics: 0.5,
			timbreMod: 0.5,
		}
	}
	for q := range m.quads {
		m.quads[q] = quadState{pitch: 0.5, volume: 1}
	}
	// Partners couple through the previous block.
	for i, v := range m.voices {
		g.ConnectDelayed(m.voices[i^1].OscOutput(), v.CouplingInput())
	}
	for i := range m.voices {
		m.applyFrequency(i)
	}
	for i := 8; i < Count; i++ {
		m.voices[i].SetIdle(true)
	}
	return m
}

// Voice returns voice i or nil.
func (m *Manager) Voice(i int) *Voice {
	if i < 0 || i >= Count {
		return nil
	}
	return m.voices[i]
}

// Voices returns all twelve voices in index order.
func (m *Manager) Voices() []*Voice { return m.voices[:] }

// SetSources installs the routing sources and re-applies every route that
// depends on them.
func (m *Manager) SetSources(s Sources) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = s
	for p := range m.pairs {
		m.routeModSource(p)
	}
	for q := range m.quads {
		m.routeTrigger(q)
		m.routePitch(q)
	}
}

// Frequency computes the effective frequency of voice i:
// 55·2^(tune·4) · 2^((quadPitch−0.5)·2) · register.
func Frequency(tune, quadPitch, register float64) float64 {
	base := 55 * math.Exp2(tune*4)
	return base * math.Exp2((quadPitch-0.5)*2) * register
}

func (m *Manager) applyFrequency(i int) {
	v := m.voices[i]
	v.SetFrequency(Frequency(m.tune[i], m.quads[QuadOf(i)].pitch, v.Register()))
}

// SetTune sets the tune of voice i in 0..1 and recomputes its frequency.
func (m *Manager) SetTune(i int, tune float64) {
	if i < 0 || i >= Count {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tune[i] = clamp(tune, 0, 1)
	m.applyFrequency(i)
}

func (m *Manager) Tune(i int) float64 {
	if i < 0 || i >= Count {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tune[i]
}

// SetGate forwards to the voice, waking it first when needed.
func (m *Manager) SetGate(i int, active bool) {
	if v := m.Voice(i); v != nil {
		v.SetGate(active)
	}
}

// SetIdle idles or wakes voice i.
func (m *Manager) SetIdle(i int, idle bool) {
	if v := m.Voice(i); v != nil {
		v.SetIdle(idle)
	}
}

func (m *Manager) IsIdle(i int) bool {
	v := m.Voice(i)
	return v != nil && v.IsIdle()
}

// SetPairSharpness sets the waveform morph of both voices of pair p.
func (m *Manager) SetPairSharpness(p int, s float64) {
	if p < 0 || p >= Pairs {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[p].sharpness = clamp(s, 0, 1)
	for _, v := range m.pairVoices(p) {
		v.SetSharpness(m.pairs[p].sharpness)
	}
}

func (m *Manager) PairSharpness(p int) float64 {
	if p < 0 || p >= Pairs {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[p].sharpness
}

// SetModSource selects the modulation source of pair p.
func (m *Manager) SetModSource(p int, src ModSource) {
	if p < 0 || p >= Pairs || src < ModOff || src > ModFlux {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[p].modSource = src
	m.routeModSource(p)
}

func (m *Manager) ModSource(p int) ModSource {
	if p < 0 || p >= Pairs {
		return ModOff
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[p].modSource
}

// SetCrossQuad switches the VOICE_FM structure between in-pair and
// cross-quad and re-routes the pairs using it.
func (m *Manager) SetCrossQuad(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.crossQuad == on {
		return
	}
	m.crossQuad = on
	for p := range m.pairs {
		if m.pairs[p].modSource == ModVoiceFM {
			m.routeModSource(p)
		}
	}
}

func (m *Manager) CrossQuad() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crossQuad
}

func (m *Manager) routeModSource(p int) {
	st := &m.pairs[p]
	voices := m.pairVoices(p)
	eng := m.activeEngine(p)
	for _, v := range voices {
		m.g.DisconnectAll(v.ModInput())
	}
	if eng != nil {
		m.g.DisconnectAll(eng.ModInput())
	}
	switch st.modSource {
	case ModOff:
		if eng != nil {
			eng.SetTimbreModAmount(0)
		}
		return
	case ModLFO:
		for _, v := range voices {
			m.g.Connect(m.src.LFO, v.ModInput())
		}
		if eng != nil {
			m.g.Connect(m.src.LFO, eng.ModInput())
		}
	case ModVoiceFM:
		if m.crossQuad {
			srcVoices := m.pairVoices(crossQuadFM[p])
			m.g.ConnectDelayed(srcVoices[0].OscOutput(), voices[0].ModInput())
			m.g.ConnectDelayed(srcVoices[1].OscOutput(), voices[1].ModInput())
			if eng != nil {
				m.g.ConnectDelayed(srcVoices[0].Output(), eng.ModInput())
			}
		} else {
			m.g.ConnectDelayed(voices[1].OscOutput(), voices[0].ModInput())
			m.g.ConnectDelayed(voices[0].OscOutput(), voices[1].ModInput())
			if eng != nil {
				m.g.ConnectDelayed(eng.Output(1), eng.ModInput())
			}
		}
	case ModFlux:
		cv := m.src.FluxCV[p%3]
		for _, v := range voices {
			m.g.Connect(cv, v.ModInput())
		}
		if eng != nil {
			m.g.Connect(cv, eng.ModInput())
		}
	}
	if eng != nil {
		eng.SetTimbreModAmount(st.timbreMod)
	}
}

// SetPairEngine swaps the alternate engine of pair p. KindNone returns the
// pair to its own oscillators. Engines are pooled per pair and kind.
func (m *Manager) SetPairEngine(p int, kind pairengine.Kind) {
	if p < 0 || p >= Pairs {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &m.pairs[p]
	if st.kind == kind {
		return
	}
	voices := m.pairVoices(p)
	if old := m.activeEngine(p); old != nil {
		m.g.SetEnabled(old, false)
		for slot, v := range voices {
			m.g.Disconnect(old.Output(slot), v.sourceInput())
			m.g.Connect(v.OscOutput(), v.sourceInput())
			v.detachEngine()
		}
		m.g.DisconnectAll(old.ModInput())
	}
	st.kind = pairengine.KindNone
	var eng pairengine.Engine
	if kind != pairengine.KindNone {
		eng = st.engines[kind]
		if eng == nil {
			eng = m.factory(kind, m.sampleRate)
			if eng != nil {
				st.engines[kind] = eng
				m.g.Add(eng)
			}
		}
	}
	if eng == nil {
		m.restoreQuadHold(voices)
		m.routeModSource(p)
		return
	}
	eng.SetFeedback(0)
	for slot, v := range voices {
		m.g.Disconnect(v.OscOutput(), v.sourceInput())
		m.g.Connect(eng.Output(slot), v.sourceInput())
		v.attachEngine(eng.Frequency(slot), eng.Gate(slot))
	}
	m.g.SetEnabled(eng, true)
	st.kind = kind
	if eng.Percussive() {
		for _, v := range voices {
			v.SetHoldLevel(1)
		}
	} else {
		m.restoreQuadHold(voices)
	}
	eng.SetTimbre(st.timbre)
	eng.SetMorph(st.morph)
	eng.SetHarmonics(st.harmonics)
	m.routeModSource(p)
	for _, v := range voices {
		m.applyFrequency(v.Index())
	}
}

func (m *Manager) PairEngine(p int) pairengine.Kind {
	if p < 0 || p >= Pairs {
		return pairengine.KindNone
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs[p].kind
}

// Engine returns the active alternate engine of pair p, or nil.
func (m *Manager) Engine(p int) pairengine.Engine {
	if p < 0 || p >= Pairs {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeEngine(p)
}

func (m *Manager) activeEngine(p int) pairengine.Engine {
	st := &m.pairs[p]
	if st.kind == pairengine.KindNone {
		return nil
	}
	return st.engines[st.kind]
}

func (m *Manager) restoreQuadHold(voices [2]*Voice) {
	for _, v := range voices {
		v.SetHoldLevel(m.quads[QuadOf(v.Index())].hold)
	}
}

// SetPairTimbre, SetPairMorph and SetPairHarmonics cache the value and
// forward it to the active engine.
func (m *Manager) SetPairTimbre(p int, x float64) {
	m.setEngineParam(p, x, func(st *pairState, x float64) { st.timbre = x }, pairengine.Engine.SetTimbre)
}

func (m *Manager) SetPairMorph(p int, x float64) {
	m.setEngineParam(p, x, func(st *pairState, x float64) { st.morph = x }, pairengine.Engine.SetMorph)
}

func (m *Manager) SetPairHarmonics(p int, x float64) {
	m.setEngineParam(p, x, func(st *pairState, x float64) { st.harmonics = x }, pairengine.Engine.SetHarmonics)
}

// SetPairTimbreMod sets how far the modulation source moves the engine timbre.
func (m *Manager) SetPairTimbreMod(p int, x float64) {
	if p < 0 || p >= Pairs {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[p].timbreMod = clamp(x, -1, 1)
	if eng := m.activeEngine(p); eng != nil && m.pairs[p].modSource != ModOff {
		eng.SetTimbreModAmount(m.pairs[p].timbreMod)
	}
}

func (m *Manager) setEngineParam(p int, x float64, store func(*pairState, float64), apply func(pairengine.Engine, float64)) {
	if p < 0 || p >= Pairs {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	x = clamp(x, 0, 1)
	store(&m.pairs[p], x)
	if eng := m.activeEngine(p); eng != nil {
		apply(eng, x)
	}
}

// PairParams returns the cached timbre, morph and harmonics of pair p.
func (m *Manager) PairParams(p int) (timbre, morph, harmonics float64) {
	if p < 0 || p >= Pairs {
		return 0, 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.pairs[p]
	return st.timbre, st.morph, st.harmonics
}

// SetVoiceFeedback sets the self-feedback of the engine slot that voice i
// plays through. Without an alternate engine it is a no-op.
func (m *Manager) SetVoiceFeedback(i int, amount float64) {
	if i < 0 || i >= Count {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if eng := m.activeEngine(PairOf(i)); eng != nil {
		eng.SetFeedback(amount)
	}
}

// SetQuadPitch sets the pitch offset of quad q in 0..1 (0.5 is unison)
// and recomputes its four voices.
func (m *Manager) SetQuadPitch(q int, pitch float64) {
	if q < 0 || q >= Quads {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads[q].pitch = clamp(pitch, 0, 1)
	for _, v := range m.quadVoices(q) {
		m.applyFrequency(v.Index())
	}
}

func (m *Manager) QuadPitch(q int) float64 {
	if q < 0 || q >= Quads {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quads[q].pitch
}

// SetQuadHold sets the hold level of the four voices of quad q. Voices
// playing through a percussive engine keep their forced hold.
func (m *Manager) SetQuadHold(q int, hold float64) {
	if q < 0 || q >= Quads {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads[q].hold = clamp(hold, 0, 1)
	for _, v := range m.quadVoices(q) {
		if eng := m.activeEngine(PairOf(v.Index())); eng != nil && eng.Percussive() {
			continue
		}
		v.SetHoldLevel(m.quads[q].hold)
	}
}

func (m *Manager) QuadHold(q int) float64 {
	if q < 0 || q >= Quads {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quads[q].hold
}

// SetQuadVolume sets the output gain of the four voices of quad q.
func (m *Manager) SetQuadVolume(q int, vol float64) {
	if q < 0 || q >= Quads {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads[q].volume = clamp(vol, 0, 1)
	for _, v := range m.quadVoices(q) {
		v.setOutputGain(m.quads[q].volume)
	}
}

func (m *Manager) QuadVolume(q int) float64 {
	if q < 0 || q >= Quads {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quads[q].volume
}

// QuadVolumeInputs are the output gain inputs of the voices of quad q.
func (m *Manager) QuadVolumeInputs(q int) []*graph.Input {
	if q < 0 || q >= Quads {
		return nil
	}
	var ins []*graph.Input
	for _, v := range m.quadVoices(q) {
		ins = append(ins, v.VolumeInput())
	}
	return ins
}

// SetQuadTriggerSource routes a flux gate (1-3) into the envelope trigger of
// every voice of quad q, or none (0).
func (m *Manager) SetQuadTriggerSource(q, src int) {
	if q < 0 || q >= Quads || src < TriggerInternal || src > 3 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads[q].triggerSource = src
	m.routeTrigger(q)
}

func (m *Manager) QuadTriggerSource(q int) int {
	if q < 0 || q >= Quads {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quads[q].triggerSource
}

func (m *Manager) routeTrigger(q int) {
	src := m.quads[q].triggerSource
	for _, v := range m.quadVoices(q) {
		m.g.DisconnectAll(v.TriggerInput())
		if src == TriggerInternal {
			continue
		}
		if out := m.src.FluxGate[src-1]; out != nil {
			v.SetIdle(false)
			m.g.Connect(out, v.TriggerInput())
		}
	}
}

// SetQuadPitchSource routes a flux CV (1-3) or the LFO (4) into the pitch
// CV of every voice of quad q, or none (0).
func (m *Manager) SetQuadPitchSource(q, src int) {
	if q < 0 || q >= Quads || src < PitchNone || src > PitchLFO {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads[q].pitchSource = src
	m.routePitch(q)
}

func (m *Manager) QuadPitchSource(q int) int {
	if q < 0 || q >= Quads {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quads[q].pitchSource
}

func (m *Manager) routePitch(q int) {
	var out *graph.Output
	switch src := m.quads[q].pitchSource; {
	case src == PitchLFO:
		out = m.src.LFO
	case src > PitchNone:
		out = m.src.FluxCV[src-1]
	}
	for _, v := range m.quadVoices(q) {
		m.g.DisconnectAll(v.CVPitchInput())
		m.g.Connect(out, v.CVPitchInput())
	}
}

// SetQuadEnvelopeMode selects gate (ASR) or trigger (AD) envelopes for quad q.
func (m *Manager) SetQuadEnvelopeMode(q, mode int) {
	if q < 0 || q >= Quads || mode < 0 || mode > 1 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads[q].envMode = mode
	for _, v := range m.quadVoices(q) {
		v.SetEnvelopeMode(mode)
	}
}

func (m *Manager) QuadEnvelopeMode(q int) int {
	if q < 0 || q >= Quads {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quads[q].envMode
}

func (m *Manager) pairVoices(p int) [2]*Voice {
	return [2]*Voice{m.voices[2*p], m.voices[2*p+1]}
}

func (m *Manager) quadVoices(q int) [4]*Voice {
	return [4]*Voice{m.voices[4*q], m.voices[4*q+1], m.voices[4*q+2], m.voices[4*q+3]}
}

// Levels returns the output peak of every voice.
func (m *Manager) Levels() [Count]float32 {
	var out [Count]float32
	for i, v := range m.voices {
		out[i] = v.Level()
	}
	return out
}
