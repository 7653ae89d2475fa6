// Package polysynth is a twelve-voice modular synthesizer engine. The Engine
// owns the signal graph, the voices, the plugins and the automation
// subsystem, and is the single control surface for everything above it.
package polysynth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	intaudio "github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/automation"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugin"
	"github.com/cbegin/polysynth-go/internal/plugins"
	"github.com/cbegin/polysynth-go/internal/voice"
	"github.com/cbegin/polysynth-go/internal/wiring"
)

// ErrPluginMissing is returned by NewEngine when the provider does not
// supply a required plugin type.
var ErrPluginMissing = wiring.ErrPluginMissing

// DefaultMasterVolume is the master gain of a new engine.
const DefaultMasterVolume = wiring.DefaultMasterVolume

// Fixed voice layout.
const (
	Voices = voice.Count
	Pairs  = voice.Pairs
	Quads  = voice.Quads
)

type Engine struct {
	id  uuid.UUID
	cfg config
	log *slog.Logger

	g        *graph.Graph
	registry *plugin.Registry
	voices   *voice.Manager
	patch    *wiring.Patch
	auto     *automation.Manager

	renderMu sync.Mutex
	cpuLoad  atomic.Uint64

	runMu         sync.Mutex
	running       atomic.Bool
	cancel        context.CancelFunc
	monitorDone   chan struct{}
	monitorStarts atomic.Int32
	out           intaudio.Output
	snapshot      atomic.Pointer[Snapshot]

	mu    sync.Mutex
	state macroState
}

// macroState holds knob values that live in no single port.
type macroState struct {
	resonatorMix       float64
	resonatorTargetMix float64
}

// NewEngine builds the graph, the voices and the plugins and wires them.
// The engine is silent until gates, holds or drums are played; Start opens
// the configured output.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	e := &Engine{
		id:  uuid.New(),
		cfg: cfg,
		g:   graph.New(cfg.blockSize),
	}
	e.log = cfg.logger.With("engine", e.id.String())
	sr := float64(cfg.sampleRate)

	var provider plugin.Provider
	if cfg.provider != nil {
		provider = cfg.provider(e)
	} else {
		provider = plugins.NewProvider(e.g, sr)
	}
	e.registry = plugin.NewRegistry(provider)
	e.voices = voice.NewManager(e.g, sr, cfg.engineFactory)

	patch, err := wiring.Build(e.g, e.registry, e.voices, sr, e.log)
	if err != nil {
		return nil, fmt.Errorf("polysynth: %w", err)
	}
	e.patch = patch
	e.auto = automation.NewManager(e.g, sr, e.log)
	if err := e.registerAutomations(); err != nil {
		return nil, fmt.Errorf("polysynth: %w", err)
	}
	patch.Macro.SetHandler(e.handleMacro)

	e.state.resonatorTargetMix = 0.5
	e.SetDrive(float64(patch.Distortion.Float("drive")))
	e.SetDelayMix(float64(patch.Delay.Float("mix")))
	e.applyResonatorBlend()
	e.snapshot.Store(&Snapshot{})

	e.log.Info("engine ready", "sample_rate", cfg.sampleRate, "block_size", e.g.BlockSize(), "units", e.g.Len(), "output", cfg.output.String())
	return e, nil
}

// ID identifies the engine in logs.
func (e *Engine) ID() string { return e.id.String() }

func (e *Engine) SampleRate() int { return e.cfg.sampleRate }

// Graph exposes the signal graph for custom plugin providers.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Process renders interleaved stereo frames into dst. It is the pull entry
// point used by the audio backends and offline rendering.
func (e *Engine) Process(dst []float32) {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()
	start := time.Now()
	frames := len(dst) / 2
	outL, outR := e.patch.Outputs()
	block := e.g.BlockSize()
	for off := 0; off < frames; off += block {
		n := min(block, frames-off)
		e.g.Render(n)
		l, r := outL.Buffer(n), outR.Buffer(n)
		for i := 0; i < n; i++ {
			dst[2*(off+i)] = l[i]
			dst[2*(off+i)+1] = r[i]
		}
	}
	if tap := e.cfg.sampleTap; tap != nil {
		tap(dst[:frames*2])
	}
	if frames > 0 {
		budget := float64(frames) / float64(e.cfg.sampleRate)
		load := time.Since(start).Seconds() / budget
		prev := math.Float64frombits(e.cpuLoad.Load())
		e.cpuLoad.Store(math.Float64bits(prev*0.9 + load*0.1))
	}
}

// CPULoad is the smoothed ratio of render time to real time.
func (e *Engine) CPULoad() float64 { return math.Float64frombits(e.cpuLoad.Load()) }

// Start opens the output and starts the monitor loop. Starting a running
// engine is a no-op.
func (e *Engine) Start() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running.Load() {
		return nil
	}
	out, err := intaudio.Open(e.cfg.output.backend(), e.cfg.sampleRate, e)
	if err != nil {
		e.log.Error("audio output failed", "output", e.cfg.output.String(), "err", err)
		return fmt.Errorf("polysynth: start: %w", err)
	}
	out.Play()
	e.out = out

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.monitorDone = make(chan struct{})
	e.monitorStarts.Add(1)
	go e.monitor(ctx, e.monitorDone)

	e.running.Store(true)
	e.log.Info("engine started")
	return nil
}

// Stop halts the output and the monitor loop. Nothing is freed, so Start
// resumes the same graph. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if !e.running.Load() {
		return nil
	}
	// The monitor listener may read IsRunning while we wait for it.
	e.running.Store(false)
	e.cancel()
	<-e.monitorDone
	e.cancel, e.monitorDone = nil, nil
	err := e.out.Close()
	e.out = nil
	e.log.Info("engine stopped")
	return err
}

// IsRunning never waits on Start or Stop, so it is safe from the monitor
// listener.
func (e *Engine) IsRunning() bool { return e.running.Load() }

// Close stops the engine and clears every automation.
func (e *Engine) Close() error {
	err := e.Stop()
	e.auto.ClearAll()
	return err
}

// SetPortValue writes a control port addressed by plugin URI and symbol.
// Unknown plugins or symbols report false.
func (e *Engine) SetPortValue(uri, symbol string, v PortValue) bool {
	p, ok := e.registry.ByURI(uri)
	if !ok || v == nil {
		return false
	}
	return p.SetPortValue(symbol, v)
}

// PortValue reads a control port; unknown plugins or symbols report false.
func (e *Engine) PortValue(uri, symbol string) (PortValue, bool) {
	p, ok := e.registry.ByURI(uri)
	if !ok {
		return nil, false
	}
	return p.PortValue(symbol)
}

// PluginURIs lists the registered plugins.
func (e *Engine) PluginURIs() []string {
	var uris []string
	for _, p := range e.registry.All() {
		uris = append(uris, p.URI())
	}
	return uris
}

// PortValue is the closed union of control values.
type PortValue = plugin.PortValue

// FloatValue, IntValue and BoolValue are the PortValue variants.
type (
	FloatValue = plugin.FloatValue
	IntValue   = plugin.IntValue
	BoolValue  = plugin.BoolValue
)
