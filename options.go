package polysynth

import (
	"log/slog"
	"time"

	intaudio "github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/pairengine"
	"github.com/cbegin/polysynth-go/internal/plugin"
)

// Output selects where Start sends audio.
type Output int

const (
	// OutputNone opens no device; frames are pulled with Process.
	OutputNone Output = iota
	OutputEbiten
	OutputOto
)

func (o Output) backend() intaudio.Backend {
	switch o {
	case OutputEbiten:
		return intaudio.BackendEbiten
	case OutputOto:
		return intaudio.BackendOto
	}
	return intaudio.BackendNone
}

func (o Output) String() string { return o.backend().String() }

// ParseOutput resolves "none", "ebiten" or "oto".
func ParseOutput(name string) (Output, error) {
	b, err := intaudio.ParseBackend(name)
	if err != nil {
		return OutputNone, err
	}
	switch b {
	case intaudio.BackendEbiten:
		return OutputEbiten, nil
	case intaudio.BackendOto:
		return OutputOto, nil
	}
	return OutputNone, nil
}

// PluginProvider supplies the plugin instances of an engine. The default
// builds the stock set.
type PluginProvider = plugin.Provider

// EngineFactory builds alternate pair engines. The default is the stock set.
type EngineFactory = pairengine.Factory

type Option func(*config)

type config struct {
	sampleRate      int
	blockSize       int
	output          Output
	logger          *slog.Logger
	monitorInterval time.Duration
	monitorListener func(Snapshot)
	sampleTap       func([]float32)
	provider        func(e *Engine) PluginProvider
	engineFactory   EngineFactory
}

const (
	DefaultSampleRate      = 48000
	DefaultMonitorInterval = time.Second / 30
)

func defaultConfig() config {
	return config{
		sampleRate:      DefaultSampleRate,
		output:          OutputEbiten,
		logger:          slog.New(slog.DiscardHandler),
		monitorInterval: DefaultMonitorInterval,
	}
}

func WithSampleRate(sampleRate int) Option {
	return func(cfg *config) {
		cfg.sampleRate = sampleRate
	}
}

// WithBlockSize sets the frames rendered per graph block. Non-positive
// values select the graph default.
func WithBlockSize(frames int) Option {
	return func(cfg *config) {
		cfg.blockSize = frames
	}
}

func WithOutput(out Output) Option {
	return func(cfg *config) {
		cfg.output = out
	}
}

// WithLogger installs a structured logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func WithMonitorInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.monitorInterval = d
		}
	}
}

// WithMonitorListener installs a callback invoked with every monitor
// snapshot. It runs on the monitor goroutine, never on the render path.
func WithMonitorListener(fn func(Snapshot)) Option {
	return func(cfg *config) {
		cfg.monitorListener = fn
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *config) {
		cfg.sampleTap = tap
	}
}

// WithProvider replaces the plugin provider. fn receives the engine so the
// provider can build plugins in its graph.
func WithProvider(fn func(e *Engine) PluginProvider) Option {
	return func(cfg *config) {
		cfg.provider = fn
	}
}

func WithEngineFactory(f EngineFactory) Option {
	return func(cfg *config) {
		cfg.engineFactory = f
	}
}
