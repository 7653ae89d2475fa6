package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/midibridge"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", polysynth.DefaultSampleRate, "output sample rate")
		outputName = flag.String("output", "ebiten", "audio output: ebiten|oto|none")
		wavPath    = flag.String("wav", "", "render offline to a float32 WAV file instead of playing")
		seconds    = flag.Float64("seconds", 8, "length of an offline render")
		tempo      = flag.Float64("tempo", 112, "demo pattern tempo in BPM")
		volume     = flag.Float64("volume", polysynth.DefaultMasterVolume, "master volume (0-1)")
		keys       = flag.Bool("keys", false, "play from the keyboard (raw terminal)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, options{
		sampleRate: *sampleRate,
		output:     *outputName,
		wavPath:    *wavPath,
		seconds:    *seconds,
		tempo:      *tempo,
		volume:     *volume,
		keys:       *keys,
	}); err != nil {
		logger.Error("polysynth failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	sampleRate int
	output     string
	wavPath    string
	seconds    float64
	tempo      float64
	volume     float64
	keys       bool
}

func run(logger *slog.Logger, opt options) error {
	out, err := polysynth.ParseOutput(opt.output)
	if err != nil {
		return err
	}
	if opt.wavPath != "" {
		out = polysynth.OutputNone
	}
	snapshots := make(chan polysynth.Snapshot, 1)
	e, err := polysynth.NewEngine(
		polysynth.WithSampleRate(opt.sampleRate),
		polysynth.WithOutput(out),
		polysynth.WithLogger(logger),
		polysynth.WithMonitorListener(func(s polysynth.Snapshot) {
			select {
			case snapshots <- s:
			default:
			}
		}),
	)
	if err != nil {
		return err
	}
	defer e.Close()
	e.SetMasterVolume(opt.volume)
	applyDemoPatch(e)
	bridge := midibridge.New(e, []int{0, 1, 2, 3, 4, 5, 6, 7}, logger)
	pattern := newDemoPattern(bridge, opt.tempo)

	if opt.wavPath != "" {
		return renderWAV(e, pattern, opt, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := e.Start(); err != nil {
		return err
	}
	logger.Info("playing", "output", out.String(), "tempo", opt.tempo)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pattern.run(ctx) })
	g.Go(func() error { return printMeters(ctx, snapshots) })
	if opt.keys {
		g.Go(func() error { return playKeys(ctx, e, bridge) })
	}
	err = g.Wait()
	bridge.Panic()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		err = nil
	}
	if stopErr := e.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// renderWAV advances the demo pattern one step at a time between Process
// calls so the file matches live playback.
func renderWAV(e *polysynth.Engine, p *demoPattern, opt options, logger *slog.Logger) error {
	total := int(opt.seconds * float64(opt.sampleRate))
	stepFrames := int(p.step.Seconds() * float64(opt.sampleRate))
	samples := make([]float32, 0, total*2)
	for done := 0; done < total; done += stepFrames {
		p.advance()
		buf := make([]float32, 2*min(stepFrames, total-done))
		e.Process(buf)
		samples = append(samples, buf...)
	}
	p.bridge.Panic()
	if err := os.WriteFile(opt.wavPath, polysynth.EncodeWAVFloat32LE(samples, opt.sampleRate, 2), 0o644); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	logger.Info("rendered", "file", opt.wavPath, "seconds", opt.seconds)
	return nil
}

// printMeters draws a one-line meter when stdout is a terminal.
func printMeters(ctx context.Context, snapshots <-chan polysynth.Snapshot) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		<-ctx.Done()
		return ctx.Err()
	}
	defer fmt.Print("\r\033[K")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-snapshots:
			width := 80
			if w, _, err := term.GetSize(fd); err == nil && w > 0 {
				width = w
			}
			fmt.Print("\r\033[K" + meterLine(s, width))
		}
	}
}

func meterLine(s polysynth.Snapshot, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cpu %3.0f%% ", s.CPULoad*100)
	for _, l := range s.VoiceLevels {
		b.WriteByte(" .:-=+*#%@"[min(9, int(l*30))])
	}
	bar := max(0, width-b.Len()-8)
	n := min(bar, int(max(s.PeakL, s.PeakR)*float32(bar)))
	fmt.Fprintf(&b, " |%s%s|", strings.Repeat("=", n), strings.Repeat(" ", bar-n))
	if len(s.Automations) > 0 {
		b.WriteString(" auto")
	}
	if b.Len() > width {
		return b.String()[:width]
	}
	return b.String()
}

var errQuit = errors.New("quit")

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
