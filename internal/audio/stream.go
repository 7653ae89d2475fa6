// Package audio pulls interleaved stereo float32 frames from a SampleSource
// and hands them to a hardware backend.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

type SampleSource interface {
	// Process fills dst with interleaved stereo frames.
	Process(dst []float32)
}

// StreamReader adapts a SampleSource to an io.Reader of 32-bit little
// endian float frames, the format both backends consume.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// Backend selects the output device driver.
type Backend int

const (
	// BackendNone renders nothing to hardware; the caller pulls frames.
	BackendNone Backend = iota
	BackendEbiten
	BackendOto
)

func (b Backend) String() string {
	switch b {
	case BackendNone:
		return "none"
	case BackendEbiten:
		return "ebiten"
	case BackendOto:
		return "oto"
	}
	return "unknown"
}

// ParseBackend resolves a backend name.
func ParseBackend(name string) (Backend, error) {
	for _, b := range []Backend{BackendNone, BackendEbiten, BackendOto} {
		if b.String() == name {
			return b, nil
		}
	}
	return BackendNone, fmt.Errorf("audio: unknown backend %q", name)
}

// Output is a running hardware stream.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Open creates a paused output for backend pulling from source.
func Open(backend Backend, sampleRate int, source SampleSource) (Output, error) {
	switch backend {
	case BackendEbiten:
		return newEbitenOutput(sampleRate, source)
	case BackendOto:
		return newOtoOutput(sampleRate, source)
	case BackendNone:
		return &nullOutput{}, nil
	}
	return nil, fmt.Errorf("audio: unknown backend %d", backend)
}

// nullOutput tracks play state only.
type nullOutput struct {
	mu      sync.Mutex
	playing bool
}

func (o *nullOutput) Play()  { o.set(true) }
func (o *nullOutput) Pause() { o.set(false) }

func (o *nullOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

func (o *nullOutput) Close() error {
	o.set(false)
	return nil
}

func (o *nullOutput) set(v bool) {
	o.mu.Lock()
	o.playing = v
	o.mu.Unlock()
}
