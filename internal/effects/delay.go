package effects

import "math"

// DelayLine is a mono circular buffer with fractional-sample reads.
type DelayLine struct {
	buf []float32
	pos int
}

// NewDelayLine allocates room for maxSeconds of audio.
func NewDelayLine(sampleRate int, maxSeconds float64) *DelayLine {
	n := int(maxSeconds * float64(sampleRate))
	if n < 4 {
		n = 4
	}
	return &DelayLine{buf: make([]float32, n)}
}

// Len returns the capacity in samples.
func (d *DelayLine) Len() int { return len(d.buf) }

// Read returns the sample written delay samples ago, linearly interpolated.
func (d *DelayLine) Read(delay float64) float32 {
	n := len(d.buf)
	if delay < 1 {
		delay = 1
	}
	if delay > float64(n-1) {
		delay = float64(n - 1)
	}
	whole := int(delay)
	frac := float32(delay - math.Floor(delay))
	i0 := d.pos - whole + 1
	if i0 < 0 {
		i0 += n
	}
	i1 := i0 - 1
	if i1 < 0 {
		i1 += n
	}
	return d.buf[i0] + (d.buf[i1]-d.buf[i0])*frac
}

// At returns the raw sample at an absolute buffer index.
func (d *DelayLine) At(i int) float32 {
	n := len(d.buf)
	i %= n
	if i < 0 {
		i += n
	}
	return d.buf[i]
}

// Write stores x and advances the head.
func (d *DelayLine) Write(x float32) {
	d.pos++
	if d.pos >= len(d.buf) {
		d.pos = 0
	}
	d.buf[d.pos] = x
}

// Head returns the index of the most recent write.
func (d *DelayLine) Head() int { return d.pos }

func (d *DelayLine) Reset() {
	clear(d.buf)
	d.pos = 0
}

// Echo is a feedback delay built on a DelayLine. Process returns only the
// delayed signal; the dry path is mixed elsewhere.
type Echo struct {
	line       *DelayLine
	sampleRate float64
}

func NewEcho(sampleRate int, maxSeconds float64) *Echo {
	return &Echo{line: NewDelayLine(sampleRate, maxSeconds), sampleRate: float64(sampleRate)}
}

// Process feeds x plus feedback into the line and returns the tap at seconds.
func (e *Echo) Process(x float32, seconds float64, feedback float32) float32 {
	out := e.line.Read(seconds * e.sampleRate)
	e.line.Write(x + out*clamp(feedback, 0, 0.95))
	return out
}

func (e *Echo) Reset() { e.line.Reset() }
