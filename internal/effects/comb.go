package effects

// Comb is a feedback comb filter with a damping lowpass inside the loop.
// Length is variable so it can be tuned to a pitch.
type Comb struct {
	line  *DelayLine
	store float32
}

// NewComb allocates a comb long enough for lowest Hz.
func NewComb(sampleRate int, lowest float64) *Comb {
	return &Comb{line: NewDelayLine(sampleRate, 1/lowest+0.001)}
}

// Process runs one sample through a comb of period samples. feedback sets
// the decay, damping (0..1) darkens each pass.
func (c *Comb) Process(in float32, period float64, feedback, damping float32) float32 {
	out := c.line.Read(period)
	c.store = out*(1-damping) + c.store*damping
	c.line.Write(in + c.store*clamp(feedback, 0, 0.995))
	return out
}

func (c *Comb) Reset() {
	c.line.Reset()
	c.store = 0
}
