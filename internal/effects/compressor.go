package effects

import "math"

// Compressor is a stereo-linked feed-forward compressor.
type Compressor struct {
	sampleRate float64
	threshold  float32
	ratio      float32
	attack     float32
	release    float32
	makeup     float32
	env        float32
}

// NewCompressor creates a compressor. Times are in milliseconds, levels in dB.
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	c := &Compressor{sampleRate: float64(sampleRate)}
	c.SetTimes(attackMs, releaseMs)
	c.Set(thresholdDB, ratio, makeupDB)
	return c
}

// Set updates threshold, ratio and makeup gain. Call from the render path.
func (c *Compressor) Set(thresholdDB, ratio, makeupDB float32) {
	c.threshold = float32(math.Pow(10, float64(thresholdDB)/20))
	if ratio < 1 {
		ratio = 1
	}
	c.ratio = ratio
	c.makeup = float32(math.Pow(10, float64(makeupDB)/20))
}

func (c *Compressor) SetTimes(attackMs, releaseMs float32) {
	c.attack = float32(1.0 - math.Exp(-1.0/(float64(attackMs)*c.sampleRate/1000.0)))
	c.release = float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*c.sampleRate/1000.0)))
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	level := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	if level > c.env {
		c.env += c.attack * (level - c.env)
	} else {
		c.env += c.release * (level - c.env)
	}
	g := c.gain() * c.makeup
	return l * g, r * g
}

func (c *Compressor) gain() float32 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1
	}
	over := c.env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Compressor) Reset() { c.env = 0 }
