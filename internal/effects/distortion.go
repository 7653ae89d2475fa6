package effects

import "math"

// Shaper is a tanh waveshaper with a one-pole tone filter after it.
type Shaper struct {
	sampleRate float64
	alpha      float32
	state      float32
}

// NewShaper creates a shaper whose tone filter sits at cutoff Hz (0 disables it).
func NewShaper(sampleRate int, cutoff float64) *Shaper {
	s := &Shaper{sampleRate: float64(sampleRate)}
	s.SetCutoff(cutoff)
	return s
}

func (s *Shaper) SetCutoff(cutoff float64) {
	if cutoff <= 0 || cutoff >= s.sampleRate/2 {
		s.alpha = 0
		return
	}
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	dt := 1.0 / s.sampleRate
	s.alpha = float32(dt / (rc + dt))
}

// Process drives x into the curve. Output gain is normalised so a drive of
// 1 leaves small signals near unity.
func (s *Shaper) Process(x, drive float32) float32 {
	if drive < 1 {
		drive = 1
	}
	y := float32(math.Tanh(float64(x*drive))) / float32(math.Tanh(float64(drive)))
	if s.alpha > 0 {
		s.state += s.alpha * (y - s.state)
		return s.state
	}
	return y
}

func (s *Shaper) Reset() { s.state = 0 }
