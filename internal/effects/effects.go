// Package effects holds the per-sample DSP kernels the plugins and the
// master bus are built from.
package effects

import "sync/atomic"

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

type stage struct {
	fx     Effector
	bypass atomic.Bool
}

// Chain applies a fixed sequence of effects in order. Stages can be
// bypassed from any goroutine while the chain runs.
type Chain struct {
	stages []*stage
}

func NewChain(effects ...Effector) *Chain {
	c := &Chain{}
	for _, fx := range effects {
		c.stages = append(c.stages, &stage{fx: fx})
	}
	return c
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, s := range c.stages {
		if !s.bypass.Load() {
			l, r = s.fx.Process(l, r)
		}
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, s := range c.stages {
		s.fx.Reset()
	}
}

// SetBypass skips stage i. A bypassed stage is reset when it comes back so
// it does not replay stale state.
func (c *Chain) SetBypass(i int, on bool) {
	if i < 0 || i >= len(c.stages) {
		return
	}
	s := c.stages[i]
	if s.bypass.Swap(on) && !on {
		s.fx.Reset()
	}
}

func (c *Chain) Bypassed(i int) bool {
	return i >= 0 && i < len(c.stages) && c.stages[i].bypass.Load()
}

func (c *Chain) Len() int { return len(c.stages) }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
