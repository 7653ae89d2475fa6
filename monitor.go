package polysynth

import (
	"context"
	"time"
)

// Snapshot is the read-only state published by the monitor loop.
type Snapshot struct {
	Time        time.Time
	PeakL       float32
	PeakR       float32
	CPULoad     float64
	VoiceLevels [Voices]float32
	LFOA        float32
	LFOB        float32
	Bend        float32
	Automations []string
}

// monitor samples the engine at the configured interval until ctx is done.
// It only reads atomics and never touches the graph lock.
func (e *Engine) monitor(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(e.cfg.monitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s := e.sample(now)
			e.snapshot.Store(s)
			if fn := e.cfg.monitorListener; fn != nil {
				fn(*s)
			}
		}
	}
}

func (e *Engine) sample(now time.Time) *Snapshot {
	s := &Snapshot{
		Time:        now,
		CPULoad:     e.CPULoad(),
		VoiceLevels: e.voices.Levels(),
		Bend:        e.patch.Bender.Position(),
		Automations: e.auto.Active(),
	}
	s.PeakL, s.PeakR = e.patch.Peak()
	s.LFOA, s.LFOB = e.patch.LFO.Levels()
	return s
}

// Monitor returns the latest snapshot. While the engine is stopped it is
// sampled on demand.
func (e *Engine) Monitor() Snapshot {
	if !e.IsRunning() {
		return *e.sample(time.Now())
	}
	return *e.snapshot.Load()
}
